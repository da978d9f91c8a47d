package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/custody/internal/db"
	"github.com/erazemk/custody/internal/model"
	"github.com/erazemk/custody/internal/store"
)

type fakeRecorder struct {
	mu        sync.Mutex
	committed int
	rejected  map[string]int
}

func (f *fakeRecorder) TransferCommitted(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed++
}

func (f *fakeRecorder) TransferRejected(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejected == nil {
		f.rejected = map[string]int{}
	}
	f.rejected[code]++
}

type WorkflowSuite struct {
	suite.Suite
	db      *sql.DB
	svc     *Service
	metrics *fakeRecorder
	ctx     context.Context
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = db.NewTestDB(s.T())
	s.metrics = &fakeRecorder{}
	s.svc = &Service{
		DB:      s.db,
		Metrics: s.metrics,
		Now:     func() time.Time { return time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC) },
	}

	units := make([]string, 0, 22)
	for i := 1; i <= 22; i++ {
		units = append(units, fmt.Sprintf("%d師団", i))
	}
	_, err := store.SeedUnits(s.ctx, s.db, units)
	s.Require().NoError(err)

	_, err = store.ProvisionEquipment(s.ctx, s.db, store.ProvisionRequest{
		ID: "E1", EquipmentType: "AM-38N", SerialNumber: "S-0001", Custodian: "1師団",
	})
	s.Require().NoError(err)
}

func (s *WorkflowSuite) request(to string) Request {
	return Request{EquipmentID: "E1", ReceivingUnit: to, Details: "resupply", RecorderName: "田中"}
}

func (s *WorkflowSuite) ledger() []model.TransferRecord {
	recs, err := store.ListTransfers(s.ctx, s.db, store.TransferFilter{})
	s.Require().NoError(err)
	return recs
}

func (s *WorkflowSuite) custodian(id string) string {
	e, err := store.GetEquipment(s.ctx, s.db, id)
	s.Require().NoError(err)
	return e.CurrentCustodian
}

func (s *WorkflowSuite) TestTransferCommits() {
	rec, err := s.svc.Transfer(s.ctx, s.request("2師団"))
	s.Require().NoError(err)

	s.Equal("0001", rec.Certificate())
	s.Equal("1師団", rec.IssuingUnit)
	s.Equal("2師団", rec.ReceivingUnit)
	s.Equal(time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC), rec.RecordedAt)

	e, err := store.GetEquipment(s.ctx, s.db, "E1")
	s.Require().NoError(err)
	s.Equal("2師団", e.CurrentCustodian)
	s.Equal("1師団", e.LastIssuer)

	recs := s.ledger()
	s.Require().Len(recs, 1)
	s.Equal("1師団", recs[0].IssuingUnit)
	s.Equal("2師団", recs[0].ReceivingUnit)
	s.Equal("resupply", recs[0].Details)
	s.Equal("田中", recs[0].RecorderName)

	s.Equal(1, s.metrics.committed)
}

func (s *WorkflowSuite) TestTransferTrimsInput() {
	rec, err := s.svc.Transfer(s.ctx, Request{
		EquipmentID: "E1", ReceivingUnit: " 2師団 ", Details: "  resupply\n", RecorderName: " 田中 ",
	})
	s.Require().NoError(err)
	s.Equal("2師団", rec.ReceivingUnit)
	s.Equal("resupply", rec.Details)
	s.Equal("田中", rec.RecorderName)
}

func (s *WorkflowSuite) TestSelfTransferRejected() {
	_, err := s.svc.Transfer(s.ctx, s.request("1師団"))
	s.Require().ErrorIs(err, ErrNoLocationChange)

	s.Empty(s.ledger())
	s.Equal("1師団", s.custodian("E1"))
	s.Equal(1, s.metrics.rejected["NoLocationChange"])
}

func (s *WorkflowSuite) TestValidationOrder() {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown equipment wins over everything", Request{EquipmentID: "E9"}, ErrEquipmentNotFound},
		{"empty equipment id", Request{ReceivingUnit: "2師団", Details: "x", RecorderName: "y"}, ErrEquipmentNotFound},
		{"empty receiving unit", Request{EquipmentID: "E1", Details: "x", RecorderName: "y"}, ErrInvalidReceivingUnit},
		{"unrecognized receiving unit", Request{EquipmentID: "E1", ReceivingUnit: "99師団"}, ErrInvalidReceivingUnit},
		{"self transfer before missing details", Request{EquipmentID: "E1", ReceivingUnit: "1師団"}, ErrNoLocationChange},
		{"blank details", Request{EquipmentID: "E1", ReceivingUnit: "2師団", Details: " \t", RecorderName: "y"}, ErrMissingDetails},
		{"details before recorder", Request{EquipmentID: "E1", ReceivingUnit: "2師団"}, ErrMissingDetails},
		{"blank recorder", Request{EquipmentID: "E1", ReceivingUnit: "2師団", Details: "x", RecorderName: "  "}, ErrMissingRecorder},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Transfer(s.ctx, tt.req)
			s.Require().ErrorIs(err, tt.want)
			s.Equal(KindValidation, Classify(err))
		})
	}

	s.Empty(s.ledger())
	s.Equal("1師団", s.custodian("E1"))
}

func (s *WorkflowSuite) TestStaleCommitIsRolledBack() {
	// Both requests validate against custodian 1師団 before either commits.
	unitA, reqA, err := s.svc.validate(s.ctx, s.request("2師団"))
	s.Require().NoError(err)
	unitB, reqB, err := s.svc.validate(s.ctx, s.request("3師団"))
	s.Require().NoError(err)

	recA, err := s.svc.commit(s.ctx, unitA, reqA)
	s.Require().NoError(err)
	s.EqualValues(1, recA.CertificateNo)

	_, err = s.svc.commit(s.ctx, unitB, reqB)
	s.Require().ErrorIs(err, ErrConcurrentModification)
	s.Equal(KindConcurrency, Classify(err))

	recs := s.ledger()
	s.Require().Len(recs, 1)
	s.Equal("2師団", recs[0].ReceivingUnit)
	s.Equal("2師団", s.custodian("E1"))

	// The number taken by the rolled back append is issued next.
	rec, err := s.svc.Transfer(s.ctx, s.request("3師団"))
	s.Require().NoError(err)
	s.EqualValues(2, rec.CertificateNo)
	s.Equal("2師団", rec.IssuingUnit)
}

func (s *WorkflowSuite) TestNumberingUnavailableLeavesStateUnchanged() {
	_, err := s.db.ExecContext(s.ctx, `DELETE FROM ledger_sequence`)
	s.Require().NoError(err)

	_, err = s.svc.Transfer(s.ctx, s.request("2師団"))
	s.Require().ErrorIs(err, ErrNumberingUnavailable)
	s.Equal(KindNumbering, Classify(err))

	s.Empty(s.ledger())
	s.Equal("1師団", s.custodian("E1"))
}

func (s *WorkflowSuite) TestLockedLedgerIsRetryable() {
	var path string
	s.Require().NoError(s.db.QueryRowContext(s.ctx,
		`SELECT file FROM pragma_database_list WHERE name = 'main'`).Scan(&path))

	// A second handle on the same file that gives up on locks immediately.
	impatient, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(0)&_txlock=immediate")
	s.Require().NoError(err)
	defer impatient.Close()
	svc := &Service{DB: impatient, Metrics: s.metrics}

	holder, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)

	_, err = svc.Transfer(s.ctx, s.request("2師団"))
	s.Require().NoError(holder.Rollback())
	s.Require().ErrorIs(err, ErrLedgerBusy)
	s.Equal(KindConcurrency, Classify(err))
	s.Equal(1, s.metrics.rejected["LedgerBusy"])

	s.Empty(s.ledger())
	s.Equal("1師団", s.custodian("E1"))

	rec, err := svc.Transfer(s.ctx, s.request("2師団"))
	s.Require().NoError(err)
	s.Equal("0001", rec.Certificate())
}

func (s *WorkflowSuite) TestCancelledContextWritesNothing() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.svc.Transfer(ctx, s.request("2師団"))
	s.Require().Error(err)
	s.True(errors.Is(err, context.Canceled))
	s.Equal(KindInternal, Classify(err))

	s.Empty(s.ledger())
	s.Equal("1師団", s.custodian("E1"))
}

func (s *WorkflowSuite) TestCustodyChainAcrossTransfers() {
	path := []string{"2師団", "5師団", "1師団", "22師団"}
	for _, to := range path {
		_, err := s.svc.Transfer(s.ctx, s.request(to))
		s.Require().NoError(err)
	}

	recs := s.ledger()
	s.Require().Len(recs, len(path))
	prev := "1師団"
	for i, rec := range recs {
		s.EqualValues(i+1, rec.CertificateNo)
		s.Equal(prev, rec.IssuingUnit)
		s.Equal(path[i], rec.ReceivingUnit)
		prev = rec.ReceivingUnit
	}
	s.Equal("22師団", s.custodian("E1"))
}

func (s *WorkflowSuite) TestConcurrentTransfersSameEquipment() {
	defer goleak.VerifyNone(s.T(), goleak.IgnoreCurrent())

	const n = 12
	var (
		mu        sync.Mutex
		successes []*model.TransferRecord
	)

	g, ctx := errgroup.WithContext(s.ctx)
	start := make(chan struct{})
	for i := range n {
		to := fmt.Sprintf("%d師団", i+2) // distinct targets, never 1師団
		g.Go(func() error {
			<-start
			rec, err := s.svc.Transfer(ctx, s.request(to))
			if err != nil {
				if errors.Is(err, ErrConcurrentModification) {
					return nil
				}
				return err
			}
			mu.Lock()
			successes = append(successes, rec)
			mu.Unlock()
			return nil
		})
	}
	close(start)
	s.Require().NoError(g.Wait())

	s.Require().NotEmpty(successes)

	recs := s.ledger()
	s.Require().Len(recs, len(successes), "every success has exactly one ledger entry")

	seen := map[int64]bool{}
	for _, rec := range successes {
		s.False(seen[rec.CertificateNo], "certificate %d issued twice", rec.CertificateNo)
		seen[rec.CertificateNo] = true
	}

	prev := "1師団"
	for i, rec := range recs {
		s.EqualValues(i+1, rec.CertificateNo, "numbers are gap-free")
		s.Equal(prev, rec.IssuingUnit, "each transfer starts where the previous one ended")
		prev = rec.ReceivingUnit
	}
	s.Equal(prev, s.custodian("E1"))

	s.Equal(len(successes), s.metrics.committed)
	s.Equal(n-len(successes), s.metrics.rejected["ConcurrentModification"])
}

func (s *WorkflowSuite) TestIndependentEquipmentDoesNotConflict() {
	_, err := store.ProvisionEquipment(s.ctx, s.db, store.ProvisionRequest{
		ID: "E2", EquipmentType: "KOF-09", Custodian: "1師団",
	})
	s.Require().NoError(err)

	g, ctx := errgroup.WithContext(s.ctx)
	for _, id := range []string{"E1", "E2"} {
		g.Go(func() error {
			_, err := s.svc.Transfer(ctx, Request{EquipmentID: id, ReceivingUnit: "4師団", Details: "x", RecorderName: "y"})
			return err
		})
	}
	s.Require().NoError(g.Wait())

	s.Len(s.ledger(), 2)
	s.Equal("4師団", s.custodian("E1"))
	s.Equal("4師団", s.custodian("E2"))
}
