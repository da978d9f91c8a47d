// Package custody implements the custody transfer workflow: it validates a
// transfer request against the equipment registry and commits the ledger
// append and the custodian update as one transaction.
package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/custody/internal/model"
	"github.com/erazemk/custody/internal/store"
)

// Request is a proposed transfer of one equipment unit.
type Request struct {
	EquipmentID   string `json:"equipment_id"`
	ReceivingUnit string `json:"receiving_unit"`
	Details       string `json:"details"`
	RecorderName  string `json:"recorder_name"`

	// SubmittedBy is the authenticated user, if any. Not part of validation.
	SubmittedBy *int64 `json:"-"`
}

// Recorder receives workflow outcomes. internal/metrics implements it.
type Recorder interface {
	TransferCommitted(elapsed time.Duration)
	TransferRejected(code string)
}

// Service runs transfers. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	DB      *sql.DB
	Metrics Recorder         // optional
	Now     func() time.Time // optional, defaults to time.Now
}

// Transfer validates req and, if it passes, commits it. On success it returns
// the stored record including its certificate number. On any error both the
// ledger and the registry are unchanged.
func (s *Service) Transfer(ctx context.Context, req Request) (*model.TransferRecord, error) {
	start := time.Now()

	unit, req, err := s.validate(ctx, req)
	if err != nil {
		s.rejected(req, err)
		return nil, err
	}

	rec, err := s.commit(ctx, unit, req)
	if err != nil {
		s.rejected(req, err)
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.TransferCommitted(time.Since(start))
	}
	slog.Info("transfer committed",
		"certificate", rec.Certificate(), "equipment", rec.EquipmentID,
		"from", rec.IssuingUnit, "to", rec.ReceivingUnit, "recorder", rec.RecorderName)
	return rec, nil
}

// validate runs the rules in order; the first failure wins. It returns the
// equipment as read at validation time and the normalised request.
func (s *Service) validate(ctx context.Context, req Request) (*model.EquipmentUnit, Request, error) {
	req.ReceivingUnit = strings.TrimSpace(req.ReceivingUnit)
	req.Details = strings.TrimSpace(req.Details)
	req.RecorderName = strings.TrimSpace(req.RecorderName)

	if req.EquipmentID == "" {
		return nil, req, ErrEquipmentNotFound
	}
	unit, err := store.GetEquipment(ctx, s.DB, req.EquipmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, req, fmt.Errorf("%w: %s", ErrEquipmentNotFound, req.EquipmentID)
	}
	if err != nil {
		return nil, req, fmt.Errorf("looking up equipment: %w", err)
	}

	if req.ReceivingUnit == "" {
		return nil, req, ErrInvalidReceivingUnit
	}
	known, err := store.UnitExists(ctx, s.DB, req.ReceivingUnit)
	if err != nil {
		return nil, req, fmt.Errorf("looking up receiving unit: %w", err)
	}
	if !known {
		return nil, req, fmt.Errorf("%w: %s", ErrInvalidReceivingUnit, req.ReceivingUnit)
	}

	if req.ReceivingUnit == unit.CurrentCustodian {
		return nil, req, fmt.Errorf("%w: %s already holds %s", ErrNoLocationChange, unit.CurrentCustodian, unit.ID)
	}

	if req.Details == "" {
		return nil, req, ErrMissingDetails
	}
	if req.RecorderName == "" {
		return nil, req, ErrMissingRecorder
	}

	return unit, req, nil
}

// commit appends the ledger entry and moves custody in one transaction. The
// custodian update is conditional on the custodian read during validation;
// losing that race rolls the append back, certificate number included.
func (s *Service) commit(ctx context.Context, unit *model.EquipmentUnit, req Request) (*model.TransferRecord, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(fmt.Errorf("beginning transfer: %w", err))
	}
	defer tx.Rollback()

	rec := &model.TransferRecord{
		RecordedAt:    s.now().UTC(),
		EquipmentID:   unit.ID,
		IssuingUnit:   unit.CurrentCustodian,
		ReceivingUnit: req.ReceivingUnit,
		Details:       req.Details,
		RecorderName:  req.RecorderName,
		RecordedBy:    req.SubmittedBy,
	}

	if err := store.AppendTransfer(ctx, tx, rec); err != nil {
		return nil, translate(err)
	}

	if err := store.UpdateCustodian(ctx, tx, unit.ID, rec.ReceivingUnit, rec.IssuingUnit); err != nil {
		return nil, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translate(fmt.Errorf("committing transfer: %w", err))
	}
	return rec, nil
}

// translate maps store failures onto the workflow taxonomy.
func translate(err error) error {
	switch {
	case store.IsBusy(err):
		return fmt.Errorf("%w: %w", ErrLedgerBusy, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
	case errors.Is(err, store.ErrDuplicateCertificate):
		return fmt.Errorf("%w: %w", ErrDuplicateCertificate, err)
	case errors.Is(err, store.ErrNumberingUnavailable):
		return fmt.Errorf("%w: %w", ErrNumberingUnavailable, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrEquipmentNotFound, err)
	default:
		return err
	}
}

func (s *Service) rejected(req Request, err error) {
	code := Code(err)
	if s.Metrics != nil {
		s.Metrics.TransferRejected(code)
	}

	attrs := []any{"code", code, "equipment", req.EquipmentID, "to", req.ReceivingUnit, "error", err}
	if Classify(err) == KindInternal || Classify(err) == KindNumbering {
		slog.Error("transfer failed", attrs...)
		return
	}
	slog.Warn("transfer rejected", attrs...)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
