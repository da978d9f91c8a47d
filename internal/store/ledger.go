package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/custody/internal/model"
)

// certificateSequence names the ledger's counter row in ledger_sequence.
const certificateSequence = "certificate"

const transferColumns = `certificate_no, recorded_at, equipment_id, issuing_unit,
	receiving_unit, details, recorder_name, recorded_by`

// AppendTransfer appends rec to the ledger inside tx and assigns its
// certificate number from the ledger's own sequence. The sequence bump and
// the insert share tx, so a rollback releases the number again.
//
// rec.CertificateNo is overwritten on success.
func AppendTransfer(ctx context.Context, tx *sql.Tx, rec *model.TransferRecord) error {
	next, err := nextCertificateNo(ctx, tx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transfers (certificate_no, recorded_at, equipment_id, issuing_unit,
		                        receiving_unit, details, recorder_name, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		next, rec.RecordedAt, rec.EquipmentID, rec.IssuingUnit,
		rec.ReceivingUnit, rec.Details, rec.RecorderName, rec.RecordedBy,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("certificate %s: %w", model.FormatCertificateNo(next), ErrDuplicateCertificate)
	}
	if err != nil {
		return fmt.Errorf("appending transfer: %w", err)
	}

	rec.CertificateNo = next
	return nil
}

func nextCertificateNo(ctx context.Context, tx *sql.Tx) (int64, error) {
	var next int64
	err := tx.QueryRowContext(ctx,
		`UPDATE ledger_sequence SET value = value + 1 WHERE name = ? RETURNING value`,
		certificateSequence,
	).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sequence %q missing: %w", certificateSequence, ErrNumberingUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("advancing certificate sequence: %w: %w", ErrNumberingUnavailable, err)
	}
	if next <= 0 {
		return 0, fmt.Errorf("sequence %q yielded %d: %w", certificateSequence, next, ErrNumberingUnavailable)
	}
	return next, nil
}

// CountTransfers returns the number of entries in the ledger.
func CountTransfers(ctx context.Context, q Queryer) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transfers: %w", err)
	}
	return n, nil
}

// GetTransfer returns a ledger entry by certificate number, or ErrNotFound.
func GetTransfer(ctx context.Context, q Queryer, certificateNo int64) (*model.TransferRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE certificate_no = ?`, certificateNo,
	)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("certificate %s: %w", model.FormatCertificateNo(certificateNo), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	return t, nil
}

// TransferFilter narrows ListTransfers. Zero values match everything.
type TransferFilter struct {
	EquipmentID string
	Unit        string // issuing or receiving
}

// ListTransfers returns ledger entries in certificate order.
func ListTransfers(ctx context.Context, q Queryer, f TransferFilter) ([]model.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE 1=1`
	var args []any

	if f.EquipmentID != "" {
		query += ` AND equipment_id = ?`
		args = append(args, f.EquipmentID)
	}
	if f.Unit != "" {
		query += ` AND (issuing_unit = ? OR receiving_unit = ?)`
		args = append(args, f.Unit, f.Unit)
	}

	query += ` ORDER BY certificate_no ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []model.TransferRecord
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// GetEquipmentHistory returns the transfers of one equipment unit, oldest first.
func GetEquipmentHistory(ctx context.Context, q Queryer, equipmentID string) ([]model.TransferRecord, error) {
	return ListTransfers(ctx, q, TransferFilter{EquipmentID: equipmentID})
}

func scanTransfer(row rowScanner) (*model.TransferRecord, error) {
	t := &model.TransferRecord{}
	var recordedBy sql.NullInt64
	if err := row.Scan(&t.CertificateNo, &t.RecordedAt, &t.EquipmentID, &t.IssuingUnit,
		&t.ReceivingUnit, &t.Details, &t.RecorderName, &recordedBy); err != nil {
		return nil, err
	}
	if recordedBy.Valid {
		id := recordedBy.Int64
		t.RecordedBy = &id
	}
	return t, nil
}
