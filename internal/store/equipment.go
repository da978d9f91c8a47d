package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/custody/internal/model"
)

const equipmentColumns = `id, equipment_type, serial_number, current_custodian, last_issuer,
	image_mime, created_at, updated_at`

// ProvisionRequest describes a new equipment unit arriving from the
// provisioning feed.
type ProvisionRequest struct {
	ID            string `json:"id" yaml:"id"`
	EquipmentType string `json:"equipment_type" yaml:"type"`
	SerialNumber  string `json:"serial_number" yaml:"serial"`
	Custodian     string `json:"custodian" yaml:"custodian"`
}

// ProvisionEquipment inserts a new equipment unit with its initial custodian.
// The serial number defaults to the id. Provisioning never touches the ledger.
func ProvisionEquipment(ctx context.Context, q Queryer, req ProvisionRequest) (*model.EquipmentUnit, error) {
	id := strings.TrimSpace(req.ID)
	eqType := strings.TrimSpace(req.EquipmentType)
	serial := strings.TrimSpace(req.SerialNumber)
	custodian := strings.TrimSpace(req.Custodian)

	if id == "" || eqType == "" || custodian == "" {
		return nil, fmt.Errorf("id, equipment type and custodian are required")
	}
	if serial == "" {
		serial = id
	}

	ok, err := UnitExists(ctx, q, custodian)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("custodian %q: %w", custodian, ErrNotFound)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO equipment (id, equipment_type, serial_number, current_custodian)
		 VALUES (?, ?, ?, ?)`,
		id, eqType, serial, custodian,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("equipment %q: %w", id, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("provisioning equipment: %w", err)
	}

	return GetEquipment(ctx, q, id)
}

// GetEquipment returns an equipment unit by ID, or ErrNotFound.
func GetEquipment(ctx context.Context, q Queryer, id string) (*model.EquipmentUnit, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id,
	)
	e, err := scanEquipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("equipment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}
	return e, nil
}

// ListEquipmentByType returns the units of one equipment type ordered by
// serial number. An empty type lists everything.
func ListEquipmentByType(ctx context.Context, q Queryer, equipmentType string) ([]model.EquipmentUnit, error) {
	var rows *sql.Rows
	var err error

	if equipmentType != "" {
		rows, err = q.QueryContext(ctx,
			`SELECT `+equipmentColumns+` FROM equipment
			 WHERE equipment_type = ? ORDER BY serial_number, id`, equipmentType,
		)
	} else {
		rows, err = q.QueryContext(ctx,
			`SELECT `+equipmentColumns+` FROM equipment
			 ORDER BY equipment_type, serial_number, id`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	defer rows.Close()

	return scanEquipmentRows(rows)
}

// ListEquipmentTypes returns the distinct equipment types in the registry.
func ListEquipmentTypes(ctx context.Context, q Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT equipment_type FROM equipment ORDER BY equipment_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing equipment types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning equipment type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// UpdateCustodian moves equipment to newCustodian only if the registry still
// holds previousCustodian. The previous custodian becomes the last issuer.
// Returns ErrConflict when the custodian changed underneath the caller and
// ErrNotFound when the equipment does not exist.
func UpdateCustodian(ctx context.Context, q Queryer, id, newCustodian, previousCustodian string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE equipment
		 SET current_custodian = ?, last_issuer = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND current_custodian = ?`,
		newCustodian, previousCustodian, id, previousCustodian,
	)
	if err != nil {
		return fmt.Errorf("updating custodian: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating custodian: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Tell a missing unit apart from a lost race.
	if _, err := GetEquipment(ctx, q, id); err != nil {
		return err
	}
	return fmt.Errorf("equipment %q no longer held by %q: %w", id, previousCustodian, ErrConflict)
}

// SetEquipmentImage sets an equipment unit's photo.
func SetEquipmentImage(ctx context.Context, q Queryer, id string, image []byte, mime string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE equipment SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting equipment image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("equipment %q: %w", id, ErrNotFound)
	}
	return nil
}

// GetEquipmentImage returns an equipment unit's photo and MIME type.
// A unit without a photo returns ErrNotFound.
func GetEquipmentImage(ctx context.Context, q Queryer, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM equipment WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(image) == 0) {
		return nil, "", fmt.Errorf("image for %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting equipment image: %w", err)
	}
	return image, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*model.EquipmentUnit, error) {
	e := &model.EquipmentUnit{}
	var lastIssuer, imageMime sql.NullString
	if err := row.Scan(&e.ID, &e.EquipmentType, &e.SerialNumber, &e.CurrentCustodian,
		&lastIssuer, &imageMime, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.LastIssuer = lastIssuer.String
	e.ImageMime = imageMime.String
	return e, nil
}

func scanEquipmentRows(rows *sql.Rows) ([]model.EquipmentUnit, error) {
	var units []model.EquipmentUnit
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		units = append(units, *e)
	}
	return units, rows.Err()
}
