package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/custody/internal/model"
)

// CreateUnit registers an organizational unit as a recognized custodian.
func CreateUnit(ctx context.Context, q Queryer, id string) (*model.Unit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("unit id required")
	}

	_, err := q.ExecContext(ctx, `INSERT INTO units (id) VALUES (?)`, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("unit %q: %w", id, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating unit: %w", err)
	}

	return GetUnit(ctx, q, id)
}

// SeedUnits registers every unit in ids that is not already known.
// Returns the number of units added.
func SeedUnits(ctx context.Context, q Queryer, ids []string) (int, error) {
	added := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO units (id) VALUES (?)`, id)
		if err != nil {
			return added, fmt.Errorf("seeding unit %q: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}

// GetUnit returns a unit by ID.
func GetUnit(ctx context.Context, q Queryer, id string) (*model.Unit, error) {
	u := &model.Unit{}
	err := q.QueryRowContext(ctx,
		`SELECT id, created_at FROM units WHERE id = ?`, id,
	).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unit %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting unit: %w", err)
	}
	return u, nil
}

// UnitExists reports whether id is a recognized unit.
func UnitExists(ctx context.Context, q Queryer, id string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM units WHERE id = ?`, id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking unit: %w", err)
	}
	return count > 0, nil
}

// ListUnits returns all recognized units. Units named like "12師団" sort by
// their numeric prefix, everything else falls back to lexical order.
func ListUnits(ctx context.Context, q Queryer) ([]model.Unit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, created_at FROM units
		 ORDER BY CAST(id AS INTEGER) = 0, CAST(id AS INTEGER), id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var units []model.Unit
	for rows.Next() {
		var u model.Unit
		if err := rows.Scan(&u.ID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// GetUnitHoldings returns the equipment currently held by a unit.
func GetUnitHoldings(ctx context.Context, q Queryer, unitID string) ([]model.EquipmentUnit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+equipmentColumns+`
		 FROM equipment WHERE current_custodian = ?
		 ORDER BY equipment_type, serial_number, id`, unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting unit holdings: %w", err)
	}
	defer rows.Close()

	return scanEquipmentRows(rows)
}
