package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/custody/internal/model"
	"github.com/stretchr/testify/require"
)

func seedUnits(t *testing.T, q Queryer, ids ...string) {
	t.Helper()
	_, err := SeedUnits(context.Background(), q, ids)
	require.NoError(t, err)
}

func provision(t *testing.T, q Queryer, id, eqType, serial, custodian string) *model.EquipmentUnit {
	t.Helper()
	e, err := ProvisionEquipment(context.Background(), q, ProvisionRequest{
		ID:            id,
		EquipmentType: eqType,
		SerialNumber:  serial,
		Custodian:     custodian,
	})
	require.NoError(t, err)
	return e
}

// appendInTx appends one record in its own committed transaction.
func appendInTx(t *testing.T, database *sql.DB, rec *model.TransferRecord) error {
	t.Helper()
	ctx := context.Background()
	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := AppendTransfer(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func newRecord(equipmentID, from, to string) *model.TransferRecord {
	return &model.TransferRecord{
		RecordedAt:    time.Now().UTC(),
		EquipmentID:   equipmentID,
		IssuingUnit:   from,
		ReceivingUnit: to,
		Details:       "resupply",
		RecorderName:  "田中",
	}
}
