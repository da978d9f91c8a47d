package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNAppendsPragmas(t *testing.T) {
	got := dsn("custody.sqlite3")
	assert.Contains(t, got, "custody.sqlite3?_pragma=busy_timeout(5000)")
	assert.Contains(t, got, "_pragma=journal_mode(WAL)")
	assert.Contains(t, got, "_pragma=foreign_keys(ON)")
	assert.Contains(t, got, "_txlock=immediate")

	got = dsn("file:custody.sqlite3?mode=rwc")
	assert.Contains(t, got, "mode=rwc&_pragma=")
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)
	require.NoError(t, Migrate(database))
	require.NoError(t, Migrate(database))
}

func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	database := NewTestDB(t)
	database.SetMaxOpenConns(4)
	ctx := context.Background()

	// Hold several connections at once so the insert runs on a fresh one.
	conns := make([]interface{ Close() error }, 0, 3)
	for range 3 {
		c, err := database.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	_, err := database.ExecContext(ctx,
		`INSERT INTO equipment (id, equipment_type, serial_number, current_custodian)
		 VALUES ('E1', 'AM-38N', 'S-1', 'no-such-unit')`)
	assert.Error(t, err)
}

func TestSchemaRerunDoesNotRewindSequence(t *testing.T) {
	database := NewTestDB(t)
	ctx := context.Background()

	_, err := database.ExecContext(ctx, `INSERT INTO units (id) VALUES ('1師団'), ('2師団')`)
	require.NoError(t, err)
	_, err = database.ExecContext(ctx,
		`INSERT INTO equipment (id, equipment_type, serial_number, current_custodian)
		 VALUES ('E1', 'AM-38N', 'S-1', '1師団')`)
	require.NoError(t, err)
	_, err = database.ExecContext(ctx,
		`INSERT INTO transfers (certificate_no, recorded_at, equipment_id, issuing_unit,
		                        receiving_unit, details, recorder_name)
		 VALUES (5, CURRENT_TIMESTAMP, 'E1', '1師団', '2師団', 'x', 'y')`)
	require.NoError(t, err)

	// A lost counter row is reseeded from the ledger, never from zero.
	_, err = database.ExecContext(ctx, `DELETE FROM ledger_sequence`)
	require.NoError(t, err)
	require.NoError(t, Migrate(database))

	var value int64
	require.NoError(t, database.QueryRowContext(ctx,
		`SELECT value FROM ledger_sequence WHERE name = 'certificate'`).Scan(&value))
	assert.EqualValues(t, 5, value)
}

func TestTransfersRejectSelfTransferAndBlankFields(t *testing.T) {
	database := NewTestDB(t)
	ctx := context.Background()

	_, err := database.ExecContext(ctx, `INSERT INTO units (id) VALUES ('1師団')`)
	require.NoError(t, err)
	_, err = database.ExecContext(ctx,
		`INSERT INTO equipment (id, equipment_type, serial_number, current_custodian)
		 VALUES ('E1', 'AM-38N', 'S-1', '1師団')`)
	require.NoError(t, err)

	_, err = database.ExecContext(ctx,
		`INSERT INTO transfers (certificate_no, recorded_at, equipment_id, issuing_unit,
		                        receiving_unit, details, recorder_name)
		 VALUES (1, CURRENT_TIMESTAMP, 'E1', '1師団', '1師団', 'x', 'y')`)
	assert.Error(t, err)
}
