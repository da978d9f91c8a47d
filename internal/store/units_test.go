package store

import (
	"context"
	"testing"

	"github.com/erazemk/custody/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUnit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, err := CreateUnit(ctx, database, " 1師団 ")
	require.NoError(t, err)
	assert.Equal(t, "1師団", u.ID)

	_, err = CreateUnit(ctx, database, "1師団")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = CreateUnit(ctx, database, "  ")
	assert.Error(t, err)

	_, err = GetUnit(ctx, database, "99師団")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedUnitsIsIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	added, err := SeedUnits(ctx, database, []string{"1師団", "2師団", "", "2師団"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = SeedUnits(ctx, database, []string{"1師団", "3師団"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	ok, err := UnitExists(ctx, database, "3師団")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = UnitExists(ctx, database, "4師団")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListUnitsNumericOrder(t *testing.T) {
	database := db.NewTestDB(t)
	seedUnits(t, database, "10師団", "2師団", "本部", "1師団")

	units, err := ListUnits(context.Background(), database)
	require.NoError(t, err)

	var ids []string
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"1師団", "2師団", "10師団", "本部"}, ids)
}

func TestGetUnitHoldings(t *testing.T) {
	database := db.NewTestDB(t)
	seedUnits(t, database, "1師団", "2師団")
	provision(t, database, "E2", "MCF-10E", "S-2", "1師団")
	provision(t, database, "E1", "AM-38N", "S-1", "1師団")
	provision(t, database, "E3", "AM-38N", "S-3", "2師団")

	held, err := GetUnitHoldings(context.Background(), database, "1師団")
	require.NoError(t, err)
	require.Len(t, held, 2)
	assert.Equal(t, "E1", held[0].ID)
	assert.Equal(t, "E2", held[1].ID)
}
