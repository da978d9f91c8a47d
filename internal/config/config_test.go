package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Units, 22)
	assert.Equal(t, "1師団", cfg.Units[0])
	assert.Equal(t, "22師団", cfg.Units[21])
	assert.Equal(t, []string{"AM-38N", "MCF-10E", "KOF-09", "USB-12", "NCG-10R"}, cfg.EquipmentTypes)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestLoadOverlaysFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custody.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
databasePath: /var/lib/custody/ledger.sqlite3
listenAddr: 127.0.0.1:8000
units: [第1中隊, 第2中隊]
shutdownTimeout: 30s
`), 0o600))

	t.Setenv("CUSTODY_LISTEN_ADDR", ":9000")
	t.Setenv("CUSTODY_EQUIPMENT_TYPES", "X-1,X-2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/custody/ledger.sqlite3", cfg.DatabasePath)
	assert.Equal(t, ":9000", cfg.ListenAddr, "environment wins over file")
	assert.Equal(t, []string{"第1中隊", "第2中隊"}, cfg.Units)
	assert.Equal(t, []string{"X-1", "X-2"}, cfg.EquipmentTypes)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "Asia/Tokyo", cfg.TimeZone, "unset values keep their defaults")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("units: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TimeZone = "Mars/Olympus_Mons"
	cfg.ListenAddr = " "
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeZone")
	assert.Contains(t, err.Error(), "listenAddr")
	assert.Equal(t, time.UTC, cfg.Location())
}
