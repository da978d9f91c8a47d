package export

import (
	"bytes"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/custody/internal/model"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func readBack(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteLedgerEmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, nil, tokyo(t)))

	f := readBack(t, &buf)
	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"証明書番号", "記録日時", "機器ID", "発行元部隊", "受領先部隊", "内容", "記録者"}, rows[0])
}

func TestWriteLedgerRows(t *testing.T) {
	recs := []model.TransferRecord{
		{
			CertificateNo: 1,
			RecordedAt:    time.Date(2025, 3, 31, 15, 4, 5, 0, time.UTC),
			EquipmentID:   "E1",
			IssuingUnit:   "1師団",
			ReceivingUnit: "2師団",
			Details:       "resupply",
			RecorderName:  "田中",
		},
		{
			CertificateNo: 2,
			RecordedAt:    time.Date(2025, 4, 2, 1, 0, 0, 0, time.UTC),
			EquipmentID:   "E1",
			IssuingUnit:   "2師団",
			ReceivingUnit: "3師団",
			Details:       "exercise",
			RecorderName:  "佐藤",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, recs, tokyo(t)))

	f := readBack(t, &buf)
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// 15:04 UTC on 31 March is past midnight in Tokyo.
	assert.Equal(t, []string{"0001", "2025/04/01 00:04:05", "E1", "1師団", "2師団", "resupply", "田中"}, rows[1])
	assert.Equal(t, []string{"0002", "2025/04/02 10:00:00", "E1", "2師団", "3師団", "exercise", "佐藤"}, rows[2])

	width, err := f.GetColWidth(SheetName, "F")
	require.NoError(t, err)
	assert.InDelta(t, 30, width, 0.01)
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 3, 31, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, "暗号機器_管理記録簿_2025-04-01.xlsx", FileName(now, tokyo(t)))
	assert.Equal(t, "暗号機器_管理記録簿_2025-03-31.xlsx", FileName(now, time.UTC))
}
