// Package export writes the transfer ledger as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/custody/internal/model"
)

// SheetName is the worksheet holding the ledger.
const SheetName = "入出庫記録"

// TimeLayout is how recorded_at is rendered in the workbook.
const TimeLayout = "2006/01/02 15:04:05"

var columns = []struct {
	header string
	width  float64
}{
	{"証明書番号", 12},
	{"記録日時", 20},
	{"機器ID", 15},
	{"発行元部隊", 12},
	{"受領先部隊", 12},
	{"内容", 30},
	{"記録者", 10},
}

// FileName is the default download name for an export made at now.
func FileName(now time.Time, loc *time.Location) string {
	return fmt.Sprintf("暗号機器_管理記録簿_%s.xlsx", now.In(loc).Format(time.DateOnly))
}

// WriteLedger writes recs, in the order given, as one row each below a header
// row. With no records the sheet holds only the header.
func WriteLedger(w io.Writer, recs []model.TransferRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, c.width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, rec := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			rec.Certificate(),
			rec.RecordedAt.In(loc).Format(TimeLayout),
			rec.EquipmentID,
			rec.IssuingUnit,
			rec.ReceivingUnit,
			rec.Details,
			rec.RecorderName,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing certificate %s: %w", rec.Certificate(), err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
