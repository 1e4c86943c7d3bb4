package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/tienda-pos/internal/domain/sales"
)

var salesHeader = []interface{}{
	"folio",
	"created_at",
	"status",
	"channel",
	"customer",
	"payment_method",
	"staff",
	"subtotal",
	"discount",
	"tax",
	"tip",
	"total",
}

// FileName builds the download name for a store's sales workbook.
func FileName(storeID int64, now time.Time) string {
	return fmt.Sprintf("sales_%d_%s.xlsx", storeID, now.Format("20060102_150405"))
}

// WriteSales renders list as a single-sheet workbook. Money columns are written as numbers.
func WriteSales(w io.Writer, list []sales.Sale, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Sales"
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &salesHeader); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	for i, s := range list {
		row := []interface{}{
			s.Folio,
			s.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			string(s.Status),
			string(s.Channel),
			s.CustomerName,
			s.PaymentMethodName,
			s.StaffName,
			s.Subtotal.InexactFloat64(),
			s.Discount.InexactFloat64(),
			s.Tax.InexactFloat64(),
			s.Tip.InexactFloat64(),
			s.Total.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}
