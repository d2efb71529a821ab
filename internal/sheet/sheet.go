// Package sheet reads product imports from and writes report exports to
// xlsx workbooks.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"kasirpos/internal/domain"
)

const (
	SalesSheet = "تقرير المبيعات"
	StockSheet = "رصيد المخزن"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrNoSheet = errors.New("workbook has no sheets")

var SalesHeaders = []string{
	"معرف العملية",
	"نوع العملية",
	"المعرف الأصلي",
	"التاريخ",
	"الوقت",
	"باركود المنتج",
	"اسم المنتج",
	"الكمية",
	"سعر الوحدة",
	"إجمالي الصنف",
	"إجمالي الفاتورة",
	"المبلغ المستلم/المسترد",
	"الباقي",
}

var StockHeaders = []string{"الباركود", "اسم المنتج", "الرصيد المتاح"}

type importField int

const (
	fieldBarcode importField = iota
	fieldName
	fieldPrice
	fieldStock
	fieldImage
	fieldTaxable
)

// importHeaders maps accepted header spellings to import fields. The Arabic
// names are the ones the stock export and the import template use.
var importHeaders = map[string]importField{
	"الباركود":      fieldBarcode,
	"barcode":       fieldBarcode,
	"اسم المنتج":    fieldName,
	"name":          fieldName,
	"السعر":         fieldPrice,
	"price":         fieldPrice,
	"الرصيد":        fieldStock,
	"الرصيد المتاح": fieldStock,
	"stock":         fieldStock,
	"رابط الصورة":   fieldImage,
	"image_url":     fieldImage,
	"خاضع للضريبة":  fieldTaxable,
	"taxable":       fieldTaxable,
}

// ReadProductRows returns the data rows of the first sheet, keyed by the
// header row. Blank rows are skipped; Row is the sheet row number.
func ReadProductRows(r io.Reader) ([]domain.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return []domain.ImportRow{}, nil
	}

	columns := make(map[int]importField, len(rows[0]))
	for i, header := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(header))
		if field, ok := importHeaders[key]; ok {
			columns[i] = field
		}
	}

	out := make([]domain.ImportRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := domain.ImportRow{Row: i + 2}
		for col, value := range cells {
			field, ok := columns[col]
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch field {
			case fieldBarcode:
				row.Barcode = value
			case fieldName:
				row.Name = value
			case fieldPrice:
				row.Price = value
			case fieldStock:
				row.Stock = value
			case fieldImage:
				row.ImageURL = value
			case fieldTaxable:
				row.Taxable = value
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteSales writes one row per ledger line. Dates and times are rendered
// in loc.
func WriteSales(w io.Writer, rows []domain.SalesExportRow, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		kind := "بيع"
		if r.Type == domain.TransactionReturn {
			kind = "مرتجع"
		}
		at := r.At.In(loc)
		values = append(values, []any{
			r.TransactionID,
			kind,
			r.OriginalTransactionID,
			at.Format("2006-01-02"),
			at.Format("15:04:05"),
			r.ProductID,
			r.Name,
			r.Quantity,
			number(r.UnitPrice),
			number(r.LineTotal),
			number(r.InvoiceTotal),
			optional(r.AmountReceived),
			optional(r.ChangeDue),
		})
	}
	return write(w, SalesSheet, SalesHeaders, values)
}

func WriteStock(w io.Writer, rows []domain.StockRow) error {
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{r.ProductID, r.Name, r.Stock})
	}
	return write(w, StockSheet, StockHeaders, values)
}

func number(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func optional(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return number(*d)
}

func write(w io.Writer, name string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(name, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
