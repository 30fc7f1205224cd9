// Package export builds xlsx workbooks for invoice listings and admin reports.
package export

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

const (
	sheetInvoices     = "Invoices"
	sheetInvoiceItems = "Invoice Items"
	sheetRevenue      = "Revenue by Category"
	sheetStatuses     = "Invoice Status Distribution"
	sheetTopCustomers = "Top Customers"
)

// WriteInvoices streams an xlsx workbook with one row per invoice and one row
// per line item to w.
func WriteInvoices(w io.Writer, invoices []domain.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetInvoices); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetInvoiceItems); err != nil {
		return err
	}

	bold, err := boldHeader(f)
	if err != nil {
		return err
	}

	invoiceHeaders := []string{"Number", "Customer", "Status", "Due Date", "Subtotal", "Tax", "Pre-Payment", "Total", "Created At"}
	if err := writeRow(f, sheetInvoices, 1, toAny(invoiceHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheetInvoices, 1, len(invoiceHeaders), bold); err != nil {
		return err
	}

	for i, inv := range invoices {
		customer := inv.CustomerID
		if inv.Customer != nil {
			customer = inv.Customer.Name
		}
		row := []any{
			inv.Number,
			customer,
			string(inv.Status),
			inv.DueDate.Format("2006-01-02"),
			toFloat(inv.Subtotal),
			toFloat(inv.Tax),
			toFloat(inv.PrePayment),
			toFloat(inv.Total),
			inv.CreatedAt.Format("2006-01-02"),
		}
		if err := writeRow(f, sheetInvoices, i+2, row); err != nil {
			return err
		}
	}

	itemHeaders := []string{"Invoice Number", "Description", "Quantity", "Unit Price", "Total"}
	if err := writeRow(f, sheetInvoiceItems, 1, toAny(itemHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheetInvoiceItems, 1, len(itemHeaders), bold); err != nil {
		return err
	}

	itemRow := 2
	for _, inv := range invoices {
		for _, li := range inv.Items {
			row := []any{
				inv.Number,
				li.Description,
				li.Quantity,
				toFloat(li.UnitPrice),
				toFloat(li.Total),
			}
			if err := writeRow(f, sheetInvoiceItems, itemRow, row); err != nil {
				return err
			}
			itemRow++
		}
	}

	return f.Write(w)
}

// WriteAdminReport streams the admin report workbook to w: revenue per
// category, status distribution and top customers, one sheet each.
func WriteAdminReport(w io.Writer, stats *domain.AdminStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetRevenue); err != nil {
		return err
	}
	for _, sheet := range []string{sheetStatuses, sheetTopCustomers} {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	bold, err := boldHeader(f)
	if err != nil {
		return err
	}

	revHeaders := []string{"Category", "Revenue", "Item Count"}
	if err := writeRow(f, sheetRevenue, 1, toAny(revHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheetRevenue, 1, len(revHeaders), bold); err != nil {
		return err
	}
	for i, rev := range stats.RevenueByCategory {
		row := []any{rev.CategoryName, toFloat(rev.Revenue), rev.ItemCount}
		if err := writeRow(f, sheetRevenue, i+2, row); err != nil {
			return err
		}
	}

	statusHeaders := []string{"Status", "Count"}
	if err := writeRow(f, sheetStatuses, 1, toAny(statusHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheetStatuses, 1, len(statusHeaders), bold); err != nil {
		return err
	}
	for i, sc := range stats.StatusDistribution {
		if err := writeRow(f, sheetStatuses, i+2, []any{string(sc.Status), sc.Count}); err != nil {
			return err
		}
	}

	custHeaders := []string{"Customer", "Email", "Invoices", "Total Billed"}
	if err := writeRow(f, sheetTopCustomers, 1, toAny(custHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheetTopCustomers, 1, len(custHeaders), bold); err != nil {
		return err
	}
	for i, tc := range stats.TopCustomers {
		row := []any{tc.Name, tc.Email, tc.InvoiceCount, toFloat(tc.TotalBilled)}
		if err := writeRow(f, sheetTopCustomers, i+2, row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func boldHeader(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
