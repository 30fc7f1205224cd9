package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestWriteInvoices(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		{
			Number:     "INV-1700000000001",
			CustomerID: "c1",
			Customer:   &domain.UserSummary{Name: "Acme Corp", Email: "billing@acme.test"},
			Status:     domain.StatusPending,
			DueDate:    due,
			Subtotal:   dec("130"),
			Tax:        dec("13"),
			PrePayment: dec("20"),
			Total:      dec("123"),
			CreatedAt:  due.AddDate(0, -1, 0),
			Items: []domain.InvoiceLineItem{
				{Description: "widget", Quantity: 2, UnitPrice: dec("50"), Total: dec("100")},
				{Description: "gadget", Quantity: 1, UnitPrice: dec("30"), Total: dec("30")},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteInvoices(&buf, invoices); err != nil {
		t.Fatalf("WriteInvoices: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	if err != nil {
		t.Fatalf("GetRows(Invoices): %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Invoices rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "Number" {
		t.Errorf("header = %q, want Number", rows[0][0])
	}
	if rows[1][0] != "INV-1700000000001" || rows[1][1] != "Acme Corp" {
		t.Errorf("invoice row = %v", rows[1])
	}

	itemRows, err := f.GetRows("Invoice Items")
	if err != nil {
		t.Fatalf("GetRows(Invoice Items): %v", err)
	}
	if len(itemRows) != 3 {
		t.Fatalf("item rows = %d, want 3", len(itemRows))
	}
	if itemRows[1][1] != "widget" || itemRows[2][1] != "gadget" {
		t.Errorf("item rows = %v", itemRows[1:])
	}
}

func TestWriteAdminReport(t *testing.T) {
	stats := &domain.AdminStats{
		RevenueByCategory: []domain.CategoryRevenue{
			{CategoryName: "Hardware", Revenue: dec("1200.50"), ItemCount: 4},
		},
		StatusDistribution: []domain.StatusCount{
			{Status: domain.StatusPaid, Count: 3},
			{Status: domain.StatusPending, Count: 2},
		},
		TopCustomers: []domain.TopCustomer{
			{Name: "Acme Corp", Email: "billing@acme.test", InvoiceCount: 5, TotalBilled: dec("900")},
		},
	}

	var buf bytes.Buffer
	if err := WriteAdminReport(&buf, stats); err != nil {
		t.Fatalf("WriteAdminReport: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Revenue by Category", "Invoice Status Distribution", "Top Customers"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	rows, err := f.GetRows("Invoice Status Distribution")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("status rows = %d, want 3", len(rows))
	}
	if rows[1][0] != "PAID" || rows[1][1] != "3" {
		t.Errorf("status row = %v", rows[1])
	}
}
