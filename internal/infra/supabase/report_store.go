package supabase

import (
	"context"
	"fmt"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ============================================================
// ReportStore implementation — raw rows for in-memory aggregation
// ============================================================

// ListInvoicesWithItems fetches invoices matching the filter and hydrates
// their line items. PostgREST has no group-by, so the report service
// aggregates the returned rows in memory.
func (c *Client) ListInvoicesWithItems(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvoicesWithItems")
	defer span.End()

	invoices, err := c.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}

	var allItems []lineItemRow
	if err := c.fetchInto(ctx, "invoice_items?order=invoice_id.asc", &allItems); err != nil {
		return nil, err
	}

	byInvoice := make(map[string][]domain.InvoiceLineItem, len(invoices))
	for _, r := range allItems {
		byInvoice[r.InvoiceID] = append(byInvoice[r.InvoiceID], r.toDomain())
	}

	for i := range invoices {
		invoices[i].Items = byInvoice[invoices[i].ID]
	}
	return invoices, nil
}

// ListCompletedPayments returns every completed payment; revenue figures sum
// them client side.
func (c *Client) ListCompletedPayments(ctx context.Context) ([]domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCompletedPayments")
	defer span.End()

	path := fmt.Sprintf("payments?status=eq.%s&order=created_at.asc", domain.PaymentCompleted)
	var rows []paymentRow
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toDomain())
	}
	return payments, nil
}

// ListCustomers returns all customer accounts.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCustomers")
	defer span.End()

	return c.ListUsers(ctx, domain.RoleCustomer)
}

// CountInvoices returns the total number of invoices.
func (c *Client) CountInvoices(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountInvoices")
	defer span.End()

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.fetchInto(ctx, "invoices?select=id", &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
