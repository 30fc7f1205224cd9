package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ============================================================
// InvoiceStore implementation — invoices and line items via PostgREST
// ============================================================

// invoiceRow maps the invoices table columns to our domain.
type invoiceRow struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	CreatedByID string          `json:"created_by_id"`
	CustomerID  string          `json:"customer_id"`
	Status      string          `json:"status"`
	DueDate     time.Time       `json:"due_date"`
	Notes       string          `json:"notes"`
	PrePayment  decimal.Decimal `json:"pre_payment"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r invoiceRow) toDomain() domain.Invoice {
	return domain.Invoice{
		ID:          r.ID,
		Number:      r.Number,
		CreatedByID: r.CreatedByID,
		CustomerID:  r.CustomerID,
		Status:      domain.InvoiceStatus(r.Status),
		DueDate:     r.DueDate,
		Notes:       r.Notes,
		PrePayment:  r.PrePayment,
		Subtotal:    r.Subtotal,
		Tax:         r.Tax,
		Total:       r.Total,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// lineItemRow maps the invoice_items table columns.
type lineItemRow struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	ItemID      *string         `json:"item_id"`
	CategoryID  *string         `json:"category_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

func (r lineItemRow) toDomain() domain.InvoiceLineItem {
	return domain.InvoiceLineItem{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		ItemID:      r.ItemID,
		CategoryID:  r.CategoryID,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Total:       r.Total,
	}
}

func lineItemData(li domain.InvoiceLineItem) map[string]any {
	data := map[string]any{
		"id":          li.ID,
		"invoice_id":  li.InvoiceID,
		"description": li.Description,
		"quantity":    li.Quantity,
		"unit_price":  li.UnitPrice,
		"total":       li.Total,
	}
	if li.ItemID != nil {
		data["item_id"] = *li.ItemID
	}
	if li.CategoryID != nil {
		data["category_id"] = *li.CategoryID
	}
	return data
}

func (c *Client) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvoices")
	defer span.End()

	path := invoicePath(filter)
	var rows []invoiceRow
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, r := range rows {
		invoices = append(invoices, r.toDomain())
	}
	return invoices, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInvoice")
	defer span.End()

	path := fmt.Sprintf("invoices?id=eq.%s&limit=1", id)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}

	var rows []invoiceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}

	inv := rows[0].toDomain()

	items, err := c.listLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items

	payments, err := c.ListPayments(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Payments = payments

	if customer, err := c.GetUserByID(ctx, inv.CustomerID); err == nil && customer != nil {
		inv.Customer = &domain.UserSummary{ID: customer.ID, Name: customer.Name, Email: customer.Email}
	}

	return &inv, nil
}

func (c *Client) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateInvoice")
	defer span.End()

	data := map[string]any{
		"id":            inv.ID,
		"number":        inv.Number,
		"created_by_id": inv.CreatedByID,
		"customer_id":   inv.CustomerID,
		"status":        string(inv.Status),
		"due_date":      inv.DueDate.Format(time.RFC3339),
		"notes":         inv.Notes,
		"pre_payment":   inv.PrePayment,
		"subtotal":      inv.Subtotal,
		"tax":           inv.Tax,
		"total":         inv.Total,
	}

	if _, err := c.doPost(ctx, "invoices", data); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	for _, li := range inv.Items {
		if _, err := c.doPost(ctx, "invoice_items", lineItemData(li)); err != nil {
			return nil, fmt.Errorf("create invoice item: %w", err)
		}
	}

	return inv, nil
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, updates map[string]any) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateInvoice")
	defer span.End()

	path := fmt.Sprintf("invoices?id=eq.%s", id)
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.GetInvoice(ctx, id)
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteInvoice")
	defer span.End()

	// Line items and payments first, the invoice row last.
	if err := c.doDelete(ctx, fmt.Sprintf("invoice_items?invoice_id=eq.%s", id)); err != nil {
		return err
	}
	if err := c.doDelete(ctx, fmt.Sprintf("payments?invoice_id=eq.%s", id)); err != nil {
		return err
	}
	return c.doDelete(ctx, fmt.Sprintf("invoices?id=eq.%s", id))
}

func (c *Client) ReplaceLineItems(ctx context.Context, invoiceID string, items []domain.InvoiceLineItem) error {
	ctx, span := tracer.Start(ctx, "Supabase.ReplaceLineItems")
	defer span.End()

	if err := c.doDelete(ctx, fmt.Sprintf("invoice_items?invoice_id=eq.%s", invoiceID)); err != nil {
		return err
	}
	for _, li := range items {
		if _, err := c.doPost(ctx, "invoice_items", lineItemData(li)); err != nil {
			return fmt.Errorf("create invoice item: %w", err)
		}
	}
	return nil
}

func (c *Client) listLineItems(ctx context.Context, invoiceID string) ([]domain.InvoiceLineItem, error) {
	path := fmt.Sprintf("invoice_items?invoice_id=eq.%s&order=id.asc", invoiceID)
	var rows []lineItemRow
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return nil, err
	}

	items := make([]domain.InvoiceLineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

func invoicePath(filter domain.InvoiceFilter) string {
	path := "invoices?order=created_at.desc"
	if filter.UserID != "" {
		path += fmt.Sprintf("&customer_id=eq.%s", filter.UserID)
	}
	if filter.Status != "" {
		path += fmt.Sprintf("&status=eq.%s", filter.Status)
	}
	if filter.From != nil {
		path += fmt.Sprintf("&created_at=gte.%s", filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		path += fmt.Sprintf("&created_at=lte.%s", filter.To.UTC().Format(time.RFC3339))
	}
	return path
}
