package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ============================================================
// PaymentStore implementation — payments via PostgREST
// ============================================================

// paymentRow maps the payments table columns to our domain.
type paymentRow struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r paymentRow) toDomain() domain.Payment {
	return domain.Payment{
		ID:        r.ID,
		InvoiceID: r.InvoiceID,
		UserID:    r.UserID,
		Amount:    r.Amount,
		Method:    r.Method,
		Status:    domain.PaymentStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func (c *Client) ListPayments(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPayments")
	defer span.End()

	path := fmt.Sprintf("payments?invoice_id=eq.%s&order=created_at.asc", invoiceID)
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

func (c *Client) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePayment")
	defer span.End()

	data := map[string]any{
		"id":         p.ID,
		"invoice_id": p.InvoiceID,
		"user_id":    p.UserID,
		"amount":     p.Amount,
		"method":     p.Method,
		"status":     string(p.Status),
	}

	body, err := c.doPost(ctx, "payments", data)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	var rows []paymentRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	if len(rows) == 0 {
		return p, nil
	}
	created := rows[0].toDomain()
	return &created, nil
}

// SumCompletedPayments totals the completed payments against an invoice.
// PostgREST has no aggregate endpoint, so the rows are summed client side.
func (c *Client) SumCompletedPayments(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SumCompletedPayments")
	defer span.End()

	path := fmt.Sprintf("payments?invoice_id=eq.%s&status=eq.%s&select=amount", invoiceID, domain.PaymentCompleted)
	var rows []struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum, nil
}
