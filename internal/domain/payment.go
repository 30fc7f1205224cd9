package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates payment states.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentPendingSt PaymentStatus = "PENDING"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment records money received against an invoice.
type Payment struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoiceId"`
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`

	User *UserSummary `json:"user,omitempty"`
}

// CreatePaymentRequest is the body of POST /v1/invoices/{invoiceId}/payments.
type CreatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}
