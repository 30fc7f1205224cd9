package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates the lifecycle states of an invoice.
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusPaid      InvoiceStatus = "PAID"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// ValidStatus reports whether s is one of the known invoice statuses.
func ValidStatus(s InvoiceStatus) bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Invoice is a billed document owned by its creator and addressed to a customer.
// Subtotal, Tax and Total are persisted denormalizations of the totals engine output.
type Invoice struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	CreatedByID string          `json:"createdById"`
	CustomerID  string          `json:"customerId"`
	Status      InvoiceStatus   `json:"status"`
	DueDate     time.Time       `json:"dueDate"`
	Notes       string          `json:"notes,omitempty"`
	PrePayment  decimal.Decimal `json:"prePayment"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Items    []InvoiceLineItem `json:"items,omitempty"`
	Customer *UserSummary      `json:"customer,omitempty"`
	Payments []Payment         `json:"payments,omitempty"`
}

// InvoiceLineItem is a single line on an invoice. Line items are owned by exactly
// one invoice and are replaced wholesale on invoice update.
type InvoiceLineItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoiceId"`
	ItemID      *string         `json:"itemId,omitempty"`
	CategoryID  *string         `json:"categoryId,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceTotals is the derived financial summary of an invoice. It is computed,
// never stored independently: subtotal always equals itemsTotal, and
// total = subtotalWithTax - prePayment.
type InvoiceTotals struct {
	ItemsTotal      decimal.Decimal `json:"itemsTotal"`
	Tax             decimal.Decimal `json:"tax"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	SubtotalWithTax decimal.Decimal `json:"subtotalWithTax"`
	Total           decimal.Decimal `json:"total"`
}

// LineItemInput is the request shape of a line item. Quantity and UnitPrice accept
// either JSON numbers or numeric strings; parsing is strict (see billing.ParseLineItems).
type LineItemInput struct {
	ItemID      *string `json:"itemId,omitempty"`
	CategoryID  *string `json:"categoryId,omitempty"`
	Description string  `json:"description"`
	Quantity    any     `json:"quantity"`
	UnitPrice   any     `json:"unitPrice"`
}

// CreateInvoiceRequest is the body of POST /v1/invoices.
type CreateInvoiceRequest struct {
	CustomerID string          `json:"customerId"`
	DueDate    string          `json:"dueDate"`
	Notes      string          `json:"notes,omitempty"`
	PrePayment decimal.Decimal `json:"prePayment"`
	Items      []LineItemInput `json:"items"`
}

// UpdateInvoiceRequest is the body of PUT /v1/invoices/{invoiceId}.
// Items, when present, replace the existing line items wholesale.
type UpdateInvoiceRequest struct {
	DueDate    string          `json:"dueDate,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	PrePayment decimal.Decimal `json:"prePayment"`
	Status     InvoiceStatus   `json:"status,omitempty"`
	Items      []LineItemInput `json:"items"`
}

// UpdateInvoiceStatusRequest is the body of PATCH /v1/invoices/{invoiceId}/status.
type UpdateInvoiceStatusRequest struct {
	Status InvoiceStatus `json:"status"`
}

// InvoiceFilter narrows invoice listings and exports.
type InvoiceFilter struct {
	UserID string
	Status InvoiceStatus
	From   *time.Time
	To     *time.Time
}
