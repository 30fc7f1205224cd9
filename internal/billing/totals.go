// Package billing implements the invoice totals engine: parsing of line item
// amounts, computation of the derived financial summary, and payment driven
// status transitions. All arithmetic uses decimal values so that results are
// exact regardless of how amounts arrived on the wire.
package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ParsedLine is a line item whose amounts passed strict validation.
type ParsedLine struct {
	ItemID      *string
	CategoryID  *string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// ParseLineItems validates and converts raw line item inputs. Quantity must be
// a non-negative integer (JSON number or numeric string); UnitPrice must be a
// non-negative decimal. Any malformed or negative amount fails the whole batch
// with ErrInvalidAmount, naming the offending field.
func ParseLineItems(inputs []domain.LineItemInput) ([]ParsedLine, error) {
	lines := make([]ParsedLine, 0, len(inputs))
	for i, in := range inputs {
		qty, err := parseQuantity(in.Quantity)
		if err != nil {
			return nil, &domain.ErrInvalidAmount{
				Field: fmt.Sprintf("items[%d].quantity", i),
				Value: fmt.Sprintf("%v", in.Quantity),
			}
		}
		price, err := parsePrice(in.UnitPrice)
		if err != nil {
			return nil, &domain.ErrInvalidAmount{
				Field: fmt.Sprintf("items[%d].unitPrice", i),
				Value: fmt.Sprintf("%v", in.UnitPrice),
			}
		}
		lines = append(lines, ParsedLine{
			ItemID:      in.ItemID,
			CategoryID:  in.CategoryID,
			Description: in.Description,
			Quantity:    qty,
			UnitPrice:   price,
			Total:       price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return lines, nil
}

func parseQuantity(v any) (int, error) {
	switch q := v.(type) {
	case float64:
		if q < 0 || q != math.Trunc(q) {
			return 0, fmt.Errorf("quantity %v is not a non-negative integer", q)
		}
		return int(q), nil
	case int:
		if q < 0 {
			return 0, fmt.Errorf("quantity %d is negative", q)
		}
		return q, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("quantity %q is not a non-negative integer", q)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("quantity has unsupported type %T", v)
	}
}

func parsePrice(v any) (decimal.Decimal, error) {
	switch p := v.(type) {
	case float64:
		d := decimal.NewFromFloat(p)
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("price %v is negative", p)
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return decimal.Zero, fmt.Errorf("price %q is not numeric", p)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("price %q is negative", p)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("price has unsupported type %T", v)
	}
}

// ComputeTotals derives the financial summary of an invoice from its parsed
// lines, the tax rate (a percentage, e.g. 10 for 10%) and any prepayment.
// The prepayment may never exceed the taxed subtotal.
func ComputeTotals(lines []ParsedLine, taxRate, prePayment decimal.Decimal) (domain.InvoiceTotals, error) {
	itemsTotal := decimal.Zero
	for _, l := range lines {
		itemsTotal = itemsTotal.Add(l.Total)
	}
	tax := itemsTotal.Mul(taxRate).Div(decimal.NewFromInt(100))
	withTax := itemsTotal.Add(tax)

	if prePayment.IsNegative() {
		return domain.InvoiceTotals{}, &domain.ErrInvalidAmount{Field: "prePayment", Value: prePayment.String()}
	}
	if prePayment.GreaterThan(withTax) {
		return domain.InvoiceTotals{}, &domain.ErrPrepaymentExceedsTotal{PrePayment: prePayment, Total: withTax}
	}

	return domain.InvoiceTotals{
		ItemsTotal:      itemsTotal,
		Tax:             tax,
		Subtotal:        itemsTotal,
		SubtotalWithTax: withTax,
		Total:           withTax.Sub(prePayment),
	}, nil
}

// DeriveStatus decides the invoice status after a payment or an edit.
// When the completed payments (plus prepayment) exactly cover the total the
// invoice is PAID. A previously PAID invoice whose coverage no longer matches
// falls back to PENDING. Otherwise the requested status wins, defaulting to
// PENDING when empty.
func DeriveStatus(current, requested domain.InvoiceStatus, paid, totalWithTax decimal.Decimal) domain.InvoiceStatus {
	if paid.Equal(totalWithTax) {
		return domain.StatusPaid
	}
	if current == domain.StatusPaid {
		return domain.StatusPending
	}
	if requested != "" {
		return requested
	}
	if current != "" {
		return current
	}
	return domain.StatusPending
}
