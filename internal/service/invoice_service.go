package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/billing"
	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var invoiceTracer = otel.Tracer("service/invoice")

// InvoiceService orchestrates invoice lifecycle: totals, status and line items.
type InvoiceService struct {
	store    port.InvoiceStore
	payments port.PaymentStore
	users    port.AuthStore
	config   *ConfigService
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewInvoiceService creates an invoice service.
func NewInvoiceService(store port.InvoiceStore, payments port.PaymentStore, users port.AuthStore, config *ConfigService, metrics *observability.Metrics, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		store:    store,
		payments: payments,
		users:    users,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// List — GET /v1/invoices
// ============================================================

// List returns invoices visible to the actor. Customers only see their own.
func (s *InvoiceService) List(ctx context.Context, actorID string, actorRole domain.Role, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.List")
	defer span.End()

	if actorRole == domain.RoleCustomer {
		filter.UserID = actorID
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown invoice status"}
	}

	invoices, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// ============================================================
// Get — GET /v1/invoices/{id}
// ============================================================

func (s *InvoiceService) Get(ctx context.Context, actorID string, actorRole domain.Role, id string) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole == domain.RoleCustomer && inv.CustomerID != actorID {
		return nil, &domain.ErrForbidden{Action: "view invoice"}
	}
	return inv, nil
}

// ============================================================
// Create — POST /v1/invoices
// ============================================================

func (s *InvoiceService) Create(ctx context.Context, createdByID string, req *domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Create")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("invoice_create", time.Since(start)) }()

	if req.CustomerID == "" {
		return nil, &domain.ErrValidation{Field: "customerId", Message: "required"}
	}
	if len(req.Items) == 0 {
		return nil, &domain.ErrValidation{Field: "items", Message: "at least one line item is required"}
	}

	customer, err := s.users.GetUserByID(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, &domain.ErrNotFound{Resource: "customer", ID: req.CustomerID}
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	lines, err := billing.ParseLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	taxRate := s.config.TaxRate(ctx)
	totals, err := billing.ComputeTotals(lines, taxRate, req.PrePayment)
	if err != nil {
		return nil, err
	}

	invoiceID := uuid.New().String()
	status := billing.DeriveStatus("", "", req.PrePayment, totals.SubtotalWithTax)

	inv := &domain.Invoice{
		ID:          invoiceID,
		Number:      fmt.Sprintf("INV-%d", time.Now().UnixMilli()),
		CreatedByID: createdByID,
		CustomerID:  req.CustomerID,
		Status:      status,
		DueDate:     dueDate,
		Notes:       req.Notes,
		PrePayment:  req.PrePayment,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		Total:       totals.Total,
		Items:       buildLineItems(invoiceID, lines),
	}

	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.metrics.IncrInvoiceCreated(created.Status)
	s.logger.Info("invoice created",
		zap.String("invoice_id", created.ID),
		zap.String("number", created.Number),
		zap.String("customer_id", created.CustomerID),
		zap.String("total", created.Total.String()),
	)

	return created, nil
}

// ============================================================
// Update — PUT /v1/invoices/{id}
// ============================================================

// Update replaces line items wholesale when present and recomputes the
// derived totals and status.
func (s *InvoiceService) Update(ctx context.Context, id string, req *domain.UpdateInvoiceRequest) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	current, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != "" && !domain.ValidStatus(req.Status) {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown invoice status"}
	}

	lines, err := s.resolveLines(current, req.Items)
	if err != nil {
		return nil, err
	}

	taxRate := s.config.TaxRate(ctx)
	totals, err := billing.ComputeTotals(lines, taxRate, req.PrePayment)
	if err != nil {
		return nil, err
	}

	paid, err := s.paidAmount(ctx, id, req.PrePayment)
	if err != nil {
		return nil, err
	}
	status := billing.DeriveStatus(current.Status, req.Status, paid, totals.SubtotalWithTax)

	if req.Items != nil {
		if err := s.store.ReplaceLineItems(ctx, id, buildLineItems(id, lines)); err != nil {
			return nil, fmt.Errorf("replace line items: %w", err)
		}
	}

	updates := map[string]any{
		"status":      string(status),
		"pre_payment": req.PrePayment,
		"subtotal":    totals.Subtotal,
		"tax":         totals.Tax,
		"total":       totals.Total,
		"updated_at":  time.Now().Format(time.RFC3339),
	}
	if req.DueDate != "" {
		dueDate, err := parseDueDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		updates["due_date"] = dueDate.Format(time.RFC3339)
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	updated, err := s.store.UpdateInvoice(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	s.logger.Info("invoice updated",
		zap.String("invoice_id", id),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// ============================================================
// UpdateStatus — PATCH /v1/invoices/{id}/status
// ============================================================

// UpdateStatus changes only the invoice status. Totals, line items and the
// prepayment stay untouched; the derivation rule still wins, so a fully
// covered invoice stays PAID whatever was requested.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id string, requested domain.InvoiceStatus) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	if !domain.ValidStatus(requested) {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown invoice status"}
	}

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	paid, err := s.paidAmount(ctx, id, inv.PrePayment)
	if err != nil {
		return nil, err
	}
	status := billing.DeriveStatus(inv.Status, requested, paid, inv.Subtotal.Add(inv.Tax))
	if status == inv.Status {
		return inv, nil
	}

	updated, err := s.store.UpdateInvoice(ctx, id, map[string]any{
		"status":     string(status),
		"updated_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	s.logger.Info("invoice status updated",
		zap.String("invoice_id", id),
		zap.String("requested", string(requested)),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// ============================================================
// Delete — DELETE /v1/invoices/{id}
// ============================================================

func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Delete")
	defer span.End()

	if _, err := s.store.GetInvoice(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	s.logger.Info("invoice deleted", zap.String("invoice_id", id))
	return nil
}

// ============================================================
// RefreshStatus — called after payment activity
// ============================================================

// RefreshStatus re-derives an invoice's status from its payment coverage.
func (s *InvoiceService) RefreshStatus(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.RefreshStatus")
	defer span.End()

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	paid, err := s.paidAmount(ctx, id, inv.PrePayment)
	if err != nil {
		return nil, err
	}

	covered := inv.Subtotal.Add(inv.Tax)
	status := billing.DeriveStatus(inv.Status, "", paid, covered)
	if status == inv.Status {
		return inv, nil
	}

	updated, err := s.store.UpdateInvoice(ctx, id, map[string]any{
		"status":     string(status),
		"updated_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	s.logger.Info("invoice status refreshed",
		zap.String("invoice_id", id),
		zap.String("old_status", string(inv.Status)),
		zap.String("new_status", string(status)),
	)

	return updated, nil
}

// ============================================================
// Internal helpers
// ============================================================

// resolveLines parses the requested items, or re-parses the stored line items
// when the request leaves them untouched.
func (s *InvoiceService) resolveLines(current *domain.Invoice, items []domain.LineItemInput) ([]billing.ParsedLine, error) {
	if items != nil {
		return billing.ParseLineItems(items)
	}

	lines := make([]billing.ParsedLine, 0, len(current.Items))
	for _, li := range current.Items {
		lines = append(lines, billing.ParsedLine{
			ItemID:      li.ItemID,
			CategoryID:  li.CategoryID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Total:       li.Total,
		})
	}
	return lines, nil
}

// paidAmount is the prepayment plus all completed payments on the invoice.
func (s *InvoiceService) paidAmount(ctx context.Context, invoiceID string, prePayment decimal.Decimal) (decimal.Decimal, error) {
	sum, err := s.payments.SumCompletedPayments(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return prePayment.Add(sum), nil
}

func buildLineItems(invoiceID string, lines []billing.ParsedLine) []domain.InvoiceLineItem {
	items := make([]domain.InvoiceLineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.InvoiceLineItem{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			ItemID:      l.ItemID,
			CategoryID:  l.CategoryID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		})
	}
	return items
}

func parseDueDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &domain.ErrValidation{Field: "dueDate", Message: "required"}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, &domain.ErrValidation{Field: "dueDate", Message: "expected RFC3339 or YYYY-MM-DD"}
}
