package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var paymentTracer = otel.Tracer("service/payment")

// PaymentService records payments and keeps invoice statuses in sync.
type PaymentService struct {
	store    port.PaymentStore
	invoices *InvoiceService
	logger   *zap.Logger
}

// NewPaymentService creates a payment service.
func NewPaymentService(store port.PaymentStore, invoices *InvoiceService, logger *zap.Logger) *PaymentService {
	return &PaymentService{store: store, invoices: invoices, logger: logger}
}

func (s *PaymentService) List(ctx context.Context, actorID string, actorRole domain.Role, invoiceID string) ([]domain.Payment, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.List")
	defer span.End()

	// Ownership check rides on the invoice fetch.
	if _, err := s.invoices.Get(ctx, actorID, actorRole, invoiceID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, invoiceID)
}

// Create records a payment against an invoice and re-derives its status.
func (s *PaymentService) Create(ctx context.Context, actorID string, actorRole domain.Role, invoiceID string, req *domain.CreatePaymentRequest) (*domain.Payment, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", invoiceID))

	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, &domain.ErrInvalidAmount{Field: "amount", Value: req.Amount.String()}
	}
	if req.Method == "" {
		return nil, &domain.ErrValidation{Field: "method", Message: "required"}
	}

	inv, err := s.invoices.Get(ctx, actorID, actorRole, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.StatusCancelled {
		return nil, &domain.ErrValidation{Field: "invoiceId", Message: "cannot pay a cancelled invoice"}
	}

	payment := &domain.Payment{
		ID:        uuid.New().String(),
		InvoiceID: invoiceID,
		UserID:    actorID,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    domain.PaymentCompleted,
	}

	created, err := s.store.CreatePayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if _, err := s.invoices.RefreshStatus(ctx, invoiceID); err != nil {
		s.logger.Error("payment: status refresh failed",
			zap.String("invoice_id", invoiceID),
			zap.Error(err),
		)
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", created.ID),
		zap.String("invoice_id", invoiceID),
		zap.String("amount", created.Amount.String()),
	)

	return created, nil
}
