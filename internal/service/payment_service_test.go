package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/service"
)

func newPaymentFixture() (*service.PaymentService, *fakeInvoiceStore, *fakePaymentStore) {
	invoiceSvc, invoices, payments := newInvoiceFixture()
	svc := service.NewPaymentService(payments, invoiceSvc, zap.NewNop())
	return svc, invoices, payments
}

func TestPaymentCreate_MarksInvoicePaid(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	store.invoices["inv-1"] = &domain.Invoice{
		ID:         "inv-1",
		CustomerID: "cust-1",
		Status:     domain.StatusPending,
		Subtotal:   decimal.NewFromInt(100),
		Tax:        decimal.NewFromInt(10),
		Total:      decimal.NewFromInt(110),
	}

	payment, err := svc.Create(context.Background(), "cust-1", domain.RoleCustomer, "inv-1", &domain.CreatePaymentRequest{
		Amount: decimal.NewFromInt(110),
		Method: "card",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.Status != domain.PaymentCompleted {
		t.Errorf("payment status = %s, want COMPLETED", payment.Status)
	}

	inv, _ := store.GetInvoice(context.Background(), "inv-1")
	if inv.Status != domain.StatusPaid {
		t.Errorf("invoice status = %s, want PAID", inv.Status)
	}
}

func TestPaymentCreate_PartialKeepsPending(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	store.invoices["inv-1"] = &domain.Invoice{
		ID:         "inv-1",
		CustomerID: "cust-1",
		Status:     domain.StatusPending,
		Subtotal:   decimal.NewFromInt(100),
		Tax:        decimal.NewFromInt(10),
		Total:      decimal.NewFromInt(110),
	}

	if _, err := svc.Create(context.Background(), "cust-1", domain.RoleCustomer, "inv-1", &domain.CreatePaymentRequest{
		Amount: decimal.NewFromInt(40),
		Method: "transfer",
	}); err != nil {
		t.Fatalf("create payment: %v", err)
	}

	inv, _ := store.GetInvoice(context.Background(), "inv-1")
	if inv.Status != domain.StatusPending {
		t.Errorf("invoice status = %s, want PENDING", inv.Status)
	}
}

func TestPaymentCreate_RejectsCancelledInvoice(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	store.invoices["inv-1"] = &domain.Invoice{
		ID:         "inv-1",
		CustomerID: "cust-1",
		Status:     domain.StatusCancelled,
	}

	_, err := svc.Create(context.Background(), "cust-1", domain.RoleCustomer, "inv-1", &domain.CreatePaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: "card",
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPaymentCreate_RejectsNonPositiveAmount(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	store.invoices["inv-1"] = &domain.Invoice{ID: "inv-1", CustomerID: "cust-1", Status: domain.StatusPending}

	_, err := svc.Create(context.Background(), "cust-1", domain.RoleCustomer, "inv-1", &domain.CreatePaymentRequest{
		Amount: decimal.Zero,
		Method: "card",
	})
	var invalid *domain.ErrInvalidAmount
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPaymentList_OwnershipEnforced(t *testing.T) {
	svc, store, payments := newPaymentFixture()
	store.invoices["inv-1"] = &domain.Invoice{ID: "inv-1", CustomerID: "cust-1", Status: domain.StatusPending}
	payments.payments = append(payments.payments, domain.Payment{ID: "pay-1", InvoiceID: "inv-1", Status: domain.PaymentCompleted})

	_, err := svc.List(context.Background(), "cust-2", domain.RoleCustomer, "inv-1")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	listed, err := svc.List(context.Background(), "cust-1", domain.RoleCustomer, "inv-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("expected 1 payment, got %d", len(listed))
	}
}
