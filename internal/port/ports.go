// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// AuthStore defines all data operations for the authentication system.
type AuthStore interface {
	// User lookup
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)

	// Registration
	CreateUser(ctx context.Context, req *domain.RegisterRequest, role domain.Role, passwordHash string) (*domain.User, error)

	// Credentials
	GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error)
	UpdateCredentials(ctx context.Context, userID string, updates map[string]any) error

	// Refresh tokens
	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error

	// Profile updates
	UpdateUserProfile(ctx context.Context, userID string, updates map[string]any) (*domain.User, error)
}

// CategoryStore defines data operations for the category hierarchy.
type CategoryStore interface {
	FindCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	FindRoots(ctx context.Context) ([]domain.Category, error)
	FindChildren(ctx context.Context, parentID string) ([]domain.Category, error)
	CountChildren(ctx context.Context, parentID string) (int, error)
	CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, updates map[string]any) (*domain.Category, error)
	UpdatePlacement(ctx context.Context, id string, level int, path string) error
	DeleteCategory(ctx context.Context, id string) error
}

// ItemStore defines data operations for the item catalog.
type ItemStore interface {
	ListItems(ctx context.Context, categoryID string) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, id string, updates map[string]any) (*domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// InvoiceStore defines data operations for invoices and their line items.
type InvoiceStore interface {
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, updates map[string]any) (*domain.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	ReplaceLineItems(ctx context.Context, invoiceID string, items []domain.InvoiceLineItem) error
}

// PaymentStore defines data operations for payments.
type PaymentStore interface {
	ListPayments(ctx context.Context, invoiceID string) ([]domain.Payment, error)
	CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	SumCompletedPayments(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}

// PageStore defines data operations for content pages.
type PageStore interface {
	ListPages(ctx context.Context, publishedOnly bool) ([]domain.Page, error)
	GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error)
	GetPage(ctx context.Context, id string) (*domain.Page, error)
	CreatePage(ctx context.Context, p *domain.Page) (*domain.Page, error)
	UpdatePage(ctx context.Context, id string, updates map[string]any) (*domain.Page, error)
	DeletePage(ctx context.Context, id string) error
}

// ConfigStore defines data operations for typed configuration entries.
type ConfigStore interface {
	ListConfig(ctx context.Context) ([]domain.ConfigEntry, error)
	GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error)
	UpsertConfig(ctx context.Context, entry *domain.ConfigEntry) (*domain.ConfigEntry, error)
	DeleteConfig(ctx context.Context, key string) error
}

// ReportStore defines the read operations backing admin reporting. The
// backing API has no aggregation support, so stores return raw rows and
// services aggregate in memory.
type ReportStore interface {
	ListInvoicesWithItems(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	ListCompletedPayments(ctx context.Context) ([]domain.Payment, error)
	ListCustomers(ctx context.Context) ([]domain.User, error)
	CountInvoices(ctx context.Context) (int, error)
}
