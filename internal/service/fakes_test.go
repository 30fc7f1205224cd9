package service_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// --- In-memory fakes for the store ports ---

type fakeAuthStore struct {
	users map[string]*domain.User
}

func newFakeAuthStore(users ...*domain.User) *fakeAuthStore {
	s := &fakeAuthStore{users: map[string]*domain.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeAuthStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	return s.users[id], nil
}

func (s *fakeAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeAuthStore) ListUsers(_ context.Context, role domain.Role) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range s.users {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeAuthStore) CreateUser(_ context.Context, req *domain.RegisterRequest, role domain.Role, _ string) (*domain.User, error) {
	u := &domain.User{ID: fmt.Sprintf("user-%d", len(s.users)+1), Name: req.Name, Email: req.Email, Role: role}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeAuthStore) GetCredentials(_ context.Context, userID string) (*domain.AuthCredential, error) {
	return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
}

func (s *fakeAuthStore) UpdateCredentials(context.Context, string, map[string]any) error { return nil }

func (s *fakeAuthStore) StoreRefreshToken(context.Context, string, string, time.Time) error {
	return nil
}

func (s *fakeAuthStore) GetRefreshToken(_ context.Context, hash string) (*domain.RefreshToken, error) {
	return nil, &domain.ErrNotFound{Resource: "refresh token", ID: hash}
}

func (s *fakeAuthStore) RevokeRefreshToken(context.Context, string) error     { return nil }
func (s *fakeAuthStore) RevokeAllRefreshTokens(context.Context, string) error { return nil }

func (s *fakeAuthStore) UpdateUserProfile(_ context.Context, userID string, updates map[string]any) (*domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if name, ok := updates["name"].(string); ok {
		u.Name = name
	}
	return u, nil
}

type fakeInvoiceStore struct {
	invoices map[string]*domain.Invoice
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{invoices: map[string]*domain.Invoice{}}
}

func (s *fakeInvoiceStore) ListInvoices(_ context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	out := []domain.Invoice{}
	for _, inv := range s.invoices {
		if filter.UserID != "" && inv.CustomerID != filter.UserID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeInvoiceStore) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeInvoiceStore) CreateInvoice(_ context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	cp := *inv
	cp.CreatedAt = time.Now()
	s.invoices[inv.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeInvoiceStore) UpdateInvoice(_ context.Context, id string, updates map[string]any) (*domain.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	if v, ok := updates["status"].(string); ok {
		inv.Status = domain.InvoiceStatus(v)
	}
	if v, ok := updates["pre_payment"].(decimal.Decimal); ok {
		inv.PrePayment = v
	}
	if v, ok := updates["subtotal"].(decimal.Decimal); ok {
		inv.Subtotal = v
	}
	if v, ok := updates["tax"].(decimal.Decimal); ok {
		inv.Tax = v
	}
	if v, ok := updates["total"].(decimal.Decimal); ok {
		inv.Total = v
	}
	if v, ok := updates["notes"].(string); ok {
		inv.Notes = v
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeInvoiceStore) DeleteInvoice(_ context.Context, id string) error {
	delete(s.invoices, id)
	return nil
}

func (s *fakeInvoiceStore) ReplaceLineItems(_ context.Context, invoiceID string, items []domain.InvoiceLineItem) error {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return &domain.ErrNotFound{Resource: "invoice", ID: invoiceID}
	}
	inv.Items = items
	return nil
}

type fakePaymentStore struct {
	payments []domain.Payment
}

func (s *fakePaymentStore) ListPayments(_ context.Context, invoiceID string) ([]domain.Payment, error) {
	out := []domain.Payment{}
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePaymentStore) CreatePayment(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	cp := *p
	cp.CreatedAt = time.Now()
	s.payments = append(s.payments, cp)
	return &cp, nil
}

func (s *fakePaymentStore) SumCompletedPayments(_ context.Context, invoiceID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID && p.Status == domain.PaymentCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type fakeConfigStore struct {
	entries map[string]*domain.ConfigEntry
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{entries: map[string]*domain.ConfigEntry{}}
}

func (s *fakeConfigStore) ListConfig(_ context.Context) ([]domain.ConfigEntry, error) {
	out := []domain.ConfigEntry{}
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeConfigStore) GetConfig(_ context.Context, key string) (*domain.ConfigEntry, error) {
	e, ok := s.entries[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "config", ID: key}
	}
	cp := *e
	return &cp, nil
}

func (s *fakeConfigStore) UpsertConfig(_ context.Context, entry *domain.ConfigEntry) (*domain.ConfigEntry, error) {
	cp := *entry
	s.entries[entry.Key] = &cp
	out := cp
	return &out, nil
}

func (s *fakeConfigStore) DeleteConfig(_ context.Context, key string) error {
	delete(s.entries, key)
	return nil
}

type fakeCategoryStore struct {
	categories map[string]*domain.Category
}

func newFakeCategoryStore(cats ...*domain.Category) *fakeCategoryStore {
	s := &fakeCategoryStore{categories: map[string]*domain.Category{}}
	for _, c := range cats {
		s.categories[c.ID] = c
	}
	return s
}

func (s *fakeCategoryStore) FindCategory(_ context.Context, id string) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCategoryStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *fakeCategoryStore) FindRoots(_ context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range s.categories {
		if c.ParentID == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeCategoryStore) FindChildren(_ context.Context, parentID string) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeCategoryStore) CountChildren(ctx context.Context, parentID string) (int, error) {
	children, _ := s.FindChildren(ctx, parentID)
	return len(children), nil
}

func (s *fakeCategoryStore) CreateCategory(_ context.Context, cat *domain.Category) (*domain.Category, error) {
	cp := *cat
	s.categories[cat.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeCategoryStore) UpdateCategory(_ context.Context, id string, updates map[string]any) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	if v, ok := updates["name"].(string); ok {
		c.Name = v
	}
	if v, ok := updates["level"].(int); ok {
		c.Level = v
	}
	if v, ok := updates["path"].(string); ok {
		c.Path = v
	}
	if v, present := updates["parent_id"]; present {
		if id, ok := v.(string); ok {
			c.ParentID = &id
		} else {
			c.ParentID = nil
		}
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCategoryStore) UpdatePlacement(_ context.Context, id string, level int, path string) error {
	c, ok := s.categories[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: id}
	}
	c.Level = level
	c.Path = path
	return nil
}

func (s *fakeCategoryStore) DeleteCategory(_ context.Context, id string) error {
	delete(s.categories, id)
	return nil
}

type fakeReportStore struct {
	invoices  []domain.Invoice
	payments  []domain.Payment
	customers []domain.User
}

func (s *fakeReportStore) ListInvoicesWithItems(_ context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	out := []domain.Invoice{}
	for _, inv := range s.invoices {
		if filter.UserID != "" && inv.CustomerID != filter.UserID {
			continue
		}
		if filter.From != nil && inv.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && inv.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *fakeReportStore) ListCompletedPayments(_ context.Context) ([]domain.Payment, error) {
	out := []domain.Payment{}
	for _, p := range s.payments {
		if p.Status == domain.PaymentCompleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeReportStore) ListCustomers(_ context.Context) ([]domain.User, error) {
	return s.customers, nil
}

func (s *fakeReportStore) CountInvoices(_ context.Context) (int, error) {
	return len(s.invoices), nil
}
