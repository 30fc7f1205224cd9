package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/handler"
	"github.com/modernbilling/billing-api-go/internal/infra/cache"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/infra/resilience"
	"github.com/modernbilling/billing-api-go/internal/infra/supabase"
	"github.com/modernbilling/billing-api-go/internal/service"
)

// ============================================================
// Mock PostgREST backend
// ============================================================

// mockBackend is a tiny in-memory PostgREST stand-in. It understands the
// subset of the query grammar the supabase client emits: eq. and is.null
// filters, on_conflict upserts, and representation arrays on POST.
type mockBackend struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	down   bool
}

func newMockBackend() *mockBackend {
	return &mockBackend{tables: map[string][]map[string]any{}}
}

func (m *mockBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.down {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		query := r.URL.Query()

		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(m.match(table, query))

		case http.MethodPost:
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if conflict := query.Get("on_conflict"); conflict != "" {
				for i, existing := range m.tables[table] {
					if fmt.Sprint(existing[conflict]) == fmt.Sprint(row[conflict]) {
						for k, v := range row {
							existing[k] = v
						}
						m.tables[table][i] = existing
						w.WriteHeader(http.StatusOK)
						json.NewEncoder(w).Encode([]map[string]any{existing})
						return
					}
				}
			}
			m.tables[table] = append(m.tables[table], row)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]map[string]any{row})

		case http.MethodPatch:
			var updates map[string]any
			if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			for _, row := range m.match(table, query) {
				for k, v := range updates {
					row[k] = v
				}
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			kept := make([]map[string]any, 0, len(m.tables[table]))
			for _, row := range m.tables[table] {
				if !rowMatches(row, query) {
					kept = append(kept, row)
				}
			}
			m.tables[table] = kept
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// match returns references to the stored rows so PATCH mutates in place.
func (m *mockBackend) match(table string, query url.Values) []map[string]any {
	rows := []map[string]any{}
	for _, row := range m.tables[table] {
		if rowMatches(row, query) {
			rows = append(rows, row)
		}
	}
	return rows
}

func rowMatches(row map[string]any, query url.Values) bool {
	for col, vals := range query {
		switch col {
		case "order", "limit", "select", "on_conflict", "offset":
			continue
		}
		cond := vals[0]
		switch {
		case strings.HasPrefix(cond, "eq."):
			if fmt.Sprint(row[col]) != strings.TrimPrefix(cond, "eq.") {
				return false
			}
		case cond == "is.null":
			if v, ok := row[col]; ok && v != nil {
				return false
			}
		}
	}
	return true
}

func (m *mockBackend) setDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// setRole flips a user's role directly in the backing store. Registration
// always grants CUSTOMER, so staff accounts are promoted out of band.
func (m *mockBackend) setRole(email string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.tables["users"] {
		if fmt.Sprint(row["email"]) == email {
			row["role"] = string(role)
		}
	}
}

// ============================================================
// Harness
// ============================================================

func newTestStack(t *testing.T) (http.Handler, *mockBackend) {
	t.Helper()

	backend := newMockBackend()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4}
	store := supabase.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		server.URL, "anon-key", "service-role-key",
		resilience.NewCircuitBreaker("integration"), cfg, logger,
	)

	configSvc := service.NewConfigService(store, cache.New[domain.ConfigEntry](time.Minute), metrics, logger)
	invoiceSvc := service.NewInvoiceService(store, store, store, configSvc, metrics, logger)

	router := handler.NewRouter(&handler.Services{
		Auth:      service.NewAuthService(store, "integration-secret", 15*time.Minute, time.Hour, logger),
		Category:  service.NewCategoryService(store, 3, logger),
		Item:      service.NewItemService(store, store, logger),
		Invoice:   invoiceSvc,
		Payment:   service.NewPaymentService(store, invoiceSvc, logger),
		Page:      service.NewPageService(store, logger),
		Config:    configSvc,
		Report:    service.NewReportService(store, store, resilience.NewBulkhead(2), metrics, logger),
		Upload:    service.NewUploadService(t.TempDir(), 1<<20, logger),
		UploadDir: "",
	}, metrics, logger)

	return router, backend
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func registerAndLogin(t *testing.T, router http.Handler, name, email, password string) domain.LoginResponse {
	t.Helper()

	rec := doRequest(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Name: name, Email: email, Password: password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%s)", email, rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: email, Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, rec.Code, rec.Body.String())
	}

	var tokens domain.LoginResponse
	decodeBody(t, rec, &tokens)
	return tokens
}

// ============================================================
// Tests
// ============================================================

// TestIntegration_InvoiceLifecycle drives the full billing flow through the
// router against a mock PostgREST backend: accounts, catalog, invoice
// creation with derived totals, payment settlement and xlsx export.
func TestIntegration_InvoiceLifecycle(t *testing.T) {
	router, backend := newTestStack(t)

	registerAndLogin(t, router, "Ada Admin", "ada@billing.test", "s3cretPass!")
	backend.setRole("ada@billing.test", domain.RoleAdmin)
	rec := doRequest(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "ada@billing.test", Password: "s3cretPass!",
	})
	var admin domain.LoginResponse
	decodeBody(t, rec, &admin)
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("admin role = %s, want ADMIN", admin.Role)
	}

	customer := registerAndLogin(t, router, "Carl Customer", "carl@billing.test", "s3cretPass!")

	// --- Catalog ---
	rec = doRequest(t, router, http.MethodPost, "/v1/categories", admin.AccessToken, map[string]any{
		"name": "Services",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var root domain.Category
	decodeBody(t, rec, &root)

	rec = doRequest(t, router, http.MethodPost, "/v1/categories", admin.AccessToken, map[string]any{
		"name": "Consulting", "parentId": root.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create subcategory: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var sub domain.Category
	decodeBody(t, rec, &sub)
	if sub.Level != 1 || sub.Path != "Services/Consulting" {
		t.Errorf("subcategory placement = level %d path %q", sub.Level, sub.Path)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/items", admin.AccessToken, map[string]any{
		"name": "Consulting Hour", "price": "150", "categoryId": sub.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var item domain.Item
	decodeBody(t, rec, &item)

	// --- Invoice with derived totals ---
	rec = doRequest(t, router, http.MethodPost, "/v1/invoices", admin.AccessToken, map[string]any{
		"customerId": customer.UserID,
		"dueDate":    "2026-09-30",
		"prePayment": "20",
		"items": []map[string]any{
			{"itemId": item.ID, "categoryId": sub.ID, "description": "Consulting Hour", "quantity": 2, "unitPrice": "150"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invoice: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var inv domain.Invoice
	decodeBody(t, rec, &inv)
	if !inv.Subtotal.Equal(decimal.NewFromInt(300)) {
		t.Errorf("subtotal = %s, want 300", inv.Subtotal)
	}
	if !inv.Tax.Equal(decimal.NewFromInt(30)) {
		t.Errorf("tax = %s, want 30 at the default rate", inv.Tax)
	}
	if !inv.Total.Equal(decimal.NewFromInt(310)) {
		t.Errorf("total = %s, want 310 after prepayment", inv.Total)
	}
	if inv.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", inv.Status)
	}

	// --- Customer visibility ---
	rec = doRequest(t, router, http.MethodGet, "/v1/invoices/"+inv.ID, customer.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("customer get invoice: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, router, http.MethodPost, "/v1/categories", customer.AccessToken, map[string]any{
		"name": "Sneaky",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer create category: expected 403, got %d", rec.Code)
	}

	// --- Payment settles the invoice ---
	rec = doRequest(t, router, http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", customer.AccessToken, map[string]any{
		"amount": "310", "method": "card",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/invoices/"+inv.ID, admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get invoice: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var settled domain.Invoice
	decodeBody(t, rec, &settled)
	if settled.Status != domain.StatusPaid {
		t.Errorf("status after payment = %s, want PAID", settled.Status)
	}
	if len(settled.Payments) != 1 {
		t.Errorf("expected 1 payment on invoice, got %d", len(settled.Payments))
	}

	// --- Export ---
	rec = doRequest(t, router, http.MethodGet, "/v1/invoices/export/xlsx", admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer f.Close()
	if idx, _ := f.GetSheetIndex("Invoices"); idx < 0 {
		t.Error("exported workbook missing Invoices sheet")
	}
}

// TestIntegration_CategoryRenameCascade verifies that renaming a category
// through the API rewrites the materialized paths of its descendants.
func TestIntegration_CategoryRenameCascade(t *testing.T) {
	router, backend := newTestStack(t)

	registerAndLogin(t, router, "Ada Admin", "ada@billing.test", "s3cretPass!")
	backend.setRole("ada@billing.test", domain.RoleAdmin)
	rec := doRequest(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "ada@billing.test", Password: "s3cretPass!",
	})
	var admin domain.LoginResponse
	decodeBody(t, rec, &admin)

	rec = doRequest(t, router, http.MethodPost, "/v1/categories", admin.AccessToken, map[string]any{"name": "Hardware"})
	var root domain.Category
	decodeBody(t, rec, &root)

	rec = doRequest(t, router, http.MethodPost, "/v1/categories", admin.AccessToken, map[string]any{
		"name": "Laptops", "parentId": root.ID,
	})
	var child domain.Category
	decodeBody(t, rec, &child)

	rec = doRequest(t, router, http.MethodPatch, "/v1/categories/"+root.ID, admin.AccessToken, map[string]any{
		"name": "Equipment",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/categories/"+child.ID, admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get child: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var renamed domain.Category
	decodeBody(t, rec, &renamed)
	if renamed.Path != "Equipment/Laptops" {
		t.Errorf("child path = %q, want Equipment/Laptops", renamed.Path)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/categories/tree", admin.AccessToken, nil)
	var tree struct {
		Tree []*domain.CategoryNode `json:"tree"`
	}
	decodeBody(t, rec, &tree)
	if len(tree.Tree) != 1 || len(tree.Tree[0].Children) != 1 {
		t.Fatalf("unexpected tree shape: %s", rec.Body.String())
	}
	if tree.Tree[0].Name != "Equipment" {
		t.Errorf("tree root = %q, want Equipment", tree.Tree[0].Name)
	}
}

// TestIntegration_BackendUnavailable tests that a failing backend surfaces
// as a 502 instead of a hung or broken response.
func TestIntegration_BackendUnavailable(t *testing.T) {
	router, backend := newTestStack(t)

	customer := registerAndLogin(t, router, "Carl Customer", "carl@billing.test", "s3cretPass!")

	backend.setDown(true)
	rec := doRequest(t, router, http.MethodGet, "/v1/categories", customer.AccessToken, nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d (%s)", rec.Code, rec.Body.String())
	}
}
