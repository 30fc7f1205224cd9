package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/handler"
	"github.com/modernbilling/billing-api-go/internal/infra/cache"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/service"
)

// --- Minimal in-memory stores for the auth and config paths ---

type memAuthStore struct {
	users       map[string]*domain.User
	credentials map[string]string
	tokens      map[string]domain.RefreshToken
}

func newMemAuthStore() *memAuthStore {
	return &memAuthStore{
		users:       map[string]*domain.User{},
		credentials: map[string]string{},
		tokens:      map[string]domain.RefreshToken{},
	}
}

func (s *memAuthStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	return s.users[id], nil
}

func (s *memAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memAuthStore) ListUsers(_ context.Context, role domain.Role) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range s.users {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memAuthStore) CreateUser(_ context.Context, req *domain.RegisterRequest, role domain.Role, hash string) (*domain.User, error) {
	u := &domain.User{ID: "user-" + req.Email, Name: req.Name, Email: req.Email, Role: role}
	s.users[u.ID] = u
	s.credentials[u.ID] = hash
	return u, nil
}

func (s *memAuthStore) GetCredentials(_ context.Context, userID string) (*domain.AuthCredential, error) {
	hash, ok := s.credentials[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return &domain.AuthCredential{UserID: userID, PasswordHash: hash}, nil
}

func (s *memAuthStore) UpdateCredentials(_ context.Context, _ string, _ map[string]any) error { return nil }

func (s *memAuthStore) StoreRefreshToken(_ context.Context, userID, hash string, expiresAt time.Time) error {
	s.tokens[hash] = domain.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
	return nil
}

func (s *memAuthStore) GetRefreshToken(_ context.Context, hash string) (*domain.RefreshToken, error) {
	t, ok := s.tokens[hash]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "refresh token", ID: hash}
	}
	return &t, nil
}

func (s *memAuthStore) RevokeRefreshToken(_ context.Context, hash string) error {
	delete(s.tokens, hash)
	return nil
}

func (s *memAuthStore) RevokeAllRefreshTokens(_ context.Context, _ string) error { return nil }

func (s *memAuthStore) UpdateUserProfile(_ context.Context, userID string, updates map[string]any) (*domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if name, ok := updates["name"].(string); ok {
		u.Name = name
	}
	return u, nil
}

type memConfigStore struct{}

func (memConfigStore) ListConfig(context.Context) ([]domain.ConfigEntry, error) {
	return []domain.ConfigEntry{}, nil
}

func (memConfigStore) GetConfig(_ context.Context, key string) (*domain.ConfigEntry, error) {
	return nil, &domain.ErrNotFound{Resource: "config", ID: key}
}

func (memConfigStore) UpsertConfig(_ context.Context, entry *domain.ConfigEntry) (*domain.ConfigEntry, error) {
	return entry, nil
}

func (memConfigStore) DeleteConfig(context.Context, string) error { return nil }

// --- Fixture ---

func newTestRouter() http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	authSvc := service.NewAuthService(newMemAuthStore(), "test-secret", 15*time.Minute, time.Hour, logger)
	configSvc := service.NewConfigService(memConfigStore{}, cache.New[domain.ConfigEntry](time.Minute), metrics, logger)

	return handler.NewRouter(&handler.Services{
		Auth:   authSvc,
		Config: configSvc,
	}, metrics, logger)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRegisterLoginProfile(t *testing.T) {
	router := newTestRouter()

	register := func() *httptest.ResponseRecorder {
		body, _ := json.Marshal(domain.RegisterRequest{
			Name: "Test User", Email: "user@example.com", Password: "sw0rdfish42",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	if rec := register(); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	body, _ := json.Marshal(domain.LoginRequest{Email: "user@example.com", Password: "sw0rdfish42"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var tokens domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected token pair in login response")
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var user domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Errorf("profile email = %q", user.Email)
	}
}

func TestAdminRouteForbiddenForCustomer(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(domain.RegisterRequest{
		Name: "Test User", Email: "user@example.com", Password: "sw0rdfish42",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body, _ = json.Marshal(domain.LoginRequest{Email: "user@example.com", Password: "sw0rdfish42"})
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var tokens domain.LoginResponse
	json.Unmarshal(rec.Body.Bytes(), &tokens)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/config", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
