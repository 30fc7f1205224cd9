package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services bundles the wired service layer for the router.
type Services struct {
	Auth      *service.AuthService
	Category  *service.CategoryService
	Item      *service.ItemService
	Invoice   *service.InvoiceService
	Payment   *service.PaymentService
	Page      *service.PageService
	Config    *service.ConfigService
	Report    *service.ReportService
	Upload    *service.UploadService
	UploadDir string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs *Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(requestCounter(metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Config, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Static uploads ---
	if svcs.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(svcs.UploadDir))))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Authentication
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(svcs.Auth, logger))
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/refresh", authRefreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
				r.Put("/password", authChangePasswordHandler(svcs.Auth, logger))
			})
		})

		// =============================================
		// Public content pages
		// =============================================
		r.Get("/pages", listPagesHandler(svcs.Page, logger))
		r.Get("/pages/{slug}", getPageHandler(svcs.Page, logger))

		// =============================================
		// Authenticated surface
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			// Profile
			r.Get("/profile", getProfileHandler(svcs.Auth, logger))
			r.Patch("/profile", updateProfileHandler(svcs.Auth, logger))

			// Customer dashboard
			r.Get("/dashboard", dashboardHandler(svcs.Report, logger))

			// Categories — reads for everyone, writes for staff
			r.Get("/categories", listCategoriesHandler(svcs.Category, logger))
			r.Get("/categories/tree", categoryTreeHandler(svcs.Category, logger))
			r.Get("/categories/{categoryId}", getCategoryHandler(svcs.Category, logger))

			// Items — reads for everyone, writes for staff
			r.Get("/items", listItemsHandler(svcs.Item, logger))
			r.Get("/items/{itemId}", getItemHandler(svcs.Item, logger))

			// Invoices — customers see their own, staff see all
			r.Get("/invoices", listInvoicesHandler(svcs.Invoice, logger))
			r.Get("/invoices/{invoiceId}", getInvoiceHandler(svcs.Invoice, logger))

			// Payments
			r.Get("/invoices/{invoiceId}/payments", listPaymentsHandler(svcs.Payment, logger))
			r.Post("/invoices/{invoiceId}/payments", createPaymentHandler(svcs.Payment, logger))

			// Staff-only writes
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(logger, domain.RoleAdmin, domain.RoleAccountant))

				r.Post("/categories", createCategoryHandler(svcs.Category, logger))
				r.Patch("/categories/{categoryId}", updateCategoryHandler(svcs.Category, logger))
				r.Delete("/categories/{categoryId}", deleteCategoryHandler(svcs.Category, logger))

				r.Post("/items", createItemHandler(svcs.Item, logger))
				r.Patch("/items/{itemId}", updateItemHandler(svcs.Item, logger))
				r.Delete("/items/{itemId}", deleteItemHandler(svcs.Item, logger))

				r.Post("/invoices", createInvoiceHandler(svcs.Invoice, logger))
				r.Put("/invoices/{invoiceId}", updateInvoiceHandler(svcs.Invoice, logger))
				r.Patch("/invoices/{invoiceId}/status", updateInvoiceStatusHandler(svcs.Invoice, logger))
				r.Delete("/invoices/{invoiceId}", deleteInvoiceHandler(svcs.Invoice, logger))
				r.Get("/invoices/export/xlsx", exportInvoicesHandler(svcs.Report, logger))

				r.Post("/uploads", uploadHandler(svcs.Upload, logger))
			})

			// =============================================
			// Admin
			// =============================================
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRoles(logger, domain.RoleAdmin))

				r.Get("/users", listUsersHandler(svcs.Auth, logger))

				r.Get("/config", listConfigHandler(svcs.Config, logger))
				r.Get("/config/{key}", getConfigHandler(svcs.Config, logger))
				r.Put("/config/{key}", setConfigHandler(svcs.Config, logger))
				r.Delete("/config/{key}", deleteConfigHandler(svcs.Config, logger))

				r.Get("/stats", adminStatsHandler(svcs.Report, logger))
				r.Get("/metrics", metricsSnapshotHandler(metrics, logger))
				r.Get("/reports/export/xlsx", exportAdminReportHandler(svcs.Report, logger))

				r.Post("/pages", createPageHandler(svcs.Page, logger))
				r.Get("/pages", listAllPagesHandler(svcs.Page, logger))
				r.Patch("/pages/{pageId}", updatePageHandler(svcs.Page, logger))
				r.Delete("/pages/{pageId}", deletePageHandler(svcs.Page, logger))
			})
		})
	})

	return r
}

// requestCounter tallies responses by status class.
func requestCounter(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			metrics.IncrRequest(fmt.Sprintf("%dxx", ww.Status()/100))
		})
	}
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(configSvc *service.ConfigService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		// A config read exercises the full store path.
		if _, err := configSvc.List(r.Context()); err != nil {
			logger.Warn("healthz: store check failed", zap.Error(err))
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSnapshotHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := metrics.GetSnapshot()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
