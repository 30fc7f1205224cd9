package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/export"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/infra/resilience"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var reportTracer = otel.Tracer("service/report")

const topCustomerLimit = 5

// ReportService aggregates invoices into admin and customer dashboards and
// produces xlsx exports. Source fetches fan out concurrently; exports pass
// through a bulkhead so workbook generation cannot exhaust the process.
type ReportService struct {
	store      port.ReportStore
	categories port.CategoryStore
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewReportService creates a report service.
func NewReportService(store port.ReportStore, categories port.CategoryStore, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{
		store:      store,
		categories: categories,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// AdminStats — GET /v1/admin/stats
// ============================================================

// AdminStats aggregates the whole book. The filter narrows the invoice-based
// figures by creation date; revenue itself always comes from the completed
// payments on record.
func (s *ReportService) AdminStats(ctx context.Context, filter domain.InvoiceFilter) (*domain.AdminStats, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.AdminStats")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("admin_stats", time.Since(start)) }()

	var (
		invoices  []domain.Invoice
		payments  []domain.Payment
		customers []domain.User
		catalog   []domain.Category
		total     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.store.ListInvoicesWithItems(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.store.ListCompletedPayments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		customers, err = s.store.ListCustomers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = s.categories.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountInvoices(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather report data: %w", err)
	}

	stats := &domain.AdminStats{
		TotalInvoices:      total,
		TotalCustomers:     len(customers),
		TotalRevenue:       decimal.Zero,
		OutstandingAmount:  decimal.Zero,
		StatusDistribution: statusDistribution(invoices),
		RevenueByCategory:  revenueByCategory(invoices, catalog),
		TopCustomers:       topCustomers(invoices, customers),
		MonthlyRevenue:     monthlyRevenue(invoices),
		GeneratedAt:        time.Now().UTC(),
	}

	for _, p := range payments {
		stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
	}
	for _, inv := range invoices {
		switch inv.Status {
		case domain.StatusPending, domain.StatusOverdue:
			stats.OutstandingAmount = stats.OutstandingAmount.Add(inv.Total)
		}
	}

	return stats, nil
}

// ============================================================
// CustomerDashboard — GET /v1/dashboard
// ============================================================

func (s *ReportService) CustomerDashboard(ctx context.Context, userID string) (*domain.DashboardStats, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.CustomerDashboard")
	defer span.End()

	invoices, err := s.store.ListInvoicesWithItems(ctx, domain.InvoiceFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	stats := &domain.DashboardStats{
		TotalBilled:    decimal.Zero,
		TotalPaid:      decimal.Zero,
		OutstandingDue: decimal.Zero,
	}
	for _, inv := range invoices {
		stats.InvoiceCount++
		billed := inv.Subtotal.Add(inv.Tax)
		stats.TotalBilled = stats.TotalBilled.Add(billed)
		switch inv.Status {
		case domain.StatusPaid:
			stats.PaidCount++
			stats.TotalPaid = stats.TotalPaid.Add(billed)
		case domain.StatusPending:
			stats.PendingCount++
			stats.OutstandingDue = stats.OutstandingDue.Add(inv.Total)
		case domain.StatusOverdue:
			stats.OverdueCount++
			stats.OutstandingDue = stats.OutstandingDue.Add(inv.Total)
		}
	}
	return stats, nil
}

// ============================================================
// Exports — GET /v1/invoices/export, GET /v1/admin/reports/export
// ============================================================

func (s *ReportService) ExportInvoices(ctx context.Context, w io.Writer, filter domain.InvoiceFilter) error {
	ctx, span := reportTracer.Start(ctx, "ReportService.ExportInvoices")
	defer span.End()

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "invoice export"}
	}
	defer s.bulkhead.Release()

	invoices, err := s.store.ListInvoicesWithItems(ctx, filter)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	if err := export.WriteInvoices(w, invoices); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.metrics.IncrExport("invoices")
	s.logger.Info("invoice export generated", zap.Int("invoices", len(invoices)))
	return nil
}

func (s *ReportService) ExportAdminReport(ctx context.Context, w io.Writer) error {
	ctx, span := reportTracer.Start(ctx, "ReportService.ExportAdminReport")
	defer span.End()

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "report export"}
	}
	defer s.bulkhead.Release()

	stats, err := s.AdminStats(ctx, domain.InvoiceFilter{})
	if err != nil {
		return err
	}

	if err := export.WriteAdminReport(w, stats); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.metrics.IncrExport("admin_report")
	return nil
}

// ============================================================
// Aggregation helpers
// ============================================================

func statusDistribution(invoices []domain.Invoice) []domain.StatusCount {
	counts := map[domain.InvoiceStatus]int{}
	for _, inv := range invoices {
		counts[inv.Status]++
	}

	order := []domain.InvoiceStatus{domain.StatusPending, domain.StatusPaid, domain.StatusOverdue, domain.StatusCancelled}
	out := make([]domain.StatusCount, 0, len(order))
	for _, st := range order {
		if counts[st] > 0 {
			out = append(out, domain.StatusCount{Status: st, Count: counts[st]})
		}
	}
	return out
}

// revenueByCategory attributes each PAID line item's total to its category's
// root ancestor, so subcategory revenue rolls up.
func revenueByCategory(invoices []domain.Invoice, catalog []domain.Category) []domain.CategoryRevenue {
	byID := make(map[string]domain.Category, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}
	rootOf := func(id string) (domain.Category, bool) {
		c, ok := byID[id]
		for ok && c.ParentID != nil {
			c, ok = byID[*c.ParentID]
		}
		return c, ok
	}

	agg := map[string]*domain.CategoryRevenue{}
	for _, inv := range invoices {
		if inv.Status != domain.StatusPaid {
			continue
		}
		for _, li := range inv.Items {
			if li.CategoryID == nil {
				continue
			}
			root, ok := rootOf(*li.CategoryID)
			if !ok {
				continue
			}
			rev, ok := agg[root.ID]
			if !ok {
				rev = &domain.CategoryRevenue{CategoryID: root.ID, CategoryName: root.Name, Revenue: decimal.Zero}
				agg[root.ID] = rev
			}
			rev.Revenue = rev.Revenue.Add(li.Total)
			rev.ItemCount += li.Quantity
		}
	}

	out := make([]domain.CategoryRevenue, 0, len(agg))
	for _, rev := range agg {
		out = append(out, *rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue.GreaterThan(out[j].Revenue) })
	return out
}

func topCustomers(invoices []domain.Invoice, customers []domain.User) []domain.TopCustomer {
	byID := make(map[string]domain.User, len(customers))
	for _, u := range customers {
		byID[u.ID] = u
	}

	// Customers rank by what they actually paid for.
	agg := map[string]*domain.TopCustomer{}
	for _, inv := range invoices {
		if inv.Status != domain.StatusPaid {
			continue
		}
		tc, ok := agg[inv.CustomerID]
		if !ok {
			tc = &domain.TopCustomer{UserID: inv.CustomerID, TotalBilled: decimal.Zero}
			if u, found := byID[inv.CustomerID]; found {
				tc.Name = u.Name
				tc.Email = u.Email
			}
			agg[inv.CustomerID] = tc
		}
		tc.InvoiceCount++
		tc.TotalBilled = tc.TotalBilled.Add(inv.Subtotal).Add(inv.Tax)
	}

	out := make([]domain.TopCustomer, 0, len(agg))
	for _, tc := range agg {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalBilled.GreaterThan(out[j].TotalBilled) })
	if len(out) > topCustomerLimit {
		out = out[:topCustomerLimit]
	}
	return out
}

func monthlyRevenue(invoices []domain.Invoice) []domain.MonthlyRevenue {
	agg := map[string]decimal.Decimal{}
	for _, inv := range invoices {
		if inv.Status != domain.StatusPaid {
			continue
		}
		month := inv.CreatedAt.UTC().Format("2006-01")
		agg[month] = agg[month].Add(inv.Subtotal).Add(inv.Tax)
	}

	months := make([]string, 0, len(agg))
	for m := range agg {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]domain.MonthlyRevenue, 0, len(months))
	for _, m := range months {
		out = append(out, domain.MonthlyRevenue{Month: m, Revenue: agg[m]})
	}
	return out
}
