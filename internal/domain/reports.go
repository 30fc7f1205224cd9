package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRevenue aggregates billed revenue per top-level category.
type CategoryRevenue struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Revenue      decimal.Decimal `json:"revenue"`
	ItemCount    int             `json:"itemCount"`
}

// StatusCount is one slice of the invoice status distribution.
type StatusCount struct {
	Status InvoiceStatus `json:"status"`
	Count  int           `json:"count"`
}

// TopCustomer ranks customers by total invoiced amount.
type TopCustomer struct {
	UserID       string          `json:"userId"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	InvoiceCount int             `json:"invoiceCount"`
	TotalBilled  decimal.Decimal `json:"totalBilled"`
}

// MonthlyRevenue is revenue bucketed by calendar month.
type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalInvoices      int               `json:"totalInvoices"`
	TotalCustomers     int               `json:"totalCustomers"`
	TotalRevenue       decimal.Decimal   `json:"totalRevenue"`
	OutstandingAmount  decimal.Decimal   `json:"outstandingAmount"`
	StatusDistribution []StatusCount     `json:"statusDistribution"`
	RevenueByCategory  []CategoryRevenue `json:"revenueByCategory"`
	TopCustomers       []TopCustomer     `json:"topCustomers"`
	MonthlyRevenue     []MonthlyRevenue  `json:"monthlyRevenue"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}

// DashboardStats is the per-customer dashboard summary.
type DashboardStats struct {
	InvoiceCount   int             `json:"invoiceCount"`
	PendingCount   int             `json:"pendingCount"`
	PaidCount      int             `json:"paidCount"`
	OverdueCount   int             `json:"overdueCount"`
	TotalBilled    decimal.Decimal `json:"totalBilled"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	OutstandingDue decimal.Decimal `json:"outstandingDue"`
}

// MetricCount is a single counter sample in a metrics snapshot.
type MetricCount struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// MetricsSnapshot is the JSON form of the internal Prometheus registry,
// served on the admin metrics endpoint.
type MetricsSnapshot struct {
	Counters    []MetricCount `json:"counters"`
	CollectedAt time.Time     `json:"collectedAt"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}
