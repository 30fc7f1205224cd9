package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var configTracer = otel.Tracer("service/config")

// TaxRateKey is the config entry holding the invoice tax percentage.
const TaxRateKey = "tax_rate"

// DefaultTaxRate applies when no tax_rate entry exists.
var DefaultTaxRate = decimal.NewFromInt(10)

// ConfigService manages typed settings with a read-through cache.
type ConfigService struct {
	store   port.ConfigStore
	cache   port.Cache[domain.ConfigEntry]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewConfigService creates a config service.
func NewConfigService(store port.ConfigStore, cache port.Cache[domain.ConfigEntry], metrics *observability.Metrics, logger *zap.Logger) *ConfigService {
	return &ConfigService{store: store, cache: cache, metrics: metrics, logger: logger}
}

func (s *ConfigService) List(ctx context.Context) ([]domain.ConfigEntry, error) {
	ctx, span := configTracer.Start(ctx, "ConfigService.List")
	defer span.End()

	entries, err := s.store.ListConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	return entries, nil
}

func (s *ConfigService) Get(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	ctx, span := configTracer.Start(ctx, "ConfigService.Get")
	defer span.End()

	if entry, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("config")
		return &entry, nil
	}
	s.metrics.IncrCacheMiss("config")

	entry, err := s.store.GetConfig(ctx, key)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, *entry)
	return entry, nil
}

func (s *ConfigService) Set(ctx context.Context, key string, req *domain.SetConfigRequest) (*domain.ConfigEntry, error) {
	ctx, span := configTracer.Start(ctx, "ConfigService.Set")
	defer span.End()

	switch req.Type {
	case domain.ConfigString, domain.ConfigNumber, domain.ConfigBoolean, domain.ConfigJSON:
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "type must be STRING, NUMBER, BOOLEAN or JSON"}
	}
	if req.Type == domain.ConfigNumber {
		if _, err := strconv.ParseFloat(req.Value, 64); err != nil {
			return nil, &domain.ErrValidation{Field: "value", Message: "value is not numeric"}
		}
	}

	entry := &domain.ConfigEntry{
		Key:         key,
		Value:       req.Value,
		Type:        req.Type,
		Description: req.Description,
	}

	saved, err := s.store.UpsertConfig(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("upsert config: %w", err)
	}

	s.cache.Delete(key)
	s.logger.Info("config updated",
		zap.String("key", key),
		zap.String("type", string(saved.Type)),
	)

	return saved, nil
}

func (s *ConfigService) Delete(ctx context.Context, key string) error {
	ctx, span := configTracer.Start(ctx, "ConfigService.Delete")
	defer span.End()

	if _, err := s.store.GetConfig(ctx, key); err != nil {
		return err
	}
	if err := s.store.DeleteConfig(ctx, key); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	s.cache.Delete(key)
	return nil
}

// TaxRate resolves the current tax percentage, falling back to the default
// when the entry is missing or not numeric.
func (s *ConfigService) TaxRate(ctx context.Context) decimal.Decimal {
	entry, err := s.Get(ctx, TaxRateKey)
	if err != nil {
		return DefaultTaxRate
	}

	rate, err := decimal.NewFromString(entry.Value)
	if err != nil || rate.IsNegative() {
		s.logger.Warn("config: unusable tax_rate value, using default",
			zap.String("value", entry.Value),
		)
		return DefaultTaxRate
	}
	return rate
}
