package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var itemTracer = otel.Tracer("service/item")

// ItemService manages the billable item catalog.
type ItemService struct {
	store      port.ItemStore
	categories port.CategoryStore
	logger     *zap.Logger
}

// NewItemService creates an item service.
func NewItemService(store port.ItemStore, categories port.CategoryStore, logger *zap.Logger) *ItemService {
	return &ItemService{store: store, categories: categories, logger: logger}
}

func (s *ItemService) List(ctx context.Context, categoryID string) ([]domain.Item, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.List")
	defer span.End()

	items, err := s.store.ListItems(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *ItemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.Get")
	defer span.End()

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if item.CategoryID != nil {
		if cat, err := s.categories.FindCategory(ctx, *item.CategoryID); err == nil {
			item.Category = cat
		}
	}
	return item, nil
}

func (s *ItemService) Create(ctx context.Context, req *domain.CreateItemRequest) (*domain.Item, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.Create")
	defer span.End()

	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if req.Price.IsNegative() {
		return nil, &domain.ErrInvalidAmount{Field: "price", Value: req.Price.String()}
	}
	if req.CategoryID != nil {
		if _, err := s.categories.FindCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	item := &domain.Item{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	}

	created, err := s.store.CreateItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info("item created",
		zap.String("item_id", created.ID),
		zap.String("name", created.Name),
	)

	return created, nil
}

func (s *ItemService) Update(ctx context.Context, id string, req *domain.UpdateItemRequest) (*domain.Item, error) {
	ctx, span := itemTracer.Start(ctx, "ItemService.Update")
	defer span.End()

	if _, err := s.store.GetItem(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.ImageURL != "" {
		updates["image_url"] = req.ImageURL
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, &domain.ErrInvalidAmount{Field: "price", Value: req.Price.String()}
		}
		updates["price"] = *req.Price
	}
	if req.CategoryID != nil {
		if _, err := s.categories.FindCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *req.CategoryID
	}

	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}
	updates["updated_at"] = time.Now().Format(time.RFC3339)

	updated, err := s.store.UpdateItem(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return updated, nil
}

func (s *ItemService) Delete(ctx context.Context, id string) error {
	ctx, span := itemTracer.Start(ctx, "ItemService.Delete")
	defer span.End()

	if _, err := s.store.GetItem(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	s.logger.Info("item deleted", zap.String("item_id", id))
	return nil
}
