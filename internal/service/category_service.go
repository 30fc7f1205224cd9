package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/category"
	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var categoryTracer = otel.Tracer("service/category")

// CategoryService manages the catalog hierarchy. A single mutex serializes
// tree mutations so concurrent moves cannot interleave path rewrites.
type CategoryService struct {
	store   port.CategoryStore
	manager *category.Manager
	logger  *zap.Logger

	mu sync.Mutex
}

// NewCategoryService creates a category service with the given depth limit.
func NewCategoryService(store port.CategoryStore, maxDepth int, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		store:   store,
		manager: category.NewManager(maxDepth),
		logger:  logger,
	}
}

// ============================================================
// List / Tree — GET /v1/categories, GET /v1/categories/tree
// ============================================================

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.List")
	defer span.End()

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Tree expands the category forest, optionally rooted at parentID. A full
// hierarchy spans MaxDepth+1 levels (a root plus MaxDepth levels below it),
// so that is what unset or out-of-range depths clamp to.
func (s *CategoryService) Tree(ctx context.Context, parentID string, depth int) ([]*domain.CategoryNode, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Tree")
	defer span.End()

	maxLevels := s.manager.MaxDepth + 1
	if depth <= 0 || depth > maxLevels {
		depth = maxLevels
	}
	span.SetAttributes(attribute.Int("depth", depth))

	if parentID != "" {
		if _, err := s.store.FindCategory(ctx, parentID); err != nil {
			return nil, err
		}
	}

	tree, err := category.BuildTree(ctx, s.store, parentID, depth)
	if err != nil {
		return nil, fmt.Errorf("build category tree: %w", err)
	}
	return tree, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Get")
	defer span.End()

	return s.store.FindCategory(ctx, id)
}

// ============================================================
// Create — POST /v1/categories
// ============================================================

func (s *CategoryService) Create(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Create")
	defer span.End()

	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var parent *domain.Category
	if req.ParentID != nil {
		p, err := s.store.FindCategory(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	placement, err := s.manager.Place(parent, req.Name)
	if err != nil {
		return nil, err
	}

	cat := &domain.Category{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		ParentID:    req.ParentID,
		Level:       placement.Level,
		Path:        placement.Path,
	}

	created, err := s.store.CreateCategory(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("category created",
		zap.String("category_id", created.ID),
		zap.String("path", created.Path),
		zap.Int("level", created.Level),
	)

	return created, nil
}

// ============================================================
// Update — PATCH /v1/categories/{id}
// ============================================================

// Update renames or re-parents a category. Placement changes propagate to
// every descendant before the call returns.
func (s *CategoryService) Update(ctx context.Context, id string, req *domain.UpdateCategoryRequest) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", id))

	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.FindCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	var newParent *domain.Category
	if req.ParentID != nil {
		p, err := s.store.FindCategory(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		newParent = p
	}

	placement, err := s.manager.ValidateReparent(*current, newParent, req.Name)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"color":       req.Color,
		"level":       placement.Level,
		"path":        placement.Path,
		"updated_at":  time.Now().Format(time.RFC3339),
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	} else {
		updates["parent_id"] = nil
	}

	updated, err := s.store.UpdateCategory(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	if updated.Path != current.Path || updated.Level != current.Level {
		if err := s.manager.Propagate(ctx, s.store, *updated); err != nil {
			return nil, fmt.Errorf("propagate path change: %w", err)
		}
		s.logger.Info("category paths propagated",
			zap.String("category_id", id),
			zap.String("old_path", current.Path),
			zap.String("new_path", updated.Path),
		)
	}

	return updated, nil
}

// ============================================================
// Delete — DELETE /v1/categories/{id}
// ============================================================

// Delete removes a category. Categories with subcategories cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.FindCategory(ctx, id); err != nil {
		return err
	}

	children, err := s.store.CountChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("count children: %w", err)
	}
	if children > 0 {
		return &domain.ErrHasChildren{CategoryID: id, Children: children}
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.Info("category deleted", zap.String("category_id", id))
	return nil
}
