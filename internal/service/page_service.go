package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/port"
)

var pageTracer = otel.Tracer("service/page")

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PageService manages content pages.
type PageService struct {
	store  port.PageStore
	logger *zap.Logger
}

// NewPageService creates a page service.
func NewPageService(store port.PageStore, logger *zap.Logger) *PageService {
	return &PageService{store: store, logger: logger}
}

// List returns pages. Non-admin callers only see published ones.
func (s *PageService) List(ctx context.Context, includeUnpublished bool) ([]domain.Page, error) {
	ctx, span := pageTracer.Start(ctx, "PageService.List")
	defer span.End()

	return s.store.ListPages(ctx, !includeUnpublished)
}

func (s *PageService) GetBySlug(ctx context.Context, slug string, includeUnpublished bool) (*domain.Page, error) {
	ctx, span := pageTracer.Start(ctx, "PageService.GetBySlug")
	defer span.End()

	page, err := s.store.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !page.Published && !includeUnpublished {
		return nil, &domain.ErrNotFound{Resource: "page", ID: slug}
	}
	return page, nil
}

func (s *PageService) Create(ctx context.Context, req *domain.CreatePageRequest) (*domain.Page, error) {
	ctx, span := pageTracer.Start(ctx, "PageService.Create")
	defer span.End()

	if req.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if !slugRegex.MatchString(req.Slug) {
		return nil, &domain.ErrValidation{Field: "slug", Message: "slug must be lowercase letters, digits and hyphens"}
	}

	existing, err := s.store.GetPageBySlug(ctx, req.Slug)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("check slug: %w", err)
		}
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("page slug %q already exists", req.Slug)}
	}

	page := &domain.Page{
		ID:        uuid.New().String(),
		Slug:      req.Slug,
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	}

	created, err := s.store.CreatePage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	s.logger.Info("page created",
		zap.String("page_id", created.ID),
		zap.String("slug", created.Slug),
	)

	return created, nil
}

func (s *PageService) Update(ctx context.Context, id string, req *domain.UpdatePageRequest) (*domain.Page, error) {
	ctx, span := pageTracer.Start(ctx, "PageService.Update")
	defer span.End()

	current, err := s.store.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Slug != "" && req.Slug != current.Slug {
		if !slugRegex.MatchString(req.Slug) {
			return nil, &domain.ErrValidation{Field: "slug", Message: "slug must be lowercase letters, digits and hyphens"}
		}
		existing, err := s.store.GetPageBySlug(ctx, req.Slug)
		if err != nil {
			var notFound *domain.ErrNotFound
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("check slug: %w", err)
			}
		}
		if existing != nil {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("page slug %q already exists", req.Slug)}
		}
		updates["slug"] = req.Slug
	}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Content != "" {
		updates["content"] = req.Content
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}

	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}
	updates["updated_at"] = time.Now().Format(time.RFC3339)

	updated, err := s.store.UpdatePage(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return updated, nil
}

func (s *PageService) Delete(ctx context.Context, id string) error {
	ctx, span := pageTracer.Start(ctx, "PageService.Delete")
	defer span.End()

	if _, err := s.store.GetPage(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePage(ctx, id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}

	s.logger.Info("page deleted", zap.String("page_id", id))
	return nil
}
