package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ============================================================
// CategoryStore implementation — categories via PostgREST
// ============================================================

// categoryRow maps the categories table columns to our domain.
type categoryRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	ParentID    *string   `json:"parent_id"`
	Level       int       `json:"level"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r categoryRow) toDomain() domain.Category {
	return domain.Category{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		ParentID:    r.ParentID,
		Level:       r.Level,
		Path:        r.Path,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func categoryData(cat *domain.Category) map[string]any {
	data := map[string]any{
		"id":          cat.ID,
		"name":        cat.Name,
		"description": cat.Description,
		"color":       cat.Color,
		"level":       cat.Level,
		"path":        cat.Path,
	}
	if cat.ParentID != nil {
		data["parent_id"] = *cat.ParentID
	}
	return data
}

func (c *Client) FindCategory(ctx context.Context, id string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindCategory")
	defer span.End()

	path := fmt.Sprintf("categories?id=eq.%s&limit=1", id)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}

	var rows []categoryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	cat := rows[0].toDomain()
	return &cat, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()

	var rows []categoryRow
	if err := c.fetchInto(ctx, "categories?order=level.asc,name.asc", &rows); err != nil {
		return nil, err
	}
	return categoriesFromRows(rows), nil
}

func (c *Client) FindRoots(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindRoots")
	defer span.End()

	var rows []categoryRow
	if err := c.fetchInto(ctx, "categories?parent_id=is.null&order=name.asc", &rows); err != nil {
		return nil, err
	}
	return categoriesFromRows(rows), nil
}

func (c *Client) FindChildren(ctx context.Context, parentID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindChildren")
	defer span.End()

	path := fmt.Sprintf("categories?parent_id=eq.%s&order=name.asc", parentID)
	var rows []categoryRow
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return nil, err
	}
	return categoriesFromRows(rows), nil
}

func (c *Client) CountChildren(ctx context.Context, parentID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountChildren")
	defer span.End()

	path := fmt.Sprintf("categories?parent_id=eq.%s&select=id", parentID)
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (c *Client) CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCategory")
	defer span.End()

	body, err := c.doPost(ctx, "categories", categoryData(cat))
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	var rows []categoryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(rows) == 0 {
		return cat, nil
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id string, updates map[string]any) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCategory")
	defer span.End()

	path := fmt.Sprintf("categories?id=eq.%s", id)
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.FindCategory(ctx, id)
}

func (c *Client) UpdatePlacement(ctx context.Context, id string, level int, path string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePlacement")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("categories?id=eq.%s", id), map[string]any{
		"level": level,
		"path":  path,
	})
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCategory")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("categories?id=eq.%s", id))
}

func categoriesFromRows(rows []categoryRow) []domain.Category {
	cats := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, r.toDomain())
	}
	return cats
}
