package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ============================================================
// ItemStore implementation — catalog items via PostgREST
// ============================================================

// itemRow maps the items table columns to our domain.
type itemRow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *string         `json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r itemRow) toDomain() domain.Item {
	return domain.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Price:       r.Price,
		CategoryID:  r.CategoryID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (c *Client) ListItems(ctx context.Context, categoryID string) ([]domain.Item, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListItems")
	defer span.End()

	path := "items?order=name.asc"
	if categoryID != "" {
		path = fmt.Sprintf("items?category_id=eq.%s&order=name.asc", categoryID)
	}

	var rows []itemRow
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetItem")
	defer span.End()

	path := fmt.Sprintf("items?id=eq.%s&limit=1", id)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "item", ID: id}
	}

	var rows []itemRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "item", ID: id}
	}
	item := rows[0].toDomain()
	return &item, nil
}

func (c *Client) CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateItem")
	defer span.End()

	data := map[string]any{
		"id":          item.ID,
		"name":        item.Name,
		"description": item.Description,
		"image_url":   item.ImageURL,
		"price":       item.Price,
	}
	if item.CategoryID != nil {
		data["category_id"] = *item.CategoryID
	}

	body, err := c.doPost(ctx, "items", data)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	var rows []itemRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if len(rows) == 0 {
		return item, nil
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, updates map[string]any) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateItem")
	defer span.End()

	path := fmt.Sprintf("items?id=eq.%s", id)
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.GetItem(ctx, id)
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteItem")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("items?id=eq.%s", id))
}
