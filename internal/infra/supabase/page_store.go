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
// PageStore implementation — content pages via PostgREST
// ============================================================

// pageRow maps the pages table columns to our domain.
type pageRow struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r pageRow) toDomain() domain.Page {
	return domain.Page{
		ID:        r.ID,
		Slug:      r.Slug,
		Title:     r.Title,
		Content:   r.Content,
		Published: r.Published,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (c *Client) ListPages(ctx context.Context, publishedOnly bool) ([]domain.Page, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPages")
	defer span.End()

	path := "pages?order=title.asc"
	if publishedOnly {
		path = "pages?published=eq.true&order=title.asc"
	}

	var rows []pageRow
	if err := c.fetchInto(ctx, path, &rows); err != nil {
		return nil, err
	}

	pages := make([]domain.Page, 0, len(rows))
	for _, r := range rows {
		pages = append(pages, r.toDomain())
	}
	return pages, nil
}

func (c *Client) GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPageBySlug")
	defer span.End()

	path := fmt.Sprintf("pages?slug=eq.%s&limit=1", slug)
	return c.getPage(ctx, path, slug)
}

func (c *Client) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPage")
	defer span.End()

	path := fmt.Sprintf("pages?id=eq.%s&limit=1", id)
	return c.getPage(ctx, path, id)
}

func (c *Client) getPage(ctx context.Context, path, ref string) (*domain.Page, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "page", ID: ref}
	}

	var rows []pageRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "page", ID: ref}
	}
	page := rows[0].toDomain()
	return &page, nil
}

func (c *Client) CreatePage(ctx context.Context, p *domain.Page) (*domain.Page, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePage")
	defer span.End()

	data := map[string]any{
		"id":        p.ID,
		"slug":      p.Slug,
		"title":     p.Title,
		"content":   p.Content,
		"published": p.Published,
	}

	body, err := c.doPost(ctx, "pages", data)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	var rows []pageRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	if len(rows) == 0 {
		return p, nil
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) UpdatePage(ctx context.Context, id string, updates map[string]any) (*domain.Page, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePage")
	defer span.End()

	path := fmt.Sprintf("pages?id=eq.%s", id)
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.GetPage(ctx, id)
}

func (c *Client) DeletePage(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeletePage")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("pages?id=eq.%s", id))
}
