package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// ============================================================
// ConfigStore implementation — typed settings via PostgREST
// ============================================================

// configRow maps the config table columns to our domain.
type configRow struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r configRow) toDomain() domain.ConfigEntry {
	return domain.ConfigEntry{
		ID:          r.ID,
		Key:         r.Key,
		Value:       r.Value,
		Type:        domain.ConfigType(r.Type),
		Description: r.Description,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (c *Client) ListConfig(ctx context.Context) ([]domain.ConfigEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListConfig")
	defer span.End()

	var rows []configRow
	if err := c.fetchInto(ctx, "config?order=key.asc", &rows); err != nil {
		return nil, err
	}

	entries := make([]domain.ConfigEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}

func (c *Client) GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetConfig")
	defer span.End()

	path := fmt.Sprintf("config?key=eq.%s&limit=1", key)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "config", ID: key}
	}

	var rows []configRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "config", ID: key}
	}
	entry := rows[0].toDomain()
	return &entry, nil
}

func (c *Client) UpsertConfig(ctx context.Context, entry *domain.ConfigEntry) (*domain.ConfigEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertConfig")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	data := map[string]any{
		"id":          entry.ID,
		"key":         entry.Key,
		"value":       entry.Value,
		"type":        string(entry.Type),
		"description": entry.Description,
	}

	body, err := c.doUpsert(ctx, "config?on_conflict=key", data)
	if err != nil {
		return nil, fmt.Errorf("upsert config: %w", err)
	}

	var rows []configRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(rows) == 0 {
		return entry, nil
	}
	saved := rows[0].toDomain()
	return &saved, nil
}

func (c *Client) DeleteConfig(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteConfig")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("config?key=eq.%s", key))
}
