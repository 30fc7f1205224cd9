package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry that can be billed on invoices.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *string         `json:"categoryId,omitempty"`
	Category    *Category       `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateItemRequest is the body of POST /v1/items. Price accepts a JSON
// number or a numeric string.
type CreateItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *string         `json:"categoryId,omitempty"`
}

// UpdateItemRequest is the body of PATCH /v1/items/{itemId}.
type UpdateItemRequest struct {
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	CategoryID  *string          `json:"categoryId,omitempty"`
}
