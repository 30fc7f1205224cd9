package domain

import "time"

// Category is a node in the catalog hierarchy. Level and Path are eagerly
// maintained denormalizations: Level equals the number of ancestors, Path is
// the slash-joined chain of ancestor names ending in this category's name.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	ParentID    *string   `json:"parentId,omitempty"`
	Level       int       `json:"level"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryNode is a category with its resolved children, as returned by the
// tree endpoint.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// Placement is the computed position of a category under a given parent.
type Placement struct {
	Level int    `json:"level"`
	Path  string `json:"path"`
}

// CreateCategoryRequest is the body of POST /v1/categories.
type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

// UpdateCategoryRequest is the body of PATCH /v1/categories/{categoryId}.
// A nil ParentID moves the category to the root.
type UpdateCategoryRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}
