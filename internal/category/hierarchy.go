// Package category implements the catalog hierarchy rules: placement of nodes
// via materialized paths, depth limiting, cycle rejection on re-parenting and
// eager propagation of path changes to descendants.
package category

import (
	"context"
	"sort"
	"strings"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

// Store is the slice of category persistence the hierarchy rules need.
type Store interface {
	FindChildren(ctx context.Context, parentID string) ([]domain.Category, error)
	UpdatePlacement(ctx context.Context, id string, level int, path string) error
}

// Manager enforces the hierarchy invariants. MaxDepth is the deepest level a
// parent may sit on: with MaxDepth 3, a parent at level 3 cannot take
// children, so nodes occupy levels 0 through 3.
type Manager struct {
	MaxDepth int
}

// NewManager returns a Manager with the given depth limit.
func NewManager(maxDepth int) *Manager {
	return &Manager{MaxDepth: maxDepth}
}

// Place computes the level and path of a category named name under parent.
// A nil parent places the category at the root.
func (m *Manager) Place(parent *domain.Category, name string) (domain.Placement, error) {
	if parent == nil {
		return domain.Placement{Level: 0, Path: name}, nil
	}
	if parent.Level >= m.MaxDepth {
		return domain.Placement{}, &domain.ErrDepthExceeded{MaxDepth: m.MaxDepth}
	}
	return domain.Placement{Level: parent.Level + 1, Path: parent.Path + "/" + name}, nil
}

// ValidateReparent checks that moving current under newParent neither creates
// a cycle nor exceeds the depth limit, and returns the new placement. The
// cycle test is a path prefix check: any category whose path starts with the
// moved category's path is the category itself or one of its descendants.
func (m *Manager) ValidateReparent(current domain.Category, newParent *domain.Category, name string) (domain.Placement, error) {
	if newParent != nil && strings.HasPrefix(newParent.Path, current.Path) {
		return domain.Placement{}, &domain.ErrCycleDetected{
			CategoryPath: current.Path,
			ParentPath:   newParent.Path,
		}
	}
	return m.Place(newParent, name)
}

// Propagate rewrites the level and path of every descendant of parent,
// depth first, after the parent's own placement changed.
func (m *Manager) Propagate(ctx context.Context, store Store, parent domain.Category) error {
	children, err := store.FindChildren(ctx, parent.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		child.Level = parent.Level + 1
		child.Path = parent.Path + "/" + child.Name
		if err := store.UpdatePlacement(ctx, child.ID, child.Level, child.Path); err != nil {
			return err
		}
		if err := m.Propagate(ctx, store, child); err != nil {
			return err
		}
	}
	return nil
}

// Lister is the read-only slice of the store used for tree assembly.
type Lister interface {
	FindChildren(ctx context.Context, parentID string) ([]domain.Category, error)
	FindRoots(ctx context.Context) ([]domain.Category, error)
}

// BuildTree assembles the category forest down to maxDepth levels. An empty
// parentID expands from the roots; otherwise the children of parentID become
// the top of the forest. Passing a maxDepth of 0 or less returns an empty
// forest; siblings are ordered by name.
func BuildTree(ctx context.Context, store Lister, parentID string, maxDepth int) ([]*domain.CategoryNode, error) {
	if maxDepth <= 0 {
		return []*domain.CategoryNode{}, nil
	}

	var top []domain.Category
	var err error
	if parentID == "" {
		top, err = store.FindRoots(ctx)
	} else {
		top, err = store.FindChildren(ctx, parentID)
	}
	if err != nil {
		return nil, err
	}
	return expand(ctx, store, top, 1, maxDepth)
}

func expand(ctx context.Context, store Lister, cats []domain.Category, depth, maxDepth int) ([]*domain.CategoryNode, error) {
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })

	nodes := make([]*domain.CategoryNode, 0, len(cats))
	for _, c := range cats {
		node := &domain.CategoryNode{Category: c, Children: []*domain.CategoryNode{}}
		if depth < maxDepth {
			children, err := store.FindChildren(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			node.Children, err = expand(ctx, store, children, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
