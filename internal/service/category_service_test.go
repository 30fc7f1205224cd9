package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/service"
)

func strptr(s string) *string { return &s }

func TestCategoryCreate_RootAndChildPlacement(t *testing.T) {
	store := newFakeCategoryStore()
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	root, err := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "Services"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if root.Level != 0 || root.Path != "Services" {
		t.Errorf("root placement = level %d path %q", root.Level, root.Path)
	}

	child, err := svc.Create(context.Background(), &domain.CreateCategoryRequest{
		Name:     "Consulting",
		ParentID: &root.ID,
	})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.Level != 1 || child.Path != "Services/Consulting" {
		t.Errorf("child placement = level %d path %q", child.Level, child.Path)
	}
}

func TestCategoryCreate_DepthLimit(t *testing.T) {
	store := newFakeCategoryStore()
	svc := service.NewCategoryService(store, 2, zap.NewNop())

	root, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "A"})
	child, err := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "B", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create level 1: %v", err)
	}

	// A parent below the limit still accepts a child at the limit level.
	grand, err := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "C", ParentID: &child.ID})
	if err != nil {
		t.Fatalf("create level 2: %v", err)
	}
	if grand.Level != 2 || grand.Path != "A/B/C" {
		t.Errorf("level 2 placement = level %d path %q", grand.Level, grand.Path)
	}

	_, err = svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "D", ParentID: &grand.ID})
	var depth *domain.ErrDepthExceeded
	if !errors.As(err, &depth) {
		t.Fatalf("expected ErrDepthExceeded below a level-2 parent, got %v", err)
	}
}

func TestCategoryUpdate_RenamePropagatesToDescendants(t *testing.T) {
	store := newFakeCategoryStore()
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	root, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "Hardware"})
	child, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "Laptops", ParentID: &root.ID})
	grand, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "Ultrabooks", ParentID: &child.ID})

	if _, err := svc.Update(context.Background(), root.ID, &domain.UpdateCategoryRequest{Name: "Equipment"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	gotChild, _ := store.FindCategory(context.Background(), child.ID)
	if gotChild.Path != "Equipment/Laptops" {
		t.Errorf("child path = %q, want Equipment/Laptops", gotChild.Path)
	}
	gotGrand, _ := store.FindCategory(context.Background(), grand.ID)
	if gotGrand.Path != "Equipment/Laptops/Ultrabooks" {
		t.Errorf("grandchild path = %q, want Equipment/Laptops/Ultrabooks", gotGrand.Path)
	}
}

func TestCategoryUpdate_CycleRejected(t *testing.T) {
	store := newFakeCategoryStore()
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	root, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "A"})
	child, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "B", ParentID: &root.ID})

	_, err := svc.Update(context.Background(), root.ID, &domain.UpdateCategoryRequest{
		Name:     "A",
		ParentID: &child.ID,
	})
	var cycle *domain.ErrCycleDetected
	if !errors.As(err, &cycle) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestCategoryDelete_BlockedByChildren(t *testing.T) {
	store := newFakeCategoryStore()
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	root, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "Parent"})
	child, _ := svc.Create(context.Background(), &domain.CreateCategoryRequest{Name: "Child", ParentID: &root.ID})

	err := svc.Delete(context.Background(), root.ID)
	var hasChildren *domain.ErrHasChildren
	if !errors.As(err, &hasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}

	if err := svc.Delete(context.Background(), child.ID); err != nil {
		t.Fatalf("delete leaf: %v", err)
	}
	if err := svc.Delete(context.Background(), root.ID); err != nil {
		t.Fatalf("delete emptied parent: %v", err)
	}
}

func TestCategoryTree_DepthClamped(t *testing.T) {
	store := newFakeCategoryStore(
		&domain.Category{ID: "c1", Name: "Root", Level: 0, Path: "Root"},
		&domain.Category{ID: "c2", Name: "Child", ParentID: strptr("c1"), Level: 1, Path: "Root/Child"},
	)
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "", 99)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree shape: %+v", tree)
	}
}

func TestCategoryTree_FullDepthFetchable(t *testing.T) {
	// With a depth limit of 3 the hierarchy spans four levels, and the
	// default tree expansion must reach the deepest one.
	store := newFakeCategoryStore(
		&domain.Category{ID: "c1", Name: "L0", Level: 0, Path: "L0"},
		&domain.Category{ID: "c2", Name: "L1", ParentID: strptr("c1"), Level: 1, Path: "L0/L1"},
		&domain.Category{ID: "c3", Name: "L2", ParentID: strptr("c2"), Level: 2, Path: "L0/L1/L2"},
		&domain.Category{ID: "c4", Name: "L3", ParentID: strptr("c3"), Level: 3, Path: "L0/L1/L2/L3"},
	)
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	node := tree[0]
	for _, want := range []string{"L1", "L2", "L3"} {
		if len(node.Children) != 1 {
			t.Fatalf("missing %s in expansion", want)
		}
		node = node.Children[0]
		if node.Name != want {
			t.Fatalf("node = %q, want %s", node.Name, want)
		}
	}
}

func TestCategoryTree_RootedAtParent(t *testing.T) {
	store := newFakeCategoryStore(
		&domain.Category{ID: "c1", Name: "Root", Level: 0, Path: "Root"},
		&domain.Category{ID: "c2", Name: "Child", ParentID: strptr("c1"), Level: 1, Path: "Root/Child"},
		&domain.Category{ID: "c3", Name: "Other", Level: 0, Path: "Other"},
	)
	svc := service.NewCategoryService(store, 3, zap.NewNop())

	tree, err := svc.Tree(context.Background(), "c1", 0)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "Child" {
		t.Fatalf("subtree = %+v, want [Child]", tree)
	}

	if _, err := svc.Tree(context.Background(), "missing", 0); err == nil {
		t.Fatal("expected error for unknown parent")
	}
}
