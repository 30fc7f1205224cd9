package cache_test

import (
	"testing"
	"time"

	"github.com/modernbilling/billing-api-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("tax_rate", "10")
	val, ok := c.Get("tax_rate")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "10" {
		t.Errorf("expected '10', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("tax_rate", "10")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("tax_rate")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("tax_rate", "10")
	c.Delete("tax_rate")

	_, ok := c.Get("tax_rate")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := cache.New[string](0)

	c.Set("tax_rate", "10")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("tax_rate"); !ok {
		t.Fatal("expected entry to survive with zero TTL")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
