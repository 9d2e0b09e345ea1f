package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/allergenscan/backend/internal/domain"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	t.Run("store and retrieve string", func(t *testing.T) {
		if err := cache.Set(ctx, "test-key-1", "test-value", time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := cache.Get(ctx, "test-key-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		var value string
		if err := json.Unmarshal(got, &value); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if value != "test-value" {
			t.Errorf("Get() = %v, want test-value", value)
		}
	})

	t.Run("store and retrieve product record", func(t *testing.T) {
		record := &domain.ProductRecord{
			Barcode:     "3017620422003",
			ProductName: "Hazelnut Spread",
			Ingredients: "Sugar, palm oil, hazelnuts",
		}
		if err := cache.Set(ctx, "product:3017620422003", record, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := cache.Get(ctx, "product:3017620422003")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		var decoded domain.ProductRecord
		if err := json.Unmarshal(got, &decoded); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if decoded != *record {
			t.Errorf("Get() = %+v, want %+v", decoded, *record)
		}
	})

	t.Run("stored value is a snapshot", func(t *testing.T) {
		record := &domain.ProductRecord{ProductName: "Before"}
		_ = cache.Set(ctx, "snapshot", record, time.Minute)
		record.ProductName = "After"

		got, _ := cache.Get(ctx, "snapshot")
		var decoded domain.ProductRecord
		_ = json.Unmarshal(got, &decoded)
		if decoded.ProductName != "Before" {
			t.Errorf("ProductName = %s, want Before", decoded.ProductName)
		}
	})

	t.Run("expired entries are a miss", func(t *testing.T) {
		if err := cache.Set(ctx, "short", "expires-soon", time.Millisecond); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)

		if _, err := cache.Get(ctx, "short"); !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("Expected cache miss after expiration, got error = %v", err)
		}
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		if err := cache.Set(ctx, "zero", "v", 0); err == nil {
			t.Error("Set() error = nil, want error for zero ttl")
		}
	})

	t.Run("rejects values that cannot be encoded", func(t *testing.T) {
		if err := cache.Set(ctx, "chan", make(chan int), time.Minute); err == nil {
			t.Error("Set() error = nil, want encoding error")
		}
	})
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()

	_, err := cache.Get(context.Background(), "non-existent-key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "key", "value", time.Minute)
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, "key"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Expected cache miss after delete, got error = %v", err)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "present", "value", time.Minute)
	_ = cache.Set(ctx, "expired", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	tests := map[string]bool{"present": true, "expired": false, "missing": false}
	for key, want := range tests {
		got, err := cache.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists(%q) error = %v", key, err)
		}
		if got != want {
			t.Errorf("Exists(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestMemoryCache_CleanupLoop(t *testing.T) {
	cache := newMemoryCache(5 * time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "expired", "value", time.Millisecond)
	_ = cache.Set(ctx, "kept", "value", time.Minute)

	deadline := time.Now().Add(time.Second)
	for cache.Size() > 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after cleanup", cache.Size())
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache()
	cache.Close()
	cache.Close()
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", 1, time.Minute)
	_ = cache.Set(ctx, "b", 2, time.Minute)
	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after Clear", cache.Size())
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "key"
			_ = cache.Set(ctx, key, i, time.Minute)
			_, _ = cache.Get(ctx, key)
			_, _ = cache.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	if _, err := cache.Get(ctx, "key"); err != nil {
		t.Errorf("Get() error = %v after concurrent writes", err)
	}
}

func TestNoopCache(t *testing.T) {
	var cache domain.CacheRepository = NoopCache{}
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
	if ok, _ := cache.Exists(ctx, "k"); ok {
		t.Error("Exists() = true, want false")
	}
}
