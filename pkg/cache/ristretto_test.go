package cache

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRistrettoCache(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cache, err := NewRistrettoCache(&RistrettoConfig{
		Name:        "test",
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	t.Run("set-and-get", func(t *testing.T) {
		key := "test-key"
		value := "test-value"

		success := cache.Set(key, value, 1*time.Hour)
		if !success {
			t.Error("expected Set to succeed")
		}

		// Wait for Ristretto to process pending writes
		cache.Wait()

		retrieved, found := cache.Get(key)
		if !found {
			t.Error("expected key to be found")
		}

		if retrieved != value {
			t.Errorf("expected %q, got %q", value, retrieved)
		}
	})

	t.Run("get-missing-key", func(t *testing.T) {
		_, found := cache.Get("nonexistent")
		if found {
			t.Error("expected key to not be found")
		}
	})

	t.Run("delete", func(t *testing.T) {
		key := "delete-test"

		cache.Set(key, true, 1*time.Hour)
		cache.Wait()

		_, found := cache.Get(key)
		if !found {
			t.Error("expected key to exist before delete")
		}

		cache.Delete(key)

		_, found = cache.Get(key)
		if found {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("ttl-expiration", func(t *testing.T) {
		key := "ttl-test"

		cache.Set(key, true, 200*time.Millisecond)
		cache.Wait()

		_, found := cache.Get(key)
		if !found {
			t.Error("expected key to exist before TTL expires")
		}

		time.Sleep(300 * time.Millisecond)

		_, found = cache.Get(key)
		if found {
			t.Error("expected key to be expired after TTL")
		}
	})

	t.Run("holds-many-items-when-ignoring-internal-cost", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			cache.Set(fmt.Sprintf("bulk-%d", i), i, time.Hour)
		}
		cache.Wait()

		if m := cache.Metrics(); m != nil && m.KeysAdded() < 50 {
			t.Errorf("expected at least 50 keys added, got %d", m.KeysAdded())
		}
	})

	t.Run("clear", func(t *testing.T) {
		cache.Set("clear-key1", "value1", 1*time.Hour)
		cache.Set("clear-key2", "value2", 1*time.Hour)
		cache.Wait()

		cache.Clear()

		_, found1 := cache.Get("clear-key1")
		_, found2 := cache.Get("clear-key2")
		if found1 || found2 {
			t.Error("expected all keys to be cleared")
		}
	})
}

func TestNewRistrettoCache_InvalidConfig(t *testing.T) {
	_, err := NewRistrettoCache(&RistrettoConfig{MaxCost: 0})
	if err == nil {
		t.Error("expected error for zero max cost")
	}
}
