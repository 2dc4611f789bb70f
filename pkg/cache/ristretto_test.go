package cache

import (
	"testing"
	"time"

	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c.(*RistrettoCache)
}

func TestCacheMarketConfigRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	defer cache.Close()

	cfg := types.MarketConfig{MarketID: 7, Initialized: true}
	key := MarketConfigKey(7)

	if !cache.Set(key, cfg, time.Minute) {
		t.Error("expected Set to succeed")
	}
	cache.Wait()

	got, found := cache.Get(key)
	if !found {
		t.Fatal("expected key to be found")
	}
	if got.(types.MarketConfig).MarketID != 7 {
		t.Errorf("unexpected cached value: %+v", got)
	}
}

func TestCacheMiss(t *testing.T) {
	cache := newTestCache(t)
	defer cache.Close()

	if _, found := cache.Get(MarketConfigKey(404)); found {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := newTestCache(t)
	defer cache.Close()

	key := CollateralInfoKey("0xabc")
	cache.Set(key, "info", 50*time.Millisecond)
	cache.Wait()

	time.Sleep(120 * time.Millisecond)
	if _, found := cache.Get(key); found {
		t.Error("expected entry to expire")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	cache := newTestCache(t)
	defer cache.Close()

	cache.Set("a", 1, time.Minute)
	cache.Set("b", 2, time.Minute)
	cache.Wait()

	cache.Delete("a")
	if _, found := cache.Get("a"); found {
		t.Error("expected deleted key to be gone")
	}

	cache.Clear()
	if _, found := cache.Get("b"); found {
		t.Error("expected cleared cache to be empty")
	}
}
