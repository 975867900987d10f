package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v1" {
		t.Errorf("got %q, want v1", val)
	}

	// Missing key returns nil, nil
	val, err = c.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil for missing key, got %q", val)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected expired entry to be gone, got %q", val)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := c.Set(ctx, key, []byte(key), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("stats = (%d, %d), want (3, 3)", size, capacity)
	}

	// Oldest entries were evicted
	if val, _ := c.Get(ctx, "k0"); val != nil {
		t.Error("expected k0 to be evicted")
	}
	if val, _ := c.Get(ctx, "k4"); val == nil {
		t.Error("expected k4 to survive")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if val, _ := c.Get(ctx, "k1"); val != nil {
		t.Error("expected deleted entry to be gone")
	}
}

func TestLRUCacheHistorySummary(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	summary := &domain.HistorySummary{
		OriginID:      "C100",
		Transactions:  8,
		FraudCount:    1,
		FraudRate:     12.5,
		TransferCount: 3,
		CashOutCount:  2,
		AvgAmount:     1500,
		MaxAmount:     9000,
	}

	if err := c.SetHistorySummary(ctx, "C100", summary, time.Minute); err != nil {
		t.Fatalf("SetHistorySummary failed: %v", err)
	}

	got, err := c.GetHistorySummary(ctx, "C100")
	if err != nil {
		t.Fatalf("GetHistorySummary failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached summary")
	}
	if got.FraudRate != 12.5 || got.HighRiskCount() != 5 {
		t.Errorf("summary round-trip mismatch: %+v", got)
	}

	// Unknown account is a miss, not an error
	got, err = c.GetHistorySummary(ctx, "C404")
	if err != nil {
		t.Fatalf("GetHistorySummary failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown account, got %+v", got)
	}
}

func TestLRUCacheIncrementCounter(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementCounter(ctx, "c1", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != want {
			t.Errorf("counter = %d, want %d", got, want)
		}
	}
}

func TestLRUCacheCounterWindowReset(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	c.IncrementCounter(ctx, "c1", 10*time.Millisecond)
	c.IncrementCounter(ctx, "c1", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	got, err := c.IncrementCounter(ctx, "c1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}
	if got != 1 {
		t.Errorf("counter after window reset = %d, want 1", got)
	}
}

func TestNewFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected *LRUCache, got %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "bogus"}); err == nil {
		t.Fatal("expected error for unsupported cache type")
	}
}
