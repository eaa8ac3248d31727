package cache

import (
	"context"
	"testing"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/models"
	"go.uber.org/zap"
)

func outcome(score int) *models.AnalysisOutcome {
	return &models.AnalysisOutcome{
		Status:    models.StatusSuccess,
		Sweetness: &models.SweetnessAssessment{Score: score},
	}
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(10, time.Minute, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); err != ErrCacheMiss {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := c.Set(ctx, "k", outcome(84)); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Sweetness.Score != 84 {
		t.Fatalf("expected cached score 84, got %d", got.Sweetness.Score)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemoryCache(10, time.Minute, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	if err := c.SetWithTTL(ctx, "k", outcome(50), 10*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL error: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != ErrCacheMiss {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	c := NewMemoryCache(2, time.Minute, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", outcome(1))
	c.Set(ctx, "b", outcome(2))
	c.Set(ctx, "c", outcome(3))

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Items > 2 {
		t.Fatalf("expected at most 2 items after eviction, got %d", stats.Items)
	}
}

func TestImageKeyIsStable(t *testing.T) {
	a := ImageKey([]byte("image-bytes"))
	b := ImageKey([]byte("image-bytes"))
	other := ImageKey([]byte("different"))

	if a != b {
		t.Fatal("same bytes must produce the same key")
	}
	if a == other {
		t.Fatal("different bytes must produce different keys")
	}
}
