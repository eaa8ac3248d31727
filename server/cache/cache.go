package cache

import (
	"context"
	"errors"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/models"
)

var ErrCacheMiss = errors.New("cache miss")

// OutcomeCache memoizes analysis outcomes keyed by image hash, so a
// re-uploaded photo does not hit the inference backend twice.
type OutcomeCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisOutcome, error)

	Set(ctx context.Context, key string, outcome *models.AnalysisOutcome) error

	SetWithTTL(ctx context.Context, key string, outcome *models.AnalysisOutcome, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

type Stats struct {
	Items  int   `json:"items"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}
