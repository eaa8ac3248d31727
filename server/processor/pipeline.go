package processor

import (
	"context"
	"sync"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/cache"
	"github.com/MateoRommel12/pineapple-cv/server/history"
	"github.com/MateoRommel12/pineapple-cv/server/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Strategy is one way of producing an analysis outcome. Strategies are
// tried in registration order; the first non-error outcome wins. Only
// the backend strategy is registered in production wiring, but the
// ladder keeps the fallback order explicit instead of nested rescue
// blocks.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, req *models.AnalysisRequest) *models.AnalysisOutcome
}

type Pipeline struct {
	strategies []Strategy
	cache      cache.OutcomeCache
	store      history.Store
	logger     *zap.Logger
	stats      *Stats
	mutex      sync.RWMutex
}

type Stats struct {
	StartTime      time.Time `json:"start_time"`
	TotalAnalyses  int64     `json:"total_analyses"`
	Successful     int64     `json:"successful"`
	NoPineapple    int64     `json:"no_pineapple"`
	Failed         int64     `json:"failed"`
	CacheHits      int64     `json:"cache_hits"`
	AverageLatency float64   `json:"average_latency_ms"`
}

func NewPipeline(cache cache.OutcomeCache, store history.Store, logger *zap.Logger, strategies ...Strategy) *Pipeline {
	return &Pipeline{
		strategies: strategies,
		cache:      cache,
		store:      store,
		logger:     logger,
		stats:      &Stats{StartTime: time.Now()},
	}
}

// Analyze runs one image through the strategy ladder. The returned
// outcome is never nil and carries the name of the strategy that
// produced it. Outcomes for previously seen images come from the
// cache without touching the backend.
func (p *Pipeline) Analyze(ctx context.Context, req *models.AnalysisRequest) *models.AnalysisOutcome {
	start := time.Now()
	p.count(func(s *Stats) { s.TotalAnalyses++ })

	key := cache.ImageKey(req.ImageData)
	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, key); err == nil {
			p.logger.Debug("Analysis cache hit", zap.String("key", key))
			p.count(func(s *Stats) { s.CacheHits++ })
			p.recordOutcome(cached, time.Since(start))
			return cached
		}
	}

	outcome := p.runStrategies(ctx, req)

	p.recordOutcome(outcome, time.Since(start))

	if p.cache != nil && outcome.Status != models.StatusError {
		if err := p.cache.Set(ctx, key, outcome); err != nil {
			p.logger.Warn("Failed to cache analysis outcome", zap.Error(err))
		}
	}

	p.appendHistory(req, outcome)

	return outcome
}

func (p *Pipeline) runStrategies(ctx context.Context, req *models.AnalysisRequest) *models.AnalysisOutcome {
	var last *models.AnalysisOutcome
	for _, strategy := range p.strategies {
		outcome := strategy.Analyze(ctx, req)
		outcome.Source = strategy.Name()
		if outcome.Status != models.StatusError {
			return outcome
		}
		p.logger.Warn("Analysis strategy failed, trying next",
			zap.String("strategy", strategy.Name()),
			zap.String("message", outcome.Message))
		last = outcome
	}

	if last == nil {
		last = &models.AnalysisOutcome{
			Status:  models.StatusError,
			Message: "no analysis strategy configured",
		}
	}
	return last
}

// appendHistory persists the outcome without blocking the caller.
func (p *Pipeline) appendHistory(req *models.AnalysisRequest, outcome *models.AnalysisOutcome) {
	if p.store == nil {
		return
	}

	record := &models.HistoryRecord{
		ID:             uuid.NewString(),
		ClientID:       req.ClientID,
		Status:         outcome.Status,
		IsPineapple:    outcome.IsPineapple,
		Message:        outcome.Message,
		ProcessingTime: outcome.ProcessingTime,
		CreatedAt:      time.Now(),
	}
	if outcome.Sweetness != nil {
		record.Score = outcome.Sweetness.Score
		record.Category = outcome.Sweetness.Category
		record.Confidence = outcome.Sweetness.Confidence
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.store.Append(ctx, record); err != nil {
			p.logger.Warn("Failed to append history record", zap.Error(err))
		}
	}()
}

func (p *Pipeline) recordOutcome(outcome *models.AnalysisOutcome, latency time.Duration) {
	p.count(func(s *Stats) {
		switch outcome.Status {
		case models.StatusSuccess:
			s.Successful++
		case models.StatusNoPineapple:
			s.NoPineapple++
		default:
			s.Failed++
		}

		ms := float64(latency.Milliseconds())
		if s.AverageLatency == 0 {
			s.AverageLatency = ms
		} else {
			alpha := 0.1
			s.AverageLatency = alpha*ms + (1-alpha)*s.AverageLatency
		}
	})
}

func (p *Pipeline) count(update func(*Stats)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	update(p.stats)
}

func (p *Pipeline) GetStats() Stats {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return *p.stats
}
