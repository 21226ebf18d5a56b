// Package history unifies the recency cache and the durable store for
// paginated reads of past messages, cache first where possible.
package history

import (
	"context"

	"github.com/openagora/agora/internal/apiserver/database"
	"github.com/openagora/agora/internal/chat"
	"github.com/openagora/agora/internal/chat/cache"
	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/pkg/metrics"
	"go.uber.org/zap"
)

// Store is the slice of the durable store used for fallback reads.
type Store interface {
	GetMessagesByContext(ctx context.Context, contextType string, contextID *int64, limit, offset int) ([]*database.Message, error)
}

// Service orchestrates cache-first, store-fallback history reads.
type Service struct {
	logger    *zap.Logger
	store     Store
	cache     cache.Cache
	threshold int // max first-page limit served from cache
	metrics   *metrics.Metrics
}

// NewService builds a history service. threshold is normally the cache
// capacity; metrics may be nil.
func NewService(logger *zap.Logger, store Store, c cache.Cache, threshold int, m *metrics.Metrics) *Service {
	if threshold <= 0 {
		threshold = cnst.DefaultCacheCapacity
	}
	return &Service{
		logger:    logger.Named("chat.history"),
		store:     store,
		cache:     c,
		threshold: threshold,
		metrics:   m,
	}
}

// GetHistory returns up to limit messages of the context, newest first.
// First-page reads within the cache threshold are answered from the
// cache when warm; everything else falls through to the store. A
// first-page store read backfills the cache for subsequent reads.
func (s *Service) GetHistory(ctx context.Context, key chat.Context, limit, offset int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = cnst.DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	if offset == 0 && limit <= s.threshold {
		msgs, err := s.cache.Recent(ctx, key, limit)
		if err != nil {
			s.logger.Warn("cache read failed, falling back to store",
				zap.String("topic", key.Topic()),
				zap.Error(err))
		} else if len(msgs) > 0 {
			s.cacheHit()
			return msgs, nil
		}
	}
	s.cacheMiss()

	rows, err := s.store.GetMessagesByContext(ctx, string(key.Type), key.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.ToChat())
	}

	if offset == 0 && len(msgs) > 0 {
		if err := s.cache.Backfill(ctx, key, msgs); err != nil {
			s.logger.Warn("cache backfill failed",
				zap.String("topic", key.Topic()),
				zap.Error(err))
		}
	}
	return msgs, nil
}

func (s *Service) cacheHit() {
	if s.metrics != nil {
		s.metrics.CacheHit()
	}
}

func (s *Service) cacheMiss() {
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}
}
