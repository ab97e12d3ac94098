package player

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// FallbackRepository fronts a durable store with a volatile one. Storage
// failures degrade to the volatile store instead of failing the caller;
// records written during degradation stay readable for the process lifetime.
type FallbackRepository struct {
	durable  Repository
	volatile *MemoryRepository
	logger   zerolog.Logger
}

// NewFallbackRepository wraps a durable repository with volatile fallback.
func NewFallbackRepository(durable Repository, logger zerolog.Logger) *FallbackRepository {
	return &FallbackRepository{
		durable:  durable,
		volatile: NewMemoryRepository(),
		logger:   logger,
	}
}

func (f *FallbackRepository) Get(ctx context.Context, userID string) (*Record, error) {
	rec, err := f.durable.Get(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, ErrStorage) {
		f.logger.Warn().Err(err).Str("user_id", userID).Msg("durable get failed, using volatile store")
		return f.volatile.Get(ctx, userID)
	}
	if errors.Is(err, ErrNotFound) {
		// A record saved during an earlier degradation may only exist in
		// the volatile store.
		if vrec, verr := f.volatile.Get(ctx, userID); verr == nil {
			return vrec, nil
		}
	}
	return nil, err
}

func (f *FallbackRepository) Save(ctx context.Context, rec *Record) error {
	if err := f.durable.Save(ctx, rec); err != nil {
		if errors.Is(err, ErrStorage) {
			f.logger.Warn().Err(err).Str("user_id", rec.ID).Msg("durable save failed, using volatile store")
			return f.volatile.Save(ctx, rec)
		}
		return err
	}
	// Keep the volatile copy coherent so degraded reads see fresh data.
	_ = f.volatile.Save(ctx, rec)
	return nil
}

func (f *FallbackRepository) Create(ctx context.Context, rec *Record) error {
	return f.Save(ctx, rec)
}

func (f *FallbackRepository) Search(ctx context.Context, query string, limit int) ([]*Record, error) {
	out, err := f.durable.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			f.logger.Warn().Err(err).Msg("durable search failed, using volatile store")
			return f.volatile.Search(ctx, query, limit)
		}
		return nil, err
	}
	return out, nil
}
