package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-offers/internal/cache"
	"github.com/noah-isme/toko-offers/internal/lock"
	"github.com/noah-isme/toko-offers/internal/obs"
	"github.com/noah-isme/toko-offers/internal/offer"
)

var (
	lockKey = lock.Key(cache.SnapshotKey)
	errRepo = errors.New("offer repository")
)

// OfferRepository fetches the offers that may currently apply.
type OfferRepository interface {
	FetchActiveOffers(ctx context.Context) ([]offer.Offer, error)
}

// SnapshotCache stores serialised snapshots shared between replicas.
type SnapshotCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Locker serialises cache fills across replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Loader keeps the current offer snapshot. Cache and Locker are optional.
type Loader struct {
	Repo    OfferRepository
	Cache   SnapshotCache
	Locker  Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time

	current atomic.Pointer[Snapshot]
}

func (l *Loader) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Current returns the published snapshot, or nil before the first refresh.
func (l *Loader) Current() *Snapshot {
	return l.current.Load()
}

// Refresh publishes the cached snapshot when there is one and otherwise loads
// from the repository under the fill lock, writing the result back to the cache.
func (l *Loader) Refresh(ctx context.Context) error {
	if l.fromCache(ctx) {
		return nil
	}
	if l.Locker == nil {
		return l.load(ctx)
	}
	err := l.Locker.WithLock(ctx, lockKey, l.LockTTL, func(ctx context.Context) error {
		// Another replica may have filled the cache while we waited.
		if l.fromCache(ctx) {
			return nil
		}
		return l.load(ctx)
	})
	if err == nil || errors.Is(err, errRepo) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	l.Logger.Warn().Err(err).Msg("offer snapshot lock unavailable, loading without it")
	return l.load(ctx)
}

// Reload loads from the repository and overwrites the cache, ignoring any
// cached snapshot.
func (l *Loader) Reload(ctx context.Context) error {
	return l.load(ctx)
}

// Invalidate drops the shared cached snapshot so other replicas fall through
// to the repository on their next refresh.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.Cache == nil {
		return nil
	}
	return l.Cache.Delete(ctx, cache.SnapshotKey)
}

// Run refreshes immediately and then on every tick until ctx ends.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	if err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
		l.Logger.Error().Err(err).Msg("initial offer snapshot refresh")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
				l.Logger.Error().Err(err).Msg("refresh offer snapshot")
			}
		}
	}
}

func (l *Loader) fromCache(ctx context.Context) bool {
	if l.Cache == nil {
		return false
	}
	var snap Snapshot
	ok, err := l.Cache.GetJSON(ctx, cache.SnapshotKey, &snap)
	if err != nil {
		l.Logger.Warn().Err(err).Msg("read cached offer snapshot")
		obs.RecordSnapshotRefresh(SourceCache, "error", 0, 0)
		return false
	}
	if !ok {
		return false
	}
	snap.Source = SourceCache
	l.publish(&snap)
	return true
}

// load fetches offers from the repository. On failure an empty snapshot is
// published so pricing reports zero discounts instead of failing.
func (l *Loader) load(ctx context.Context) error {
	offers, err := l.Repo.FetchActiveOffers(ctx)
	if err != nil {
		l.Logger.Error().Err(err).Msg("fetch active offers, publishing empty snapshot")
		obs.RecordSnapshotRefresh(SourceDB, "error", 0, 0)
		l.publish(NewSnapshot(nil, l.now(), SourceEmpty))
		return fmt.Errorf("%w: %w", errRepo, err)
	}

	for _, o := range offers {
		for _, w := range offer.Lint(o) {
			l.Logger.Warn().
				Str("offer_id", w.OfferID).
				Str("field", w.Field).
				Msg(w.Message)
		}
	}

	snap := NewSnapshot(offers, l.now(), SourceDB)
	l.publish(snap)
	if l.Cache != nil {
		if err := l.Cache.SetJSON(ctx, cache.SnapshotKey, snap); err != nil {
			l.Logger.Warn().Err(err).Msg("write offer snapshot cache")
		}
	}
	return nil
}

func (l *Loader) publish(snap *Snapshot) {
	l.current.Store(snap)
	result := "ok"
	if snap.Source == SourceEmpty {
		result = "empty"
	}
	age := l.now().Sub(snap.LoadedAt).Seconds()
	obs.RecordSnapshotRefresh(snap.Source, result, len(snap.Offers), age)
	l.Logger.Debug().
		Str("source", snap.Source).
		Int("offers", len(snap.Offers)).
		Time("loaded_at", snap.LoadedAt).
		Msg("offer snapshot published")
}
