package pricing

import (
	"time"

	"github.com/noah-isme/toko-offers/internal/offer"
)

// Snapshot sources.
const (
	SourceDB    = "db"
	SourceCache = "cache"
	SourceEmpty = "empty"
)

// Snapshot is an immutable set of offers captured at LoadedAt. Callers must
// not modify Offers.
type Snapshot struct {
	Offers   []offer.Offer `json:"offers"`
	LoadedAt time.Time     `json:"loadedAt"`
	Source   string        `json:"source"`
}

// NewSnapshot copies offers into a new snapshot.
func NewSnapshot(offers []offer.Offer, loadedAt time.Time, source string) *Snapshot {
	cp := make([]offer.Offer, len(offers))
	copy(cp, offers)
	return &Snapshot{Offers: cp, LoadedAt: loadedAt.UTC(), Source: source}
}

// SnapshotSource yields the snapshot to price against. Current returns nil
// while nothing has loaded yet.
type SnapshotSource interface {
	Current() *Snapshot
}

// StaticSource always serves the same snapshot.
type StaticSource struct {
	Snapshot *Snapshot
}

// Current implements SnapshotSource.
func (s StaticSource) Current() *Snapshot { return s.Snapshot }
