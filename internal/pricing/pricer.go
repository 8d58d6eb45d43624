package pricing

import (
	"time"

	"github.com/noah-isme/toko-offers/internal/offer"
)

// Pricer prices products and carts against the current offer snapshot. Each
// call reads the clock and the snapshot exactly once.
type Pricer struct {
	Source SnapshotSource
	Now    func() time.Time
}

func (p Pricer) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Pricer) snapshot() *Snapshot {
	if p.Source == nil {
		return nil
	}
	return p.Source.Current()
}

// Pin returns a Pricer bound to the snapshot that is current right now and
// reports whether one has loaded.
func (p Pricer) Pin() (Pricer, bool) {
	snap := p.snapshot()
	return Pricer{Source: StaticSource{Snapshot: snap}, Now: p.Now}, snap != nil
}

// GetApplicableOfferForProduct returns the final unit price and the winning
// offer. Before any snapshot has loaded the original price is returned.
func (p Pricer) GetApplicableOfferForProduct(prod offer.Product) offer.Resolution {
	snap := p.snapshot()
	if snap == nil {
		return offer.Resolution{FinalPrice: prod.Price}
	}
	return offer.ResolveProduct(prod, snap.Offers, p.now())
}

// CalculateCartWithOffers returns the discount breakdown for items. Before any
// snapshot has loaded every item is returned at its original price.
func (p Pricer) CalculateCartWithOffers(items []offer.LineItem) offer.CartResult {
	snap := p.snapshot()
	if snap == nil {
		return offer.Fallback(items)
	}
	return offer.ResolveCart(items, snap.Offers, p.now())
}
