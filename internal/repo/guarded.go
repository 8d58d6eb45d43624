package repo

import (
	"context"

	"github.com/noah-isme/toko-offers/internal/offer"
	"github.com/noah-isme/toko-offers/internal/resilience"
)

// ActiveOffersFetcher is implemented by OffersRepo.
type ActiveOffersFetcher interface {
	FetchActiveOffers(ctx context.Context) ([]offer.Offer, error)
}

// GuardedOffers retries offer fetches and stops calling the database while
// its breaker is open.
type GuardedOffers struct {
	Repo   ActiveOffersFetcher
	Policy resilience.Policy
}

// FetchActiveOffers delegates to Repo under Policy.
func (g GuardedOffers) FetchActiveOffers(ctx context.Context) ([]offer.Offer, error) {
	var offers []offer.Offer
	err := g.Policy.Do(ctx, func(ctx context.Context) error {
		var err error
		offers, err = g.Repo.FetchActiveOffers(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}
