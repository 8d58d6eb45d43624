package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-offers/internal/offer"
	"github.com/noah-isme/toko-offers/internal/pricing"
)

var fixedNow = time.Date(2025, 11, 11, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func electronicsOffer() offer.Offer {
	return offer.Offer{
		ID:              "o1",
		Title:           "Electronics week",
		Type:            offer.TypeCategory,
		CategoryIDs:     []string{"electronics"},
		DiscountPercent: dp("10"),
		Priority:        1,
		Enabled:         true,
		ValidFrom:       fixedNow.Add(-time.Hour),
		ValidTill:       fixedNow.Add(time.Hour),
	}
}

func TestPricerFallbackBeforeLoad(t *testing.T) {
	p := pricing.Pricer{Source: pricing.StaticSource{}, Now: func() time.Time { return fixedNow }}

	res := p.GetApplicableOfferForProduct(offer.Product{ID: "p1", Price: d("1000"), CategoryID: "electronics"})
	require.True(t, d("1000").Equal(res.FinalPrice))
	require.Nil(t, res.AppliedOffer)

	items := []offer.LineItem{{ProductID: "p1", UnitPrice: d("1000"), Quantity: 2, CategoryID: "electronics"}}
	cart := p.CalculateCartWithOffers(items)
	require.Equal(t, offer.Fallback(items), cart)

	_, loaded := p.Pin()
	require.False(t, loaded)
}

func TestPricerUsesSnapshot(t *testing.T) {
	snap := pricing.NewSnapshot([]offer.Offer{electronicsOffer()}, fixedNow, pricing.SourceDB)
	p := pricing.Pricer{Source: pricing.StaticSource{Snapshot: snap}, Now: func() time.Time { return fixedNow }}

	res := p.GetApplicableOfferForProduct(offer.Product{ID: "p1", Price: d("1000"), CategoryID: "electronics"})
	require.True(t, d("900").Equal(res.FinalPrice))
	require.Equal(t, "o1", res.AppliedOffer.ID)

	cart := p.CalculateCartWithOffers([]offer.LineItem{{ProductID: "p1", UnitPrice: d("1000"), Quantity: 1, CategoryID: "electronics"}})
	require.True(t, d("900").Equal(cart.Total))
	require.Len(t, cart.AppliedOffers, 1)
}

func TestPricerReadsClockOncePerCall(t *testing.T) {
	snap := pricing.NewSnapshot([]offer.Offer{electronicsOffer()}, fixedNow, pricing.SourceDB)
	calls := 0
	p := pricing.Pricer{
		Source: pricing.StaticSource{Snapshot: snap},
		Now: func() time.Time {
			calls++
			return fixedNow
		},
	}
	p.CalculateCartWithOffers([]offer.LineItem{
		{ProductID: "p1", UnitPrice: d("10"), Quantity: 1, CategoryID: "electronics"},
		{ProductID: "p2", UnitPrice: d("20"), Quantity: 1, CategoryID: "electronics"},
	})
	require.Equal(t, 1, calls)
}

func TestNewSnapshotCopiesOffers(t *testing.T) {
	offers := []offer.Offer{electronicsOffer()}
	snap := pricing.NewSnapshot(offers, fixedNow, pricing.SourceDB)
	offers[0].ID = "changed"
	require.Equal(t, "o1", snap.Offers[0].ID)
}
