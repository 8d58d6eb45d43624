package offer

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountedPrice applies the offer's discount mechanism to price. Percent takes
// precedence over amount; an offer with neither leaves the price unchanged.
// The result is not clamped for percent discounts above 100.
func DiscountedPrice(o Offer, price Money) Money {
	switch {
	case o.DiscountPercent != nil:
		return price.Mul(decimal.NewFromInt(1).Sub(o.DiscountPercent.Shift(-2)))
	case o.DiscountAmount != nil:
		return decimal.Max(decimal.Zero, price.Sub(*o.DiscountAmount))
	default:
		return price
	}
}

// ResolveProduct picks the best eligible offer for a single product unit.
//
// Offers are ranked by priority descending and, among equal priorities, by the
// resulting price ascending. When both are equal the offer that comes first in
// offers wins.
func ResolveProduct(p Product, offers []Offer, now time.Time) Resolution {
	ctx := ProductContext(p.ID, p.CategoryID)

	var (
		best      *Offer
		bestPrice Money
	)
	for i := range offers {
		o := &offers[i]
		if !IsEligible(*o, now, ctx) {
			continue
		}
		price := DiscountedPrice(*o, p.Price)
		if best == nil || o.Priority > best.Priority ||
			(o.Priority == best.Priority && price.LessThan(bestPrice)) {
			best = o
			bestPrice = price
		}
	}
	if best == nil {
		return Resolution{FinalPrice: p.Price}
	}
	applied := best.clone()
	return Resolution{
		FinalPrice:   decimal.Max(decimal.Zero, bestPrice),
		AppliedOffer: &applied,
	}
}
