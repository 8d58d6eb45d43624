package offer

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// appliedSet keeps applied offers unique by id in first-seen order.
type appliedSet struct {
	seen  map[string]struct{}
	order []Offer
}

func (s *appliedSet) add(o Offer) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[o.ID]; ok {
		return
	}
	s.seen[o.ID] = struct{}{}
	s.order = append(s.order, o.clone())
}

func (s *appliedSet) list() []Offer {
	if s.order == nil {
		return []Offer{}
	}
	return s.order
}

// ResolveCart computes the discount breakdown for items in two phases.
//
// Phase one resolves the single best offer per line. Phase two applies every
// eligible store and conditional offer in priority order, each one against the
// running total left by the previous ones. The same now is used for every
// eligibility check.
func ResolveCart(items []LineItem, offers []Offer, now time.Time) CartResult {
	var (
		subTotal      = decimal.Zero
		totalDiscount = decimal.Zero
		applied       appliedSet
	)

	resolved := make([]ResolvedLineItem, 0, len(items))
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		subTotal = subTotal.Add(it.UnitPrice.Mul(qty))

		line := ResolvedLineItem{
			LineItem:        it,
			DiscountedPrice: it.UnitPrice,
			ItemDiscount:    decimal.Zero,
		}
		res := ResolveProduct(Product{ID: it.ProductID, Price: it.UnitPrice, CategoryID: it.CategoryID}, offers, now)
		if res.AppliedOffer != nil && res.FinalPrice.LessThan(it.UnitPrice) {
			line.DiscountedPrice = res.FinalPrice
			line.ItemDiscount = it.UnitPrice.Sub(res.FinalPrice).Mul(qty)
			line.AppliedOfferID = res.AppliedOffer.ID
			totalDiscount = totalDiscount.Add(line.ItemDiscount)
			applied.add(*res.AppliedOffer)
		}
		resolved = append(resolved, line)
	}

	running := subTotal.Sub(totalDiscount)
	for _, o := range globalOffers(offers, now) {
		if o.Type == TypeConditional {
			threshold, ok := o.Threshold()
			if !ok || !running.GreaterThan(threshold) {
				continue
			}
		}
		discount := cartDiscount(o, running)
		totalDiscount = totalDiscount.Add(discount)
		running = running.Sub(discount)
		applied.add(o)
	}

	return CartResult{
		Items:         resolved,
		SubTotal:      subTotal,
		Discount:      totalDiscount,
		Total:         decimal.Max(decimal.Zero, subTotal.Sub(totalDiscount)),
		AppliedOffers: applied.list(),
	}
}

// globalOffers returns the offers eligible for the cart-wide pass, highest
// priority first. The input slice is not reordered.
func globalOffers(offers []Offer, now time.Time) []Offer {
	ctx := GlobalContext()
	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if IsEligible(o, now, ctx) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b Offer) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return out
}

func cartDiscount(o Offer, running Money) Money {
	switch {
	case o.DiscountPercent != nil:
		return running.Mul(o.DiscountPercent.Shift(-2))
	case o.DiscountAmount != nil:
		return *o.DiscountAmount
	default:
		return decimal.Zero
	}
}

// Fallback prices items at their original unit price with no discount. It is
// what callers show while no offer snapshot has loaded yet.
func Fallback(items []LineItem) CartResult {
	subTotal := decimal.Zero
	resolved := make([]ResolvedLineItem, 0, len(items))
	for _, it := range items {
		subTotal = subTotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		resolved = append(resolved, ResolvedLineItem{
			LineItem:        it,
			DiscountedPrice: it.UnitPrice,
			ItemDiscount:    decimal.Zero,
		})
	}
	return CartResult{
		Items:         resolved,
		SubTotal:      subTotal,
		Discount:      decimal.Zero,
		Total:         subTotal,
		AppliedOffers: []Offer{},
	}
}
