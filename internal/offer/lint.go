package offer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Warning describes a suspicious authoring choice on an offer. Warnings never
// change how the offer is resolved.
type Warning struct {
	OfferID string `json:"offerId"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("offer %s: %s: %s", w.OfferID, w.Field, w.Message)
}

var hundred = decimal.NewFromInt(100)

// Lint inspects an offer for authoring mistakes.
func Lint(o Offer) []Warning {
	var out []Warning
	warn := func(field, msg string) {
		out = append(out, Warning{OfferID: o.ID, Field: field, Message: msg})
	}

	switch o.Type {
	case TypeProduct, TypeCategory, TypeStore, TypeConditional:
	default:
		warn("type", fmt.Sprintf("unknown type %q, offer will never be eligible", o.Type))
	}

	if o.DiscountPercent == nil && o.DiscountAmount == nil {
		warn("discount", "neither discountPercent nor discountAmount is set, offer changes no price")
	}
	if p := o.DiscountPercent; p != nil && (p.IsNegative() || p.GreaterThan(hundred)) {
		warn("discountPercent", fmt.Sprintf("%s is outside 0-100", p.String()))
	}
	if o.DiscountPercent != nil && o.DiscountAmount != nil {
		warn("discountAmount", "ignored because discountPercent is set")
	}
	if a := o.DiscountAmount; a != nil && a.IsNegative() {
		warn("discountAmount", fmt.Sprintf("%s is negative", a.String()))
	}
	if o.ValidFrom.After(o.ValidTill) {
		warn("validFrom", "validFrom is after validTill, offer is never active")
	}

	switch o.Type {
	case TypeProduct:
		if len(o.ProductIDs) == 0 {
			warn("productIds", "product offer has no target products")
		}
	case TypeCategory:
		if len(o.CategoryIDs) == 0 {
			warn("categoryIds", "category offer has no target categories")
		}
	case TypeConditional:
		if _, ok := o.Threshold(); !ok {
			warn("condition", "conditional offer has no cartValueGreaterThan, it never applies")
		}
	}
	return out
}
