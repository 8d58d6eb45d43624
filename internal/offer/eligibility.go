package offer

import (
	"slices"
	"time"
)

// Context describes what an offer is being evaluated against.
type Context struct {
	Global     bool
	ProductID  string
	CategoryID string
}

// ProductContext evaluates offers against a single product. categoryID may be empty.
func ProductContext(productID, categoryID string) Context {
	return Context{ProductID: productID, CategoryID: categoryID}
}

// GlobalContext evaluates offers for the cart-wide pass.
func GlobalContext() Context {
	return Context{Global: true}
}

// IsEligible reports whether the offer applies in the given context at instant now.
// Both ends of the validity window are inclusive.
func IsEligible(o Offer, now time.Time, c Context) bool {
	if !o.Enabled {
		return false
	}
	if now.Before(o.ValidFrom) || now.After(o.ValidTill) {
		return false
	}
	if c.Global {
		return o.Type == TypeStore || o.Type == TypeConditional
	}
	switch o.Type {
	case TypeStore:
		return true
	case TypeProduct:
		return slices.Contains(o.ProductIDs, c.ProductID)
	case TypeCategory:
		return c.CategoryID != "" && slices.Contains(o.CategoryIDs, c.CategoryID)
	default:
		return false
	}
}
