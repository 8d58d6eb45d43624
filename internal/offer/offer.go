package offer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value. Arithmetic is exact; callers format for display.
type Money = decimal.Decimal

// Type identifies how an offer is targeted.
type Type string

const (
	// TypeProduct targets an explicit list of product identifiers.
	TypeProduct Type = "product"
	// TypeCategory targets every product within the listed categories.
	TypeCategory Type = "category"
	// TypeStore applies store-wide.
	TypeStore Type = "store"
	// TypeConditional applies to the whole cart once its value exceeds a threshold.
	TypeConditional Type = "conditional"
)

// Condition holds cart-level constraints for conditional offers.
type Condition struct {
	CartValueGreaterThan *Money `json:"cartValueGreaterThan,omitempty"`
}

// Offer is a time-bounded promotional rule.
type Offer struct {
	ID              string     `json:"id"`
	Title           string     `json:"title,omitempty"`
	Type            Type       `json:"type"`
	DiscountPercent *Money     `json:"discountPercent,omitempty"`
	DiscountAmount  *Money     `json:"discountAmount,omitempty"`
	ProductIDs      []string   `json:"productIds,omitempty"`
	CategoryIDs     []string   `json:"categoryIds,omitempty"`
	Condition       *Condition `json:"condition,omitempty"`
	ValidFrom       time.Time  `json:"validFrom"`
	ValidTill       time.Time  `json:"validTill"`
	Priority        int        `json:"priority"`
	Enabled         bool       `json:"enabled"`
}

// Threshold returns the conditional cart value threshold if one is configured.
func (o Offer) Threshold() (Money, bool) {
	if o.Condition == nil || o.Condition.CartValueGreaterThan == nil {
		return Money{}, false
	}
	return *o.Condition.CartValueGreaterThan, true
}

// Product is the minimal product view needed to price a single unit.
type Product struct {
	ID         string `json:"productId"`
	Price      Money  `json:"price"`
	CategoryID string `json:"categoryId,omitempty"`
}

// Resolution is the outcome of pricing a single product.
type Resolution struct {
	FinalPrice   Money  `json:"finalPrice"`
	AppliedOffer *Offer `json:"appliedOffer,omitempty"`
}

// LineItem is a cart line awaiting discount resolution.
type LineItem struct {
	ProductID  string `json:"productId"`
	UnitPrice  Money  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
	CategoryID string `json:"categoryId,omitempty"`
}

// ResolvedLineItem is a cart line with its item-level discount applied.
type ResolvedLineItem struct {
	LineItem
	DiscountedPrice Money  `json:"discountedPrice"`
	ItemDiscount    Money  `json:"itemDiscount"`
	AppliedOfferID  string `json:"appliedOfferId,omitempty"`
}

// CartResult is the full discount breakdown for a cart.
type CartResult struct {
	Items         []ResolvedLineItem `json:"items"`
	SubTotal      Money              `json:"subTotal"`
	Discount      Money              `json:"discount"`
	Total         Money              `json:"total"`
	AppliedOffers []Offer            `json:"appliedOffers"`
}

// clone returns a deep copy so results never alias caller-owned slices or pointers.
func (o Offer) clone() Offer {
	out := o
	out.ProductIDs = cloneStrings(o.ProductIDs)
	out.CategoryIDs = cloneStrings(o.CategoryIDs)
	out.DiscountPercent = cloneMoney(o.DiscountPercent)
	out.DiscountAmount = cloneMoney(o.DiscountAmount)
	if o.Condition != nil {
		out.Condition = &Condition{CartValueGreaterThan: cloneMoney(o.Condition.CartValueGreaterThan)}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMoney(m *Money) *Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}
