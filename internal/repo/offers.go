package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-offers/internal/offer"
)

// ErrOfferExists is returned when an offer id is already taken.
var ErrOfferExists = errors.New("offer already exists")

// DBTX is the subset of pgx used by the repositories. *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OffersRepo reads and writes offers stored in PostgreSQL.
type OffersRepo struct {
	DB  DBTX
	Now func() time.Time
}

func (r OffersRepo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

const fetchActiveOffersSQL = `
SELECT id, title, type,
       discount_percent::text, discount_amount::text,
       product_ids, category_ids,
       cart_value_greater_than::text,
       valid_from, valid_till, priority, enabled
FROM offers
WHERE enabled AND valid_till >= $1
ORDER BY priority DESC, id`

// FetchActiveOffers returns enabled offers that have not yet expired.
// Offers that start in the future are included so a cached snapshot picks
// them up the moment their window opens.
func (r OffersRepo) FetchActiveOffers(ctx context.Context) ([]offer.Offer, error) {
	rows, err := r.DB.Query(ctx, fetchActiveOffersSQL, r.now())
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	var out []offer.Offer
	for rows.Next() {
		var row offerRow
		if err := rows.Scan(
			&row.ID, &row.Title, &row.Type,
			&row.DiscountPercent, &row.DiscountAmount,
			&row.ProductIDs, &row.CategoryIDs,
			&row.CartValueGreaterThan,
			&row.ValidFrom, &row.ValidTill, &row.Priority, &row.Enabled,
		); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		o, err := row.toOffer()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return out, nil
}

const insertOfferSQL = `
INSERT INTO offers (
    id, title, type, discount_percent, discount_amount,
    product_ids, category_ids, cart_value_greater_than,
    valid_from, valid_till, priority, enabled
) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8::numeric, $9, $10, $11, $12)`

// Create inserts o. A duplicate id yields ErrOfferExists.
func (r OffersRepo) Create(ctx context.Context, o offer.Offer) error {
	row := rowFromOffer(o)
	_, err := r.DB.Exec(ctx, insertOfferSQL,
		row.ID, row.Title, row.Type, row.DiscountPercent, row.DiscountAmount,
		row.ProductIDs, row.CategoryIDs, row.CartValueGreaterThan,
		row.ValidFrom, row.ValidTill, row.Priority, row.Enabled,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrOfferExists, o.ID)
		}
		return fmt.Errorf("insert offer %s: %w", o.ID, err)
	}
	return nil
}

// SetEnabled toggles an offer. It reports whether the offer existed.
func (r OffersRepo) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	tag, err := r.DB.Exec(ctx, `UPDATE offers SET enabled = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
	if err != nil {
		return false, fmt.Errorf("update offer %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// offerRow mirrors the offers table. Numeric columns travel as text so no
// precision is lost on the way to decimal.
type offerRow struct {
	ID                   string
	Title                string
	Type                 string
	DiscountPercent      *string
	DiscountAmount       *string
	ProductIDs           []string
	CategoryIDs          []string
	CartValueGreaterThan *string
	ValidFrom            time.Time
	ValidTill            time.Time
	Priority             int32
	Enabled              bool
}

func (row offerRow) toOffer() (offer.Offer, error) {
	pct, err := parseMoney(row.DiscountPercent)
	if err != nil {
		return offer.Offer{}, fmt.Errorf("offer %s discount_percent: %w", row.ID, err)
	}
	amt, err := parseMoney(row.DiscountAmount)
	if err != nil {
		return offer.Offer{}, fmt.Errorf("offer %s discount_amount: %w", row.ID, err)
	}
	threshold, err := parseMoney(row.CartValueGreaterThan)
	if err != nil {
		return offer.Offer{}, fmt.Errorf("offer %s cart_value_greater_than: %w", row.ID, err)
	}

	o := offer.Offer{
		ID:              row.ID,
		Title:           row.Title,
		Type:            offer.Type(row.Type),
		DiscountPercent: pct,
		DiscountAmount:  amt,
		ProductIDs:      row.ProductIDs,
		CategoryIDs:     row.CategoryIDs,
		ValidFrom:       row.ValidFrom.UTC(),
		ValidTill:       row.ValidTill.UTC(),
		Priority:        int(row.Priority),
		Enabled:         row.Enabled,
	}
	if threshold != nil {
		o.Condition = &offer.Condition{CartValueGreaterThan: threshold}
	}
	return o, nil
}

func rowFromOffer(o offer.Offer) offerRow {
	row := offerRow{
		ID:              o.ID,
		Title:           o.Title,
		Type:            string(o.Type),
		DiscountPercent: formatMoney(o.DiscountPercent),
		DiscountAmount:  formatMoney(o.DiscountAmount),
		ProductIDs:      nonNil(o.ProductIDs),
		CategoryIDs:     nonNil(o.CategoryIDs),
		ValidFrom:       o.ValidFrom,
		ValidTill:       o.ValidTill,
		Priority:        int32(o.Priority),
		Enabled:         o.Enabled,
	}
	if o.Condition != nil {
		row.CartValueGreaterThan = formatMoney(o.Condition.CartValueGreaterThan)
	}
	return row
}

func parseMoney(v *string) (*offer.Money, error) {
	if v == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatMoney(m *offer.Money) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
