package repo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-offers/internal/offer"
)

type execCall struct {
	sql  string
	args []any
}

type dbStub struct {
	execErr   error
	execTag   pgconn.CommandTag
	execCalls []execCall

	queryErr  error
	queryArgs []any
	rows      [][]any
}

func (d *dbStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execCalls = append(d.execCalls, execCall{sql: sql, args: args})
	return d.execTag, d.execErr
}

func (d *dbStub) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	d.queryArgs = args
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	return &rowsStub{rows: d.rows, idx: -1}, nil
}

// rowsStub replays fixed rows, assigning each value to the matching Scan destination.
type rowsStub struct {
	rows [][]any
	idx  int
}

func (r *rowsStub) Close()                                       {}
func (r *rowsStub) Err() error                                   { return nil }
func (r *rowsStub) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Values() ([]any, error)                       { return r.rows[r.idx], nil }
func (r *rowsStub) RawValues() [][]byte                          { return nil }
func (r *rowsStub) Conn() *pgx.Conn                              { return nil }

func (r *rowsStub) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *rowsStub) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, v := range row {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func strPtr(s string) *string { return &s }

var (
	repoNow  = time.Date(2025, 11, 11, 12, 0, 0, 0, time.UTC)
	noString *string
)

func TestFetchActiveOffersMapsRows(t *testing.T) {
	db := &dbStub{rows: [][]any{
		{"o1", "Electronics week", "category", strPtr("10.0000"), noString,
			[]string{}, []string{"electronics"}, noString,
			repoNow.Add(-time.Hour), repoNow.Add(time.Hour), int32(5), true},
		{"o2", "Big basket", "conditional", noString, strPtr("25.5000"),
			[]string{}, []string{}, strPtr("150.0000"),
			repoNow.Add(-time.Hour), repoNow.Add(time.Hour), int32(1), true},
	}}
	r := OffersRepo{DB: db, Now: func() time.Time { return repoNow }}

	offers, err := r.FetchActiveOffers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []any{repoNow}, db.queryArgs)
	require.Len(t, offers, 2)

	o1 := offers[0]
	require.Equal(t, offer.TypeCategory, o1.Type)
	require.True(t, decimal.NewFromInt(10).Equal(*o1.DiscountPercent))
	require.Nil(t, o1.DiscountAmount)
	require.Nil(t, o1.Condition)
	require.Equal(t, []string{"electronics"}, o1.CategoryIDs)
	require.Equal(t, 5, o1.Priority)

	o2 := offers[1]
	require.Nil(t, o2.DiscountPercent)
	require.True(t, decimal.RequireFromString("25.5").Equal(*o2.DiscountAmount))
	threshold, ok := o2.Threshold()
	require.True(t, ok)
	require.True(t, decimal.NewFromInt(150).Equal(threshold))
}

func TestFetchActiveOffersRejectsBadNumeric(t *testing.T) {
	db := &dbStub{rows: [][]any{
		{"bad", "", "store", strPtr("ten"), noString,
			[]string{}, []string{}, noString,
			repoNow, repoNow, int32(0), true},
	}}
	_, err := OffersRepo{DB: db}.FetchActiveOffers(context.Background())
	require.ErrorContains(t, err, "offer bad discount_percent")
}

func TestFetchActiveOffersQueryError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := OffersRepo{DB: &dbStub{queryErr: boom}}.FetchActiveOffers(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestCreatePassesExactNumerics(t *testing.T) {
	db := &dbStub{}
	pct := decimal.RequireFromString("12.5")
	threshold := decimal.RequireFromString("99.99")
	o := offer.Offer{
		ID:              "spring",
		Type:            offer.TypeConditional,
		DiscountPercent: &pct,
		Condition:       &offer.Condition{CartValueGreaterThan: &threshold},
		ValidFrom:       repoNow,
		ValidTill:       repoNow.Add(24 * time.Hour),
		Priority:        3,
		Enabled:         true,
	}

	require.NoError(t, OffersRepo{DB: db}.Create(context.Background(), o))
	require.Len(t, db.execCalls, 1)
	args := db.execCalls[0].args
	require.Equal(t, "spring", args[0])
	require.Equal(t, "conditional", args[2])
	require.Equal(t, strPtr("12.5"), args[3])
	require.Equal(t, noString, args[4])
	require.Equal(t, []string{}, args[5])
	require.Equal(t, strPtr("99.99"), args[7])
	require.Equal(t, int32(3), args[10])
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	db := &dbStub{execErr: &pgconn.PgError{Code: pgerrcode.UniqueViolation}}
	err := OffersRepo{DB: db}.Create(context.Background(), offer.Offer{ID: "dup", Type: offer.TypeStore})
	require.ErrorIs(t, err, ErrOfferExists)

	db = &dbStub{execErr: &pgconn.PgError{Code: pgerrcode.CheckViolation}}
	err = OffersRepo{DB: db}.Create(context.Background(), offer.Offer{ID: "odd", Type: "bundle"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrOfferExists)
}

func TestSetEnabledReportsMissingOffer(t *testing.T) {
	db := &dbStub{execTag: pgconn.NewCommandTag("UPDATE 0")}
	found, err := OffersRepo{DB: db}.SetEnabled(context.Background(), "missing", false)
	require.NoError(t, err)
	require.False(t, found)

	db = &dbStub{execTag: pgconn.NewCommandTag("UPDATE 1")}
	found, err = OffersRepo{DB: db}.SetEnabled(context.Background(), "o1", true)
	require.NoError(t, err)
	require.True(t, found)
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/offers", migrateURL("postgres://u:p@db:5432/offers"))
	require.Equal(t, "pgx5://u:p@db/offers?sslmode=disable", migrateURL("postgresql://u:p@db/offers?sslmode=disable"))
	require.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}
