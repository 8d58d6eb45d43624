package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-offers/internal/offer"
	"github.com/noah-isme/toko-offers/internal/resilience"
)

type fetcherStub struct {
	errs  []error
	calls int
}

func (f *fetcherStub) FetchActiveOffers(context.Context) ([]offer.Offer, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []offer.Offer{{ID: "o1", Type: offer.TypeStore}}, nil
}

func TestGuardedOffersRetries(t *testing.T) {
	stub := &fetcherStub{errs: []error{errors.New("conn reset")}}
	g := GuardedOffers{Repo: stub, Policy: resilience.Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond}}

	offers, err := g.FetchActiveOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Equal(t, 2, stub.calls)
}

func TestGuardedOffersOpenBreakerSkipsDatabase(t *testing.T) {
	boom := errors.New("db down")
	stub := &fetcherStub{errs: []error{boom}}
	g := GuardedOffers{Repo: stub, Policy: resilience.Policy{
		Breaker:     resilience.NewBreaker(1, 0.5, time.Hour),
		MaxAttempts: 1,
	}}

	_, err := g.FetchActiveOffers(context.Background())
	require.ErrorIs(t, err, boom)

	offers, err := g.FetchActiveOffers(context.Background())
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Nil(t, offers)
	require.Equal(t, 1, stub.calls)
}
