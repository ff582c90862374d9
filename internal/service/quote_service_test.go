package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nsvirk/nsequotes/internal/quote"
	"github.com/nsvirk/nsequotes/internal/quote/quotetest"
	"github.com/nsvirk/nsequotes/internal/repository"
	"github.com/nsvirk/nsequotes/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookupCache map[string][]byte

func (m mapLookupCache) GetLatestQuote(_ context.Context, symbol string) ([]byte, error) {
	raw, ok := m[symbol]
	if !ok {
		return nil, repository.ErrQuoteNotCached
	}
	return raw, nil
}

func TestQuoteService_GetQuote(t *testing.T) {
	live := sbinDocument()
	fetcher := &fakeFetcher{
		docs: map[string][]byte{
			"SBIN":  live,
			"EMPTY": quotetest.Document("EMPTY"),
			"BAD":   []byte(`{"info":{}}`),
		},
		errs: map[string]error{
			"DOWN": &transport.FetchError{Symbol: "DOWN", StatusCode: 503},
		},
	}
	cache := mapLookupCache{"TCS": []byte(`{"cached":true}`)}
	svc := NewQuoteService(cache, fetcher)
	ctx := context.Background()

	t.Run("cached", func(t *testing.T) {
		res, err := svc.GetQuote(ctx, "TCS")
		require.NoError(t, err)
		assert.Equal(t, QuoteSourceCache, res.Source)
		assert.Equal(t, `{"cached":true}`, string(res.Raw))
	})

	t.Run("live on cache miss", func(t *testing.T) {
		res, err := svc.GetQuote(ctx, "SBIN")
		require.NoError(t, err)
		assert.Equal(t, QuoteSourceLive, res.Source)
		assert.Equal(t, live, res.Raw)
	})

	t.Run("upstream not found", func(t *testing.T) {
		_, err := svc.GetQuote(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrUnknownSymbol)
	})

	t.Run("no contracts", func(t *testing.T) {
		_, err := svc.GetQuote(ctx, "EMPTY")
		assert.ErrorIs(t, err, ErrUnknownSymbol)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.GetQuote(ctx, "BAD")
		assert.ErrorIs(t, err, quote.ErrMalformedDocument)
	})

	t.Run("fetch failure", func(t *testing.T) {
		_, err := svc.GetQuote(ctx, "DOWN")
		var fetchErr *transport.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, 503, fetchErr.StatusCode)
	})
}

func TestQuoteService_WithoutCache(t *testing.T) {
	fetcher := &fakeFetcher{docs: map[string][]byte{"SBIN": sbinDocument()}}
	svc := NewQuoteService(nil, fetcher)

	res, err := svc.GetQuote(context.Background(), "SBIN")
	require.NoError(t, err)
	assert.Equal(t, QuoteSourceLive, res.Source)
}
