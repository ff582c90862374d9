package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nsvirk/nsequotes/internal/quote"
	"github.com/nsvirk/nsequotes/internal/repository"
	"github.com/nsvirk/nsequotes/internal/transport"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
)

const (
	QuoteSourceCache = "cache"
	QuoteSourceLive  = "live"
)

// ErrUnknownSymbol is returned when the exchange has no derivatives for a symbol
var ErrUnknownSymbol = errors.New("unknown symbol")

// QuoteLookupCache reads cached raw documents
type QuoteLookupCache interface {
	GetLatestQuote(ctx context.Context, symbol string) ([]byte, error)
}

// QuoteResult is a raw quote document and where it came from
type QuoteResult struct {
	Symbol string
	Source string
	Raw    []byte
}

// QuoteService is the service for single-symbol lookups
type QuoteService struct {
	cache   QuoteLookupCache
	fetcher transport.QuoteFetcher
}

// NewQuoteService creates a new quote service. cache may be nil.
func NewQuoteService(cache QuoteLookupCache, fetcher transport.QuoteFetcher) *QuoteService {
	return &QuoteService{cache: cache, fetcher: fetcher}
}

// GetQuote returns the latest cached document for symbol, or a live one that
// passed the parser when nothing is cached
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) (*QuoteResult, error) {
	if s.cache != nil {
		raw, err := s.cache.GetLatestQuote(ctx, symbol)
		switch {
		case err == nil:
			return &QuoteResult{Symbol: symbol, Source: QuoteSourceCache, Raw: raw}, nil
		case !errors.Is(err, repository.ErrQuoteNotCached):
			zaplogger.Warn("quote cache lookup failed", zaplogger.Fields{
				"symbol": symbol,
				"error":  err,
			})
		}
	}

	raw, err := s.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		var fetchErr *transport.FetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
		return nil, err
	}

	doc, err := quote.Parse(raw)
	if err != nil {
		return nil, err
	}
	if len(doc.Contracts) == 0 && len(doc.Rejected) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return &QuoteResult{Symbol: symbol, Source: QuoteSourceLive, Raw: raw}, nil
}
