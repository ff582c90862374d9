// Package transport fetches raw quote-derivative documents from NSE
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
	"golang.org/x/sync/singleflight"
)

const (
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.80 Safari/537.36"
	quotePath      = "/api/quote-derivative"
	maxDocumentLen = 32 << 20
)

// QuoteFetcher returns the raw quote document for a symbol
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) ([]byte, error)
}

// FetchError is a failed quote request: network, timeout or non-2xx status
type FetchError struct {
	Symbol     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Symbol, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NSEClient talks to the NSE website API with a cookie session
type NSEClient struct {
	baseURL string
	client  *http.Client

	mu         sync.Mutex
	sessionAt  time.Time
	hasSession bool
	bootstrap  singleflight.Group
}

// NewNSEClient creates a new NSE client
func NewNSEClient(baseURL string, timeout time.Duration) *NSEClient {
	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		baseURL: baseURL,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}
}

// staticHeaders mimics a browser request; the referer names the symbol page when given
func staticHeaders(baseURL, symbol string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("DNT", "1")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Dest", "empty")
	if symbol == "" {
		h.Set("Referer", baseURL+"/")
	} else {
		h.Set("Referer", baseURL+"/get-quotes/derivatives?symbol="+url.QueryEscape(symbol))
	}
	return h
}

// RefreshSession replaces the session cookies by loading the home page
func (c *NSEClient) RefreshSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header = staticHeaders(c.baseURL, "")

	jar, _ := cookiejar.New(nil)
	sessionClient := &http.Client{Jar: jar, Timeout: c.client.Timeout}

	resp, err := sessionClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to bootstrap session: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to bootstrap session: status %d", resp.StatusCode)
	}

	c.mu.Lock()
	c.client.Jar = jar
	c.sessionAt = time.Now()
	c.hasSession = true
	c.mu.Unlock()

	zaplogger.Debug("NSE session refreshed", zaplogger.Fields{
		"cookies": len(resp.Cookies()),
	})
	return nil
}

// SessionAge returns how long ago the session was refreshed, false when there is none
func (c *NSEClient) SessionAge() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSession {
		return 0, false
	}
	return time.Since(c.sessionAt), true
}

// ensureSession bootstraps a session when there is none. Concurrent callers
// share one home page request.
func (c *NSEClient) ensureSession(ctx context.Context) error {
	if _, ok := c.SessionAge(); ok {
		return nil
	}
	_, err, _ := c.bootstrap.Do("session", func() (any, error) {
		if _, ok := c.SessionAge(); ok {
			return nil, nil
		}
		return nil, c.RefreshSession(ctx)
	})
	return err
}

func (c *NSEClient) invalidateSession() {
	c.mu.Lock()
	c.hasSession = false
	c.mu.Unlock()
}

func (c *NSEClient) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &http.Client{Jar: c.client.Jar, Timeout: c.client.Timeout}
}

// FetchQuote returns the raw quote-derivative document for symbol
func (c *NSEClient) FetchQuote(ctx context.Context, symbol string) ([]byte, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}

	endpoint := c.baseURL + quotePath + "?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}
	req.Header = staticHeaders(c.baseURL, symbol)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// next call bootstraps a new session
			c.invalidateSession()
		}
		return nil, &FetchError{
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentLen))
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return body, nil
}
