// Package handlers contains the handlers for the API
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/nsequotes/internal/quote"
	"github.com/nsvirk/nsequotes/internal/service"
	"github.com/nsvirk/nsequotes/internal/transport"
	"github.com/nsvirk/nsequotes/pkg/utils/response"
	"github.com/nsvirk/nsequotes/pkg/utils/zaplogger"
)

// QuoteSourceHeader tells the caller whether a document came from the cache
const QuoteSourceHeader = "X-Quote-Source"

// QuoteHandler is the handler for single-symbol lookups
type QuoteHandler struct {
	service *service.QuoteService
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(service *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// GetQuote returns the quote document wrapped in the standard response
func (h *QuoteHandler) GetQuote(c echo.Context) error {
	symbol := symbolParam(c)
	if symbol == "" {
		return response.InputError(c, "No symbol specified")
	}

	result, err := h.service.GetQuote(c.Request().Context(), symbol)
	if err != nil {
		return lookupErrorResponse(c, symbol, err)
	}

	c.Response().Header().Set(QuoteSourceHeader, result.Source)
	return response.SuccessResponse(c, map[string]interface{}{
		"symbol": result.Symbol,
		"source": result.Source,
		"quote":  json.RawMessage(result.Raw),
	})
}

// GetRawQuote returns the quote document exactly as received from the exchange
func (h *QuoteHandler) GetRawQuote(c echo.Context) error {
	symbol := symbolParam(c)
	if symbol == "" {
		return response.InputError(c, "No symbol specified")
	}

	result, err := h.service.GetQuote(c.Request().Context(), symbol)
	if err != nil {
		return lookupErrorResponse(c, symbol, err)
	}

	c.Response().Header().Set(QuoteSourceHeader, result.Source)
	return c.JSONBlob(http.StatusOK, result.Raw)
}

func lookupErrorResponse(c echo.Context, symbol string, err error) error {
	zaplogger.Error("quote lookup failed", zaplogger.Fields{
		"symbol": symbol,
		"error":  err,
	})

	var fetchErr *transport.FetchError
	switch {
	case errors.Is(err, service.ErrUnknownSymbol):
		return response.NotFound(c, err.Error())
	case errors.Is(err, quote.ErrMalformedDocument):
		return response.ErrorResponse(c, http.StatusBadGateway, response.MalformedDocument, err.Error())
	case errors.As(err, &fetchErr):
		return response.ErrorResponse(c, http.StatusBadGateway, response.UpstreamException, err.Error())
	default:
		return response.ErrorResponse(c, http.StatusInternalServerError, response.ServerException, err.Error())
	}
}

func symbolParam(c echo.Context) string {
	symbol := c.Param("symbol")
	if unescaped, err := url.PathUnescape(symbol); err == nil {
		symbol = unescaped
	}
	return strings.ToUpper(strings.TrimSpace(symbol))
}
