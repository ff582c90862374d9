package quote

import (
	"errors"
	"testing"

	"github.com/nsvirk/nsequotes/internal/quote/quotetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strikeStrings(ds []decimal.Decimal) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

func TestParse_Document(t *testing.T) {
	raw := quotetest.Document("SBIN",
		quotetest.Call("25-Jan-2024", "OPTSTKSBIN25-01-2024CE600.00", 600),
		quotetest.Put("25-Jan-2024", "OPTSTKSBIN25-01-2024PE600.00", 600),
		quotetest.Future("25-Jan-2024", "FUTSTKSBIN25-01-2024XX0.00"),
	)

	doc, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "SBIN", doc.Info.Symbol)
	assert.True(t, doc.Info.IsFNOSec)
	assert.False(t, doc.Info.IsDelisted)
	assert.Equal(t, "601.45", doc.UnderlyingValue.String())
	assert.Equal(t, int64(225001), doc.VFQ)
	assert.Equal(t, "25-Jan-2024 15:30:00", doc.OptTimestamp)
	assert.Equal(t, []string{"25-Jan-2024"}, doc.ExpiryDates)
	assert.Equal(t, []string{"600"}, strikeStrings(doc.StrikePrices))
	require.Len(t, doc.Contracts, 3)
	assert.Empty(t, doc.Rejected)

	call := doc.Contracts[0]
	assert.True(t, call.IsCall())
	assert.True(t, call.IsStockOption())
	assert.True(t, call.Persistable())
	assert.Equal(t, "OPTSTKSBIN25-01-2024CE600.00", call.Metadata.Identifier)
	assert.Equal(t, "12.5", call.Metadata.LastPrice.String())
	assert.Equal(t, int64(1520), call.Metadata.NumberOfContractsTraded)
	assert.Equal(t, int64(45000), call.OrderBook.TotalBuyQuantity)
	require.Len(t, call.OrderBook.Bid, 2)
	assert.Equal(t, "12.45", call.OrderBook.Bid[0].Price.String())
	assert.Equal(t, int64(1500), call.OrderBook.Ask[0].Quantity)
	assert.Equal(t, "12.55", call.OrderBook.CarryOfCost.Price.BestSell.String())
	assert.Equal(t, int64(3000), call.OrderBook.TradeInfo.OpenInterest)
	assert.Equal(t, "28.11", call.OrderBook.OtherInfo.ImpliedVolatility.String())

	assert.True(t, doc.Contracts[1].IsPut())
	assert.False(t, doc.Contracts[2].Persistable())
}

func TestParse_DeduplicatesPreservingOrder(t *testing.T) {
	doc := quotetest.DocumentMap("SBIN",
		quotetest.Call("29-Feb-2024", "A", 610),
		quotetest.Call("25-Jan-2024", "B", 600),
	)
	doc["expiryDates"] = []any{"29-Feb-2024", "25-Jan-2024", "29-Feb-2024", "28-Mar-2024", "25-Jan-2024"}
	doc["strikePrices"] = []any{0, 610, 600, 610, 0, 620.5, 600}

	parsed, err := Parse(quotetest.Encode(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"29-Feb-2024", "25-Jan-2024", "28-Mar-2024"}, parsed.ExpiryDates)
	assert.Equal(t, []string{"610", "600", "620.5"}, strikeStrings(parsed.StrikePrices))
}

func TestParse_StrikeSentinel(t *testing.T) {
	tests := []struct {
		name    string
		strikes []any
		want    []string
	}{
		{"sentinel present", []any{500, 0, 510}, []string{"500", "510"}},
		{"sentinel absent", []any{500, 510}, []string{"500", "510"}},
		{"only sentinel", []any{0}, []string{}},
		{"numeric strings", []any{"500", "500.0", "0"}, []string{"500"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := quotetest.DocumentMap("SBIN")
			doc["strikePrices"] = tt.strikes

			parsed, err := Parse(quotetest.Encode(doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, strikeStrings(parsed.StrikePrices))
		})
	}
}

func TestParse_MalformedDocument(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing info", func(d map[string]any) { delete(d, "info") }, "$.info"},
		{"info not object", func(d map[string]any) { d["info"] = []any{1} }, "$.info"},
		{"missing underlyingValue", func(d map[string]any) { delete(d, "underlyingValue") }, "$.underlyingValue"},
		{"underlyingValue not numeric", func(d map[string]any) { d["underlyingValue"] = "n/a" }, "$.underlyingValue"},
		{"null opt_timestamp", func(d map[string]any) { d["opt_timestamp"] = nil }, "$.opt_timestamp"},
		{"opt_timestamp not string", func(d map[string]any) { d["opt_timestamp"] = 12 }, "$.opt_timestamp"},
		{"missing stocks", func(d map[string]any) { delete(d, "stocks") }, "$.stocks"},
		{"stocks not array", func(d map[string]any) { d["stocks"] = map[string]any{} }, "$.stocks"},
		{"missing strikePrices", func(d map[string]any) { delete(d, "strikePrices") }, "$.strikePrices"},
		{"bad strike", func(d map[string]any) { d["strikePrices"] = []any{500, "x"} }, "$.strikePrices[1]"},
		{"missing expiryDates", func(d map[string]any) { delete(d, "expiryDates") }, "$.expiryDates"},
		{"expiry not string", func(d map[string]any) { d["expiryDates"] = []any{20240125} }, "$.expiryDates[0]"},
		{"vfq not integer", func(d map[string]any) { d["vfq"] = 1.5 }, "$.vfq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := quotetest.DocumentMap("SBIN", quotetest.Call("25-Jan-2024", "X1", 600))
			tt.mutate(doc)

			parsed, err := Parse(quotetest.Encode(doc))
			require.Error(t, err)
			assert.Nil(t, parsed)
			assert.True(t, errors.Is(err, ErrMalformedDocument))

			var mde *MalformedDocumentError
			require.ErrorAs(t, err, &mde)
			assert.Equal(t, tt.field, mde.Field)
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	for _, raw := range []string{"", "{", "<html>Access Denied</html>", "[]", "null"} {
		_, err := Parse([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedDocument, "input %q", raw)
	}
}

func TestParse_RejectsBadContractOnly(t *testing.T) {
	doc := quotetest.DocumentMap("SBIN",
		quotetest.Call("25-Jan-2024", "GOOD", 600),
		quotetest.Call("25-Jan-2024", "BAD", 610),
		quotetest.Put("25-Jan-2024", "STRAY", 620),
	)
	stocks := doc["stocks"].([]any)
	bad := stocks[1].(map[string]any)
	bad["marketDeptOrderBook"].(map[string]any)["tradeInfo"].(map[string]any)["openInterest"] = "-"
	stray := stocks[2].(map[string]any)
	stray["metadata"].(map[string]any)["expiryDate"] = "31-Dec-2099"

	parsed, err := Parse(quotetest.Encode(doc))
	require.NoError(t, err)

	require.Len(t, parsed.Contracts, 1)
	assert.Equal(t, "GOOD", parsed.Contracts[0].Metadata.Identifier)

	require.Len(t, parsed.Rejected, 2)
	assert.Equal(t, 1, parsed.Rejected[0].Index)
	assert.Contains(t, parsed.Rejected[0].Reason, "$.stocks[1].marketDeptOrderBook.tradeInfo.openInterest")
	assert.Equal(t, 2, parsed.Rejected[1].Index)
	assert.Contains(t, parsed.Rejected[1].Reason, "31-Dec-2099")
}

func TestParse_ContractMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		path   string
	}{
		{"missing metadata", func(s map[string]any) { delete(s, "metadata") }, "$.stocks[0].metadata"},
		{"null order book", func(s map[string]any) { s["marketDeptOrderBook"] = nil }, "$.stocks[0].marketDeptOrderBook"},
		{"fractional quantity", func(s map[string]any) {
			s["marketDeptOrderBook"].(map[string]any)["totalBuyQuantity"] = 10.5
		}, "$.stocks[0].marketDeptOrderBook.totalBuyQuantity"},
		{"bad bid level", func(s map[string]any) {
			s["marketDeptOrderBook"].(map[string]any)["bid"] = []any{map[string]any{"price": 1}}
		}, "$.stocks[0].marketDeptOrderBook.bid[0].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := quotetest.DocumentMap("SBIN", quotetest.Call("25-Jan-2024", "X1", 600))
			tt.mutate(doc["stocks"].([]any)[0].(map[string]any))

			parsed, err := Parse(quotetest.Encode(doc))
			require.NoError(t, err)
			assert.Empty(t, parsed.Contracts)
			require.Len(t, parsed.Rejected, 1)
			assert.Contains(t, parsed.Rejected[0].Reason, tt.path)
		})
	}
}
