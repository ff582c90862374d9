// Package quotetest builds quote-derivative documents for tests.
package quotetest

import (
	"encoding/json"
)

// Contract describes the parts of a stocks[] entry a test usually cares about
type Contract struct {
	InstrumentType string
	OptionType     string
	Expiry         string
	Strike         float64
	Identifier     string
	LastPrice      float64
	OpenInterest   int64
}

// Call returns a stock-option call contract
func Call(expiry, identifier string, strike float64) Contract {
	return Contract{
		InstrumentType: "Stock Options",
		OptionType:     "Call",
		Expiry:         expiry,
		Strike:         strike,
		Identifier:     identifier,
		LastPrice:      12.5,
		OpenInterest:   3000,
	}
}

// Put returns a stock-option put contract
func Put(expiry, identifier string, strike float64) Contract {
	c := Call(expiry, identifier, strike)
	c.OptionType = "Put"
	return c
}

// Future returns a stock-futures contract, which carries optionType "-"
func Future(expiry, identifier string) Contract {
	return Contract{
		InstrumentType: "Stock Futures",
		OptionType:     "-",
		Expiry:         expiry,
		Identifier:     identifier,
		LastPrice:      600.35,
		OpenInterest:   100000,
	}
}

// StockEntry returns the JSON object for one stocks[] entry
func StockEntry(c Contract) map[string]any {
	return map[string]any{
		"metadata": map[string]any{
			"instrumentType":          c.InstrumentType,
			"expiryDate":              c.Expiry,
			"optionType":              c.OptionType,
			"strikePrice":             c.Strike,
			"identifier":              c.Identifier,
			"openPrice":               11.2,
			"highPrice":               14.1,
			"lowPrice":                10.05,
			"closePrice":              0,
			"prevClose":               11.6,
			"lastPrice":               c.LastPrice,
			"change":                  0.9,
			"pChange":                 7.758620689655173,
			"numberOfContractsTraded": 1520,
			"totalTurnover":           2345678.5,
		},
		"underlyingValue":      601.45,
		"volumeFreezeQuantity": 225001,
		"marketDeptOrderBook": map[string]any{
			"totalBuyQuantity":  45000,
			"totalSellQuantity": 52500,
			"bid": []map[string]any{
				{"price": 12.45, "quantity": 1500},
				{"price": 12.4, "quantity": 3000},
			},
			"ask": []map[string]any{
				{"price": 12.55, "quantity": 1500},
			},
			"carryOfCost": map[string]any{
				"price": map[string]any{"bestBuy": 12.45, "bestSell": 12.55, "lastPrice": c.LastPrice},
				"carry": map[string]any{"bestBuy": 0, "bestSell": 0, "lastPrice": 0},
			},
			"tradeInfo": map[string]any{
				"tradedVolume":          1520,
				"value":                 2345.67,
				"vmap":                  12.34,
				"premiumTurnover":       28500.25,
				"openInterest":          c.OpenInterest,
				"changeinOpenInterest":  150,
				"pchangeinOpenInterest": 5.26,
				"marketLot":             1500,
			},
			"otherInfo": map[string]any{
				"settlementPrice":          11.6,
				"dailyvolatility":          1.85,
				"annualisedVolatility":     35.34,
				"impliedVolatility":        28.11,
				"clientWisePositionLimits": 12345678,
				"marketWidePositionLimits": 246913560,
			},
		},
	}
}

// DocumentMap returns a full document as a map so tests can tamper with it.
// Expiry dates and strike prices are collected from the contracts, with the
// 0 placeholder strike appended the way the exchange sends it.
func DocumentMap(symbol string, contracts ...Contract) map[string]any {
	stocks := make([]any, 0, len(contracts))
	expiries := []any{}
	strikes := []any{}
	for _, c := range contracts {
		stocks = append(stocks, StockEntry(c))
		expiries = append(expiries, c.Expiry)
		strikes = append(strikes, c.Strike)
	}
	strikes = append(strikes, 0)

	return map[string]any{
		"info": map[string]any{
			"symbol":              symbol,
			"companyName":         symbol + " Limited",
			"industry":            "BANKS",
			"activeSeries":        []string{"EQ"},
			"debtSeries":          []string{},
			"tempSuspendedSeries": []string{},
			"isFNOSec":            true,
			"isCASec":             false,
			"isSLBSec":            true,
			"isDebtSec":           false,
			"isSuspended":         false,
			"isETFSec":            false,
			"isDelisted":          false,
			"isin":                "INE062A01020",
		},
		"underlyingValue": 601.45,
		"vfq":             225001,
		"fut_timestamp":   "25-Jan-2024 15:30:00",
		"opt_timestamp":   "25-Jan-2024 15:30:00",
		"stocks":          stocks,
		"strikePrices":    strikes,
		"expiryDates":     expiries,
	}
}

// Document returns the encoded document for the contracts
func Document(symbol string, contracts ...Contract) []byte {
	return Encode(DocumentMap(symbol, contracts...))
}

// Encode marshals a tampered document map
func Encode(doc map[string]any) []byte {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}
