// Package models contains the models for the quote collector
package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Option and instrument types that are persisted
const (
	OptionTypeCall = "Call"
	OptionTypePut  = "Put"

	InstrumentStockOptions = "Stock Options"
	InstrumentIndexOptions = "Index Options"
)

// QuoteDocument is one parsed quote-derivative snapshot for a symbol
type QuoteDocument struct {
	Info            Info
	UnderlyingValue decimal.Decimal
	VFQ             int64
	FutTimestamp    string
	OptTimestamp    string
	ExpiryDates     []string
	StrikePrices    []decimal.Decimal
	Contracts       []ContractQuote
	Rejected        []ContractError
}

// ContractsForExpiry returns the contracts for an expiry with the given option type,
// in document order
func (d *QuoteDocument) ContractsForExpiry(expiry, optionType string) []ContractQuote {
	var out []ContractQuote
	for _, c := range d.Contracts {
		if c.Metadata.ExpiryDate == expiry && c.Metadata.OptionType == optionType {
			out = append(out, c)
		}
	}
	return out
}

// Info is the underlying security description
type Info struct {
	Symbol              string   `json:"symbol"`
	CompanyName         string   `json:"companyName"`
	Industry            string   `json:"industry"`
	ActiveSeries        []string `json:"activeSeries"`
	DebtSeries          []string `json:"debtSeries"`
	TempSuspendedSeries []string `json:"tempSuspendedSeries"`
	IsFNOSec            bool     `json:"isFNOSec"`
	IsCASec             bool     `json:"isCASec"`
	IsSLBSec            bool     `json:"isSLBSec"`
	IsDebtSec           bool     `json:"isDebtSec"`
	IsSuspended         bool     `json:"isSuspended"`
	IsETFSec            bool     `json:"isETFSec"`
	IsDelisted          bool     `json:"isDelisted"`
	ISIN                string   `json:"isin"`
}

// ContractQuote is one option or futures contract in the document
type ContractQuote struct {
	Metadata             ContractMetadata
	UnderlyingValue      decimal.Decimal
	VolumeFreezeQuantity int64
	OrderBook            OrderBookSnapshot
}

// IsCall reports whether the contract is a call
func (c ContractQuote) IsCall() bool {
	return c.Metadata.OptionType == OptionTypeCall
}

// IsPut reports whether the contract is a put
func (c ContractQuote) IsPut() bool {
	return c.Metadata.OptionType == OptionTypePut
}

// IsStockOption reports whether the contract is a stock option
func (c ContractQuote) IsStockOption() bool {
	return c.Metadata.InstrumentType == InstrumentStockOptions
}

// IsIndexOption reports whether the contract is an index option
func (c ContractQuote) IsIndexOption() bool {
	return c.Metadata.InstrumentType == InstrumentIndexOptions
}

// Persistable reports whether the contract belongs in a time series file
func (c ContractQuote) Persistable() bool {
	return (c.IsCall() || c.IsPut()) && (c.IsStockOption() || c.IsIndexOption())
}

// ContractMetadata holds the identity and session OHLC of a contract
type ContractMetadata struct {
	InstrumentType          string
	ExpiryDate              string
	OptionType              string
	StrikePrice             decimal.Decimal
	Identifier              string
	OpenPrice               decimal.Decimal
	HighPrice               decimal.Decimal
	LowPrice                decimal.Decimal
	ClosePrice              decimal.Decimal
	PrevClose               decimal.Decimal
	LastPrice               decimal.Decimal
	Change                  decimal.Decimal
	PChange                 decimal.Decimal
	NumberOfContractsTraded int64
	TotalTurnover           decimal.Decimal
}

// OrderBookSnapshot is the market depth of a contract at observation time
type OrderBookSnapshot struct {
	TotalBuyQuantity  int64
	TotalSellQuantity int64
	Bid               []PriceLevel
	Ask               []PriceLevel
	CarryOfCost       CarryOfCost
	TradeInfo         TradeInfo
	OtherInfo         OtherInfo
}

// PriceLevel is one rung of the bid or ask ladder
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity int64
}

// CarryOfCost is the cost-of-carry block
type CarryOfCost struct {
	Price BestPrices
	Carry BestPrices
}

// BestPrices is a best buy/sell/last triple
type BestPrices struct {
	BestBuy   decimal.Decimal
	BestSell  decimal.Decimal
	LastPrice decimal.Decimal
}

// TradeInfo holds volume and open interest figures
type TradeInfo struct {
	TradedVolume          int64
	Value                 decimal.Decimal
	VMAP                  decimal.Decimal
	PremiumTurnover       decimal.Decimal
	OpenInterest          int64
	ChangeInOpenInterest  int64
	PChangeInOpenInterest decimal.Decimal
	MarketLot             int64
}

// OtherInfo holds settlement, volatility and position limit figures
type OtherInfo struct {
	SettlementPrice          decimal.Decimal
	DailyVolatility          decimal.Decimal
	AnnualisedVolatility     decimal.Decimal
	ImpliedVolatility        decimal.Decimal
	ClientWisePositionLimits int64
	MarketWidePositionLimits int64
}

// ContractError records a contract that could not be decoded
type ContractError struct {
	Index  int
	Reason string
}

func (e ContractError) Error() string {
	return fmt.Sprintf("stocks[%d]: %s", e.Index, e.Reason)
}
