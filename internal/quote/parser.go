// Package quote turns raw NSE quote-derivative documents into typed models.
//
// Document-level fields are all-or-nothing: a missing or badly typed field
// fails the whole document with a MalformedDocumentError. Contracts inside
// "stocks" are decoded one by one and a bad contract is reported in
// QuoteDocument.Rejected without failing its siblings.
package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nsvirk/nsequotes/internal/models"
	"github.com/shopspring/decimal"
)

// ErrMalformedDocument is matched by every document-level parse failure
var ErrMalformedDocument = errors.New("malformed document")

// MalformedDocumentError is returned when the document as a whole cannot be used
type MalformedDocumentError struct {
	Field string
	Err   error
}

func (e *MalformedDocumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed document: %v", e.Err)
	}
	return fmt.Sprintf("malformed document: field %s: %v", e.Field, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

func malformed(err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return &MalformedDocumentError{Field: fe.Path, Err: fe.Err}
	}
	return &MalformedDocumentError{Err: err}
}

// Parse validates and reshapes a raw quote-derivative document
func Parse(raw []byte) (*models.QuoteDocument, error) {
	if !json.Valid(raw) {
		return nil, &MalformedDocumentError{Err: errors.New("invalid JSON")}
	}

	var err error
	root := newObject("$", raw, &err)

	doc := &models.QuoteDocument{}
	if infoRaw, ok := root.field("info"); ok {
		if uerr := json.Unmarshal(infoRaw, &doc.Info); uerr != nil {
			root.fail("info", uerr)
		}
	}
	doc.UnderlyingValue = root.decimal("underlyingValue")
	doc.OptTimestamp = root.str("opt_timestamp")
	stocks := root.array("stocks")
	strikes := root.array("strikePrices")
	expiries := root.array("expiryDates")

	if root.has("vfq") {
		doc.VFQ = root.integer("vfq")
	}
	if root.has("fut_timestamp") {
		doc.FutTimestamp = root.str("fut_timestamp")
	}
	if err != nil {
		return nil, malformed(err)
	}

	doc.StrikePrices, err = decodeStrikePrices(strikes)
	if err != nil {
		return nil, malformed(err)
	}
	doc.ExpiryDates, err = decodeExpiryDates(expiries)
	if err != nil {
		return nil, malformed(err)
	}

	expirySet := make(map[string]struct{}, len(doc.ExpiryDates))
	for _, e := range doc.ExpiryDates {
		expirySet[e] = struct{}{}
	}

	doc.Contracts = make([]models.ContractQuote, 0, len(stocks))
	for i, item := range stocks {
		contract, cerr := decodeContract("$.stocks["+strconv.Itoa(i)+"]", item)
		if cerr != nil {
			doc.Rejected = append(doc.Rejected, models.ContractError{Index: i, Reason: cerr.Error()})
			continue
		}
		if _, ok := expirySet[contract.Metadata.ExpiryDate]; !ok {
			doc.Rejected = append(doc.Rejected, models.ContractError{
				Index:  i,
				Reason: fmt.Sprintf("expiry date %q not listed in expiryDates", contract.Metadata.ExpiryDate),
			})
			continue
		}
		doc.Contracts = append(doc.Contracts, contract)
	}

	return doc, nil
}

// decodeStrikePrices deduplicates in first-seen order and drops the 0 placeholder
func decodeStrikePrices(items []json.RawMessage) ([]decimal.Decimal, error) {
	strikes := make([]decimal.Decimal, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		d, err := parseDecimal(item)
		if err != nil {
			return nil, &FieldError{Path: "$.strikePrices[" + strconv.Itoa(i) + "]", Err: err}
		}
		if d.IsZero() {
			continue
		}
		key := d.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		strikes = append(strikes, d)
	}
	return strikes, nil
}

// decodeExpiryDates deduplicates in first-seen order
func decodeExpiryDates(items []json.RawMessage) ([]string, error) {
	expiries := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		var e string
		if err := json.Unmarshal(item, &e); err != nil || isNull(item) {
			return nil, &FieldError{Path: "$.expiryDates[" + strconv.Itoa(i) + "]", Err: errExpectedString}
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		expiries = append(expiries, e)
	}
	return expiries, nil
}

func decodeContract(path string, raw json.RawMessage) (models.ContractQuote, error) {
	var err error
	o := newObject(path, raw, &err)

	c := models.ContractQuote{}
	c.Metadata = decodeMetadata(o.object("metadata"))
	c.UnderlyingValue = o.decimal("underlyingValue")
	c.VolumeFreezeQuantity = o.integer("volumeFreezeQuantity")
	c.OrderBook = decodeOrderBook(o.object("marketDeptOrderBook"))

	if err != nil {
		return models.ContractQuote{}, err
	}
	return c, nil
}

func decodeMetadata(o *object) models.ContractMetadata {
	return models.ContractMetadata{
		InstrumentType:          o.str("instrumentType"),
		ExpiryDate:              o.str("expiryDate"),
		OptionType:              o.str("optionType"),
		StrikePrice:             o.decimal("strikePrice"),
		Identifier:              o.str("identifier"),
		OpenPrice:               o.decimal("openPrice"),
		HighPrice:               o.decimal("highPrice"),
		LowPrice:                o.decimal("lowPrice"),
		ClosePrice:              o.decimal("closePrice"),
		PrevClose:               o.decimal("prevClose"),
		LastPrice:               o.decimal("lastPrice"),
		Change:                  o.decimal("change"),
		PChange:                 o.decimal("pChange"),
		NumberOfContractsTraded: o.integer("numberOfContractsTraded"),
		TotalTurnover:           o.decimal("totalTurnover"),
	}
}

func decodeOrderBook(o *object) models.OrderBookSnapshot {
	return models.OrderBookSnapshot{
		TotalBuyQuantity:  o.integer("totalBuyQuantity"),
		TotalSellQuantity: o.integer("totalSellQuantity"),
		Bid:               decodeLadder(o, "bid"),
		Ask:               decodeLadder(o, "ask"),
		CarryOfCost:       decodeCarryOfCost(o.object("carryOfCost")),
		TradeInfo:         decodeTradeInfo(o.object("tradeInfo")),
		OtherInfo:         decodeOtherInfo(o.object("otherInfo")),
	}
}

func decodeLadder(o *object, name string) []models.PriceLevel {
	items := o.array(name)
	levels := make([]models.PriceLevel, 0, len(items))
	for i, item := range items {
		lo := newObject(o.path+"."+name+"["+strconv.Itoa(i)+"]", item, o.err)
		levels = append(levels, models.PriceLevel{
			Price:    lo.decimal("price"),
			Quantity: lo.integer("quantity"),
		})
	}
	return levels
}

func decodeCarryOfCost(o *object) models.CarryOfCost {
	return models.CarryOfCost{
		Price: decodeBestPrices(o.object("price")),
		Carry: decodeBestPrices(o.object("carry")),
	}
}

func decodeBestPrices(o *object) models.BestPrices {
	return models.BestPrices{
		BestBuy:   o.decimal("bestBuy"),
		BestSell:  o.decimal("bestSell"),
		LastPrice: o.decimal("lastPrice"),
	}
}

func decodeTradeInfo(o *object) models.TradeInfo {
	return models.TradeInfo{
		TradedVolume:          o.integer("tradedVolume"),
		Value:                 o.decimal("value"),
		VMAP:                  o.decimal("vmap"),
		PremiumTurnover:       o.decimal("premiumTurnover"),
		OpenInterest:          o.integer("openInterest"),
		ChangeInOpenInterest:  o.integer("changeinOpenInterest"),
		PChangeInOpenInterest: o.decimal("pchangeinOpenInterest"),
		MarketLot:             o.integer("marketLot"),
	}
}

func decodeOtherInfo(o *object) models.OtherInfo {
	return models.OtherInfo{
		SettlementPrice:          o.decimal("settlementPrice"),
		DailyVolatility:          o.decimal("dailyvolatility"),
		AnnualisedVolatility:     o.decimal("annualisedVolatility"),
		ImpliedVolatility:        o.decimal("impliedVolatility"),
		ClientWisePositionLimits: o.integer("clientWisePositionLimits"),
		MarketWidePositionLimits: o.integer("marketWidePositionLimits"),
	}
}
