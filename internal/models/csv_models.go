package models

import (
	"strconv"
)

// ContractRow is one line of a per-contract time series file
type ContractRow struct {
	QuoteTimestamp          string `csv:"quote_timestamp"`
	UnderlyingValue         string `csv:"underlyingValue"`
	OpenPrice               string `csv:"openPrice"`
	HighPrice               string `csv:"highPrice"`
	LowPrice                string `csv:"lowPrice"`
	ClosePrice              string `csv:"closePrice"`
	LastPrice               string `csv:"lastPrice"`
	Change                  string `csv:"change"`
	PChange                 string `csv:"pChange"`
	NumberOfContractsTraded string `csv:"numberOfContractsTraded"`
	TotalBuyQuantity        string `csv:"totalBuyQuantity"`
	TotalSellQuantity       string `csv:"totalSellQuantity"`
	VMAP                    string `csv:"vmap"`
	OpenInterest            string `csv:"openInterest"`
	ChangeInOpenInterest    string `csv:"changeinOpenInterest"`
	PChangeInOpenInterest   string `csv:"pchangeinOpenInterest"`
	DailyVolatility         string `csv:"dailyvolatility"`
	ImpliedVolatility       string `csv:"impliedVolatility"`
}

// NewContractRow flattens a contract observation into a CSV row
func NewContractRow(quoteTimestamp string, c ContractQuote) ContractRow {
	m := c.Metadata
	ob := c.OrderBook
	return ContractRow{
		QuoteTimestamp:          quoteTimestamp,
		UnderlyingValue:         c.UnderlyingValue.String(),
		OpenPrice:               m.OpenPrice.String(),
		HighPrice:               m.HighPrice.String(),
		LowPrice:                m.LowPrice.String(),
		ClosePrice:              m.ClosePrice.String(),
		LastPrice:               m.LastPrice.String(),
		Change:                  m.Change.String(),
		PChange:                 m.PChange.String(),
		NumberOfContractsTraded: strconv.FormatInt(m.NumberOfContractsTraded, 10),
		TotalBuyQuantity:        strconv.FormatInt(ob.TotalBuyQuantity, 10),
		TotalSellQuantity:       strconv.FormatInt(ob.TotalSellQuantity, 10),
		VMAP:                    ob.TradeInfo.VMAP.String(),
		OpenInterest:            strconv.FormatInt(ob.TradeInfo.OpenInterest, 10),
		ChangeInOpenInterest:    strconv.FormatInt(ob.TradeInfo.ChangeInOpenInterest, 10),
		PChangeInOpenInterest:   ob.TradeInfo.PChangeInOpenInterest.String(),
		DailyVolatility:         ob.OtherInfo.DailyVolatility.String(),
		ImpliedVolatility:       ob.OtherInfo.ImpliedVolatility.String(),
	}
}
