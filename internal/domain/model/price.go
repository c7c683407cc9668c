package model

// PriceSample is one observed price for a trading pair at a point in time.
// The pair/timestamp combination is unique in storage; a later write at the
// same second replaces the earlier one.
type PriceSample struct {
	Pair      string  `json:"pair" db:"pair"`
	Price     float64 `json:"price" db:"price"`
	Decimals  int     `json:"decimals" db:"decimals"`
	Timestamp int64   `json:"timestamp" db:"timestamp"`
}

// AssetSnapshot is the current display-ready state of one tracked pair.
// Price is the authoritative oracle median, zero when unavailable.
type AssetSnapshot struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	High24h   float64 `json:"high24h"`
	Low24h    float64 `json:"low24h"`
	MarketCap float64 `json:"marketCap"`
}

// HistoryPoint is one point of a rendered series. When downsampled, Price is
// the bucket mean and Timestamp the bucket start.
type HistoryPoint struct {
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Decimals  int     `json:"decimals"`
	Timestamp int64   `json:"timestamp"`
}

// RefStats carries supplementary 24h market statistics from a reference
// exchange. It is metadata only, never the authoritative price.
type RefStats struct {
	Change24h float64 `json:"change24h"`
	High24h   float64 `json:"high24h"`
	Low24h    float64 `json:"low24h"`
}

// StoreStats summarizes the time-series store contents.
type StoreStats struct {
	TotalRows int64
	Oldest    *int64
	Newest    *int64
}

// PriceRange is the low/high aggregate over a stored window.
type PriceRange struct {
	Low  float64
	High float64
}
