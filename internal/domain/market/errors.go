package market

import "errors"

// Domain errors
var (
	// Instrument errors
	ErrUnknownAssetClass   = errors.New("unknown asset class")
	ErrUnknownTicker       = errors.New("unknown ticker")
	ErrTickerClassMismatch = errors.New("ticker does not belong to asset class")

	// Series errors
	ErrInvalidSeries   = errors.New("invalid price series")
	ErrNoDataInWindow  = errors.New("no price data in window")
	ErrSeriesNotCached = errors.New("series not cached")

	// Vendor errors
	ErrVendorTimeout  = errors.New("market data vendor timeout")
	ErrVendorStatus   = errors.New("market data vendor error")
	ErrVendorResponse = errors.New("invalid response from market data vendor")
)
