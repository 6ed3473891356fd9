package market

import (
	"fmt"
	"sort"

	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// TickerInfo describes one tradable instrument of the universe
type TickerInfo struct {
	Ticker     string     `json:"ticker"`
	Name       string     `json:"nom"`
	AssetClass AssetClass `json:"actif"`
}

// Universe is the immutable set of supported tickers per asset class
type Universe struct {
	byTicker map[string]TickerInfo
	byClass  map[AssetClass][]TickerInfo
	defaults map[AssetClass]string
}

var defaultEntries = []TickerInfo{
	{Ticker: "^GSPC", Name: "S&P 500", AssetClass: Actions},
	{Ticker: "^FCHI", Name: "CAC 40", AssetClass: Actions},
	{Ticker: "^STOXX50E", Name: "Euro Stoxx 50", AssetClass: Actions},
	{Ticker: "AAPL", Name: "Apple", AssetClass: Actions},
	{Ticker: "MSFT", Name: "Microsoft", AssetClass: Actions},
	{Ticker: "MC.PA", Name: "LVMH", AssetClass: Actions},
	{Ticker: "TTE.PA", Name: "TotalEnergies", AssetClass: Actions},
	{Ticker: "AIR.PA", Name: "Airbus", AssetClass: Actions},

	{Ticker: "AGG", Name: "iShares Core US Aggregate Bond", AssetClass: Obligations},
	{Ticker: "BND", Name: "Vanguard Total Bond Market", AssetClass: Obligations},
	{Ticker: "IEF", Name: "iShares 7-10 Year Treasury", AssetClass: Obligations},
	{Ticker: "TLT", Name: "iShares 20+ Year Treasury", AssetClass: Obligations},
	{Ticker: "IEAG.L", Name: "iShares Core Euro Aggregate Bond", AssetClass: Obligations},

	{Ticker: "ACWI", Name: "iShares MSCI ACWI", AssetClass: ETF},
	{Ticker: "VT", Name: "Vanguard Total World Stock", AssetClass: ETF},
	{Ticker: "SPY", Name: "SPDR S&P 500", AssetClass: ETF},
	{Ticker: "CW8.PA", Name: "Amundi MSCI World", AssetClass: ETF},
	{Ticker: "IWDA.AS", Name: "iShares Core MSCI World", AssetClass: ETF},
}

var defaultTickers = map[AssetClass]string{
	Actions:     "^GSPC",
	Obligations: "AGG",
	ETF:         "ACWI",
}

// DefaultUniverse returns the built-in universe
func DefaultUniverse() *Universe {
	u, err := NewUniverse(defaultEntries, defaultTickers)
	if err != nil {
		panic(err)
	}
	return u
}

// NewUniverse builds a universe; every class needs a default ticker that
// belongs to it
func NewUniverse(entries []TickerInfo, defaults map[AssetClass]string) (*Universe, error) {
	u := &Universe{
		byTicker: make(map[string]TickerInfo, len(entries)),
		byClass:  make(map[AssetClass][]TickerInfo),
		defaults: make(map[AssetClass]string, len(defaults)),
	}

	for _, e := range entries {
		e.Ticker = NormalizeTicker(e.Ticker)
		if e.AssetClass == AssetClassUnknown {
			return nil, fmt.Errorf("%w for ticker %s", ErrUnknownAssetClass, e.Ticker)
		}
		if _, dup := u.byTicker[e.Ticker]; dup {
			return nil, fmt.Errorf("duplicate ticker %s", e.Ticker)
		}
		u.byTicker[e.Ticker] = e
		u.byClass[e.AssetClass] = append(u.byClass[e.AssetClass], e)
	}

	for _, class := range AssetClasses {
		t := NormalizeTicker(defaults[class])
		info, ok := u.byTicker[t]
		if !ok || info.AssetClass != class {
			return nil, fmt.Errorf("default ticker %q invalid for %s", t, class)
		}
		u.defaults[class] = t
	}

	return u, nil
}

// Lookup returns the info for a ticker
func (u *Universe) Lookup(ticker string) (TickerInfo, bool) {
	info, ok := u.byTicker[NormalizeTicker(ticker)]
	return info, ok
}

// Tickers returns a copy of the tickers of a class
func (u *Universe) Tickers(class AssetClass) []TickerInfo {
	src := u.byClass[class]
	out := make([]TickerInfo, len(src))
	copy(out, src)
	return out
}

// All returns every ticker sorted by class then ticker
func (u *Universe) All() []TickerInfo {
	out := make([]TickerInfo, 0, len(u.byTicker))
	for _, class := range AssetClasses {
		out = append(out, u.Tickers(class)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AssetClass != out[j].AssetClass {
			return out[i].AssetClass < out[j].AssetClass
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// Default returns the default ticker of a class
func (u *Universe) Default(class AssetClass) string {
	return u.defaults[class]
}

// Instrument returns the instrument of a known ticker
func (u *Universe) Instrument(ticker string) (Instrument, error) {
	info, ok := u.Lookup(ticker)
	if !ok {
		return Instrument{}, apperr.InvalidInput(ErrUnknownTicker, "ticker inconnu: %q", ticker)
	}
	return Instrument{AssetClass: info.AssetClass, Ticker: info.Ticker}, nil
}

// Resolve turns the client's (actif, ticker) pair into an Instrument.
//
// actif is normally an asset class; the client also sends a bare ticker in
// actif ("ACWI"), which is accepted when the ticker is in the universe.
func (u *Universe) Resolve(actif, ticker string) (Instrument, error) {
	ticker = NormalizeTicker(ticker)

	if actif == "" && ticker != "" {
		return u.Instrument(ticker)
	}

	class, err := ParseAssetClass(actif)
	if err != nil {
		if _, ok := u.Lookup(actif); ok {
			return u.Instrument(actif)
		}
		return Instrument{}, apperr.InvalidInput(err, "actif inconnu: %q (actions, obligations, etf)", actif)
	}

	if ticker == "" {
		return Instrument{AssetClass: class, Ticker: u.defaults[class]}, nil
	}

	info, ok := u.Lookup(ticker)
	if !ok {
		return Instrument{}, apperr.InvalidInput(ErrUnknownTicker, "ticker inconnu: %q", ticker)
	}
	if info.AssetClass != class {
		return Instrument{}, apperr.InvalidInput(ErrTickerClassMismatch, "le ticker %s n'appartient pas à la classe %s", ticker, class)
	}

	return Instrument{AssetClass: class, Ticker: info.Ticker}, nil
}
