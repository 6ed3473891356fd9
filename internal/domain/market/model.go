package market

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format of every calendar date
const DateLayout = "2006-01-02"

// =============================================================================
// Asset classes
// =============================================================================

// AssetClass is the closed set of instrument categories offered to users
type AssetClass int

const (
	AssetClassUnknown AssetClass = iota
	Actions
	Obligations
	ETF
)

// AssetClasses lists every valid class in display order
var AssetClasses = []AssetClass{Actions, Obligations, ETF}

// ParseAssetClass maps the wire name to an AssetClass
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "actions":
		return Actions, nil
	case "obligations":
		return Obligations, nil
	case "etf":
		return ETF, nil
	default:
		return AssetClassUnknown, fmt.Errorf("%w: %q", ErrUnknownAssetClass, s)
	}
}

func (a AssetClass) String() string {
	switch a {
	case Actions:
		return "actions"
	case Obligations:
		return "obligations"
	case ETF:
		return "etf"
	default:
		return "unknown"
	}
}

func (a AssetClass) MarshalText() ([]byte, error) {
	if a == AssetClassUnknown {
		return nil, ErrUnknownAssetClass
	}
	return []byte(a.String()), nil
}

func (a *AssetClass) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetClass(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Instrument identifies what is simulated. Only built through Universe.Resolve
type Instrument struct {
	AssetClass AssetClass `json:"actif"`
	Ticker     string     `json:"ticker"`
}

func (i Instrument) String() string {
	return i.AssetClass.String() + ":" + i.Ticker
}

// NormalizeTicker canonicalizes user input ("  acwi " -> "ACWI")
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// =============================================================================
// Prices
// =============================================================================

// PricePoint is one quotation
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries is ordered by strictly increasing date
type PriceSeries []PricePoint

// Validate checks ordering and price sanity
func (s PriceSeries) Validate() error {
	for i, p := range s {
		if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return fmt.Errorf("%w: bad price %v at %s", ErrInvalidSeries, p.Price, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(s[i-1].Date) {
			return fmt.Errorf("%w: dates not strictly increasing at %s", ErrInvalidSeries, p.Date.Format(DateLayout))
		}
	}
	return nil
}

// Normalize sorts by date, truncates to calendar days, keeps the last quote
// of a duplicated day and drops unusable prices
func Normalize(points []PricePoint) PriceSeries {
	clean := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		clean = append(clean, PricePoint{Date: Day(p.Date), Price: p.Price})
	}

	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Date.Before(clean[j].Date) })

	out := make(PriceSeries, 0, len(clean))
	for _, p := range clean {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// Window returns the points with from <= date <= to
func (s PriceSeries) Window(from, to time.Time) PriceSeries {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Date.After(to) })
	if lo >= hi {
		return PriceSeries{}
	}
	out := make(PriceSeries, hi-lo)
	copy(out, s[lo:hi])
	return out
}

// PriceOnOrAfter returns the first quotation on/after date, falling back to
// the last quotation when date is past the end of the series
func (s PriceSeries) PriceOnOrAfter(date time.Time) (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(date) })
	if i == len(s) {
		return s[len(s)-1], true
	}
	return s[i], true
}

// Day truncates t to midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearStart returns 1 January of year, UTC
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// Cache keys / results
// =============================================================================

// SeriesKey identifies a cached fetch
type SeriesKey struct {
	Ticker string
	From   time.Time
	To     time.Time
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Ticker, k.From.Format(DateLayout), k.To.Format(DateLayout))
}

// CachedSeries is what cache stores persist
type CachedSeries struct {
	Key       SeriesKey
	Series    PriceSeries
	Clamped   bool
	FetchedAt time.Time
}

// Source tells where a SeriesResult came from
type Source string

const (
	SourceMemory Source = "memory"
	SourceStore  Source = "store"
	SourceVendor Source = "vendor"
)

// SeriesResult is the provider's answer for one instrument and window
type SeriesResult struct {
	Instrument    Instrument
	Series        PriceSeries
	RequestedFrom time.Time
	RequestedTo   time.Time
	EffectiveFrom time.Time
	Clamped       bool
	Warning       string
	Source        Source
}
