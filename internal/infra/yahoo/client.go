// Package yahoo fetches monthly price history from Yahoo Finance
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

const (
	defaultBaseURL = "https://query2.finance.yahoo.com"
	defaultPageURL = "https://finance.yahoo.com"
	defaultTimeout = 15 * time.Second

	historyDateLayout = "Jan 2, 2006"
)

// Client is a market.Vendor backed by the v8 chart API, with the HTML
// history page as fallback
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageURL    string
	userAgent  string
}

// NewClient creates a client; empty URLs select the public endpoints
func NewClient(baseURL, pageURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if pageURL == "" {
		pageURL = defaultPageURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageURL:    strings.TrimRight(pageURL, "/"),
		userAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	}
}

// Name implements market.Vendor
func (c *Client) Name() string { return "yahoo" }

// FetchHistory returns monthly closes (adjusted when available) between
// from and to inclusive
func (c *Client) FetchHistory(ctx context.Context, ticker string, from, to time.Time) (market.PriceSeries, error) {
	series, err := c.fetchChart(ctx, ticker, from, to)
	if err == nil {
		return series, nil
	}
	if errors.Is(err, market.ErrUnknownTicker) || ctx.Err() != nil {
		return nil, err
	}

	log.Warn().Err(err).Str("ticker", ticker).Msg("Yahoo chart API failed, trying history page")

	series, pageErr := c.fetchHistoryPage(ctx, ticker, from, to)
	if pageErr != nil {
		return nil, fmt.Errorf("%w (history page: %v)", err, pageErr)
	}
	return series, nil
}

// =============================================================================
// Chart API
// =============================================================================

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) fetchChart(ctx context.Context, ticker string, from, to time.Time) (market.PriceSeries, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1mo")
	q.Set("events", "div,split")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", market.ErrVendorResponse, err)
	}
	if e := raw.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", market.ErrUnknownTicker, ticker)
		}
		return nil, fmt.Errorf("%w: %s: %s", market.ErrVendorResponse, e.Code, e.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", market.ErrNoDataInWindow, ticker)
	}

	r := raw.Chart.Result[0]
	closes := []*float64(nil)
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == len(r.Timestamp) {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		closes = r.Indicators.Quote[0].Close
	}
	if closes == nil {
		return nil, fmt.Errorf("%w: no closes for %s", market.ErrVendorResponse, ticker)
	}

	points := make([]market.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if closes[i] == nil {
			continue
		}
		// exchange-local calendar day
		date := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		points = append(points, market.PricePoint{Date: date, Price: *closes[i]})
	}

	log.Debug().
		Str("ticker", ticker).
		Int("count", len(points)).
		Msg("Fetched monthly history from Yahoo chart API")

	return market.Normalize(points), nil
}

// =============================================================================
// History page fallback
// =============================================================================

func (c *Client) fetchHistoryPage(ctx context.Context, ticker string, from, to time.Time) (market.PriceSeries, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))
	q.Set("frequency", "1mo")
	endpoint := fmt.Sprintf("%s/quote/%s/history/?%s", c.pageURL, url.PathEscape(ticker), q.Encode())

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", market.ErrVendorResponse, err)
	}

	var points []market.PricePoint

	// Date, Open, High, Low, Close, Adj Close, Volume
	doc.Find("table tbody tr").Each(func(i int, s *goquery.Selection) {
		tds := s.Find("td")
		if tds.Length() < 5 {
			return // dividend / split rows
		}

		date, err := time.Parse(historyDateLayout, strings.TrimSpace(tds.Eq(0).Text()))
		if err != nil {
			return
		}

		col := 4
		if tds.Length() >= 6 {
			col = 5
		}
		price, ok := parseNumber(tds.Eq(col).Text())
		if !ok {
			return
		}

		points = append(points, market.PricePoint{Date: date, Price: price})
	})

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no rows in history page for %s", market.ErrVendorResponse, ticker)
	}

	log.Debug().
		Str("ticker", ticker).
		Int("count", len(points)).
		Msg("Fetched monthly history from Yahoo history page")

	return market.Normalize(points), nil
}

// =============================================================================
// helpers
// =============================================================================

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", market.ErrUnknownTicker, resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", market.ErrVendorStatus, resp.StatusCode)
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
