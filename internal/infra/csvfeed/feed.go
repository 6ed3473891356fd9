// Package csvfeed is an offline market.Vendor reading one CSV file per
// ticker.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

/*
File layout

<dir>/<TICKER>.csv
date,close
2020-01-01,100.25

Yahoo exports (Date,Open,High,Low,Close,Adj Close,Volume) are read as-is;
"Adj Close" wins over "Close".
*/

// Feed reads price files from a directory
type Feed struct {
	dir string
}

// New creates a Feed over dir
func New(dir string) *Feed {
	return &Feed{dir: dir}
}

// Name implements market.Vendor
func (f *Feed) Name() string { return "csv" }

// FetchHistory returns the quotes of ticker between from and to inclusive
func (f *Feed) FetchHistory(ctx context.Context, ticker string, from, to time.Time) (market.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ticker == "" || strings.ContainsAny(ticker, `/\`) || strings.Contains(ticker, "..") {
		return nil, fmt.Errorf("%w: %q", market.ErrUnknownTicker, ticker)
	}

	path := filepath.Join(f.dir, ticker+".csv")
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no file for %s", market.ErrUnknownTicker, ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	points, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", market.ErrVendorResponse, path, err)
	}

	return market.Normalize(points).Window(from, to), nil
}

func read(r io.Reader) ([]market.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "adj close", "adj_close", "adjclose":
			priceCol = i
		case "close", "price":
			if priceCol == -1 {
				priceCol = i
			}
		}
	}
	if dateCol == -1 || priceCol == -1 {
		return nil, fmt.Errorf("header needs date and close columns, got %v", header)
	}

	var points []market.PricePoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= dateCol || len(rec) <= priceCol {
			continue
		}

		date, err := time.Parse(market.DateLayout, strings.TrimSpace(rec[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw := strings.TrimSpace(rec[priceCol])
		if raw == "" || raw == "null" {
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		points = append(points, market.PricePoint{Date: date, Price: price})
	}

	return points, nil
}
