package simulation

import "errors"

// Domain errors
var (
	// Input errors
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrYearOutOfRange   = errors.New("year out of range")
	ErrNoInstrument     = errors.New("instrument is required")

	// Computation errors
	ErrTooFewPrices  = errors.New("at least 2 price points are required")
	ErrTooFewReturns = errors.New("at least 3 returns are required")
	ErrEmptySchedule = errors.New("contribution schedule is empty")
	ErrNoOverlap     = errors.New("portfolio and benchmark do not overlap")
)
