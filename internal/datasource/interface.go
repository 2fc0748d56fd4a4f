// Package datasource loads race entries from the feed, a CSV export or the
// synthetic generator and returns them as a table.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// DateLayout is the YYYYMMDD layout used by the feed.
const DateLayout = "20060102"

// Source produces the race-entry table for a date range.
type Source interface {
	// Fetch returns one row per horse per race in the range.
	Fetch(ctx context.Context, dr DateRange) (dataframe.DataFrame, error)

	// Name returns the name of the data source
	Name() string
}

// SourceType identifies which Source was selected.
type SourceType string

const (
	FeedSourceType      SourceType = "feed"
	CSVSourceType       SourceType = "csv"
	SyntheticSourceType SourceType = "synthetic"
)

// DateRange is an inclusive range of race dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses two YYYYMMDD strings.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	if f.After(t) {
		return DateRange{}, fmt.Errorf("from date %s is after to date %s", from, to)
	}
	return DateRange{From: f, To: t}, nil
}

// Trailing returns the range of the last days days ending at end.
func Trailing(end time.Time, days int) DateRange {
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{From: to.AddDate(0, 0, -days), To: to}
}

func (dr DateRange) String() string {
	return dr.From.Format(DateLayout) + "-" + dr.To.Format(DateLayout)
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
