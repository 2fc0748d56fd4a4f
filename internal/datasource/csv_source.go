package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/yourusername/keiba-predictor/internal/logger"
	"github.com/yourusername/keiba-predictor/internal/models"
)

// CSVSource reads a CSV export of race entries, used when the feed is unavailable.
type CSVSource struct {
	path   string
	logger *logger.DataLogger
}

// NewCSVSource creates a CSV source for path.
func NewCSVSource(path string, log *logger.DataLogger) *CSVSource {
	return &CSVSource{path: path, logger: log}
}

// Name returns the data source name
func (s *CSVSource) Name() string {
	return string(CSVSourceType)
}

// Fetch loads the file and keeps rows whose race_date falls in the range.
// Files without a race_date column are returned whole.
func (s *CSVSource) Fetch(ctx context.Context, dr DateRange) (dataframe.DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}
	start := time.Now()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dataframe.DataFrame{}, NewDataSourceError(s.Name(), ErrCodeNotFound, "data file not found: "+s.path, ErrNotFound)
		}
		return dataframe.DataFrame{}, NewDataSourceError(s.Name(), ErrCodeNetworkError, "failed to open data file", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.WithTypes(csvColumnTypes()))
	if df.Err != nil {
		return dataframe.DataFrame{}, NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to parse data file", df.Err)
	}
	if !models.HasColumn(df, models.ColRaceID) {
		return dataframe.DataFrame{}, NewDataSourceError(s.Name(), ErrCodeInvalidData,
			fmt.Sprintf("data file has no %s column", models.ColRaceID), ErrInvalidData)
	}

	df = filterDateRange(df, dr)
	if s.logger != nil {
		s.logger.LogFetch(s.Name(), dr.From, dr.To, df.Nrow(), time.Since(start))
	}
	return df, nil
}

func filterDateRange(df dataframe.DataFrame, dr DateRange) dataframe.DataFrame {
	dates := models.StringColumn(df, models.ColRaceDate)
	if dates == nil {
		return df
	}
	from := dr.From.Format(DateLayout)
	to := dr.To.Format(DateLayout)
	rows := make([]int, 0, len(dates))
	for i, d := range dates {
		// unparsable dates are kept rather than dropped
		if _, err := time.Parse(DateLayout, d); err != nil || (d >= from && d <= to) {
			rows = append(rows, i)
		}
	}
	if len(rows) == len(dates) {
		return df
	}
	return df.Subset(rows)
}
