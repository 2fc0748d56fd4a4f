// Package logger provides data source logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DataLogger provides dedicated logging for data acquisition.
type DataLogger struct {
	*logrus.Entry
}

// NewDataLogger creates a new data source logger.
func NewDataLogger(baseLogger *logrus.Logger) *DataLogger {
	return &DataLogger{
		Entry: baseLogger.WithField("component", "datasource"),
	}
}

// LogSourceSelected logs which source was resolved for this process.
func (dl *DataLogger) LogSourceSelected(source string, reason string) {
	dl.WithFields(logrus.Fields{
		"source": source,
		"reason": reason,
	}).Info("Data source selected")
}

// LogFallback logs a documented substitution of one source for another.
func (dl *DataLogger) LogFallback(wanted, using, reason string) {
	dl.WithFields(logrus.Fields{
		"wanted": wanted,
		"using":  using,
		"reason": reason,
	}).Warn("Data source unavailable, falling back")
}

// LogFetch logs a completed fetch.
func (dl *DataLogger) LogFetch(source string, from, to time.Time, rows int, duration time.Duration) {
	dl.WithFields(logrus.Fields{
		"source":      source,
		"from":        from.Format("20060102"),
		"to":          to.Format("20060102"),
		"rows":        rows,
		"duration_ms": duration.Milliseconds(),
	}).Info("Race data fetched")
}

// LogRecordSkipped logs a feed record dropped by validation.
func (dl *DataLogger) LogRecordSkipped(source, raceID string, reason string) {
	dl.WithFields(logrus.Fields{
		"source":  source,
		"race_id": raceID,
		"reason":  reason,
	}).Warn("Skipping invalid race record")
}
