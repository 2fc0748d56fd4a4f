package datasource

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-predictor/internal/config"
	"github.com/yourusername/keiba-predictor/internal/logger"
)

// Factory resolves the data source once from configuration.
type Factory struct {
	logger *logrus.Logger
	data   *logger.DataLogger
}

// NewFactory creates a new data source factory
func NewFactory(log *logrus.Logger) *Factory {
	return &Factory{
		logger: log,
		data:   logger.NewDataLogger(log),
	}
}

// Select picks the feed when it is configured, then the CSV export, then
// the synthetic generator. The result is wrapped in a cache when a TTL is set.
func (f *Factory) Select(cfg config.DataSourceConfig) (Source, SourceType) {
	var (
		src Source
		typ SourceType
	)

	switch {
	case cfg.FeedAvailable():
		httpCfg := DefaultHTTPClientConfig()
		if cfg.TimeoutSeconds > 0 {
			httpCfg.Timeout = cfg.Timeout()
		}
		if cfg.RateLimit > 0 {
			httpCfg.RateLimit = cfg.RateLimit
		}
		httpCfg.MaxRetries = cfg.MaxRetries

		creds := FeedCredentials{SoftwareID: cfg.SoftwareID, UserID: cfg.UserID, APIKey: cfg.APIKey}
		src = NewFeedClient(NewRateLimitedHTTPClient(httpCfg, f.logger), cfg.FeedURL, creds, f.data)
		typ = FeedSourceType
		f.data.LogSourceSelected(string(typ), "feed url and software id configured")

	case cfg.DataFile != "":
		src = NewCSVSource(cfg.DataFile, f.data)
		typ = CSVSourceType
		f.data.LogFallback(string(FeedSourceType), string(typ), "feed not configured, reading "+cfg.DataFile)

	default:
		src = NewSyntheticGenerator(cfg.SyntheticRaces, cfg.Seed)
		typ = SyntheticSourceType
		f.data.LogFallback(string(FeedSourceType), string(typ), "no feed or data file configured, using synthetic sample data")
	}

	if cfg.CacheTTLSeconds > 0 {
		src = NewCachedSource(src, cfg.CacheTTL())
	}
	return src, typ
}
