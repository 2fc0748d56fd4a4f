// Command keiba trains the race winner model and ranks upcoming races.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-predictor/internal/config"
	"github.com/yourusername/keiba-predictor/internal/database"
	"github.com/yourusername/keiba-predictor/internal/datasource"
	applogger "github.com/yourusername/keiba-predictor/internal/logger"
	"github.com/yourusername/keiba-predictor/internal/metrics"
	"github.com/yourusername/keiba-predictor/internal/report"
	"github.com/yourusername/keiba-predictor/internal/repository"
	"github.com/yourusername/keiba-predictor/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	fromDate   string
	toDate     string
	softwareID string
	userID     string
	modelDir   string
	raceID     string
	dataFile   string
	outputPath string

	logger *logrus.Logger
	cfg    *config.Config
	db     *database.DB
	source datasource.Source
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	flags.StringVar(&fromDate, "from-date", "20240101", "First race date (YYYYMMDD)")
	flags.StringVar(&toDate, "to-date", "20241231", "Last race date (YYYYMMDD)")
	flags.StringVar(&softwareID, "software-id", "", "Feed software ID")
	flags.StringVar(&userID, "user-id", "", "Feed user ID")
	flags.StringVar(&modelDir, "model-dir", "models", "Directory holding the model artifact")
	flags.StringVar(&raceID, "race-id", "", "Race to rank (default: first race in the range)")
	flags.StringVar(&dataFile, "data-file", "", "CSV export to read instead of the feed")
	flags.StringVarP(&outputPath, "output", "o", "", "Write the ranked table to a .csv or .xlsx file")

	rootCmd.AddCommand(trainCmd, predictCmd, allCmd, benefitsCmd, scheduleCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "keiba",
	Short: "Horse race win probability predictor",
	Long: `Fetches race entries, engineers features, trains a random forest winner
classifier and ranks the runners of a race by win probability.

Without a sub-command, keiba trains and then predicts (same as "keiba all").`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = applogger.NewLoggerWithOutput(cfg.App.LogLevel, cfg.App.Environment, os.Stderr)
		metrics.InitRegistry()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(cmd.Context())
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model on the date range and save it",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, dr, err := setupPipeline(cmd.Context())
		if err != nil {
			return err
		}
		_, err = pipeline.Train(cmd.Context(), dr)
		return err
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Rank the runners of a race by win probability",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, dr, err := setupPipeline(cmd.Context())
		if err != nil {
			return err
		}
		return predict(cmd.Context(), pipeline, dr)
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Train, then predict",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("keiba %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	_ = godotenv.Load()

	err := rootCmd.ExecuteContext(context.Background())
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file (optional), secrets, then applies flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if err := config.ApplySecretsFromEnv(cmd.Context(), cfg); err != nil {
		return err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"from-date", fromDate, &cfg.DataSource.FromDate},
		{"to-date", toDate, &cfg.DataSource.ToDate},
		{"software-id", softwareID, &cfg.DataSource.SoftwareID},
		{"user-id", userID, &cfg.DataSource.UserID},
		{"model-dir", modelDir, &cfg.Model.Dir},
		{"data-file", dataFile, &cfg.DataSource.DataFile},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst = o.value
		}
	}

	return config.Validate(cfg)
}

// setupPipeline connects the optional registry database and selects the
// data source.
func setupPipeline(ctx context.Context) (*service.RacePipeline, datasource.DateRange, error) {
	dr, err := datasource.ParseDateRange(cfg.DataSource.FromDate, cfg.DataSource.ToDate)
	if err != nil {
		return nil, datasource.DateRange{}, err
	}

	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return nil, datasource.DateRange{}, fmt.Errorf("failed to initialize model registry: %w", err)
	}
	repos := repository.NewRepositories(db)

	var sourceType datasource.SourceType
	source, sourceType = datasource.NewFactory(logger).Select(cfg.DataSource)

	logger.WithFields(logrus.Fields{
		"version":     Version,
		"environment": cfg.App.Environment,
		"source":      sourceType,
		"date_range":  dr.String(),
		"model_dir":   cfg.Model.Dir,
		"registry":    db != nil,
	}).Info("Keiba predictor starting")

	return service.NewRacePipeline(source, repos.Model, service.OptionsFromConfig(cfg), logger), dr, nil
}

func runAll(ctx context.Context) error {
	pipeline, dr, err := setupPipeline(ctx)
	if err != nil {
		return err
	}
	if _, err := pipeline.Train(ctx, dr); err != nil {
		return err
	}
	return predict(ctx, pipeline, dr)
}

func predict(ctx context.Context, pipeline *service.RacePipeline, dr datasource.DateRange) error {
	result, err := pipeline.Predict(ctx, dr, raceID)
	if err != nil {
		if errors.Is(err, service.ErrRaceNotFound) {
			return fmt.Errorf("race %q is not in %s: %w", raceID, dr.String(), err)
		}
		return err
	}

	board := report.NewLeaderboard(result.RaceID, result.Ranked)
	if err := board.Write(os.Stdout); err != nil {
		return err
	}

	if outputPath != "" {
		if err := report.Export(outputPath, result.Ranked); err != nil {
			return err
		}
		logger.WithField("path", outputPath).Info("Ranked table exported")
	}
	return nil
}

// cleanup closes the registry and the data source, then writes the metrics
// textfile when configured.
func cleanup() {
	if db != nil {
		db.Close()
	}
	if closer, ok := source.(io.Closer); ok {
		if err := closer.Close(); err != nil && logger != nil {
			logger.WithError(err).Warn("Failed to close data source")
		}
	}
	if cfg == nil || !cfg.Metrics.Enabled || cfg.Metrics.TextfilePath == "" {
		return
	}

	start := time.Now()
	if err := metrics.WriteToTextfile(cfg.Metrics.TextfilePath); err != nil {
		if logger != nil {
			logger.WithError(err).Error("Failed to write metrics textfile")
		}
		return
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"path":     cfg.Metrics.TextfilePath,
			"duration": time.Since(start),
		}).Debug("Metrics written")
	}
}
