package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/keiba-predictor/internal/logger"
	"github.com/yourusername/keiba-predictor/internal/models"
)

const feedSourceName = string(FeedSourceType)

// FeedCredentials identify this software to the race data feed.
type FeedCredentials struct {
	SoftwareID string
	UserID     string
	APIKey     string
}

// FeedClient implements Source for the race data feed.
type FeedClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	creds      FeedCredentials
	validate   *validator.Validate
	logger     *logger.DataLogger
}

// FeedRace is a race record as served by the feed.
type FeedRace struct {
	RaceID         string      `json:"race_id" validate:"required"`
	RaceDate       string      `json:"race_date" validate:"required,len=8,numeric"`
	VenueCode      string      `json:"venue_code"`
	Distance       *float64    `json:"distance" validate:"omitempty,gt=0"`
	TrackType      string      `json:"track_type"`
	TrackCondition string      `json:"track_condition"`
	Entries        []FeedEntry `json:"entries" validate:"required,min=1,dive"`
}

// FeedEntry is one horse within a feed race record. Odds and finish times
// arrive as strings.
type FeedEntry struct {
	HorseNum          int      `json:"horse_num" validate:"gte=1,lte=18"`
	HorseID           string   `json:"horse_id" validate:"required"`
	HorseName         string   `json:"horse_name"`
	JockeyID          string   `json:"jockey_id"`
	TrainerID         string   `json:"trainer_id"`
	HorseWeight       *float64 `json:"horse_weight"`
	HorseWeightDiff   *float64 `json:"horse_weight_diff"`
	Age               *float64 `json:"age"`
	Sex               string   `json:"sex"`
	PostPosition      *float64 `json:"post_position"`
	FinishPosition    *float64 `json:"finish_position" validate:"omitempty,gte=1"`
	FinishTime        *string  `json:"finish_time"`
	WinOdds           *string  `json:"win_odds"`
	Popularity        *float64 `json:"popularity"`
	DaysSinceLastRace *float64 `json:"days_since_last_race"`
	PastTop3Rate      *float64 `json:"past_top3_rate" validate:"omitempty,gte=0,lte=1"`
	JockeyWinRate     *float64 `json:"jockey_win_rate" validate:"omitempty,gte=0,lte=1"`
	TrainerWinRate    *float64 `json:"trainer_win_rate" validate:"omitempty,gte=0,lte=1"`
}

// NewFeedClient creates a feed client.
func NewFeedClient(httpClient *RateLimitedHTTPClient, baseURL string, creds FeedCredentials, log *logger.DataLogger) *FeedClient {
	return &FeedClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		validate:   validator.New(),
		logger:     log,
	}
}

// Name returns the data source name
func (c *FeedClient) Name() string {
	return feedSourceName
}

// Close releases idle feed connections.
func (c *FeedClient) Close() error {
	return c.httpClient.Close()
}

// Fetch retrieves every race in the range. Transport, status and decode
// failures are returned as DataSourceError.
func (c *FeedClient) Fetch(ctx context.Context, dr DateRange) (dataframe.DataFrame, error) {
	q := url.Values{}
	q.Set("from", dr.From.Format(DateLayout))
	q.Set("to", dr.To.Format(DateLayout))
	endpoint := fmt.Sprintf("%s/races?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("X-Software-ID", c.creds.SoftwareID)
	if c.creds.UserID != "" {
		req.Header.Set("X-User-ID", c.creds.UserID)
	}
	if c.creds.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeNetworkError, "failed to fetch races", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeAuthenticationFailed, "feed rejected credentials", ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	case resp.StatusCode == http.StatusNotFound:
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeNotFound, "races endpoint not found", ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), ErrServerError)
	}

	var races []FeedRace
	if err := json.NewDecoder(resp.Body).Decode(&races); err != nil {
		return dataframe.DataFrame{}, NewDataSourceError(feedSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}

	entries := c.convert(races)
	if c.logger != nil {
		c.logger.LogFetch(feedSourceName, dr.From, dr.To, len(entries), time.Since(start))
	}
	return FromEntries(entries), nil
}

// convert flattens valid races into entries, skipping invalid records.
func (c *FeedClient) convert(races []FeedRace) []models.RaceEntry {
	var entries []models.RaceEntry
	for i := range races {
		race := &races[i]
		if err := c.validate.Struct(race); err != nil {
			c.skip(race.RaceID, err.Error())
			continue
		}

		converted, err := convertRace(race)
		if err != nil {
			c.skip(race.RaceID, err.Error())
			continue
		}
		entries = append(entries, converted...)
	}
	return entries
}

func (c *FeedClient) skip(raceID, reason string) {
	if c.logger != nil {
		c.logger.LogRecordSkipped(feedSourceName, raceID, reason)
	}
}

func convertRace(race *FeedRace) ([]models.RaceEntry, error) {
	out := make([]models.RaceEntry, 0, len(race.Entries))
	for _, fe := range race.Entries {
		e := models.NewRaceEntry(race.RaceID, fe.HorseNum)
		e.RaceDate = race.RaceDate
		e.VenueCode = race.VenueCode
		e.Distance = orNaN(race.Distance)
		e.TrackType = race.TrackType
		e.TrackCondition = race.TrackCondition

		e.HorseID = fe.HorseID
		e.HorseName = fe.HorseName
		e.JockeyID = fe.JockeyID
		e.TrainerID = fe.TrainerID
		e.HorseWeight = orNaN(fe.HorseWeight)
		e.HorseWeightDiff = orNaN(fe.HorseWeightDiff)
		e.Age = orNaN(fe.Age)
		e.Sex = fe.Sex
		e.PostPosition = orNaN(fe.PostPosition)
		e.FinishPosition = orNaN(fe.FinishPosition)
		e.Popularity = orNaN(fe.Popularity)
		e.DaysSinceLastRace = orNaN(fe.DaysSinceLastRace)
		e.PastTop3Rate = orNaN(fe.PastTop3Rate)
		e.JockeyWinRate = orNaN(fe.JockeyWinRate)
		e.TrainerWinRate = orNaN(fe.TrainerWinRate)

		odds, err := parseDecimal(fe.WinOdds)
		if err != nil {
			return nil, fmt.Errorf("%w: horse %s: win odds: %v", models.ErrInvalidEntry, fe.HorseID, err)
		}
		e.WinOdds = odds
		finish, err := parseDecimal(fe.FinishTime)
		if err != nil {
			return nil, fmt.Errorf("%w: horse %s: finish time: %v", models.ErrInvalidEntry, fe.HorseID, err)
		}
		e.FinishTimeSec = finish

		out = append(out, e)
	}
	return out, nil
}

// parseDecimal parses a decimal string, NaN when absent or blank.
func parseDecimal(s *string) (float64, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return math.NaN(), nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return math.NaN(), fmt.Errorf("invalid decimal %q: %w", *s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
