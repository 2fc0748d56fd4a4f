package models

import "math"

// Column names shared by every stage of the pipeline.
const (
	ColRaceID            = "race_id"
	ColRaceDate          = "race_date"
	ColVenueCode         = "venue_code"
	ColHorseNum          = "horse_num"
	ColHorseID           = "horse_id"
	ColHorseName         = "horse_name"
	ColJockeyID          = "jockey_id"
	ColTrainerID         = "trainer_id"
	ColHorseWeight       = "horse_weight"
	ColHorseWeightDiff   = "horse_weight_diff"
	ColAge               = "age"
	ColSex               = "sex"
	ColPostPosition      = "post_position"
	ColDistance          = "distance"
	ColTrackType         = "track_type"
	ColTrackCondition    = "track_condition"
	ColFinishTimeSec     = "finish_time_sec"
	ColFinishPosition    = "finish_position"
	ColWinOdds           = "win_odds"
	ColPopularity        = "popularity"
	ColDaysSinceLastRace = "days_since_last_race"
	ColPastTop3Rate      = "past_top3_rate"
	ColJockeyWinRate     = "jockey_win_rate"
	ColTrainerWinRate    = "trainer_win_rate"
)

// RaceEntry is one horse in one race. Numeric fields use NaN for missing values.
type RaceEntry struct {
	RaceID    string `json:"race_id" validate:"required"`
	RaceDate  string `json:"race_date"`
	VenueCode string `json:"venue_code"`
	HorseNum  int    `json:"horse_num" validate:"gte=1,lte=18"`
	HorseID   string `json:"horse_id" validate:"required"`
	HorseName string `json:"horse_name"`
	JockeyID  string `json:"jockey_id"`
	TrainerID string `json:"trainer_id"`

	HorseWeight     float64 `json:"horse_weight"`
	HorseWeightDiff float64 `json:"horse_weight_diff"`
	Age             float64 `json:"age"`
	Sex             string  `json:"sex"`
	PostPosition    float64 `json:"post_position"`

	Distance       float64 `json:"distance"`
	TrackType      string  `json:"track_type"`
	TrackCondition string  `json:"track_condition"`

	FinishTimeSec  float64 `json:"finish_time_sec"`
	FinishPosition float64 `json:"finish_position"`
	WinOdds        float64 `json:"win_odds"`
	Popularity     float64 `json:"popularity"`

	DaysSinceLastRace float64 `json:"days_since_last_race"`
	PastTop3Rate      float64 `json:"past_top3_rate"`
	JockeyWinRate     float64 `json:"jockey_win_rate"`
	TrainerWinRate    float64 `json:"trainer_win_rate"`
}

// NewRaceEntry returns an entry whose numeric fields are all missing.
func NewRaceEntry(raceID string, horseNum int) RaceEntry {
	nan := math.NaN()
	return RaceEntry{
		RaceID:            raceID,
		HorseNum:          horseNum,
		HorseWeight:       nan,
		HorseWeightDiff:   nan,
		Age:               nan,
		PostPosition:      nan,
		Distance:          nan,
		FinishTimeSec:     nan,
		FinishPosition:    nan,
		WinOdds:           nan,
		Popularity:        nan,
		DaysSinceLastRace: nan,
		PastTop3Rate:      nan,
		JockeyWinRate:     nan,
		TrainerWinRate:    nan,
	}
}
