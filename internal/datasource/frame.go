package datasource

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/yourusername/keiba-predictor/internal/models"
)

// stringColumns are loaded as strings even when every value looks numeric,
// so ids such as venue code "01" keep their leading zeros.
var stringColumns = []string{
	models.ColRaceID,
	models.ColRaceDate,
	models.ColVenueCode,
	models.ColHorseID,
	models.ColHorseName,
	models.ColJockeyID,
	models.ColTrainerID,
	models.ColSex,
	models.ColTrackType,
	models.ColTrackCondition,
}

// FromEntries builds the race-entry table, one row per entry in input order.
func FromEntries(entries []models.RaceEntry) dataframe.DataFrame {
	n := len(entries)
	str := func(get func(e *models.RaceEntry) string) []string {
		out := make([]string, n)
		for i := range entries {
			out[i] = get(&entries[i])
		}
		return out
	}
	num := func(get func(e *models.RaceEntry) float64) []float64 {
		out := make([]float64, n)
		for i := range entries {
			out[i] = get(&entries[i])
		}
		return out
	}
	horseNums := make([]int, n)
	for i := range entries {
		horseNums[i] = entries[i].HorseNum
	}

	return dataframe.New(
		series.New(str(func(e *models.RaceEntry) string { return e.RaceID }), series.String, models.ColRaceID),
		series.New(str(func(e *models.RaceEntry) string { return e.RaceDate }), series.String, models.ColRaceDate),
		series.New(str(func(e *models.RaceEntry) string { return e.VenueCode }), series.String, models.ColVenueCode),
		series.New(horseNums, series.Int, models.ColHorseNum),
		series.New(str(func(e *models.RaceEntry) string { return e.HorseID }), series.String, models.ColHorseID),
		series.New(str(func(e *models.RaceEntry) string { return e.HorseName }), series.String, models.ColHorseName),
		series.New(str(func(e *models.RaceEntry) string { return e.JockeyID }), series.String, models.ColJockeyID),
		series.New(str(func(e *models.RaceEntry) string { return e.TrainerID }), series.String, models.ColTrainerID),
		series.New(num(func(e *models.RaceEntry) float64 { return e.HorseWeight }), series.Float, models.ColHorseWeight),
		series.New(num(func(e *models.RaceEntry) float64 { return e.HorseWeightDiff }), series.Float, models.ColHorseWeightDiff),
		series.New(num(func(e *models.RaceEntry) float64 { return e.Age }), series.Float, models.ColAge),
		series.New(str(func(e *models.RaceEntry) string { return e.Sex }), series.String, models.ColSex),
		series.New(num(func(e *models.RaceEntry) float64 { return e.PostPosition }), series.Float, models.ColPostPosition),
		series.New(num(func(e *models.RaceEntry) float64 { return e.Distance }), series.Float, models.ColDistance),
		series.New(str(func(e *models.RaceEntry) string { return e.TrackType }), series.String, models.ColTrackType),
		series.New(str(func(e *models.RaceEntry) string { return e.TrackCondition }), series.String, models.ColTrackCondition),
		series.New(num(func(e *models.RaceEntry) float64 { return e.FinishTimeSec }), series.Float, models.ColFinishTimeSec),
		series.New(num(func(e *models.RaceEntry) float64 { return e.FinishPosition }), series.Float, models.ColFinishPosition),
		series.New(num(func(e *models.RaceEntry) float64 { return e.WinOdds }), series.Float, models.ColWinOdds),
		series.New(num(func(e *models.RaceEntry) float64 { return e.Popularity }), series.Float, models.ColPopularity),
		series.New(num(func(e *models.RaceEntry) float64 { return e.DaysSinceLastRace }), series.Float, models.ColDaysSinceLastRace),
		series.New(num(func(e *models.RaceEntry) float64 { return e.PastTop3Rate }), series.Float, models.ColPastTop3Rate),
		series.New(num(func(e *models.RaceEntry) float64 { return e.JockeyWinRate }), series.Float, models.ColJockeyWinRate),
		series.New(num(func(e *models.RaceEntry) float64 { return e.TrainerWinRate }), series.Float, models.ColTrainerWinRate),
	)
}

// csvColumnTypes pins identifier columns to string when reading CSV.
func csvColumnTypes() map[string]series.Type {
	types := make(map[string]series.Type, len(stringColumns))
	for _, name := range stringColumns {
		types[name] = series.String
	}
	return types
}
