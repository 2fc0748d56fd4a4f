// Package features adds race-relative and speed features to a preprocessed table.
package features

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"github.com/yourusername/keiba-predictor/internal/models"
)

// Engineered column names.
const (
	ColOddsRankInRace    = "odds_rank_in_race"
	ColOddsNorm          = "odds_norm"
	ColWeightRankInRace  = "weight_rank_in_race"
	ColJockeyRankInRace  = "jockey_rank_in_race"
	ColHorsesInRace      = "horses_in_race"
	ColSpeedMps          = "speed_mps"
	ColSpeedRankInRace   = "speed_rank_in_race"
	ColSpeedDiffFromMean = "speed_diff_from_mean"
)

// EngineeredColumns returns the engineered features used by the predictor.
func EngineeredColumns() []string {
	return []string{
		ColOddsRankInRace,
		ColOddsNorm,
		ColWeightRankInRace,
		ColJockeyRankInRace,
		ColHorsesInRace,
	}
}

// Build applies the race-relative pass and then the speed pass.
func Build(df dataframe.DataFrame) dataframe.DataFrame {
	return AddSpeedIndex(AddRaceRelative(df))
}

// AddRaceRelative ranks odds, weight and jockey win rate within each race and
// counts the runners. Without a race_id column df is returned unchanged.
func AddRaceRelative(df dataframe.DataFrame) dataframe.DataFrame {
	if !models.HasColumn(df, models.ColRaceID) {
		return df
	}
	_, groups := models.RaceGroups(df)
	n := df.Nrow()

	if odds := models.FloatColumn(df, models.ColWinOdds); odds != nil {
		df = models.WithFloats(df, ColOddsRankInRace, rankWithinGroups(odds, groups, true))

		norm := make([]float64, n)
		for _, rows := range groups {
			max := math.NaN()
			for _, r := range rows {
				if !math.IsNaN(odds[r]) && (math.IsNaN(max) || odds[r] > max) {
					max = odds[r]
				}
			}
			if max == 0 || math.IsNaN(max) {
				max = 1
			}
			for _, r := range rows {
				norm[r] = odds[r] / max
			}
		}
		df = models.WithFloats(df, ColOddsNorm, norm)
	}

	if weight := models.FloatColumn(df, models.ColHorseWeight); weight != nil {
		df = models.WithFloats(df, ColWeightRankInRace, rankWithinGroups(weight, groups, false))
	}

	if jockey := models.FloatColumn(df, models.ColJockeyWinRate); jockey != nil {
		df = models.WithFloats(df, ColJockeyRankInRace, rankWithinGroups(jockey, groups, false))
	}

	// runners with a horse number; every row counts when the column is absent
	nums := models.FloatColumn(df, models.ColHorseNum)
	counts := make([]float64, n)
	for _, rows := range groups {
		runners := 0
		for _, r := range rows {
			if nums == nil || !math.IsNaN(nums[r]) {
				runners++
			}
		}
		for _, r := range rows {
			counts[r] = float64(runners)
		}
	}
	return models.WithFloats(df, ColHorsesInRace, counts)
}

// AddSpeedIndex derives metres per second from distance and finish time and,
// when race ids are present, ranks it and measures the gap to the race mean.
func AddSpeedIndex(df dataframe.DataFrame) dataframe.DataFrame {
	if !models.HasColumns(df, models.ColFinishTimeSec, models.ColDistance) {
		return df
	}
	dist := models.FloatColumn(df, models.ColDistance)
	times := models.FloatColumn(df, models.ColFinishTimeSec)

	speed := make([]float64, len(dist))
	for i := range dist {
		if times[i] == 0 || math.IsNaN(times[i]) {
			speed[i] = math.NaN()
			continue
		}
		speed[i] = dist[i] / times[i]
	}
	df = models.WithFloats(df, ColSpeedMps, speed)

	if !models.HasColumn(df, models.ColRaceID) {
		return df
	}
	_, groups := models.RaceGroups(df)
	df = models.WithFloats(df, ColSpeedRankInRace, rankWithinGroups(speed, groups, false))

	diff := make([]float64, len(speed))
	for _, rows := range groups {
		sum, count := 0.0, 0
		for _, r := range rows {
			if !math.IsNaN(speed[r]) {
				sum += speed[r]
				count++
			}
		}
		mean := math.NaN()
		if count > 0 {
			mean = sum / float64(count)
		}
		for _, r := range rows {
			diff[r] = speed[r] - mean
		}
	}
	return models.WithFloats(df, ColSpeedDiffFromMean, diff)
}

func rankWithinGroups(values []float64, groups map[string][]int, ascending bool) []float64 {
	ranks := make([]float64, len(values))
	for _, rows := range groups {
		sub := make([]float64, len(rows))
		for i, r := range rows {
			sub[i] = values[r]
		}
		for i, rank := range CompetitionRank(sub, ascending) {
			ranks[rows[i]] = rank
		}
	}
	return ranks
}

// CompetitionRank ranks values so ties share the lowest rank of their block
// and the next distinct value skips ahead (1, 2, 2, 4). Missing values stay
// unranked (NaN).
func CompetitionRank(values []float64, ascending bool) []float64 {
	ranks := make([]float64, len(values))
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			ranks[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		if ascending {
			return values[idx[a]] < values[idx[b]]
		}
		return values[idx[a]] > values[idx[b]]
	})

	for pos, i := range idx {
		if pos > 0 && values[i] == values[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = float64(pos + 1)
	}
	return ranks
}
