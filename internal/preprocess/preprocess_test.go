package preprocess

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-predictor/internal/datasource"
	"github.com/yourusername/keiba-predictor/internal/models"
)

func rawTable() dataframe.DataFrame {
	nan := math.NaN()
	return dataframe.New(
		series.New([]string{"R1", "R1", "R1", "R1"}, series.String, models.ColRaceID),
		series.New([]string{"芝", "ダート", "障害", "砂"}, series.String, models.ColTrackType),
		series.New([]string{"良", "不良", "稍重", ""}, series.String, models.ColTrackCondition),
		series.New([]string{"牡", "牝", "騸", "?"}, series.String, models.ColSex),
		series.New([]string{"480", "abc", "500", "460"}, series.String, models.ColHorseWeight),
		series.New([]float64{2, nan, nan, 6}, series.Float, models.ColAge),
		series.New([]float64{1600, 1600, 1600, 1600}, series.Float, models.ColDistance),
		series.New([]float64{1, 2, 3, 4}, series.Float, models.ColFinishPosition),
	)
}

func TestTransformEncodesCategories(t *testing.T) {
	out, err := New(nil).Transform(rawTable())
	require.NoError(t, err)

	track, err := out.Col(ColTrackTypeEnc).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, UnknownCategory}, track)

	cond, err := out.Col(ColTrackConditionEnc).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 1, UnknownCategory}, cond)

	sex, err := out.Col(ColSexEnc).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, UnknownCategory}, sex)
}

func TestTransformImputesMedian(t *testing.T) {
	out, err := New(nil).Transform(rawTable())
	require.NoError(t, err)

	// "abc" is coerced to missing and filled with median(480, 500, 460)
	assert.Equal(t, []float64{480, 480, 500, 460}, models.FloatColumn(out, models.ColHorseWeight))
	// even count median averages the middle values
	assert.Equal(t, []float64{2, 4, 4, 6}, models.FloatColumn(out, models.ColAge))
}

func TestTransformDerivesDistanceAndLabels(t *testing.T) {
	out, err := New(nil).Transform(rawTable())
	require.NoError(t, err)

	assert.Equal(t, []float64{1.6, 1.6, 1.6, 1.6}, models.FloatColumn(out, ColDistanceKm))

	win, err := out.Col(ColIsWin).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0}, win)

	top3, err := out.Col(ColIsTop3).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 0}, top3)
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	in := rawTable()
	before := in.Records()

	_, err := New(nil).Transform(in)
	require.NoError(t, err)

	assert.Equal(t, before, in.Records())
	assert.False(t, models.HasColumn(in, ColIsWin))
}

func TestTransformSkipsAbsentColumns(t *testing.T) {
	in := dataframe.New(
		series.New([]string{"R1", "R2"}, series.String, models.ColRaceID),
		series.New([]float64{3.2, math.NaN()}, series.Float, models.ColWinOdds),
	)

	out, err := New(nil).Transform(in)
	require.NoError(t, err)

	assert.Equal(t, []float64{3.2, 3.2}, models.FloatColumn(out, models.ColWinOdds))
	assert.False(t, models.HasColumn(out, ColIsWin))
	assert.False(t, models.HasColumn(out, ColDistanceKm))
	assert.False(t, models.HasColumn(out, ColSexEnc))
}

func TestTransformAllMissingColumnFilledWithZero(t *testing.T) {
	in := dataframe.New(
		series.New([]string{"R1", "R1"}, series.String, models.ColRaceID),
		series.New([]float64{math.NaN(), math.NaN()}, series.Float, models.ColJockeyWinRate),
	)

	out, err := New(nil).Transform(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, models.FloatColumn(out, models.ColJockeyWinRate))
}

func TestTransformNoMissingFeatures(t *testing.T) {
	gen := datasource.NewSyntheticGenerator(10, 5)
	entries := gen.Entries()
	// punch holes into every imputed column
	for i := range entries {
		if i%3 == 0 {
			entries[i].HorseWeight = math.NaN()
			entries[i].PastTop3Rate = math.NaN()
			entries[i].Popularity = math.NaN()
		}
		if i%4 == 0 {
			entries[i].DaysSinceLastRace = math.NaN()
			entries[i].HorseWeightDiff = math.NaN()
		}
	}

	out, err := New(nil).Transform(datasource.FromEntries(entries))
	require.NoError(t, err)

	for _, col := range FeatureColumns() {
		values := models.FloatColumn(out, col)
		require.NotNil(t, values, col)
		for i, v := range values {
			assert.False(t, math.IsNaN(v), "%s row %d is missing", col, i)
		}
	}
}

func TestFeatureColumnsAndTarget(t *testing.T) {
	cols := FeatureColumns()
	assert.Len(t, cols, 13)
	assert.Equal(t, models.ColHorseWeight, cols[0])
	assert.Equal(t, models.ColPopularity, cols[12])
	assert.Equal(t, "is_win", TargetColumn())
}

func TestMedian(t *testing.T) {
	m, ok := Median([]float64{3, math.NaN(), 1, 2})
	assert.True(t, ok)
	assert.Equal(t, 2.0, m)

	_, ok = Median([]float64{math.NaN()})
	assert.False(t, ok)

	_, ok = Median(nil)
	assert.False(t, ok)
}
