// Package preprocess turns raw race entries into model-ready columns.
package preprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-predictor/internal/models"
)

// Derived column names.
const (
	ColTrackTypeEnc      = "track_type_enc"
	ColTrackConditionEnc = "track_condition_enc"
	ColSexEnc            = "sex_enc"
	ColDistanceKm        = "distance_km"
	ColIsWin             = "is_win"
	ColIsTop3            = "is_top3"
)

// UnknownCategory is the code for values outside a category map.
const UnknownCategory = -1

var (
	TrackTypeCodes      = map[string]int{"芝": 0, "ダート": 1, "障害": 2}
	TrackConditionCodes = map[string]int{"良": 0, "稍重": 1, "重": 2, "不良": 3}
	SexCodes            = map[string]int{"牡": 0, "牝": 1, "騸": 2}
)

// NumericColumns are coerced to float and median-imputed.
var NumericColumns = []string{
	models.ColHorseWeight,
	models.ColHorseWeightDiff,
	models.ColAge,
	models.ColPostPosition,
	models.ColDistance,
	models.ColDaysSinceLastRace,
	models.ColPastTop3Rate,
	models.ColJockeyWinRate,
	models.ColTrainerWinRate,
	models.ColWinOdds,
	models.ColPopularity,
}

// ErrInvalidTable is returned for a table carrying a construction error.
var ErrInvalidTable = errors.New("invalid input table")

// FeatureColumns returns the base model features in their fixed order.
func FeatureColumns() []string {
	return []string{
		models.ColHorseWeight,
		models.ColHorseWeightDiff,
		models.ColAge,
		ColSexEnc,
		models.ColPostPosition,
		ColDistanceKm,
		ColTrackTypeEnc,
		ColTrackConditionEnc,
		models.ColDaysSinceLastRace,
		models.ColPastTop3Rate,
		models.ColJockeyWinRate,
		models.ColTrainerWinRate,
		models.ColPopularity,
	}
}

// TargetColumn returns the label the predictor learns.
func TargetColumn() string {
	return ColIsWin
}

// Preprocessor encodes categories, imputes numeric gaps and derives labels.
type Preprocessor struct {
	logger *logrus.Entry
}

// New creates a preprocessor. A nil logger discards output.
func New(log *logrus.Logger) *Preprocessor {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Preprocessor{logger: log.WithField("component", "preprocess")}
}

// Transform returns a new table; df is left untouched. Columns that are
// absent are skipped.
func (p *Preprocessor) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrInvalidTable, df.Err)
	}
	if df.Ncol() == 0 {
		return df, nil
	}
	out := df

	out = encode(out, models.ColTrackType, ColTrackTypeEnc, TrackTypeCodes)
	out = encode(out, models.ColTrackCondition, ColTrackConditionEnc, TrackConditionCodes)
	out = encode(out, models.ColSex, ColSexEnc, SexCodes)

	for _, col := range NumericColumns {
		values := models.FloatColumn(out, col)
		if values == nil {
			continue
		}
		filled, _, ok := imputeMedian(values)
		if !ok {
			p.logger.WithField("column", col).Warn("Column has no numeric values, filling with 0")
		}
		out = models.WithFloats(out, col, filled)
	}

	if dist := models.FloatColumn(out, models.ColDistance); dist != nil {
		km := make([]float64, len(dist))
		for i, d := range dist {
			km[i] = d / 1000.0
		}
		out = models.WithFloats(out, ColDistanceKm, km)
	}

	if finish := models.FloatColumn(out, models.ColFinishPosition); finish != nil {
		win := make([]int, len(finish))
		top3 := make([]int, len(finish))
		for i, pos := range finish {
			if pos == 1 {
				win[i] = 1
			}
			if !math.IsNaN(pos) && pos <= 3 {
				top3[i] = 1
			}
		}
		out = models.WithInts(out, ColIsWin, win)
		out = models.WithInts(out, ColIsTop3, top3)
	}

	if out.Err != nil {
		return dataframe.DataFrame{}, out.Err
	}
	p.logger.WithFields(logrus.Fields{"rows": out.Nrow(), "columns": out.Ncol()}).Debug("Preprocessing complete")
	return out, nil
}

func encode(df dataframe.DataFrame, src, dst string, codes map[string]int) dataframe.DataFrame {
	values := models.StringColumn(df, src)
	if values == nil {
		return df
	}
	enc := make([]int, len(values))
	for i, v := range values {
		code, ok := codes[v]
		if !ok {
			code = UnknownCategory
		}
		enc[i] = code
	}
	return models.WithInts(df, dst, enc)
}

// imputeMedian replaces NaN with the median of the non-NaN values. When no
// value is present every cell becomes 0 and ok is false.
func imputeMedian(values []float64) (filled []float64, median float64, ok bool) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	filled = make([]float64, len(values))
	if len(present) == 0 {
		return filled, 0, len(values) == 0
	}

	median, err := stats.Median(present)
	if err != nil {
		return filled, 0, false
	}
	for i, v := range values {
		if math.IsNaN(v) {
			filled[i] = median
		} else {
			filled[i] = v
		}
	}
	return filled, median, true
}

// Median returns the median of the non-missing values, ok false when none.
func Median(values []float64) (float64, bool) {
	_, median, ok := imputeMedian(values)
	return median, ok && len(values) > 0
}
