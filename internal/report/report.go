// Package report renders ranked races for the terminal and exports them to files.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/keiba-predictor/internal/ml"
	"github.com/yourusername/keiba-predictor/internal/models"
)

// ErrUnsupportedFormat is returned by Export for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const sheetName = "Sheet1"

// Pick is one of the three highlighted runners.
type Pick struct {
	Mark        string
	Label       string
	HorseNum    string
	Probability float64
}

var pickMarks = []struct{ mark, label string }{
	{"◎", "本命"},
	{"○", "対抗"},
	{"▲", "単穴"},
}

// optionalColumns are shown when present, between the horse number and the probability.
var optionalColumns = []string{
	models.ColHorseName,
	models.ColJockeyID,
	models.ColWinOdds,
	models.ColPopularity,
}

// Leaderboard is a race ranked by win probability.
type Leaderboard struct {
	RaceID string
	Table  dataframe.DataFrame
}

// NewLeaderboard wraps the output of Predictor.PredictRace.
func NewLeaderboard(raceID string, ranked dataframe.DataFrame) *Leaderboard {
	return &Leaderboard{RaceID: raceID, Table: ranked}
}

// DisplayColumns returns the columns printed for the race.
func (l *Leaderboard) DisplayColumns() []string {
	cols := []string{ml.ColPredictionRank, models.ColHorseNum}
	for _, c := range optionalColumns {
		if models.HasColumn(l.Table, c) {
			cols = append(cols, c)
		}
	}
	return append(cols, ml.ColWinProbability)
}

// Picks returns ◎, ○ and ▲ for the top one, two or three runners.
func (l *Leaderboard) Picks() []Pick {
	probs := models.FloatColumn(l.Table, ml.ColWinProbability)
	nums := columnStrings(l.Table, models.ColHorseNum)

	var picks []Pick
	for i, m := range pickMarks {
		if i >= len(probs) || i >= len(nums) {
			break
		}
		picks = append(picks, Pick{Mark: m.mark, Label: m.label, HorseNum: nums[i], Probability: probs[i]})
	}
	return picks
}

// Write prints the ranked table followed by the picks.
func (l *Leaderboard) Write(w io.Writer) error {
	rule := strings.Repeat("=", 60)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nレースID: %s  予測結果（勝利確率順）\n%s\n", rule, l.RaceID, rule)

	cols := l.DisplayColumns()
	cells := make([][]string, len(cols))
	for j, c := range cols {
		if c == ml.ColWinProbability {
			for _, p := range models.FloatColumn(l.Table, c) {
				cells[j] = append(cells[j], fmt.Sprintf("%.4f", p))
			}
			continue
		}
		cells[j] = columnStrings(l.Table, c)
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")
	for i := 0; i < l.Table.Nrow(); i++ {
		row := make([]string, len(cols))
		for j := range cols {
			if i < len(cells[j]) {
				row[j] = cells[j][i]
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(&b, rule)

	if picks := l.Picks(); len(picks) > 0 {
		fmt.Fprintln(&b)
		for _, p := range picks {
			fmt.Fprintf(&b, "%s%s: 馬番%s (勝利確率: %.1f%%)\n", p.Mark, p.Label, p.HorseNum, p.Probability*100)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Export writes df to path as CSV or XLSX depending on the extension.
func Export(path string, df dataframe.DataFrame) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteCSV(path, df)
	case ".xlsx":
		return WriteXLSX(path, df)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// WriteCSV writes df with a header row.
func WriteCSV(path string, df dataframe.DataFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return f.Close()
}

// WriteXLSX writes df to the first sheet, keeping numeric columns numeric.
func WriteXLSX(path string, df dataframe.DataFrame) error {
	f := excelize.NewFile()
	defer f.Close()

	for j, name := range df.Names() {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}

		col := df.Col(name)
		numeric := col.Type() == series.Float || col.Type() == series.Int
		var values []float64
		if numeric {
			values = col.Float()
		}
		for i, rec := range col.Records() {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			var v interface{} = rec
			if numeric {
				if col.Elem(i).IsNA() {
					continue
				}
				v = values[i]
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// columnStrings renders a column as text, with integral floats printed without decimals.
func columnStrings(df dataframe.DataFrame, name string) []string {
	if !models.HasColumn(df, name) {
		return nil
	}
	col := df.Col(name)
	if col.Type() != series.Float {
		return col.Records()
	}
	out := make([]string, col.Len())
	for i, v := range col.Float() {
		switch {
		case col.Elem(i).IsNA():
			out[i] = "-"
		case v == float64(int64(v)):
			out[i] = fmt.Sprintf("%d", int64(v))
		default:
			out[i] = fmt.Sprintf("%.1f", v)
		}
	}
	return out
}
