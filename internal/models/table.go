package models

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// HasColumn reports whether df carries the named column.
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// HasColumns reports whether df carries every named column.
func HasColumns(df dataframe.DataFrame, names ...string) bool {
	for _, name := range names {
		if !HasColumn(df, name) {
			return false
		}
	}
	return true
}

// FloatColumn returns the column as float64 values, NaN where missing or
// unparsable. A missing column yields nil.
func FloatColumn(df dataframe.DataFrame, name string) []float64 {
	if !HasColumn(df, name) {
		return nil
	}
	return df.Col(name).Float()
}

// StringColumn returns the column as strings. A missing column yields nil.
func StringColumn(df dataframe.DataFrame, name string) []string {
	if !HasColumn(df, name) {
		return nil
	}
	return df.Col(name).Records()
}

// WithFloats returns a copy of df with the column added or replaced.
func WithFloats(df dataframe.DataFrame, name string, values []float64) dataframe.DataFrame {
	return df.Mutate(series.New(values, series.Float, name))
}

// WithInts returns a copy of df with an integer column added or replaced.
func WithInts(df dataframe.DataFrame, name string, values []int) dataframe.DataFrame {
	return df.Mutate(series.New(values, series.Int, name))
}

// RaceGroups returns row indices grouped by race id, groups in order of
// first appearance and rows in table order within each group.
func RaceGroups(df dataframe.DataFrame) (order []string, groups map[string][]int) {
	ids := StringColumn(df, ColRaceID)
	groups = make(map[string][]int)
	for i, id := range ids {
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}
	return order, groups
}

// FilterRace returns the rows of a single race in table order.
func FilterRace(df dataframe.DataFrame, raceID string) dataframe.DataFrame {
	_, groups := RaceGroups(df)
	rows, ok := groups[raceID]
	if !ok {
		return dataframe.DataFrame{}
	}
	return df.Subset(rows)
}

// IsMissing reports whether v is a missing numeric value.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
