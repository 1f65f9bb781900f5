// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataframe

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// New creates an empty dataframe with the specified columns
func New[T Index](colNames ...string) *DataFrame[T] {
	df := &DataFrame[T]{
		Index:    make([]T, 0),
		ColNames: make([]string, len(colNames)),
		Vals:     make([][]float64, len(colNames)),
	}

	copy(df.ColNames, colNames)
	for idx := range df.Vals {
		df.Vals[idx] = make([]float64, 0)
	}

	return df
}

// ColIndex returns the index of the specified column; returns -1 if column doesn't exist
func (df *DataFrame[T]) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame[T]) ColCount() int {
	return len(df.ColNames)
}

// Column returns the values stored in colName. If the column does not exist
// ErrColumnNotFound is returned
func (df *DataFrame[T]) Column(colName string) ([]float64, error) {
	colIdx := df.ColIndex(colName)
	if colIdx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, colName)
	}

	return df.Vals[colIdx], nil
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame[T]) Copy() *DataFrame[T] {
	df2 := &DataFrame[T]{
		IndexName: df.IndexName,
		ColNames:  make([]string, len(df.ColNames)),
		Index:     make([]T, len(df.Index)),
		Vals:      make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Index, df.Index)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// End returns the last time in the DataFrame
func (df *DataFrame[T]) End() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if lastDate, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
		return lastDate
	}

	return time.Time{}
}

// Insert a new column to the end of the dataframe. The column must have the same
// length as the index
func (df *DataFrame[T]) Insert(name string, col []float64) error {
	if len(col) != len(df.Index) {
		return fmt.Errorf("%w: column %s has %d rows, index has %d", ErrColumnLength, name, len(col), len(df.Index))
	}

	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return nil
}

// InsertRow adds a new row to the dataframe. Index must be after the last index in the dataframe and vals must
// equal the number of columns. If either of these conditions are not met then panic
func (df *DataFrame[T]) InsertRow(idx T, vals ...float64) *DataFrame[T] {
	if len(df.Index) != 0 && !indexLess(df.Index[len(df.Index)-1], idx) {
		log.Panic().Str("LastIndex", indexString(df.Index[len(df.Index)-1])).Str("NewIndex", indexString(idx)).Msg("new index must be after last index")
	}

	if len(vals) != len(df.ColNames) {
		log.Panic().Int("NumValsPassed", len(vals)).Int("NumColumns", len(df.ColNames)).Msg("number of vals passed must equal number of columns")
	}

	df.Index = append(df.Index, idx)
	for colIdx := range df.ColNames {
		df.Vals[colIdx] = append(df.Vals[colIdx], vals[colIdx])
	}

	return df
}

// Len returns the number of rows in the dataframe
func (df *DataFrame[T]) Len() int {
	return len(df.Index)
}

// Sort returns a new dataframe ordered by index. Rows with equal index keep their relative order
func (df *DataFrame[T]) Sort() *DataFrame[T] {
	perm := make([]int, len(df.Index))
	for ii := range perm {
		perm[ii] = ii
	}

	sort.SliceStable(perm, func(i, j int) bool {
		return indexLess(df.Index[perm[i]], df.Index[perm[j]])
	})

	sorted := &DataFrame[T]{
		IndexName: df.IndexName,
		ColNames:  df.ColNames,
		Index:     make([]T, len(perm)),
		Vals:      make([][]float64, len(df.Vals)),
	}

	for newIdx, oldIdx := range perm {
		sorted.Index[newIdx] = df.Index[oldIdx]
	}

	for colIdx, col := range df.Vals {
		sorted.Vals[colIdx] = make([]float64, len(perm))
		for newIdx, oldIdx := range perm {
			sorted.Vals[colIdx][newIdx] = col[oldIdx]
		}
	}

	return sorted
}

// Start returns the first date of the dataframe
func (df *DataFrame[T]) Start() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if firstDate, ok := any(df.Index[0]).(time.Time); ok {
		return firstDate
	}

	return time.Time{}
}

// Table renders the dataframe as an ASCII formatted table. Missing values (NaN) are left blank
func (df *DataFrame[T]) Table() string {
	if len(df.Index) == 0 {
		return "<NO DATA>" // nothing to do as there is no data available in the dataframe
	}

	indexName := df.IndexName
	if indexName == "" {
		indexName = "Index"
	}

	// construct table header
	tableCols := append([]string{indexName}, df.ColNames...)

	// initialize table
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for idx, rowIdx := range df.Index {
		row := make([]string, 0, len(df.Vals)+1)
		row = append(row, indexString(rowIdx))

		for _, col := range df.Vals {
			if math.IsNaN(col[idx]) {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%.2f", col[idx]))
		}

		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim returns a new dataframe restricted to the specified date range (inclusive)
// NOTE: If T is not time.Time then the dataframe is returned unchanged
func (df *DataFrame[T]) Trim(begin, end time.Time) *DataFrame[T] {
	df2 := &DataFrame[T]{
		IndexName: df.IndexName,
		ColNames:  df.ColNames,
		Index:     []T{},
		Vals:      make([][]float64, len(df.Vals)),
	}

	for colIdx := range df2.Vals {
		df2.Vals[colIdx] = []float64{}
	}

	// special case 0: requested range is invalid
	if end.Before(begin) {
		return df2
	}

	// special case 1: data frame is empty
	if df.Len() == 0 {
		return df2
	}

	// ensure that index is a date index
	if _, ok := any(df.Index[0]).(time.Time); !ok {
		return df
	}

	// Use binary search to find the index corresponding to the start and end times
	beginIdx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return !idxVal.Before(begin)
	})

	endIdx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return idxVal.After(end)
	})

	if beginIdx >= endIdx {
		return df2
	}

	df2.Index = df.Index[beginIdx:endIdx]
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}

func indexLess[T Index](a, b T) bool {
	switch aa := any(a).(type) {
	case time.Time:
		return aa.Before(any(b).(time.Time))
	case string:
		return aa < any(b).(string)
	}
	return false
}

func indexString[T Index](idx T) string {
	switch val := any(idx).(type) {
	case time.Time:
		return val.Format("2006-01-02")
	case string:
		return val
	}
	return ""
}
