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

package seasonal

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/penny-vault/seasonality/dataframe"
)

// InstrumentOutcome records why an instrument was left out of a table
type InstrumentOutcome struct {
	Instrument string
	Err        error
}

func (o InstrumentOutcome) String() string {
	return fmt.Sprintf("%s: %s", o.Instrument, o.Err)
}

// Table is the sparse cross-sector result of a seasonal window: one row per instrument that
// produced at least one valid year, one column per year. Rows are ordered ascending by
// instrument and columns descending by year
type Table struct {
	Start   MonthDay
	End     MonthDay
	Rows    map[string]YearReturns
	Skipped []InstrumentOutcome
}

// NewTable returns an empty table for the given window
func NewTable(start, end MonthDay) *Table {
	return &Table{
		Start:   start,
		End:     end,
		Rows:    make(map[string]YearReturns),
		Skipped: make([]InstrumentOutcome, 0),
	}
}

// Add inserts the computed returns of instrument. An instrument without a single valid year is
// recorded in Skipped instead of producing an all-missing row
func (t *Table) Add(instrument string, returns YearReturns) {
	if len(returns) == 0 {
		t.Skip(instrument, ErrNoReturns)
		return
	}

	row := make(YearReturns, len(returns))
	for year, val := range returns {
		row[year] = val
	}
	t.Rows[instrument] = row
}

// Skip records that instrument was excluded because of err
func (t *Table) Skip(instrument string, err error) {
	t.Skipped = append(t.Skipped, InstrumentOutcome{Instrument: instrument, Err: err})
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Instruments returns the row labels in ascending order
func (t *Table) Instruments() []string {
	instruments := make([]string, 0, len(t.Rows))
	for instrument := range t.Rows {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)
	return instruments
}

// Years returns the union of years across all rows in descending order
func (t *Table) Years() []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, row := range t.Rows {
		for year := range row {
			if !seen[year] {
				seen[year] = true
				years = append(years, year)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Get returns the return of instrument in year; ok is false when the cell is missing
func (t *Table) Get(instrument string, year int) (val float64, ok bool) {
	row, ok := t.Rows[instrument]
	if !ok {
		return 0, false
	}
	val, ok = row[year]
	return
}

// Row returns the year returns of instrument
func (t *Table) Row(instrument string) (YearReturns, bool) {
	row, ok := t.Rows[instrument]
	return row, ok
}

// DataFrame densifies the table for display. Missing cells are NaN
func (t *Table) DataFrame() *dataframe.DataFrame[string] {
	years := t.Years()
	colNames := make([]string, len(years))
	for idx, year := range years {
		colNames[idx] = strconv.Itoa(year)
	}

	df := dataframe.New[string](colNames...)
	df.IndexName = "Sector"
	for _, instrument := range t.Instruments() {
		row := t.Rows[instrument]
		vals := make([]float64, len(years))
		for idx, year := range years {
			if val, ok := row[year]; ok {
				vals[idx] = val
			} else {
				vals[idx] = math.NaN()
			}
		}
		df.InsertRow(instrument, vals...)
	}

	return df
}

type tableRowJSON struct {
	Instrument string          `json:"instrument"`
	Returns    map[int]float64 `json:"returns"`
}

type tableJSON struct {
	Start   MonthDay       `json:"start"`
	End     MonthDay       `json:"end"`
	Years   []int          `json:"years"`
	Rows    []tableRowJSON `json:"rows"`
	Skipped []string       `json:"skipped,omitempty"`
}

// MarshalJSON encodes the table with rows and years in display order. Missing cells are
// omitted rather than encoded as NaN, which JSON cannot represent
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Start: t.Start,
		End:   t.End,
		Years: t.Years(),
		Rows:  make([]tableRowJSON, 0, len(t.Rows)),
	}

	for _, instrument := range t.Instruments() {
		out.Rows = append(out.Rows, tableRowJSON{Instrument: instrument, Returns: t.Rows[instrument]})
	}

	for _, skipped := range t.Skipped {
		out.Skipped = append(out.Skipped, skipped.String())
	}

	return json.Marshal(out)
}
