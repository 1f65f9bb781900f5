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
	"sort"
	"time"

	"github.com/penny-vault/seasonality/dataframe"
)

// Point is a single daily close observation
type Point struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Series is the close price history of one instrument. Dates are truncated to midnight UTC,
// unique, and sorted ascending; every lookup relies on that ordering
type Series struct {
	points []Point
}

// NewSeries builds a series from points in any order. When two points share a date the one
// that appears last wins
func NewSeries(points []Point) *Series {
	normalized := make([]Point, len(points))
	for idx, pt := range points {
		normalized[idx] = Point{Date: truncateDay(pt.Date), Close: pt.Close}
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Date.Before(normalized[j].Date)
	})

	unique := normalized[:0]
	for _, pt := range normalized {
		if n := len(unique); n > 0 && unique[n-1].Date.Equal(pt.Date) {
			unique[n-1] = pt
			continue
		}
		unique = append(unique, pt)
	}

	return &Series{points: unique}
}

// SeriesFromDataFrame extracts the field column of df as a Series. ErrMissingField is returned
// if df has no such column. NaN values are kept so that a year anchored on them is skipped
// rather than silently shifted
func SeriesFromDataFrame(df *dataframe.DataFrame[time.Time], field string) (*Series, error) {
	if df == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	col, err := df.Column(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	points := make([]Point, len(df.Index))
	for idx, dt := range df.Index {
		points[idx] = Point{Date: dt, Close: col[idx]}
	}

	return NewSeries(points), nil
}

// Len returns the number of observations in the series
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Points returns a copy of the observations
func (s *Series) Points() []Point {
	points := make([]Point, s.Len())
	if s != nil {
		copy(points, s.points)
	}
	return points
}

// Start returns the first date of the series
func (s *Series) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.points[0].Date
}

// End returns the last date of the series
func (s *Series) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.points[len(s.points)-1].Date
}

// Years returns every calendar year with at least one observation, ascending
func (s *Series) Years() []int {
	years := make([]int, 0)
	for _, pt := range s.Points() {
		year := pt.Date.Year()
		if n := len(years); n == 0 || years[n-1] != year {
			years = append(years, year)
		}
	}
	return years
}

// Close returns the close price observed on date
func (s *Series) Close(date time.Time) (float64, bool) {
	idx := s.search(date)
	if idx < s.Len() && s.points[idx].Date.Equal(date) {
		return s.points[idx].Close, true
	}
	return 0, false
}

// search returns the index of the first point on or after date
func (s *Series) search(date time.Time) int {
	return sort.Search(s.Len(), func(i int) bool {
		return !s.points[i].Date.Before(date)
	})
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
