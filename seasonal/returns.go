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

	"github.com/rs/zerolog/log"
)

// YearReturns maps a calendar year to the percentage return of the seasonal window in that
// year. Years that could not be computed are absent
type YearReturns map[int]float64

// Years returns the years present in the map, ascending
func (yr YearReturns) Years() []int {
	years := make([]int, 0, len(yr))
	for year := range yr {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Values returns the returns ordered by ascending year
func (yr YearReturns) Values() []float64 {
	vals := make([]float64, 0, len(yr))
	for _, year := range yr.Years() {
		vals = append(vals, yr[year])
	}
	return vals
}

// YearOutcome records why a year was left out of a computation
type YearOutcome struct {
	Year int
	Err  error
}

func (o YearOutcome) String() string {
	return fmt.Sprintf("%d: %s", o.Year, o.Err)
}

// Computation is the result of evaluating a seasonal window against one series
type Computation struct {
	Returns YearReturns
	Skipped []YearOutcome
}

// Compute evaluates the start..end window for every calendar year present in series. A year
// fails independently of its siblings: the reason is appended to Skipped and the year is
// omitted from Returns.
//
// A year is skipped when its start date falls after the last observation in the series. The
// end date is not checked, so a window that starts inside the data but ends past it resolves
// its end to the nearest available date.
func Compute(series *Series, start, end MonthDay) *Computation {
	comp := &Computation{
		Returns: make(YearReturns),
		Skipped: make([]YearOutcome, 0),
	}

	for _, year := range series.Years() {
		ret, err := yearReturn(series, start, end, year)
		if err != nil {
			log.Debug().Int("Year", year).Stringer("Start", start).Stringer("End", end).Err(err).Msg("skipping year")
			comp.Skipped = append(comp.Skipped, YearOutcome{Year: year, Err: err})
			continue
		}
		comp.Returns[year] = ret
	}

	return comp
}

// PeriodReturns is Compute without the skipped year outcomes
func PeriodReturns(series *Series, start, end MonthDay) YearReturns {
	return Compute(series, start, end).Returns
}

func yearReturn(series *Series, start, end MonthDay, year int) (float64, error) {
	startCandidate, err := start.In(year)
	if err != nil {
		return 0, err
	}

	if startCandidate.After(series.End()) {
		return 0, fmt.Errorf("%w: %s > %s", ErrSeasonNotStarted, startCandidate.Format("2006-01-02"), series.End().Format("2006-01-02"))
	}

	endCandidate, err := end.In(year)
	if err != nil {
		return 0, err
	}

	startDate, err := Resolve(series, startCandidate)
	if err != nil {
		return 0, err
	}

	endDate, err := Resolve(series, endCandidate)
	if err != nil {
		return 0, err
	}

	startClose, _ := series.Close(startDate)
	endClose, _ := series.Close(endDate)

	if !isFinite(startClose) || !isFinite(endClose) {
		return 0, fmt.Errorf("%w: start=%v end=%v", ErrNonFinitePrice, startClose, endClose)
	}

	if startClose == 0 {
		return 0, fmt.Errorf("%w: %s", ErrZeroPrice, startDate.Format("2006-01-02"))
	}

	return round2((endClose - startClose) / startClose * 100), nil
}

func isFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// round2 rounds to two decimal places, half away from zero
func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
