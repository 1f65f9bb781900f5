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
	"math"
	"sort"

	"github.com/goccy/go-json"
	"github.com/penny-vault/seasonality/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Weights of the composite strength score. They sum to one
const (
	WeightReturn      = 0.4
	WeightConsistency = 0.3
	WeightVolatility  = 0.3
)

// Strength summarizes one row of a seasonal table
type Strength struct {
	Instrument    string  `json:"instrument"`
	AverageReturn float64 `json:"averageReturn"`
	WinRate       float64 `json:"winRate"`
	Volatility    float64 `json:"volatility"`
	Score         float64 `json:"score"`
	Years         int     `json:"years"`
}

// HasVolatility reports whether the row has enough years for a sample standard deviation
func (s Strength) HasVolatility() bool {
	return s.Years > 1
}

type strengthJSON struct {
	Instrument    string   `json:"instrument"`
	AverageReturn float64  `json:"averageReturn"`
	WinRate       float64  `json:"winRate"`
	Volatility    *float64 `json:"volatility"`
	Score         float64  `json:"score"`
	Years         int      `json:"years"`
}

// MarshalJSON encodes an undefined volatility as null
func (s Strength) MarshalJSON() ([]byte, error) {
	out := strengthJSON{
		Instrument:    s.Instrument,
		AverageReturn: s.AverageReturn,
		WinRate:       s.WinRate,
		Score:         s.Score,
		Years:         s.Years,
	}
	if !math.IsNaN(s.Volatility) {
		vol := s.Volatility
		out.Volatility = &vol
	}
	return json.Marshal(out)
}

// StrengthSummary is ordered by descending Score, rows without a volatility last
type StrengthSummary []Strength

// Score ranks every instrument in table by a composite of its normalized average return
// (WeightReturn), its win rate (WeightConsistency) and its inverted normalized volatility
// (WeightVolatility), scaled to 0..100. Average return and volatility are min-max normalized
// across the table; when every instrument shares the same value the range is taken as 1 so
// the axis contributes equally to all of them.
//
// Volatility is the sample standard deviation. An instrument with a single year has no
// dispersion estimate: its Volatility is NaN, it is left out of the volatility range, its
// volatility term contributes nothing and it ranks after every instrument that has one
func Score(table *Table) StrengthSummary {
	instruments := table.Instruments()
	summary := make(StrengthSummary, len(instruments))
	if len(instruments) == 0 {
		return summary
	}

	avgs := make([]float64, len(instruments))
	vols := make([]float64, 0, len(instruments))

	for idx, instrument := range instruments {
		returns := table.Rows[instrument].Values()

		wins := 0
		for _, ret := range returns {
			if ret > 0 {
				wins++
			}
		}

		avgs[idx] = stat.Mean(returns, nil)
		vol := math.NaN()
		if len(returns) > 1 {
			vol = stat.StdDev(returns, nil)
			vols = append(vols, vol)
		}

		summary[idx] = Strength{
			Instrument:    instrument,
			AverageReturn: avgs[idx],
			WinRate:       float64(wins) / float64(len(returns)) * 100,
			Volatility:    vol,
			Years:         len(returns),
		}
	}

	minAvg, avgRange := minAndRange(avgs)
	minVol, volRange := minAndRange(vols)

	for idx := range summary {
		avgNorm := (avgs[idx] - minAvg) / avgRange
		winNorm := summary[idx].WinRate / 100
		volNorm := 0.0
		if summary[idx].HasVolatility() {
			volNorm = 1 - (summary[idx].Volatility-minVol)/volRange
		}
		summary[idx].Score = (avgNorm*WeightReturn + winNorm*WeightConsistency + volNorm*WeightVolatility) * 100
	}

	sort.SliceStable(summary, func(i, j int) bool {
		if summary[i].HasVolatility() != summary[j].HasVolatility() {
			return summary[i].HasVolatility()
		}
		return summary[i].Score > summary[j].Score
	})

	return summary
}

// minAndRange returns the minimum of vals and the spread between the maximum and minimum. A
// zero spread, or no values at all, is reported as 1
func minAndRange(vals []float64) (lowest, spread float64) {
	if len(vals) == 0 {
		return 0, 1
	}
	lowest = floats.Min(vals)
	spread = floats.Max(vals) - lowest
	if spread == 0 {
		spread = 1
	}
	return
}

// Get returns the strength of instrument
func (s StrengthSummary) Get(instrument string) (Strength, bool) {
	for _, strength := range s {
		if strength.Instrument == instrument {
			return strength, true
		}
	}
	return Strength{}, false
}

// DataFrame returns the summary in rank order for display
func (s StrengthSummary) DataFrame() *dataframe.DataFrame[string] {
	df := &dataframe.DataFrame[string]{
		IndexName: "Sector",
		ColNames:  []string{"Average Return", "Win Rate %", "Volatility (Std Dev)", "Strength Score"},
		Index:     make([]string, len(s)),
		Vals:      make([][]float64, 4),
	}

	for colIdx := range df.Vals {
		df.Vals[colIdx] = make([]float64, len(s))
	}

	for idx, strength := range s {
		df.Index[idx] = strength.Instrument
		df.Vals[0][idx] = strength.AverageReturn
		df.Vals[1][idx] = strength.WinRate
		df.Vals[2][idx] = strength.Volatility
		df.Vals[3][idx] = strength.Score
	}

	return df
}
