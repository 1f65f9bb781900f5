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

package seasonal_test

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/seasonality/seasonal"
)

func tableOf(rows map[string]seasonal.YearReturns) *seasonal.Table {
	table := seasonal.NewTable(seasonal.MustMonthDay(time.January, 1), seasonal.MustMonthDay(time.June, 1))
	for instrument, returns := range rows {
		table.Add(instrument, returns)
	}
	return table
}

var _ = Describe("Strength", func() {
	It("uses weights that sum to one", func() {
		Expect(seasonal.WeightReturn + seasonal.WeightConsistency + seasonal.WeightVolatility).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("ranks the higher average return first", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 10},
			"B": {2020: -10},
		}))

		Expect(summary).To(HaveLen(2))
		Expect(summary[0].Instrument).To(Equal("A"))
		Expect(summary[1].Instrument).To(Equal("B"))
		Expect(summary[0].Score).To(BeNumerically(">", summary[1].Score))
		// single years carry no volatility term
		Expect(summary[0].Score).To(BeNumerically("~", 70.0, 1e-9))
		Expect(summary[1].Score).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("computes the raw metrics of a row", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2018: 2, 2019: 4, 2020: -3, 2021: 5},
		}))

		strength, ok := summary.Get("A")
		Expect(ok).To(BeTrue())
		Expect(strength.AverageReturn).To(BeNumerically("~", 2.0, 1e-12))
		Expect(strength.WinRate).To(BeNumerically("~", 75.0, 1e-12))
		// sample standard deviation of 2, 4, -3, 5
		Expect(strength.Volatility).To(BeNumerically("~", 3.5590260840104, 1e-9))
		Expect(strength.Years).To(Equal(4))
	})

	It("guards against a zero range of average returns", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 5, 2021: 5},
			"B": {2020: 2, 2021: 8},
			"C": {2020: 8, 2021: 2},
		}))

		Expect(summary).To(HaveLen(3))
		for _, strength := range summary {
			Expect(strength.AverageReturn).To(BeNumerically("~", 5.0, 1e-12))
			Expect(math.IsNaN(strength.Score)).To(BeFalse())
		}

		// equal averages and win rates, so the lowest volatility wins
		Expect(summary[0].Instrument).To(Equal("A"))
		Expect(summary[0].Score).To(BeNumerically("~", 60.0, 1e-9))
		Expect(summary[1].Score).To(BeNumerically("~", 30.0, 1e-9))
		Expect(summary[2].Score).To(BeNumerically("~", 30.0, 1e-9))
	})

	It("keeps tied instruments in table order", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"C": {2020: 1},
			"A": {2020: 1},
			"B": {2020: 1},
		}))

		Expect(summary[0].Instrument).To(Equal("A"))
		Expect(summary[1].Instrument).To(Equal("B"))
		Expect(summary[2].Instrument).To(Equal("C"))
	})

	It("leaves the volatility of a single year undefined and ranks it last", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 3},
			"B": {2020: 1, 2021: 5},
		}))

		Expect(summary[0].Instrument).To(Equal("B"))
		Expect(summary[0].Score).To(BeNumerically("~", 60.0, 1e-9))

		Expect(summary[1].Instrument).To(Equal("A"))
		Expect(summary[1].HasVolatility()).To(BeFalse())
		Expect(math.IsNaN(summary[1].Volatility)).To(BeTrue())
		Expect(math.IsNaN(summary[1].Score)).To(BeFalse())
		Expect(summary[1].Score).To(BeNumerically("~", 30.0, 1e-9))
	})

	It("does not let a single-year row change the scores of the others", func() {
		without := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 12, 2021: 8},
			"B": {2020: 2, 2021: -2},
		}))
		with := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 12, 2021: 8},
			"B": {2020: 2, 2021: -2},
			"C": {2021: 10},
		}))

		Expect(without[0].Instrument).To(Equal("A"))
		Expect(without[0].Score).To(BeNumerically("~", 100.0, 1e-9))
		Expect(without[1].Instrument).To(Equal("B"))
		Expect(without[1].Score).To(BeNumerically("~", 45.0, 1e-9))

		Expect(with).To(HaveLen(3))
		for idx := range without {
			Expect(with[idx].Instrument).To(Equal(without[idx].Instrument))
			Expect(with[idx].Score).To(BeNumerically("~", without[idx].Score, 1e-9))
		}
		Expect(with[2].Instrument).To(Equal("C"))
		Expect(with[2].Score).To(BeNumerically("~", 70.0, 1e-9))
	})

	It("encodes an undefined volatility as null", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 10},
		}))

		buf, err := json.Marshal(summary)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(ContainSubstring(`"volatility":null`))

		var decoded []map[string]interface{}
		Expect(json.Unmarshal(buf, &decoded)).To(Succeed())
		Expect(decoded).To(HaveLen(1))
		Expect(decoded[0]).To(HaveKeyWithValue("instrument", "A"))
		Expect(decoded[0]["score"]).To(BeNumerically("~", 30.0, 1e-9))
	})

	It("returns an empty summary for an empty table", func() {
		Expect(seasonal.Score(seasonal.NewTable(seasonal.MonthDay{}, seasonal.MonthDay{}))).To(BeEmpty())
	})

	It("renders a dataframe in rank order", func() {
		summary := seasonal.Score(tableOf(map[string]seasonal.YearReturns{
			"A": {2020: 10},
			"B": {2020: -10},
		}))

		df := summary.DataFrame()
		Expect(df.Index).To(Equal([]string{"A", "B"}))
		Expect(df.ColNames).To(HaveLen(4))
		Expect(df.Vals[0]).To(Equal([]float64{10, -10}))
		Expect(df.Vals[1]).To(Equal([]float64{100, 0}))
	})
})

var _ = Describe("Analyze", func() {
	var (
		provider *memoryProvider
	)

	BeforeEach(func() {
		provider = newMemoryProvider()
		provider.frames["A"] = closeFrame(map[time.Time]float64{
			date(2020, time.January, 1): 100,
			date(2020, time.June, 1):    110,
			date(2021, time.January, 1): 100,
			date(2021, time.June, 1):    90,
		})
	})

	It("aggregates and scores", func() {
		analysis, err := seasonal.Analyze(context.Background(), provider, seasonal.MustMonthDay(time.January, 1), seasonal.MustMonthDay(time.June, 1))
		Expect(err).To(BeNil())
		Expect(analysis.ID).ToNot(Equal(uuid.Nil))
		Expect(analysis.Table.Len()).To(Equal(1))
		Expect(analysis.Strength).To(HaveLen(1))
		Expect(analysis.Strength[0].AverageReturn).To(BeNumerically("~", 0.0, 1e-12))
		Expect(analysis.Strength[0].WinRate).To(BeNumerically("~", 50.0, 1e-12))
	})

	It("rejects an inverted range before touching the provider", func() {
		_, err := seasonal.Analyze(context.Background(), provider, seasonal.MustMonthDay(time.June, 1), seasonal.MustMonthDay(time.January, 1))
		Expect(err).To(MatchError(seasonal.ErrInvalidRange))
		Expect(provider.loads).To(Equal(0))
	})

	It("returns an empty analysis with no data", func() {
		analysis, err := seasonal.Analyze(context.Background(), newMemoryProvider(), seasonal.MustMonthDay(time.January, 1), seasonal.MustMonthDay(time.June, 1))
		Expect(err).To(MatchError(seasonal.ErrNoData))
		Expect(analysis).ToNot(BeNil())
		Expect(analysis.Table.Len()).To(Equal(0))
		Expect(analysis.Strength).To(BeEmpty())
	})

	It("returns infrastructure errors", func() {
		provider.listErr = errors.New("database down")
		analysis, err := seasonal.Analyze(context.Background(), provider, seasonal.MustMonthDay(time.January, 1), seasonal.MustMonthDay(time.June, 1))
		Expect(err).To(MatchError("database down"))
		Expect(analysis).To(BeNil())
	})
})
