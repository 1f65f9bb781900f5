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
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/seasonality/dataframe"
	"github.com/penny-vault/seasonality/seasonal"
)

var _ = Describe("Series", func() {
	var (
		series *seasonal.Series
	)

	BeforeEach(func() {
		series = seasonal.NewSeries([]seasonal.Point{
			{Date: time.Date(2021, 1, 5, 16, 0, 0, 0, time.UTC), Close: 3},
			{Date: date(2020, time.January, 2), Close: 1},
			{Date: date(2020, time.June, 1), Close: 2},
			{Date: date(2020, time.June, 1), Close: 2.5},
		})
	})

	It("sorts points and keeps the last duplicate", func() {
		Expect(series.Len()).To(Equal(3))
		Expect(series.Start()).To(Equal(date(2020, time.January, 2)))
		Expect(series.End()).To(Equal(date(2021, time.January, 5)))

		val, ok := series.Close(date(2020, time.June, 1))
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(2.5))
	})

	It("truncates dates to midnight", func() {
		val, ok := series.Close(date(2021, time.January, 5))
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(3.0))
	})

	It("reports a missing close", func() {
		_, ok := series.Close(date(2020, time.June, 2))
		Expect(ok).To(BeFalse())
	})

	It("lists years ascending", func() {
		Expect(series.Years()).To(Equal([]int{2020, 2021}))
	})

	It("returns a copy of its points", func() {
		points := series.Points()
		points[0].Close = 99
		val, _ := series.Close(date(2020, time.January, 2))
		Expect(val).To(Equal(1.0))
	})

	Context("built from a dataframe", func() {
		It("uses the requested column", func() {
			df := closeFrame(map[time.Time]float64{
				date(2020, time.January, 1): 100,
				date(2020, time.January, 2): math.NaN(),
			})

			s, err := seasonal.SeriesFromDataFrame(df, "close")
			Expect(err).To(BeNil())
			Expect(s.Len()).To(Equal(2))

			val, ok := s.Close(date(2020, time.January, 2))
			Expect(ok).To(BeTrue())
			Expect(math.IsNaN(val)).To(BeTrue())
		})

		It("fails when the column is missing", func() {
			df := dataframe.New[time.Time]("open")
			_, err := seasonal.SeriesFromDataFrame(df, "close")
			Expect(err).To(MatchError(seasonal.ErrMissingField))
		})

		It("fails for a nil frame", func() {
			_, err := seasonal.SeriesFromDataFrame(nil, "close")
			Expect(err).To(MatchError(seasonal.ErrMissingField))
		})
	})
})

var _ = Describe("Resolve", func() {
	var (
		series *seasonal.Series
	)

	BeforeEach(func() {
		series = seasonal.NewSeries([]seasonal.Point{
			{Date: date(2020, time.January, 2), Close: 1},
			{Date: date(2020, time.January, 3), Close: 2},
			{Date: date(2020, time.January, 6), Close: 3},
			{Date: date(2020, time.January, 7), Close: 4},
		})
	})

	DescribeTable("resolving a target date",
		func(target, expected time.Time) {
			resolved, err := seasonal.Resolve(series, target)
			Expect(err).To(BeNil())
			Expect(resolved).To(Equal(expected))
		},
		Entry("exact match", date(2020, time.January, 3), date(2020, time.January, 3)),
		Entry("first date", date(2020, time.January, 2), date(2020, time.January, 2)),
		Entry("last date", date(2020, time.January, 7), date(2020, time.January, 7)),
		Entry("weekend rolls forward", date(2020, time.January, 4), date(2020, time.January, 6)),
		Entry("before the series picks the first date", date(2019, time.December, 1), date(2020, time.January, 2)),
		Entry("after the series picks the last date", date(2020, time.March, 1), date(2020, time.January, 7)),
	)

	It("resolves every date in the series to itself", func() {
		for _, pt := range series.Points() {
			resolved, err := seasonal.Resolve(series, pt.Date)
			Expect(err).To(BeNil())
			Expect(resolved).To(Equal(pt.Date))
		}
	})

	It("fails fast on an empty series", func() {
		_, err := seasonal.Resolve(seasonal.NewSeries(nil), date(2020, time.January, 1))
		Expect(err).To(MatchError(seasonal.ErrEmptySeries))
	})
})
