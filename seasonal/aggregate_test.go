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
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/seasonality/dataframe"
	"github.com/penny-vault/seasonality/seasonal"
)

var _ = Describe("Aggregate", func() {
	var (
		provider *memoryProvider
		jan1     seasonal.MonthDay
		jun1     seasonal.MonthDay
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		jan1 = seasonal.MustMonthDay(time.January, 1)
		jun1 = seasonal.MustMonthDay(time.June, 1)

		provider = newMemoryProvider()
		provider.frames["XLK"] = closeFrame(map[time.Time]float64{
			date(2019, time.January, 2): 50,
			date(2019, time.June, 3):    55,
			date(2020, time.January, 2): 100,
			date(2020, time.June, 1):    110,
			date(2021, time.January, 4): 100,
			date(2021, time.June, 1):    90,
		})
		provider.frames["XLE"] = closeFrame(map[time.Time]float64{
			date(2020, time.January, 2): 40,
			date(2020, time.June, 1):    30,
			date(2021, time.January, 4): 30,
			date(2021, time.June, 1):    45,
		})
	})

	It("builds a row for every instrument", func() {
		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(BeNil())
		Expect(table.Len()).To(Equal(2))
		Expect(table.Instruments()).To(Equal([]string{"XLE", "XLK"}))
		Expect(table.Years()).To(Equal([]int{2021, 2020, 2019}))

		val, ok := table.Get("XLK", 2019)
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(10.0))

		val, ok = table.Get("XLE", 2020)
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(-25.0))

		val, ok = table.Get("XLE", 2021)
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(50.0))

		_, ok = table.Get("XLE", 2019)
		Expect(ok).To(BeFalse())
	})

	It("is idempotent", func() {
		first, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(BeNil())
		second, err := seasonal.Aggregate(ctx, provider, jan1, jun1, seasonal.WithConcurrency(1))
		Expect(err).To(BeNil())
		Expect(second.Rows).To(Equal(first.Rows))
	})

	It("skips instruments that fail to load", func() {
		provider.errs["BAD"] = errors.New("corrupt file")

		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(BeNil())
		Expect(table.Instruments()).To(Equal([]string{"XLE", "XLK"}))
		Expect(table.Skipped).To(HaveLen(1))
		Expect(table.Skipped[0].Instrument).To(Equal("BAD"))
		Expect(table.Skipped[0].Err).To(MatchError("corrupt file"))
	})

	It("skips instruments without the price field", func() {
		df := dataframe.New[time.Time]("open")
		df.InsertRow(date(2020, time.January, 2), 10)
		provider.frames["OPEN"] = df

		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(BeNil())
		Expect(table.Len()).To(Equal(2))
		Expect(table.Skipped).To(HaveLen(1))
		Expect(table.Skipped[0].Err).To(MatchError(seasonal.ErrMissingField))
	})

	It("excludes instruments that produce no valid year", func() {
		provider.frames["NAN"] = closeFrame(map[time.Time]float64{
			date(2020, time.January, 2): math.NaN(),
			date(2020, time.June, 1):    10,
		})

		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(BeNil())
		_, ok := table.Row("NAN")
		Expect(ok).To(BeFalse())
		Expect(table.Skipped).To(HaveLen(1))
		Expect(table.Skipped[0].Err).To(MatchError(seasonal.ErrNoReturns))
	})

	It("selects an alternate field", func() {
		df := dataframe.New[time.Time]("open")
		df.InsertRow(date(2020, time.January, 2), 10)
		df.InsertRow(date(2020, time.June, 1), 12)
		provider = newMemoryProvider()
		provider.frames["OPEN"] = df

		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1, seasonal.WithField("open"))
		Expect(err).To(BeNil())
		val, ok := table.Get("OPEN", 2020)
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(20.0))
	})

	It("restricts history", func() {
		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1, seasonal.WithHistory(date(2020, time.January, 1), time.Time{}))
		Expect(err).To(BeNil())
		Expect(table.Years()).To(Equal([]int{2021, 2020}))

		table, err = seasonal.Aggregate(ctx, provider, jan1, jun1, seasonal.WithHistory(time.Time{}, date(2020, time.December, 31)))
		Expect(err).To(BeNil())
		Expect(table.Years()).To(Equal([]int{2020, 2019}))
	})

	It("reports no data for an empty universe", func() {
		table, err := seasonal.Aggregate(ctx, newMemoryProvider(), jan1, jun1)
		Expect(err).To(MatchError(seasonal.ErrNoData))
		Expect(table).ToNot(BeNil())
		Expect(table.Len()).To(Equal(0))
		Expect(table.Years()).To(BeEmpty())
	})

	It("reports no data when every instrument is skipped", func() {
		provider = newMemoryProvider()
		provider.errs["A"] = errors.New("unreadable")
		provider.errs["B"] = errors.New("unreadable")

		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(MatchError(seasonal.ErrNoData))
		Expect(table.Len()).To(Equal(0))
		Expect(table.Skipped).To(HaveLen(2))
	})

	It("returns listing failures", func() {
		provider.listErr = errors.New("directory missing")
		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1)
		Expect(err).To(MatchError("directory missing"))
		Expect(table).To(BeNil())
	})

	It("stops when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := seasonal.Aggregate(cancelled, provider, jan1, jun1)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("handles many instruments concurrently", func() {
		provider = newMemoryProvider()
		for idx := 0; idx < 50; idx++ {
			provider.frames[fmt.Sprintf("S%02d", idx)] = closeFrame(map[time.Time]float64{
				date(2020, time.January, 2): 100,
				date(2020, time.June, 1):    100 + float64(idx),
			})
		}

		table, err := seasonal.Aggregate(ctx, provider, jan1, jun1, seasonal.WithConcurrency(8))
		Expect(err).To(BeNil())
		Expect(table.Len()).To(Equal(50))
		Expect(provider.loads).To(Equal(50))
		val, _ := table.Get("S07", 2020)
		Expect(val).To(Equal(7.0))
	})
})

var _ = Describe("Table", func() {
	var (
		table *seasonal.Table
	)

	BeforeEach(func() {
		table = seasonal.NewTable(seasonal.MustMonthDay(time.January, 1), seasonal.MustMonthDay(time.June, 1))
		table.Add("XLK", seasonal.YearReturns{2020: 10, 2021: -10})
		table.Add("XLE", seasonal.YearReturns{2021: 5.5})
		table.Add("EMPTY", seasonal.YearReturns{})
	})

	It("does not add empty rows", func() {
		Expect(table.Len()).To(Equal(2))
		Expect(table.Skipped).To(HaveLen(1))
		Expect(table.Skipped[0].String()).To(ContainSubstring("EMPTY"))
	})

	It("copies the returns it is given", func() {
		returns := seasonal.YearReturns{2020: 1}
		table.Add("XLB", returns)
		returns[2020] = 2
		val, _ := table.Get("XLB", 2020)
		Expect(val).To(Equal(1.0))
	})

	It("densifies into a dataframe", func() {
		df := table.DataFrame()
		Expect(df.IndexName).To(Equal("Sector"))
		Expect(df.Index).To(Equal([]string{"XLE", "XLK"}))
		Expect(df.ColNames).To(Equal([]string{"2021", "2020"}))
		Expect(df.Vals[0]).To(Equal([]float64{5.5, -10}))
		Expect(math.IsNaN(df.Vals[1][0])).To(BeTrue())
		Expect(df.Vals[1][1]).To(Equal(10.0))
	})

	It("encodes to JSON in display order", func() {
		buf, err := json.Marshal(table)
		Expect(err).To(BeNil())
		Expect(string(buf)).To(MatchJSON(`{
			"start": "01-01",
			"end": "06-01",
			"years": [2021, 2020],
			"rows": [
				{"instrument": "XLE", "returns": {"2021": 5.5}},
				{"instrument": "XLK", "returns": {"2020": 10, "2021": -10}}
			],
			"skipped": ["EMPTY: no year produced a valid return"]
		}`))
	})
})
