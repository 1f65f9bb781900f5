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
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/seasonality/seasonal"
)

var _ = Describe("MonthDay", func() {
	DescribeTable("parsing anchors",
		func(input string, month time.Month, day int) {
			md, err := seasonal.ParseMonthDay(input)
			Expect(err).To(BeNil())
			Expect(md.Month).To(Equal(month))
			Expect(md.Day).To(Equal(day))
		},
		Entry("zero padded", "01-15", time.January, 15),
		Entry("not padded", "3-7", time.March, 7),
		Entry("slash separated", "12/31", time.December, 31),
		Entry("month abbreviation", "Jun-01", time.June, 1),
		Entry("full month name", "September 9", time.September, 9),
		Entry("leap day", "02-29", time.February, 29),
		Entry("full date ignores year", "2019-10-04", time.October, 4),
		Entry("surrounding whitespace", " 06-01 ", time.June, 1),
	)

	DescribeTable("rejecting anchors",
		func(input string) {
			_, err := seasonal.ParseMonthDay(input)
			Expect(err).To(MatchError(seasonal.ErrInvalidAnchor))
		},
		Entry("empty", ""),
		Entry("month out of range", "13-01"),
		Entry("day out of range", "04-31"),
		Entry("garbage", "soon"),
	)

	It("refuses to build an impossible month/day", func() {
		_, err := seasonal.NewMonthDay(time.February, 30)
		Expect(err).To(MatchError(seasonal.ErrInvalidAnchor))
		_, err = seasonal.NewMonthDay(0, 1)
		Expect(err).To(MatchError(seasonal.ErrInvalidAnchor))
	})

	It("places the anchor in a year at midnight UTC", func() {
		dt, err := seasonal.MustMonthDay(time.June, 1).In(2021)
		Expect(err).To(BeNil())
		Expect(dt).To(Equal(date(2021, time.June, 1)))
	})

	It("fails for February 29 in a non-leap year", func() {
		leap := seasonal.MustMonthDay(time.February, 29)

		_, err := leap.In(2021)
		Expect(err).To(MatchError(seasonal.ErrInvalidAnchor))

		dt, err := leap.In(2020)
		Expect(err).To(BeNil())
		Expect(dt).To(Equal(date(2020, time.February, 29)))
	})

	It("formats as MM-DD and round trips through JSON", func() {
		md := seasonal.MustMonthDay(time.March, 5)
		Expect(md.String()).To(Equal("03-05"))

		buf, err := json.Marshal(md)
		Expect(err).To(BeNil())
		Expect(string(buf)).To(Equal(`"03-05"`))

		var decoded seasonal.MonthDay
		Expect(json.Unmarshal(buf, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(md))
	})

	DescribeTable("validating ranges",
		func(start, end string, valid bool) {
			err := seasonal.ValidateRange(mustParse(start), mustParse(end))
			if valid {
				Expect(err).To(BeNil())
			} else {
				Expect(err).To(MatchError(seasonal.ErrInvalidRange))
			}
		},
		Entry("start before end", "01-01", "06-01", true),
		Entry("same month", "03-01", "03-02", true),
		Entry("identical anchors", "06-01", "06-01", false),
		Entry("start after end", "11-01", "02-01", false),
		Entry("later day same month", "03-15", "03-02", false),
	)
})

func mustParse(str string) seasonal.MonthDay {
	md, err := seasonal.ParseMonthDay(str)
	Expect(err).To(BeNil())
	return md
}
