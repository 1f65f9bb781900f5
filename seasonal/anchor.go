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
	"strings"
	"time"
)

// accepted layouts for a month/day anchor; the year of a full date is ignored
var anchorLayouts = []string{
	"01-02",
	"1-2",
	"01/02",
	"1/2",
	"Jan-02",
	"Jan-2",
	"Jan 2",
	"January 2",
	"2006-01-02",
}

// MonthDay is a calendar month and day that is reused across years to describe a recurring
// seasonal window
type MonthDay struct {
	Month time.Month
	Day   int
}

// NewMonthDay returns a validated MonthDay. February 29 is accepted; it simply does not
// exist in non-leap years
func NewMonthDay(month time.Month, day int) (MonthDay, error) {
	if month < time.January || month > time.December {
		return MonthDay{}, fmt.Errorf("%w: month %d", ErrInvalidAnchor, month)
	}

	// year 2000 is a leap year so every valid month/day exists in it
	if day < 1 || day > daysIn(month, 2000) {
		return MonthDay{}, fmt.Errorf("%w: %s has no day %d", ErrInvalidAnchor, month, day)
	}

	return MonthDay{Month: month, Day: day}, nil
}

// MustMonthDay is like NewMonthDay but panics on error
func MustMonthDay(month time.Month, day int) MonthDay {
	md, err := NewMonthDay(month, day)
	if err != nil {
		panic(err.Error())
	}
	return md
}

// ParseMonthDay parses an anchor such as "01-15", "1-15", "Jan-15" or "2024-01-15"
func ParseMonthDay(str string) (MonthDay, error) {
	str = strings.TrimSpace(str)
	for _, layout := range anchorLayouts {
		// time.Parse defaults to year 0 which is a leap year, so "02-29" parses
		if t, err := time.Parse(layout, str); err == nil {
			return NewMonthDay(t.Month(), t.Day())
		}
	}

	return MonthDay{}, fmt.Errorf("%w: cannot parse %q want format MM-DD", ErrInvalidAnchor, str)
}

// In returns the anchor's date in the given year at midnight UTC. If the anchor does not exist
// in that year (February 29 of a non-leap year) ErrInvalidAnchor is returned
func (md MonthDay) In(year int) (time.Time, error) {
	if md.Day < 1 || md.Day > daysIn(md.Month, year) {
		return time.Time{}, fmt.Errorf("%w: %s does not exist in %d", ErrInvalidAnchor, md, year)
	}

	return time.Date(year, md.Month, md.Day, 0, 0, 0, 0, time.UTC), nil
}

// Before reports whether md falls earlier in the calendar year than other
func (md MonthDay) Before(other MonthDay) bool {
	if md.Month != other.Month {
		return md.Month < other.Month
	}
	return md.Day < other.Day
}

// IsZero reports whether md is the zero value
func (md MonthDay) IsZero() bool {
	return md.Month == 0 && md.Day == 0
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// MarshalText implements encoding.TextMarshaler
func (md MonthDay) MarshalText() ([]byte, error) {
	return []byte(md.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (md *MonthDay) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthDay(string(text))
	if err != nil {
		return err
	}
	*md = parsed
	return nil
}

// ValidateRange rejects windows whose start is not strictly before the end. Callers must
// validate before computing returns; an invalid range is never silently adjusted
func ValidateRange(start, end MonthDay) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start %s, end %s", ErrInvalidRange, start, end)
	}
	return nil
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
