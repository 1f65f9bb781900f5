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

import "errors"

var (
	// ErrMissingField is returned when an instrument's history lacks the requested price column;
	// the instrument is skipped
	ErrMissingField = errors.New("price field missing from series")

	// ErrNoData signals that no instrument produced a single valid year-return. It accompanies an
	// empty (non-nil) table and is not fatal
	ErrNoData = errors.New("no seasonal data found")

	// ErrInvalidRange is returned when the start anchor is not strictly before the end anchor
	ErrInvalidRange = errors.New("start date must be before end date")

	ErrEmptySeries      = errors.New("series is empty")
	ErrInvalidAnchor    = errors.New("invalid month/day anchor")
	ErrSeasonNotStarted = errors.New("season starts after last available date")
	ErrNonFinitePrice   = errors.New("close price is not a finite number")
	ErrZeroPrice        = errors.New("start close price is zero")
	ErrNoReturns        = errors.New("no year produced a valid return")
	ErrUnknownWindow    = errors.New("unknown seasonal window")
)
