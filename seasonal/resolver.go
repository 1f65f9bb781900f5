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

import "time"

// Resolve finds the trading date in series that best matches target:
//
//  1. target itself when it is present
//  2. otherwise the earliest date after target (the next trading day)
//  3. otherwise, when target is beyond the end of the series, the date closest to target
//
// An empty series is a precondition violation and returns ErrEmptySeries
func Resolve(series *Series, target time.Time) (time.Time, error) {
	if series.Len() == 0 {
		return time.Time{}, ErrEmptySeries
	}

	// idx is the first date on or after target; when it is not an exact match it is the
	// earliest date strictly after target
	idx := series.search(target)
	if idx < series.Len() {
		return series.points[idx].Date, nil
	}

	// every date precedes target so the closest one is the nearest neighbor
	nearest := series.points[0].Date
	for _, pt := range series.points[1:] {
		if absDuration(target.Sub(pt.Date)) < absDuration(target.Sub(nearest)) {
			nearest = pt.Date
		}
	}

	return nearest, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
