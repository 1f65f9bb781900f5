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

package data

import (
	"time"

	"github.com/penny-vault/seasonality/dataframe"
)

// metricsToDataFrame assembles a frame from parallel metric columns. Columns are added in
// Metrics order so that the result does not depend on map iteration. The frame is sorted
// by date before it is returned
func metricsToDataFrame(dates []time.Time, vals map[Metric][]float64) (*dataframe.DataFrame[time.Time], error) {
	df := &dataframe.DataFrame[time.Time]{
		Index:     dates,
		IndexName: "Date",
		ColNames:  make([]string, 0, len(vals)),
		Vals:      make([][]float64, 0, len(vals)),
	}

	for _, metric := range Metrics {
		col, ok := vals[metric]
		if !ok {
			continue
		}
		if err := df.Insert(string(metric), col); err != nil {
			return nil, err
		}
	}

	return df.Sort(), nil
}
