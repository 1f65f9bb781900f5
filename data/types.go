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

// Metric names a price column. Values match the lower-case column names used in parquet
// files and in the eod table
type Metric string

const (
	MetricOpen   Metric = "open"
	MetricHigh   Metric = "high"
	MetricLow    Metric = "low"
	MetricClose  Metric = "close"
	MetricVolume Metric = "volume"
)

// Metrics lists every supported metric in column order
var Metrics = []Metric{MetricOpen, MetricHigh, MetricLow, MetricClose, MetricVolume}

// ParseMetric returns the metric named by str
func ParseMetric(str string) (Metric, error) {
	for _, metric := range Metrics {
		if string(metric) == str {
			return metric, nil
		}
	}
	return "", ErrUnsupportedMetric
}
