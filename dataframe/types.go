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

package dataframe

import (
	"errors"
	"time"
)

// Index is the set of types a DataFrame may be keyed by: dates for price
// history and strings for per-instrument summaries
type Index interface {
	time.Time | string
}

// DataFrame stores a set of float64 columns that share a common index. Vals is
// column major: Vals[colIdx][rowIdx]. IndexName is only used as the header of
// the index column when rendering; it defaults to "Index"
type DataFrame[T Index] struct {
	Index     []T
	IndexName string
	ColNames  []string
	Vals      [][]float64
}

var (
	ErrColumnNotFound   = errors.New("column not found")
	ErrColumnLength     = errors.New("column length does not match index length")
	ErrIndexNotIncrease = errors.New("new index must be after last index")
)
