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
	"context"
	"time"

	"github.com/penny-vault/seasonality/dataframe"
)

// Provider supplies the universe of instruments and the daily price history of each one.
// Load returns a frame indexed by date whose columns are named after Metric values; a
// provider may omit any column it does not have
type Provider interface {
	Instruments(ctx context.Context) ([]string, error)
	Load(ctx context.Context, instrument string) (*dataframe.DataFrame[time.Time], error)
}

// Fingerprinter is implemented by providers that can cheaply tell whether an instrument's
// history changed. The fingerprint is used as part of the cache key
type Fingerprinter interface {
	Fingerprint(ctx context.Context, instrument string) (string, error)
}
