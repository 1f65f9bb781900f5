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
	"fmt"
	"sort"
	"time"

	"github.com/penny-vault/seasonality/dataframe"
	"github.com/rs/zerolog/log"
)

// Universe restricts a provider to a fixed set of instruments, e.g. the eleven sector ETFs out
// of a table holding every listed security
type Universe struct {
	provider Provider
	members  map[string]bool
}

// NewUniverse limits provider to instruments. An empty list leaves the provider unrestricted
func NewUniverse(provider Provider, instruments ...string) *Universe {
	members := make(map[string]bool, len(instruments))
	for _, instrument := range instruments {
		members[instrument] = true
	}
	return &Universe{
		provider: provider,
		members:  members,
	}
}

// Instruments returns the members that the wrapped provider actually has
func (u *Universe) Instruments(ctx context.Context) ([]string, error) {
	available, err := u.provider.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	if len(u.members) == 0 {
		return available, nil
	}

	found := make(map[string]bool, len(u.members))
	instruments := make([]string, 0, len(u.members))
	for _, instrument := range available {
		if u.members[instrument] {
			found[instrument] = true
			instruments = append(instruments, instrument)
		}
	}

	for instrument := range u.members {
		if !found[instrument] {
			log.Warn().Str("Instrument", instrument).Msg("universe member not available from provider")
		}
	}

	sort.Strings(instruments)
	return instruments, nil
}

// Load fails with ErrNotFound for instruments outside the universe
func (u *Universe) Load(ctx context.Context, instrument string) (*dataframe.DataFrame[time.Time], error) {
	if len(u.members) != 0 && !u.members[instrument] {
		return nil, fmt.Errorf("%w: %s is not in the universe", ErrNotFound, instrument)
	}
	return u.provider.Load(ctx, instrument)
}

var _ Provider = (*Universe)(nil)
