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
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/seasonality/common"
	"github.com/penny-vault/seasonality/dataframe"
	"github.com/rs/zerolog/log"
)

// Cached wraps a Provider and keeps encoded frames in the common cache. When the wrapped
// provider is a Fingerprinter its fingerprint is the cache key, so a changed file or table is
// reloaded; otherwise entries live until they are evicted or purged
type Cached struct {
	provider  Provider
	namespace string
}

// NewCached wraps provider. namespace keeps keys of different providers apart when they share
// a redis tier
func NewCached(provider Provider, namespace string) *Cached {
	return &Cached{
		provider:  provider,
		namespace: namespace,
	}
}

type frameJSON struct {
	Index    []time.Time  `json:"index"`
	ColNames []string     `json:"columns"`
	Vals     [][]*float64 `json:"values"`
}

// Instruments is not cached; listing is cheap and must reflect new files immediately
func (c *Cached) Instruments(ctx context.Context) ([]string, error) {
	return c.provider.Instruments(ctx)
}

// Fingerprint delegates to the wrapped provider when it supports fingerprints
func (c *Cached) Fingerprint(ctx context.Context, instrument string) (string, error) {
	if fp, ok := c.provider.(Fingerprinter); ok {
		return fp.Fingerprint(ctx, instrument)
	}
	return c.namespace + ":" + instrument, nil
}

func (c *Cached) key(ctx context.Context, instrument string) (string, error) {
	fp, err := c.Fingerprint(ctx, instrument)
	if err != nil {
		return "", err
	}
	return "frame:" + c.namespace + ":" + fp, nil
}

// Load returns the cached frame for instrument, loading and caching it on a miss
func (c *Cached) Load(ctx context.Context, instrument string) (*dataframe.DataFrame[time.Time], error) {
	subLog := log.With().Str("Instrument", instrument).Logger()

	key, err := c.key(ctx, instrument)
	if err != nil {
		return nil, err
	}

	buf, err := common.CacheGet(ctx, key)
	switch {
	case err == nil:
		df, decodeErr := decodeFrame(buf)
		if decodeErr == nil {
			subLog.Trace().Str("Key", key).Msg("cache hit")
			return df, nil
		}
		subLog.Warn().Err(decodeErr).Str("Key", key).Msg("could not decode cached frame")
	case errors.Is(err, common.ErrCacheMiss):
		subLog.Trace().Str("Key", key).Msg("cache miss")
	default:
		subLog.Warn().Err(err).Str("Key", key).Msg("cache lookup failed")
	}

	df, err := c.provider.Load(ctx, instrument)
	if err != nil {
		return nil, err
	}

	buf, err = encodeFrame(df)
	if err != nil {
		subLog.Warn().Err(err).Msg("could not encode frame")
		return df, nil
	}

	if err := common.CacheSet(ctx, key, buf); err != nil {
		subLog.Warn().Err(err).Str("Key", key).Msg("could not cache frame")
	}

	return df, nil
}

// encodeFrame stores NaN as null since JSON has no representation for it
func encodeFrame(df *dataframe.DataFrame[time.Time]) ([]byte, error) {
	out := frameJSON{
		Index:    df.Index,
		ColNames: df.ColNames,
		Vals:     make([][]*float64, len(df.Vals)),
	}

	for colIdx, col := range df.Vals {
		out.Vals[colIdx] = make([]*float64, len(col))
		for rowIdx := range col {
			if !math.IsNaN(col[rowIdx]) {
				out.Vals[colIdx][rowIdx] = &col[rowIdx]
			}
		}
	}

	return json.Marshal(out)
}

func decodeFrame(buf []byte) (*dataframe.DataFrame[time.Time], error) {
	var in frameJSON
	if err := json.Unmarshal(buf, &in); err != nil {
		return nil, err
	}

	df := &dataframe.DataFrame[time.Time]{
		Index:     in.Index,
		IndexName: "Date",
		ColNames:  in.ColNames,
		Vals:      make([][]float64, len(in.Vals)),
	}

	for colIdx, col := range in.Vals {
		if len(col) != len(df.Index) {
			return nil, dataframe.ErrColumnLength
		}
		df.Vals[colIdx] = make([]float64, len(col))
		for rowIdx, val := range col {
			if val == nil {
				df.Vals[colIdx][rowIdx] = math.NaN()
			} else {
				df.Vals[colIdx][rowIdx] = *val
			}
		}
	}

	for idx, dt := range df.Index {
		df.Index[idx] = dt.UTC()
	}

	return df, nil
}

var _ Provider = (*Cached)(nil)
var _ Fingerprinter = (*Cached)(nil)
