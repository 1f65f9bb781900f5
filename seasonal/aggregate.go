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
	"context"
	"errors"
	"sort"
	"time"

	"github.com/penny-vault/seasonality/data"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	DefaultField       = string(data.MetricClose)
)

type options struct {
	concurrency int
	field       string
	since       time.Time
	until       time.Time
}

// Option configures Aggregate and Analyze
type Option func(*options)

// WithConcurrency sets the maximum number of instruments evaluated at once. Values less than
// one are ignored
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithField selects the price column used for returns; the default is close
func WithField(field string) Option {
	return func(o *options) {
		if field != "" {
			o.field = field
		}
	}
}

// WithHistory restricts every series to observations between since and until (inclusive).
// A zero until means no upper bound
func WithHistory(since, until time.Time) Option {
	return func(o *options) {
		o.since = since
		o.until = until
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		concurrency: DefaultConcurrency,
		field:       DefaultField,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// instrumentResult is written by exactly one goroutine
type instrumentResult struct {
	computation *Computation
	err         error
}

// Aggregate evaluates the start..end window for every instrument the provider knows about and
// assembles the results into a Table. Instruments that fail to load, lack the price field, or
// produce no valid year are excluded and listed in Table.Skipped. When no instrument produces a
// row the empty table is returned together with ErrNoData.
//
// The range is not validated here; use ValidateRange (or Analyze) first.
func Aggregate(ctx context.Context, provider data.Provider, start, end MonthDay, opts ...Option) (*Table, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "seasonal.Aggregate")
	defer span.End()

	o := newOptions(opts)
	subLog := log.With().Stringer("Start", start).Stringer("End", end).Str("Field", o.field).Logger()

	instruments, err := provider.Instruments(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not list instruments")
		subLog.Error().Err(err).Msg("could not list instruments")
		return nil, err
	}

	sorted := make([]string, len(instruments))
	copy(sorted, instruments)
	sort.Strings(sorted)

	span.SetAttributes(attribute.Int("instruments", len(sorted)))

	results := make([]instrumentResult, len(sorted))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(o.concurrency)

	for idx, instrument := range sorted {
		if grpCtx.Err() != nil {
			break
		}

		idx := idx
		instrument := instrument
		grp.Go(func() error {
			results[idx] = evaluate(grpCtx, provider, instrument, start, end, o)
			return nil
		})
	}

	// goroutines never return an error; failures are recorded per instrument
	_ = grp.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation cancelled")
		return nil, err
	}

	table := NewTable(start, end)
	for idx, instrument := range sorted {
		res := results[idx]
		if res.err != nil {
			logSkippedInstrument(subLog.With().Str("Instrument", instrument).Logger(), res.err)
			table.Skip(instrument, res.err)
			continue
		}

		if len(res.computation.Returns) == 0 {
			subLog.Debug().Str("Instrument", instrument).Int("SkippedYears", len(res.computation.Skipped)).Msg("instrument produced no valid years")
		}
		table.Add(instrument, res.computation.Returns)
	}

	span.SetAttributes(attribute.Int("rows", table.Len()), attribute.Int("skipped", len(table.Skipped)))

	if table.Len() == 0 {
		span.SetStatus(codes.Error, "no data")
		subLog.Warn().Int("NumInstruments", len(sorted)).Msg("no instrument produced seasonal returns")
		return table, ErrNoData
	}

	return table, nil
}

func evaluate(ctx context.Context, provider data.Provider, instrument string, start, end MonthDay, o *options) instrumentResult {
	df, err := provider.Load(ctx, instrument)
	if err != nil {
		return instrumentResult{err: err}
	}

	if !o.since.IsZero() || !o.until.IsZero() {
		until := o.until
		if until.IsZero() {
			until = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		df = df.Trim(o.since, until)
	}

	series, err := SeriesFromDataFrame(df, o.field)
	if err != nil {
		return instrumentResult{err: err}
	}

	return instrumentResult{computation: Compute(series, start, end)}
}

// logSkippedInstrument separates data conditions, which are expected, from infrastructure
// failures such as unreadable files or database errors
func logSkippedInstrument(subLog zerolog.Logger, err error) {
	if errors.Is(err, ErrMissingField) {
		subLog.Debug().Err(err).Msg("skipping instrument")
		return
	}
	subLog.Warn().Err(err).Msg("could not load instrument")
}
