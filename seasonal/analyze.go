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
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/seasonality/data"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Analysis is the complete answer to one seasonal query
type Analysis struct {
	ID       uuid.UUID       `json:"id"`
	Start    MonthDay        `json:"start"`
	End      MonthDay        `json:"end"`
	Computed time.Time       `json:"computed"`
	Table    *Table          `json:"table"`
	Strength StrengthSummary `json:"strength"`
}

// Analyze validates the window, aggregates every instrument of provider and scores the
// resulting table. When no instrument yields data the returned Analysis holds an empty table
// and summary and the error is ErrNoData
func Analyze(ctx context.Context, provider data.Provider, start, end MonthDay, opts ...Option) (*Analysis, error) {
	id := uuid.New()

	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "seasonal.Analyze")
	defer span.End()

	span.SetAttributes(
		attribute.String("query.id", id.String()),
		attribute.String("start", start.String()),
		attribute.String("end", end.String()),
	)

	subLog := log.With().Str("QueryID", id.String()).Stringer("Start", start).Stringer("End", end).Logger()

	if err := ValidateRange(start, end); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid range")
		subLog.Warn().Err(err).Msg("rejecting seasonal query")
		return nil, err
	}

	analysis := &Analysis{
		ID:       id,
		Start:    start,
		End:      end,
		Computed: time.Now(),
	}

	table, err := Aggregate(ctx, provider, start, end, opts...)
	if err != nil && !errors.Is(err, ErrNoData) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		return nil, err
	}

	analysis.Table = table
	analysis.Strength = Score(table)

	subLog.Info().Int("NumRows", table.Len()).Int("NumSkipped", len(table.Skipped)).Int("NumYears", len(table.Years())).Msg("seasonal analysis complete")

	return analysis, err
}
