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
	"strings"
	"time"

	"github.com/penny-vault/seasonality/data/database"
	"github.com/penny-vault/seasonality/dataframe"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PvDb reads instruments and daily prices from the eod table
type PvDb struct {
	metrics []Metric
}

// NewPvDb creates a database provider that loads the given metrics; close only when none are
// given
func NewPvDb(metrics ...Metric) *PvDb {
	if len(metrics) == 0 {
		metrics = []Metric{MetricClose}
	}
	return &PvDb{
		metrics: metrics,
	}
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// Instruments lists every ticker with at least one row in eod
func (p *PvDb) Instruments(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Instruments")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		msg := "could not get a database transaction"
		failSpan(span, err, msg)
		log.Warn().Stack().Err(err).Msg(msg)
		return nil, err
	}

	rows, err := trx.Query(ctx, "SELECT DISTINCT ticker FROM eod ORDER BY ticker")
	if err != nil {
		msg := "could not query instruments"
		failSpan(span, err, msg)
		log.Error().Stack().Err(err).Msg(msg)
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	instruments := make([]string, 0, 64)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			msg := "could not scan instrument"
			failSpan(span, err, msg)
			log.Error().Stack().Err(err).Msg(msg)
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		instruments = append(instruments, ticker)
	}

	if err := trx.Commit(ctx); err != nil {
		log.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	span.SetAttributes(attribute.Int("instruments", len(instruments)))
	return instruments, nil
}

// Load fetches the configured metrics of instrument ordered by date. NULL values become NaN.
// ErrNotFound is returned when the instrument has no rows
func (p *PvDb) Load(ctx context.Context, instrument string) (*dataframe.DataFrame[time.Time], error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Load")
	defer span.End()

	span.SetAttributes(attribute.String("instrument", instrument))
	subLog := log.With().Str("Instrument", instrument).Logger()

	columns, err := metricsToColumns(p.metrics)
	if err != nil {
		failSpan(span, err, "unsupported metric")
		return nil, err
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		msg := "could not get a database transaction"
		failSpan(span, err, msg)
		subLog.Warn().Stack().Err(err).Msg(msg)
		return nil, err
	}

	sql := fmt.Sprintf("SELECT event_date, %s FROM eod WHERE ticker=$1 ORDER BY event_date", columns)
	rows, err := trx.Query(ctx, sql, instrument)
	if err != nil {
		msg := "db query failed"
		failSpan(span, err, msg)
		subLog.Warn().Stack().Err(err).Str("SQL", sql).Msg(msg)
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	dates := make([]time.Time, 0, 2520)
	vals := make(map[Metric][]float64, len(p.metrics))
	for rows.Next() {
		var eventDate time.Time
		metricVals := make([]float64, len(p.metrics))

		args := make([]interface{}, 0, len(p.metrics)+1)
		args = append(args, &eventDate)
		for idx := range metricVals {
			args = append(args, &metricVals[idx])
		}

		if err := rows.Scan(args...); err != nil {
			msg := "db scan failed"
			failSpan(span, err, msg)
			subLog.Error().Stack().Err(err).Msg(msg)
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}

		dates = append(dates, time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, time.UTC))
		for idx, metric := range p.metrics {
			vals[metric] = append(vals[metric], metricVals[idx])
		}
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	if len(dates) == 0 {
		span.SetStatus(codes.Error, "instrument not found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instrument)
	}

	df, err := metricsToDataFrame(dates, vals)
	if err != nil {
		failSpan(span, err, "could not build dataframe")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("rows", df.Len()),
		attribute.Int("columns", df.ColCount()),
		attribute.String("first", df.Start().Format("2006-01-02")),
		attribute.String("last", df.End().Format("2006-01-02")),
	)
	subLog.Debug().Int("NumRows", df.Len()).Time("Start", df.Start()).Time("End", df.End()).Msg("loaded eod history")
	return df, nil
}

// Fingerprint summarizes the rows of instrument by count and most recent date; it changes
// whenever new prices are loaded
func (p *PvDb) Fingerprint(ctx context.Context, instrument string) (string, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Fingerprint")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		failSpan(span, err, "could not get a database transaction")
		return "", err
	}

	var count int64
	var last time.Time
	if err := trx.QueryRow(ctx, "SELECT count(*), max(event_date) FROM eod WHERE ticker=$1", instrument).Scan(&count, &last); err != nil {
		failSpan(span, err, "fingerprint query failed")
		log.Warn().Stack().Err(err).Str("Instrument", instrument).Msg("fingerprint query failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return "", err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	return fmt.Sprintf("pvdb:%s:%s:%d:%s", instrument, strings.Join(metricNames(p.metrics), "+"), count, last.Format("2006-01-02")), nil
}

func metricNames(metrics []Metric) []string {
	names := make([]string, len(metrics))
	for idx, metric := range metrics {
		names[idx] = string(metric)
	}
	return names
}

// metricsToColumns maps metrics to eod columns. NULLs are returned as NaN so every row scans
// into plain float64 values
func metricsToColumns(metrics []Metric) (string, error) {
	metricCols := make([]string, len(metrics))
	for idx, metric := range metrics {
		var col string
		switch metric {
		case MetricOpen, MetricHigh, MetricLow, MetricClose:
			col = string(metric)
		case MetricVolume:
			col = "volume::double precision"
		default:
			return "", fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric)
		}
		metricCols[idx] = fmt.Sprintf("COALESCE(%s, 'NaN'::float8) AS %s", col, metric)
	}
	return strings.Join(metricCols, ", "), nil
}

var _ Provider = (*PvDb)(nil)
var _ Fingerprinter = (*PvDb)(nil)
