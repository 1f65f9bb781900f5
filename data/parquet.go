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
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penny-vault/seasonality/dataframe"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/types"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ParquetExt = ".parquet"
)

// DateColumns are the names searched, in order, for the date index of a parquet file.
// __index_level_0__ is how pandas stores an unnamed DatetimeIndex
var DateColumns = []string{"date", "Date", "datetime", "timestamp", "__index_level_0__"}

// ParquetDir serves one instrument per parquet file in a directory. The instrument is the file
// name without its extension
type ParquetDir struct {
	Dir         string
	Parallelism int64
}

// NewParquetDir creates a provider reading *.parquet files in dir
func NewParquetDir(dir string) *ParquetDir {
	return &ParquetDir{
		Dir:         dir,
		Parallelism: 4,
	}
}

// Instruments lists the parquet files in the directory, sorted by name
func (p *ParquetDir) Instruments(ctx context.Context) ([]string, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "parquet.Instruments")
	defer span.End()

	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not read directory")
		log.Error().Err(err).Str("Dir", p.Dir).Msg("could not read data directory")
		return nil, err
	}

	instruments := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ParquetExt) {
			continue
		}
		instruments = append(instruments, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
	}
	sort.Strings(instruments)

	span.SetAttributes(attribute.Int("instruments", len(instruments)))
	return instruments, nil
}

func (p *ParquetDir) path(instrument string) (string, error) {
	if instrument == "" || filepath.Base(instrument) != instrument {
		return "", fmt.Errorf("%w: %q", ErrNotFound, instrument)
	}
	return filepath.Join(p.Dir, instrument+ParquetExt), nil
}

// Fingerprint hashes the file's path, size and modification time
func (p *ParquetDir) Fingerprint(ctx context.Context, instrument string) (string, error) {
	fn, err := p.path(instrument)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, instrument)
		}
		return "", err
	}

	hasher := blake3.New()
	fmt.Fprintf(hasher, "%s|%d|%d", fn, info.Size(), info.ModTime().UnixNano())
	return "parquet:" + hex.EncodeToString(hasher.Sum(nil)), nil
}

// Load reads the date column and every metric column present in the instrument's file
func (p *ParquetDir) Load(ctx context.Context, instrument string) (*dataframe.DataFrame[time.Time], error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "parquet.Load")
	defer span.End()

	span.SetAttributes(attribute.String("instrument", instrument))

	fn, err := p.path(instrument)
	if err != nil {
		span.SetStatus(codes.Error, "invalid instrument")
		return nil, err
	}

	subLog := log.With().Str("Instrument", instrument).Str("File", fn).Logger()

	if _, err := os.Stat(fn); os.IsNotExist(err) {
		span.SetStatus(codes.Error, "instrument not found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instrument)
	}

	fr, err := local.NewLocalFileReader(fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not open file")
		subLog.Error().Err(err).Msg("could not open parquet file")
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, p.Parallelism)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not read parquet footer")
		subLog.Error().Err(err).Msg("could not create parquet reader")
		return nil, err
	}
	defer pr.ReadStop()

	df, err := readFrame(pr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not read columns")
		subLog.Warn().Err(err).Msg("could not read parquet columns")
		return nil, fmt.Errorf("%s: %w", instrument, err)
	}

	span.SetAttributes(
		attribute.Int("rows", df.Len()),
		attribute.Int("columns", df.ColCount()),
		attribute.String("first", df.Start().Format("2006-01-02")),
		attribute.String("last", df.End().Format("2006-01-02")),
	)
	subLog.Debug().Int("NumRows", df.Len()).Strs("Columns", df.ColNames).Time("Start", df.Start()).Time("End", df.End()).Msg("loaded parquet file")
	return df, nil
}

// leafColumns maps the external name of every top-level leaf column to its schema element
func leafColumns(pr *reader.ParquetReader) map[string]*parquet.SchemaElement {
	cols := make(map[string]*parquet.SchemaElement)
	for _, se := range pr.SchemaHandler.SchemaElements[1:] {
		if se.NumChildren != nil && *se.NumChildren > 0 {
			continue
		}
		cols[se.GetName()] = se
	}
	return cols
}

func readFrame(pr *reader.ParquetReader) (*dataframe.DataFrame[time.Time], error) {
	cols := leafColumns(pr)
	numRows := pr.GetNumRows()
	root := pr.SchemaHandler.GetRootExName()

	var dateElem *parquet.SchemaElement
	for _, name := range DateColumns {
		if se, ok := cols[name]; ok {
			dateElem = se
			break
		}
	}
	if dateElem == nil {
		return nil, ErrNoDateColumn
	}

	rawDates, _, _, err := pr.ReadColumnByPath(common.PathToStr([]string{root, dateElem.GetName()}), numRows)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, len(rawDates))
	for idx, raw := range rawDates {
		if dates[idx], err = toDate(dateElem, raw); err != nil {
			return nil, err
		}
	}

	vals := make(map[Metric][]float64)
	for name, se := range cols {
		metric, err := ParseMetric(strings.ToLower(name))
		if err != nil {
			continue
		}

		raw, _, _, err := pr.ReadColumnByPath(common.PathToStr([]string{root, name}), numRows)
		if err != nil {
			return nil, err
		}

		col := make([]float64, len(raw))
		for idx, val := range raw {
			if col[idx], err = toFloat(se, val); err != nil {
				return nil, err
			}
		}
		vals[metric] = col
	}

	return metricsToDataFrame(dates, vals)
}

func toFloat(se *parquet.SchemaElement, val interface{}) (float64, error) {
	switch v := val.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: column %s has %T", ErrUnsupportedType, se.GetName(), val)
	}
}

// toDate converts a raw date value to midnight UTC. Timestamps may be in milli-, micro- or
// nanoseconds (by logical or converted type), INT96, or DATE (days since the epoch)
func toDate(se *parquet.SchemaElement, val interface{}) (time.Time, error) {
	var t time.Time
	switch v := val.(type) {
	case int64:
		unit, err := timestampUnit(se)
		if err != nil {
			return time.Time{}, err
		}
		t = time.Unix(0, v*int64(unit)).UTC()
	case int32:
		if !se.IsSetConvertedType() || se.GetConvertedType() != parquet.ConvertedType_DATE {
			if se.LogicalType == nil || !se.LogicalType.IsSetDATE() {
				return time.Time{}, fmt.Errorf("%w: INT32 column %s is not a DATE", ErrUnsupportedType, se.GetName())
			}
		}
		t = time.Unix(int64(v)*86400, 0).UTC()
	case string:
		if se.GetType() != parquet.Type_INT96 {
			return time.Time{}, fmt.Errorf("%w: string date column %s", ErrUnsupportedType, se.GetName())
		}
		t = types.INT96ToTime(v).UTC()
	default:
		return time.Time{}, fmt.Errorf("%w: date column %s has %T", ErrUnsupportedType, se.GetName(), val)
	}

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func timestampUnit(se *parquet.SchemaElement) (time.Duration, error) {
	if lt := se.LogicalType; lt != nil && lt.IsSetTIMESTAMP() {
		unit := lt.TIMESTAMP.GetUnit()
		switch {
		case unit.IsSetMILLIS():
			return time.Millisecond, nil
		case unit.IsSetMICROS():
			return time.Microsecond, nil
		case unit.IsSetNANOS():
			return time.Nanosecond, nil
		}
	}

	if se.IsSetConvertedType() {
		switch se.GetConvertedType() {
		case parquet.ConvertedType_TIMESTAMP_MILLIS:
			return time.Millisecond, nil
		case parquet.ConvertedType_TIMESTAMP_MICROS:
			return time.Microsecond, nil
		}
	}

	return 0, fmt.Errorf("%w: INT64 column %s is not a timestamp", ErrUnsupportedType, se.GetName())
}

var _ Provider = (*ParquetDir)(nil)
var _ Fingerprinter = (*ParquetDir)(nil)
