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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/penny-vault/seasonality/common"
	"github.com/penny-vault/seasonality/data"
	"github.com/penny-vault/seasonality/data/database"
	"github.com/penny-vault/seasonality/seasonal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ErrUnknownSource = errors.New("unknown data source")
	ErrNoWindow      = errors.New("either --window or both --start and --end are required")
)

// queryFlags are shared by the commands that run an analysis
type queryFlags struct {
	window string
	start  string
	end    string
	since  string
	until  string
	field  string
	format string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.window, "window", "w", "", "named seasonal window; see `seasonality windows`")
	cmd.Flags().StringVarP(&q.start, "start", "s", "", "first day of the seasonal window (MM-DD)")
	cmd.Flags().StringVarP(&q.end, "end", "e", "", "last day of the seasonal window (MM-DD)")
	cmd.Flags().StringVar(&q.since, "since", "", "ignore history before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.until, "until", "", "ignore history after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.field, "field", seasonal.DefaultField, "price column the returns are computed from")
	cmd.Flags().StringVarP(&q.format, "format", "f", "table", "output format, one of: `table` or `json`")
}

// anchors resolves the seasonal window from either --window or --start/--end and checks that
// it is non-empty
func (q *queryFlags) anchors() (start, end seasonal.MonthDay, err error) {
	switch {
	case q.window != "" && q.start == "" && q.end == "":
		w, err := seasonal.LookupWindow(q.window)
		if err != nil {
			return start, end, err
		}
		return w.Start, w.End, nil
	case q.window != "" || q.start == "" || q.end == "":
		return start, end, ErrNoWindow
	}

	if start, err = seasonal.ParseMonthDay(q.start); err != nil {
		return start, end, fmt.Errorf("--start: %w", err)
	}
	if end, err = seasonal.ParseMonthDay(q.end); err != nil {
		return start, end, fmt.Errorf("--end: %w", err)
	}
	if err = seasonal.ValidateRange(start, end); err != nil {
		return start, end, err
	}
	return start, end, nil
}

func (q *queryFlags) options() ([]seasonal.Option, error) {
	if q.format != "table" && q.format != "json" {
		return nil, fmt.Errorf("unsupported output format %q", q.format)
	}

	if _, err := data.ParseMetric(q.field); err != nil {
		return nil, fmt.Errorf("--field %s: %w", q.field, err)
	}

	since, err := parseDay(q.since)
	if err != nil {
		return nil, fmt.Errorf("--since: %w", err)
	}

	until, err := parseDay(q.until)
	if err != nil {
		return nil, fmt.Errorf("--until: %w", err)
	}

	return []seasonal.Option{
		seasonal.WithConcurrency(viper.GetInt("aggregate.concurrency")),
		seasonal.WithField(q.field),
		seasonal.WithHistory(since, until),
	}, nil
}

func parseDay(val string) (time.Time, error) {
	if val == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", val)
}

// newProvider builds the data provider selected by data.source, restricted to data.instruments
// and backed by the series cache
func newProvider(ctx context.Context) (data.Provider, error) {
	var provider data.Provider

	switch source := viper.GetString("data.source"); source {
	case "", "parquet":
		dir := viper.GetString("data.dir")
		log.Debug().Str("Dir", dir).Msg("reading parquet files")
		provider = data.NewParquetDir(dir)
	case "database":
		if err := database.Connect(ctx); err != nil {
			return nil, err
		}
		provider = data.NewPvDb(data.Metrics...)
	default:
		log.Error().Str("Source", source).Msg("unknown data source")
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	if instruments := viper.GetStringSlice("data.instruments"); len(instruments) > 0 {
		provider = data.NewUniverse(provider, instruments...)
	}

	return data.NewCached(provider, viper.GetString("data.source")), nil
}

// startProfiling begins the optional CPU profile and execution trace; the returned func stops them
func startProfiling() func() {
	stops := make([]func(), 0, 2)

	if Profile {
		f, err := os.Create("profile.out")
		if err != nil {
			log.Fatal().Err(err).Msg("could not create profile output file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start cpu profile")
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}

	if Trace {
		f, err := os.Create("trace.out")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create trace output file")
		}
		if err := trace.Start(f); err != nil {
			log.Fatal().Err(err).Msg("failed to start trace")
		}
		stops = append(stops, func() {
			trace.Stop()
			if err := f.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close trace file")
			}
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// setup initializes logging and the series cache
func setup() {
	common.SetupLogging()
	if err := common.SetupCache(); err != nil {
		log.Fatal().Err(err).Msg("could not initialize cache")
	}
}
