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
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/penny-vault/seasonality/seasonal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tableFlags queryFlags

func init() {
	tableFlags.register(tableCmd)
	rootCmd.AddCommand(tableCmd)
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the return of every instrument in each year of the seasonal window",
	Long: `Print a table with one row per instrument and one column per year holding the percent
return from the --start anchor to the --end anchor in that year`,
	Example: "seasonality table --start 01-01 --end 06-01",
	Run: func(cmd *cobra.Command, args []string) {
		analysis := runAnalysis(&tableFlags)
		if tableFlags.format == "json" {
			writeJSON(os.Stdout, analysis.Table)
			return
		}
		fmt.Print(analysis.Table.DataFrame().Table())
	},
}

// runAnalysis executes the query described by flags; failures other than an empty result
// terminate the program
func runAnalysis(flags *queryFlags) *seasonal.Analysis {
	setup()
	defer startProfiling()()

	start, end, err := flags.anchors()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid seasonal window")
	}

	opts, err := flags.options()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid arguments")
	}

	ctx := context.Background()

	shutdown, err := opentelemetry.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("could not configure tracing")
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("tracer shutdown failed")
		}
	}()

	provider, err := newProvider(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create data provider")
	}

	analysis, err := seasonal.Analyze(ctx, provider, start, end, opts...)
	if err != nil {
		if !errors.Is(err, seasonal.ErrNoData) {
			log.Fatal().Err(err).Msg("seasonal analysis failed")
		}
		log.Warn().Err(err).Stringer("Start", start).Stringer("End", end).Msg("no instrument produced a seasonal return")
	}

	for _, skipped := range analysis.Table.Skipped {
		log.Info().Str("Instrument", skipped.Instrument).Err(skipped.Err).Msg("instrument excluded")
	}

	return analysis
}

func writeJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("could not encode JSON")
	}
}
