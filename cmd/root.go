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
	"fmt"
	"os"

	"github.com/penny-vault/seasonality/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool
var Trace bool

func init() {
	// Data source
	viper.BindEnv("data.source", "SEASONALITY_DATA_SOURCE")
	rootCmd.PersistentFlags().String("data-source", "parquet", "Where to read price history from, one of: `parquet` or `database`")
	viper.BindPFlag("data.source", rootCmd.PersistentFlags().Lookup("data-source"))

	viper.BindEnv("data.dir", "SEASONALITY_DATA_DIR")
	rootCmd.PersistentFlags().String("data-dir", "D", "Directory of <instrument>.parquet files")
	viper.BindPFlag("data.dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	rootCmd.PersistentFlags().StringSlice("instruments", []string{}, "Restrict the universe to these instruments")
	viper.BindPFlag("data.instruments", rootCmd.PersistentFlags().Lookup("instruments"))

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	viper.BindEnv("database.role", "DATABASE_ROLE")

	// Cache
	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("cache-redis-url", "", "Redis server used as a shared series cache")
	viper.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("cache-redis-url"))

	rootCmd.PersistentFlags().Int("cache-local-size", common.DefaultCacheSize, "Number of series kept in the in-process cache")
	viper.BindPFlag("cache.local_size", rootCmd.PersistentFlags().Lookup("cache-local-size"))

	// Aggregation
	rootCmd.PersistentFlags().Int("concurrency", 4, "Number of instruments evaluated in parallel")
	viper.BindPFlag("aggregate.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))

	// Logging configuration
	viper.BindEnv("log.level", "SEASONALITY_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "SEASONALITY_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "SEASONALITY_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	rootCmd.PersistentFlags().Bool("log-pretty", true, "Format logs for humans instead of as JSON")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Tracing
	viper.BindEnv("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "seasonality",
	Version: common.CurrentVersion.String(),
	Short:   "Calendar seasonality of sector returns",
	Long: `Compute the return of every instrument between two calendar anchors in each year of its
history and rank instruments by a composite seasonal strength score.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
