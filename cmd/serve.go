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
	"os"
	"os/signal"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/penny-vault/seasonality/common"
	"github.com/penny-vault/seasonality/data/database"
	"github.com/penny-vault/seasonality/handler"
	"github.com/penny-vault/seasonality/middleware"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/penny-vault/seasonality/router"
	"github.com/penny-vault/seasonality/seasonal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	serveCmd.Flags().String("cors-origins", "*", "Comma separated list of origins allowed to call the API")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	serveCmd.Flags().Int("cache-refresh", 24, "Hours between purges of the series cache")
	viper.BindPFlag("cache.refresh", serveCmd.Flags().Lookup("cache-refresh"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the seasonality API server",
	Long:  `Run HTTP server that answers seasonal queries over the configured universe`,
	Run: func(cmd *cobra.Command, args []string) {
		defer startProfiling()()

		setup()
		log.Info().Msg("initialized logging")

		ctx := context.Background()

		shutdownTracer, err := opentelemetry.Setup()
		if err != nil {
			log.Fatal().Err(err).Msg("could not configure tracing")
		}
		defer func() {
			if err := shutdownTracer(ctx); err != nil {
				log.Error().Err(err).Msg("tracer shutdown failed")
			}
		}()

		provider, err := newProvider(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create data provider")
		}
		log.Info().Str("Source", viper.GetString("data.source")).Msg("initialized data provider")

		app := fiber.New(fiber.Config{
			AppName:     common.ProgramName,
			JSONEncoder: json.Marshal,
		})

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c
			log.Info().Str("Signal", sig.String()).Msg("shutting down")
			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("error during shutdown")
			}
		}()

		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,HEAD",
		}))

		app.Use(middleware.NewLogger())

		seasonality := handler.NewSeasonality(provider, seasonal.WithConcurrency(viper.GetInt("aggregate.concurrency")))
		router.SetupRoutes(app, seasonality)

		// cached series go stale as new prices arrive
		scheduler := gocron.NewScheduler(time.UTC)
		refresh := viper.GetInt("cache.refresh")
		if refresh <= 0 {
			refresh = 24
		}
		if _, err := scheduler.Every(refresh).Hours().Do(func() {
			log.Info().Int("NumEntries", common.CacheLen()).Msg("purging series cache")
			common.PurgeCache()
			if viper.GetString("data.source") == "database" {
				database.LogOpenTransactions()
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("could not schedule cache purge")
		}
		scheduler.StartAsync()
		defer scheduler.Stop()

		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	},
}
