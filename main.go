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

package main

import (
	"errors"

	"github.com/penny-vault/seasonality/cmd"
	"github.com/penny-vault/seasonality/common"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func configureViper() {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/seasonality/")
	viper.AddConfigPath("$HOME/.config/seasonality")
	viper.AddConfigPath(".")

	viper.SetDefault("data.source", "parquet")
	viper.SetDefault("data.dir", "D")
	viper.SetDefault("cache.local_size", common.DefaultCacheSize)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.refresh", 24)
	viper.SetDefault("aggregate.concurrency", 4)
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("otlp.sample_ratio", 1.0)

	// every setting has a default or a flag, so the config file is optional
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
	}
}

func main() {
	configureViper()
	cmd.Execute()
}
