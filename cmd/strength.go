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

	"github.com/spf13/cobra"
)

var strengthFlags queryFlags

func init() {
	strengthFlags.register(strengthCmd)
	rootCmd.AddCommand(strengthCmd)
}

var strengthCmd = &cobra.Command{
	Use:   "strength",
	Short: "Rank instruments by seasonal strength",
	Long: `Score every instrument on the average, consistency and volatility of its returns in the
seasonal window and print them strongest first`,
	Example: "seasonality strength --window sell-in-may --since 2000-01-01",
	Run: func(cmd *cobra.Command, args []string) {
		analysis := runAnalysis(&strengthFlags)
		if strengthFlags.format == "json" {
			writeJSON(os.Stdout, analysis.Strength)
			return
		}
		fmt.Print(analysis.Strength.DataFrame().Table())
	},
}
