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

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/seasonality/seasonal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var windowsFormat string

func init() {
	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format, one of: `table` or `json`")
	rootCmd.AddCommand(windowsCmd)
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List the named seasonal windows",
	Long:  `List the named seasonal windows accepted by --window`,
	Run: func(cmd *cobra.Command, args []string) {
		windows, err := seasonal.Windows()
		if err != nil {
			log.Fatal().Err(err).Msg("could not load seasonal windows")
		}

		if windowsFormat == "json" {
			writeJSON(os.Stdout, windows)
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Start", "End", "Description"})
		table.SetBorder(false)
		for _, w := range windows {
			table.Append([]string{w.Name, w.Start.String(), w.End.String(), w.Description})
		}
		table.Render()
		fmt.Println()
	},
}
