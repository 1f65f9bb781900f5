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

package pgxmockhelper

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

// CSVRows is a CSV fixture loaded into memory so that it can be filtered and returned as
// pgxmock rows
type CSVRows struct {
	rows    [][]any
	header  []string
	dateCol int
}

// NewCSVRows reads csvFn. typeMap converts named columns to "date" (2006-01-02) or "float64";
// an empty float64 cell becomes NaN. Any other column is kept as a string
func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	rows := &CSVRows{
		dateCol: -1,
		rows:    make([][]any, 0),
	}
	rawData, err := os.ReadFile(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not read file")
	}

	lines := strings.Split(string(rawData), "\n")

	// header + trailing new line at a minimum
	if len(lines) < 2 {
		subLog.Panic().Int("NumLines", len(lines)).Msg("input file does not have enough lines, need at least 2 (header + trailing new line)")
	}
	if lines[len(lines)-1] != "" {
		subLog.Panic().Msg("input file is missing a trailing new line")
	}

	headerRaw := lines[0]
	lines = lines[1 : len(lines)-1]
	rows.header = strings.Split(headerRaw, ",")

	for _, ll := range lines {
		cols := make([]any, len(rows.header))
		parts := strings.Split(ll, ",")
		if len(parts) != len(rows.header) {
			subLog.Panic().Str("Line", ll).Int("NumCols", len(parts)).Msg("line does not match header")
		}
		for idx, val := range parts {
			colName := rows.header[idx]
			switch typeMap[colName] {
			case "date":
				parsed, err := time.Parse("2006-01-02", val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to datetime of format 2006-01-02")
				}
				cols[idx] = parsed
				rows.dateCol = idx
			case "float64":
				if val == "" {
					cols[idx] = math.NaN()
					continue
				}
				parsed, err := strconv.ParseFloat(val, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to float64")
				}
				cols[idx] = parsed
			default:
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

func (csvRows *CSVRows) colIdx(name string) int {
	for idx, col := range csvRows.header {
		if col == name {
			return idx
		}
	}
	log.Panic().Str("Column", name).Strs("Header", csvRows.header).Msg("column not in fixture")
	return -1
}

// Where keeps rows whose column equals val
func (csvRows *CSVRows) Where(column string, val any) *CSVRows {
	idx := csvRows.colIdx(column)
	newRows := make([][]any, 0, len(csvRows.rows))
	for _, row := range csvRows.rows {
		if row[idx] == val {
			newRows = append(newRows, row)
		}
	}
	csvRows.rows = newRows
	return csvRows
}

// Select projects the fixture onto columns in the given order
func (csvRows *CSVRows) Select(columns ...string) *CSVRows {
	idxs := make([]int, len(columns))
	for ii, col := range columns {
		idxs[ii] = csvRows.colIdx(col)
	}

	newRows := make([][]any, len(csvRows.rows))
	for ii, row := range csvRows.rows {
		newRow := make([]any, len(idxs))
		for jj, idx := range idxs {
			newRow[jj] = row[idx]
		}
		newRows[ii] = newRow
	}

	dateCol := -1
	for ii, idx := range idxs {
		if idx == csvRows.dateCol {
			dateCol = ii
		}
	}

	csvRows.dateCol = dateCol
	csvRows.header = columns
	csvRows.rows = newRows
	return csvRows
}

// Distinct projects the fixture onto column keeping the first occurrence of each value
func (csvRows *CSVRows) Distinct(column string) *CSVRows {
	idx := csvRows.colIdx(column)
	seen := make(map[any]bool)
	newRows := make([][]any, 0)
	for _, row := range csvRows.rows {
		if seen[row[idx]] {
			continue
		}
		seen[row[idx]] = true
		newRows = append(newRows, []any{row[idx]})
	}
	csvRows.header = []string{column}
	csvRows.rows = newRows
	csvRows.dateCol = -1
	return csvRows
}

// Len returns the number of rows left after filtering
func (csvRows *CSVRows) Len() int {
	return len(csvRows.rows)
}

// Rows converts the fixture to pgxmock rows
func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

// MockDBInstrumentsQuery expects the instrument listing query and answers it with the distinct
// tickers of fn
func MockDBInstrumentsQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectBegin()
	db.ExpectExec("SET ROLE").WillReturnResult(pgconn.CommandTag("SET ROLE"))
	db.ExpectQuery("SELECT DISTINCT ticker FROM eod").WillReturnRows(
		NewCSVRows(fn, nil).Distinct("ticker").Rows())
	db.ExpectCommit()
}

// MockDBEodQuery expects the price history query of ticker and answers it with the rows of fn
// for that ticker projected onto columns
func MockDBEodQuery(db pgxmock.PgxConnIface, fn string, ticker string, columns ...string) {
	typeMap := map[string]string{
		"event_date": "date",
	}
	for _, col := range columns {
		typeMap[col] = "float64"
	}

	db.ExpectBegin()
	db.ExpectExec("SET ROLE").WillReturnResult(pgconn.CommandTag("SET ROLE"))
	db.ExpectQuery("SELECT event_date, .+ FROM eod WHERE ticker").WithArgs(ticker).WillReturnRows(
		NewCSVRows(fn, typeMap).Where("ticker", ticker).Select(append([]string{"event_date"}, columns...)...).Rows())
	db.ExpectCommit()
}

// MockDBFingerprintQuery expects the summary query used to fingerprint ticker
func MockDBFingerprintQuery(db pgxmock.PgxConnIface, fn string, ticker string) {
	rows := NewCSVRows(fn, map[string]string{"event_date": "date"}).Where("ticker", ticker)

	var last time.Time
	for _, row := range rows.rows {
		if dt := row[rows.dateCol].(time.Time); dt.After(last) {
			last = dt
		}
	}

	db.ExpectBegin()
	db.ExpectExec("SET ROLE").WillReturnResult(pgconn.CommandTag("SET ROLE"))
	db.ExpectQuery("SELECT count").WithArgs(ticker).WillReturnRows(
		pgxmock.NewRows([]string{"count", "max"}).AddRow(int64(rows.Len()), last))
	db.ExpectCommit()
}
