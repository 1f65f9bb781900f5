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

package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PgxIface is satisfied by both *pgxpool.Pool and pgxmock connections
type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNotConnected = errors.New("database pool has not been configured")
)

var pool PgxIface

var (
	openTransactions   map[string]string
	openTransactionsMu sync.Mutex
)

// SetPool sets the connection used for every subsequent transaction
func SetPool(myPool PgxIface) {
	openTransactionsMu.Lock()
	openTransactions = make(map[string]string)
	openTransactionsMu.Unlock()
	pool = myPool
}

// Connect opens a connection pool to database.url
func Connect(ctx context.Context) error {
	myPool, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	openTransactionsMu.Lock()
	defer openTransactionsMu.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// NumOpenTransactions returns the number of transactions that have been started but neither
// committed nor rolled back
func NumOpenTransactions() int {
	openTransactionsMu.Lock()
	defer openTransactionsMu.Unlock()
	return len(openTransactions)
}

func trackTransaction(trxID, caller string) {
	openTransactionsMu.Lock()
	defer openTransactionsMu.Unlock()
	openTransactions[trxID] = caller
}

func untrackTransaction(trxID string) {
	openTransactionsMu.Lock()
	defer openTransactionsMu.Unlock()
	delete(openTransactions, trxID)
}

// Trx begins a tracked transaction. When database.role is configured the transaction switches
// to that role before it is returned so that queries run with its privileges
func Trx(ctx context.Context) (pgx.Tx, error) {
	if pool == nil {
		return nil, ErrNotConnected
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	// record transactions in openTransaction log
	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()
	trackTransaction(trxID, caller)

	wrappedTrx := &PvDbTx{
		id: trxID,
		tx: trx,
	}

	role := viper.GetString("database.role")
	if role == "" {
		return wrappedTrx, nil
	}

	// SET ROLE does not accept bind parameters
	ident := pgx.Identifier{role}
	sql := fmt.Sprintf("SET ROLE %s", ident.Sanitize())
	if _, err = wrappedTrx.Exec(ctx, sql); err != nil {
		log.Error().Stack().Err(err).Str("Role", role).Msg("could not switch role")
		if err := wrappedTrx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	return wrappedTrx, nil
}
