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

package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultCacheSize = 256
)

var (
	ErrCacheMiss     = errors.New("key not found in cache")
	ErrCacheNotReady = errors.New("cache has not been setup")
)

var rdb *redis.Client
var cache *lru.Cache

// SetupCache creates the in-process LRU tier (cache.local_size entries) and, when cache.redis
// is set, a redis client for the shared tier at cache.redis_url
func SetupCache() error {
	rdb = nil
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return fmt.Errorf("parse cache.redis_url: %w", err)
		}

		rdb = redis.NewClient(opt)
	}

	size := viper.GetInt("cache.local_size")
	if size <= 0 {
		size = DefaultCacheSize
	}

	var err error
	cache, err = lru.New(size)
	if err != nil {
		log.Error().Err(err).Int("Size", size).Msg("could not create LRU cache")
		return err
	}

	return nil
}

func cacheTTL() time.Duration {
	return time.Duration(viper.GetInt("cache.ttl")) * time.Second
}

// CacheSet compresses bytes and stores them under key in every configured tier
func CacheSet(ctx context.Context, key string, bytes []byte) error {
	if cache == nil {
		return ErrCacheNotReady
	}

	b2, err := Compress(bytes)
	if err != nil {
		return err
	}
	cache.Add(key, b2)

	if rdb != nil {
		return rdb.Set(ctx, key, b2, cacheTTL()).Err()
	}
	return nil
}

// CacheGet returns the decompressed value stored under key. A value found only in redis is
// promoted to the local tier. ErrCacheMiss is returned when no tier holds the key
func CacheGet(ctx context.Context, key string) ([]byte, error) {
	if cache == nil {
		return nil, ErrCacheNotReady
	}

	if v2, ok := cache.Get(key); ok {
		return Decompress(v2.([]byte))
	}

	if rdb == nil {
		return nil, ErrCacheMiss
	}

	val, err := rdb.GetEx(ctx, key, cacheTTL()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	cache.Add(key, val)
	return Decompress(val)
}

// PurgeCache empties the local tier. Entries in redis expire according to cache.ttl
func PurgeCache() {
	if cache == nil {
		return
	}
	log.Info().Int("NumEntries", cache.Len()).Msg("purging local cache")
	cache.Purge()
}

// CacheLen returns the number of entries in the local tier
func CacheLen() int {
	if cache == nil {
		return 0
	}
	return cache.Len()
}
