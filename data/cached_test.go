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

package data_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/seasonality/common"
	"github.com/penny-vault/seasonality/data"
	"github.com/penny-vault/seasonality/dataframe"
)

// countingProvider serves a fixed frame, counts loads and reports a version as fingerprint
type countingProvider struct {
	loads   int
	version int
	err     error
}

func (p *countingProvider) Instruments(ctx context.Context) ([]string, error) {
	return []string{"XLK", "XLE"}, nil
}

func (p *countingProvider) Load(ctx context.Context, instrument string) (*dataframe.DataFrame[time.Time], error) {
	p.loads++
	if p.err != nil {
		return nil, p.err
	}
	df := dataframe.New[time.Time]("close")
	df.InsertRow(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), 100)
	df.InsertRow(time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), math.NaN())
	df.InsertRow(time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC), float64(100+p.version))
	return df, nil
}

func (p *countingProvider) Fingerprint(ctx context.Context, instrument string) (string, error) {
	return fmt.Sprintf("%s:v%d", instrument, p.version), nil
}

var _ = Describe("Cached provider", func() {
	var (
		inner  *countingProvider
		cached *data.Cached
		ctx    context.Context
	)

	BeforeEach(func() {
		viper.Set("cache.redis", false)
		viper.Set("cache.local_size", 16)
		Expect(common.SetupCache()).To(Succeed())

		ctx = context.Background()
		inner = &countingProvider{}
		cached = data.NewCached(inner, "test")
	})

	It("passes instrument listing through", func() {
		instruments, err := cached.Instruments(ctx)
		Expect(err).To(BeNil())
		Expect(instruments).To(Equal([]string{"XLK", "XLE"}))
	})

	It("loads each instrument once", func() {
		first, err := cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())
		second, err := cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())

		Expect(inner.loads).To(Equal(1))
		Expect(second.Index).To(Equal(first.Index))
		Expect(second.ColNames).To(Equal([]string{"close"}))
		Expect(second.Vals[0][0]).To(Equal(100.0))
		Expect(math.IsNaN(second.Vals[0][1])).To(BeTrue())
		Expect(second.Vals[0][2]).To(Equal(100.0))
	})

	It("reloads when the fingerprint changes", func() {
		_, err := cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())

		inner.version = 1
		df, err := cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())
		Expect(inner.loads).To(Equal(2))
		Expect(df.Vals[0][2]).To(Equal(101.0))
	})

	It("reloads after the cache is purged", func() {
		_, err := cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())
		common.PurgeCache()
		_, err = cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())
		Expect(inner.loads).To(Equal(2))
	})

	It("does not cache failures", func() {
		inner.err = errors.New("disk error")
		_, err := cached.Load(ctx, "XLK")
		Expect(err).To(MatchError("disk error"))

		inner.err = nil
		_, err = cached.Load(ctx, "XLK")
		Expect(err).To(BeNil())
		Expect(inner.loads).To(Equal(2))
	})
})

var _ = Describe("Universe", func() {
	It("restricts instruments to its members", func() {
		universe := data.NewUniverse(&countingProvider{}, "XLE", "XLU")

		instruments, err := universe.Instruments(context.Background())
		Expect(err).To(BeNil())
		Expect(instruments).To(Equal([]string{"XLE"}))

		_, err = universe.Load(context.Background(), "XLK")
		Expect(err).To(MatchError(data.ErrNotFound))

		_, err = universe.Load(context.Background(), "XLE")
		Expect(err).To(BeNil())
	})

	It("is unrestricted without members", func() {
		instruments, err := data.NewUniverse(&countingProvider{}).Instruments(context.Background())
		Expect(err).To(BeNil())
		Expect(instruments).To(Equal([]string{"XLK", "XLE"}))
	})
})

var _ = Describe("Metrics", func() {
	It("parses known metric names", func() {
		metric, err := data.ParseMetric("close")
		Expect(err).To(BeNil())
		Expect(metric).To(Equal(data.MetricClose))

		_, err = data.ParseMetric("dividend")
		Expect(err).To(MatchError(data.ErrUnsupportedMetric))
	})
})
