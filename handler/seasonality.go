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

package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/seasonality/data"
	"github.com/penny-vault/seasonality/observability/opentelemetry"
	"github.com/penny-vault/seasonality/seasonal"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrMissingParam     = errors.New("missing required query parameter")
	ErrConflictingParam = errors.New("window cannot be combined with start or end")
)

// Seasonality serves seasonal analyses computed from Provider
type Seasonality struct {
	Provider data.Provider
	Options  []seasonal.Option
}

// NewSeasonality creates a handler; opts are applied to every query before any per-request
// options
func NewSeasonality(provider data.Provider, opts ...seasonal.Option) *Seasonality {
	return &Seasonality{
		Provider: provider,
		Options:  opts,
	}
}

func parseAnchor(c *fiber.Ctx, name string) (seasonal.MonthDay, error) {
	val := c.Query(name)
	if val == "" {
		return seasonal.MonthDay{}, fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	return seasonal.ParseMonthDay(val)
}

func parseDate(c *fiber.Ctx, name string) (time.Time, error) {
	val := c.Query(name)
	if val == "" {
		return time.Time{}, nil
	}
	dt, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be formatted YYYY-MM-DD: %w", name, err)
	}
	return dt, nil
}

// window resolves the seasonal window from either the window query parameter or start and end
func window(c *fiber.Ctx) (start, end seasonal.MonthDay, err error) {
	if name := c.Query("window"); name != "" {
		if c.Query("start") != "" || c.Query("end") != "" {
			return start, end, ErrConflictingParam
		}
		w, err := seasonal.LookupWindow(name)
		if err != nil {
			return start, end, err
		}
		return w.Start, w.End, nil
	}

	if start, err = parseAnchor(c, "start"); err != nil {
		return start, end, err
	}
	end, err = parseAnchor(c, "end")
	return start, end, err
}

// Windows lists the named seasonal windows
func Windows(c *fiber.Ctx) error {
	windows, err := seasonal.Windows()
	if err != nil {
		log.Error().Err(err).Msg("could not load seasonal windows")
		return sendError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(windows)
}

// Get computes the seasonal table and strength summary for the window given by the start and
// end query parameters (MM-DD) or by a named window. Optional parameters: field selects the
// price column; since and until (YYYY-MM-DD) bound the history used
func (h *Seasonality) Get(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.Seasonality")
	defer span.End()

	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	start, end, err := window(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	subLog := log.With().Stringer("Start", start).Stringer("End", end).Logger()

	since, err := parseDate(c, "since")
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	until, err := parseDate(c, "until")
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	opts := make([]seasonal.Option, 0, len(h.Options)+2)
	opts = append(opts, h.Options...)
	opts = append(opts, seasonal.WithHistory(since, until))
	if field := c.Query("field"); field != "" {
		if _, err := data.ParseMetric(field); err != nil {
			return sendError(c, fiber.StatusBadRequest, fmt.Errorf("%w: %s", err, field))
		}
		opts = append(opts, seasonal.WithField(field))
	}

	analysis, err := seasonal.Analyze(ctx, h.Provider, start, end, opts...)
	switch {
	case err == nil:
		return c.JSON(analysis)
	case errors.Is(err, seasonal.ErrInvalidRange):
		return sendError(c, fiber.StatusBadRequest, err)
	case errors.Is(err, seasonal.ErrNoData):
		return sendError(c, fiber.StatusNotFound, err)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		subLog.Error().Err(err).Msg("seasonal analysis failed")
		return sendError(c, fiber.StatusInternalServerError, err)
	}
}
