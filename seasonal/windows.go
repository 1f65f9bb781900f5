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

package seasonal

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

//go:embed windows.toml
var windowsDoc []byte

// Window is a named, commonly studied seasonal window
type Window struct {
	Name        string   `toml:"name" json:"name"`
	Description string   `toml:"description" json:"description"`
	Start       MonthDay `toml:"start" json:"start"`
	End         MonthDay `toml:"end" json:"end"`
}

var (
	windowsOnce sync.Once
	windowList  []Window
	windowsErr  error
)

func loadWindows() {
	var doc struct {
		Windows []Window `toml:"window"`
	}

	if err := toml.Unmarshal(windowsDoc, &doc); err != nil {
		log.Error().Err(err).Msg("failed to parse seasonal window definitions")
		windowsErr = err
		return
	}

	for _, w := range doc.Windows {
		if err := ValidateRange(w.Start, w.End); err != nil {
			log.Error().Err(err).Str("Window", w.Name).Msg("seasonal window definition is invalid")
			windowsErr = fmt.Errorf("window %s: %w", w.Name, err)
			return
		}
	}

	windowList = doc.Windows
}

// Windows returns the built-in named windows in definition order
func Windows() ([]Window, error) {
	windowsOnce.Do(loadWindows)
	if windowsErr != nil {
		return nil, windowsErr
	}

	out := make([]Window, len(windowList))
	copy(out, windowList)
	return out, nil
}

// LookupWindow finds a built-in window by case-insensitive name
func LookupWindow(name string) (Window, error) {
	windows, err := Windows()
	if err != nil {
		return Window{}, err
	}

	for _, w := range windows {
		if strings.EqualFold(w.Name, strings.TrimSpace(name)) {
			return w, nil
		}
	}

	return Window{}, fmt.Errorf("%w: %s", ErrUnknownWindow, name)
}
