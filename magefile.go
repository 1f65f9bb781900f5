//go:build mage

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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName    = "seasonality"
	modulePath    = "github.com/penny-vault/seasonality"
	versionPrefix = modulePath + "/common"
)

var ldflags = "-X " + versionPrefix + ".commitHash=$COMMIT_HASH -X " + versionPrefix + ".buildDate=$BUILD_DATE"

// override the go executable with GOEXE=xxx mage ...
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

var Default = Build

// Build the seasonality binary with the commit hash and build date stamped in
func Build() error {
	fmt.Println("Building...")
	return sh.RunWith(versionEnv(), goexe, "build", "-o", binaryName, "-ldflags", ldflags, ".")
}

// Clean removes the built binary
func Clean() error {
	fmt.Println("Cleaning...")
	return os.RemoveAll(binaryName)
}

// Check runs the formatter check, go vet and the race-enabled test suite
func Check() {
	mg.SerialDeps(Fmt, Vet, TestRace)
}

// Test runs every ginkgo suite
func Test() error {
	fmt.Println("Go Test")
	return sh.RunV(goexe, "test", "./...")
}

// TestRace runs every ginkgo suite with the race detector; Aggregate fans out over goroutines
func TestRace() error {
	fmt.Println("Go Test Race")
	return sh.RunV(goexe, "test", "-race", "./...")
}

// Fmt fails when any file is not gofmt'ed
func Fmt() error {
	fmt.Println("Go Format")

	// gofmt exits zero even when it finds unformatted files
	out, err := sh.Output("gofmt", "-l", "cmd", "common", "data", "dataframe", "handler", "middleware",
		"observability", "pgxmockhelper", "router", "seasonal", "main.go", "magefile.go")
	if err != nil {
		return err
	}
	if out = strings.TrimSpace(out); out != "" {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(out)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Vet runs go vet
func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

func versionEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}
