// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// tiroterm - TIRO Voice Module Terminal
//
// A CLI tool for sending play, volume and chained-play commands to TIRO
// voice modules and showing what they send back.

package main

import (
	"os"

	"github.com/Thermoquad/tiroterm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
