// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/tiroterm/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective settings",
	Long: `Print the settings in effect after the config file and flags are
combined, as TOML. Redirect the output to create a config file:

  tiroterm config --baud 115200 > ~/.config/tiroterm/tiroterm.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Fprintf(os.Stderr, "# config file: %s\n", path)
		return active.values.Encode(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
