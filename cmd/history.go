// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var exportCSV bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the command history file",
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved chains to stdout as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		if exportCSV {
			return store.ExportCSV(os.Stdout)
		}
		return store.ExportJSON(os.Stdout)
	},
}

func init() {
	historyExportCmd.Flags().BoolVar(&exportCSV, "csv", false, "Export as CSV instead of JSON")
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
