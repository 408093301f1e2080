// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `Enumerate the endpoints the configured transport can open.

For serial, this lists every port the OS reports, with USB VID/PID and
product where available. With --url the bridge endpoint is listed, and with
--loopback the in-memory device.

Examples:
  tiroterm ports
  tiroterm ports --url ws://bridge.local/uart

Exit codes:
  0 - At least one port found
  1 - No ports found
  2 - Enumeration error`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	s, _, err := newSession()
	if err != nil {
		return err
	}

	ports, err := s.Ports()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Enumeration error: %v\n", err)
		os.Exit(2)
	}

	if len(ports) == 0 {
		fmt.Printf("No ports found. Check the cable and device power.\n")
		os.Exit(1)
	}

	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("%-24s USB %s:%s", p.Name, p.VID, p.PID)
			if p.Product != "" {
				fmt.Printf("  %s", p.Product)
			}
			if p.SerialNumber != "" {
				fmt.Printf("  (serial %s)", p.SerialNumber)
			}
			fmt.Println()
			continue
		}
		if p.Product != "" {
			fmt.Printf("%-24s %s\n", p.Name, p.Product)
		} else {
			fmt.Println(p.Name)
		}
	}

	fmt.Printf("\n%d port(s)\n", len(ports))
	return nil
}
