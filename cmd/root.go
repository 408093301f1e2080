// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/config"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Serial connection flags
	portName     string
	baudRate     int
	parityName   string
	stopBitsName string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Protocol and storage
	modeName    string
	historyPath string
	configPath  string

	loopbackMode bool
	debugLogging bool
)

// appFs backs the config and history files
var appFs = afero.NewOsFs()

// settings is the effective configuration after flags are laid over the
// config file.
type settings struct {
	values   config.Values
	line     transport.LineConfig
	mode     tiro.Mode
	interval time.Duration
}

var active settings

var rootCmd = &cobra.Command{
	Use:   "tiroterm",
	Short: "TIRO Voice Module Terminal",
	Long: `tiroterm - A CLI tool for driving TIRO voice playback modules over a serial link.

Encodes play, volume and chained-play commands as TIRO hex frames, keeps a
history of named chains, and shows timestamped text received from the module.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 1000000] [--parity none] [--stopbits 1]
  WebSocket: --url ws://host/path [--username user]
  Loopback:  --loopback (no hardware, writes are echoed back)

Protocol modes:
  --mode 16 (default): play fff3+4 hex digits, volume ffe+1 hex digit
  --mode 8:            play f3+2 hex digits, volume e+1 hex digit

Settings are read from tiroterm.toml in the user config directory, or from the
file named by TIROTERM_CONFIG or --config. Flags override the file.

For WebSocket authentication, the password is read from the TIROTERM_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Serial connection flags
	pf.StringVarP(&portName, "port", "p", "", "Serial port device")
	pf.IntVarP(&baudRate, "baud", "b", transport.DefaultBaudRate, "Baud rate (serial only)")
	pf.StringVar(&parityName, "parity", "none", "Parity: none, even or odd (serial only)")
	pf.StringVar(&stopBitsName, "stopbits", "1", "Stop bits: 1, 1.5 or 2 (serial only)")

	// WebSocket connection flags
	pf.StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	pf.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	pf.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	pf.StringVarP(&modeName, "mode", "m", "16", "Protocol mode: 8 or 16")
	pf.StringVar(&historyPath, "history", "", "Command history file (default from config)")
	pf.StringVar(&configPath, "config", "", "Config file (default $TIROTERM_CONFIG or user config dir)")
	pf.BoolVar(&loopbackMode, "loopback", false, "Use an in-memory loopback device instead of hardware")
	pf.BoolVar(&debugLogging, "debug", false, "Enable debug logging")
}

// loadSettings reads the config file and overlays explicitly set flags
func loadSettings(cmd *cobra.Command, _ []string) error {
	setupLogging(debugLogging)

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	vals, err := config.Load(appFs, path)
	if err != nil {
		return err
	}

	applyFlags(cmd.Flags(), &vals)

	if err := vals.Validate(); err != nil {
		return err
	}

	line, err := vals.LineConfig()
	if err != nil {
		return err
	}
	mode, err := vals.ProtocolMode()
	if err != nil {
		return err
	}

	active = settings{
		values:   vals,
		line:     line,
		mode:     mode,
		interval: vals.Interval(),
	}

	setupLogging(vals.DebugLogging)
	return nil
}

func applyFlags(flags *pflag.FlagSet, vals *config.Values) {
	if flags.Changed("port") {
		vals.Port = portName
	}
	if flags.Changed("baud") {
		vals.Baud = baudRate
	}
	if flags.Changed("parity") {
		vals.Parity = parityName
	}
	if flags.Changed("stopbits") {
		vals.StopBits = stopBitsName
	}
	if flags.Changed("mode") {
		vals.Mode = normaliseModeFlag(modeName)
	}
	if flags.Changed("history") {
		vals.HistoryPath = historyPath
	}
	if flags.Changed("url") {
		vals.WebSocket.URL = wsURL
	}
	if flags.Changed("username") {
		vals.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		vals.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("debug") {
		vals.DebugLogging = debugLogging
	}
}

// normaliseModeFlag accepts the spellings ParseMode does and stores the
// canonical "8" or "16".
func normaliseModeFlag(s string) string {
	mode, err := tiro.ParseMode(s)
	if err != nil {
		return s
	}
	return fmt.Sprint(mode.Bits())
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
