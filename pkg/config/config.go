// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads tiroterm's TOML settings file and converts it into
// the line and protocol parameters used by the session.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/history"
	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	// CfgEnv overrides the config file location.
	CfgEnv = "TIROTERM_CONFIG"
	// CfgFile is the config file name inside the user config dir.
	CfgFile = "tiroterm.toml"

	// MinPollInterval is the shortest accepted I/O tick.
	MinPollInterval = 10 * time.Millisecond
)

var ErrInvalid = errors.New("invalid config")

// WebSocket holds the bridge connection settings.
type WebSocket struct {
	URL         string `toml:"url,omitempty" validate:"omitempty,url"`
	Username    string `toml:"username,omitempty"`
	NoSSLVerify bool   `toml:"no_ssl_verify,omitempty"`
}

// Values is the on-disk config document.
type Values struct {
	Port         string    `toml:"port,omitempty"`
	Parity       string    `toml:"parity" validate:"oneof=none even odd"`
	StopBits     string    `toml:"stop_bits" validate:"oneof=1 1.5 2"`
	Mode         string    `toml:"mode" validate:"oneof=8 16"`
	HistoryPath  string    `toml:"history_path" validate:"required"`
	PollInterval string    `toml:"poll_interval" validate:"required,duration"`
	WebSocket    WebSocket `toml:"websocket,omitempty"`
	Baud         int       `toml:"baud" validate:"gt=0"`
	DebugLogging bool      `toml:"debug_logging,omitempty"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Values {
	return Values{
		Baud:         transport.DefaultBaudRate,
		Parity:       "none",
		StopBits:     "1",
		Mode:         "16",
		HistoryPath:  history.DefaultFile,
		PollInterval: session.DefaultPollInterval.String(),
	}
}

// DefaultPath returns $TIROTERM_CONFIG, or tiroterm.toml in the user
// config dir, or in the working directory if that is unknown.
func DefaultPath() string {
	if p := os.Getenv(CfgEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return CfgFile
	}
	return filepath.Join(dir, "tiroterm", CfgFile)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(fsys afero.Fs, path string) (Values, error) {
	vals := Defaults()

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return vals, nil
	} else if err != nil {
		return Values{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&vals); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Values{}, fmt.Errorf("%w: %s: %s", ErrInvalid, path, strict.String())
		}
		return Values{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if err := vals.Validate(); err != nil {
		return Values{}, fmt.Errorf("%s: %w", path, err)
	}
	return vals, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", validateDuration)
	return v
}

func validateDuration(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	d, err := time.ParseDuration(val)
	return err == nil && d >= MinPollInterval
}

// Validate checks every field against its constraints.
func (v Values) Validate() error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (got %v)", ErrInvalid, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// LineConfig converts the serial settings.
func (v Values) LineConfig() (transport.LineConfig, error) {
	parity, err := transport.ParseParity(v.Parity)
	if err != nil {
		return transport.LineConfig{}, err
	}
	stop, err := transport.ParseStopBits(v.StopBits)
	if err != nil {
		return transport.LineConfig{}, err
	}
	cfg := transport.DefaultLineConfig()
	cfg.BaudRate = v.Baud
	cfg.Parity = parity
	cfg.StopBits = stop
	return cfg, nil
}

// ProtocolMode converts the mode setting.
func (v Values) ProtocolMode() (tiro.Mode, error) {
	return tiro.ParseMode(v.Mode)
}

// Interval returns the poll interval, or the session default if unset.
func (v Values) Interval() time.Duration {
	d, err := time.ParseDuration(v.PollInterval)
	if err != nil || d < MinPollInterval {
		return session.DefaultPollInterval
	}
	return d
}

// Encode writes v as TOML.
func (v Values) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(v)
}
