// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package history persists named chained-play commands in a JSON document.
//
// The document is an array of {name, command, timestamp} records kept in
// insertion order. It is rewritten in full after every change.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultFile is the document name used when none is configured.
const DefaultFile = "command_history.json"

// TimestampLayout is the stored timestamp format (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

var (
	ErrDuplicateName = errors.New("name already exists")
	ErrNotFound      = errors.New("name not found")
	ErrInvalidName   = errors.New("invalid name")
	ErrStorage       = errors.New("history storage error")
)

// Record is one saved chain.
type Record struct {
	Name      string `json:"name" csv:"name"`
	Command   string `json:"command" csv:"command"`
	Timestamp string `json:"timestamp" csv:"timestamp"`
}

// Tokens splits Command into its decimal tokens.
func (r Record) Tokens() []string {
	return strings.Fields(r.Command)
}

// Time parses Timestamp in local time.
func (r Record) Time() (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, r.Timestamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("record %q: bad timestamp %q: %w", r.Name, r.Timestamp, err)
	}
	return t, nil
}

// Store is the in-memory view of the history document.
type Store struct {
	fs      afero.Fs
	path    string
	clock   clockwork.Clock
	logger  zerolog.Logger
	mu      sync.RWMutex
	records []Record
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for new timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Load reads the document at path. A missing document yields an empty
// store; an unreadable or corrupt one yields ErrStorage.
func Load(fs afero.Fs, path string, opts ...Option) (*Store, error) {
	s := &Store{
		fs:     fs,
		path:   path,
		clock:  clockwork.NewRealClock(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug().Str("path", path).Msg("no command history yet")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrStorage, path, err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &s.records); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrStorage, path, err)
		}
	}

	s.logger.Debug().Str("path", path).Int("records", len(s.records)).Msg("loaded command history")
	return s, nil
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// normalizeName is applied to every caller-supplied name so lookups match
// what SaveNew stored.
func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func (s *Store) indexOf(name string) int {
	for i, r := range s.records {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// SaveNew appends a record stamped with the current time and persists the
// document.
func (s *Store) SaveNew(name string, tokens []string) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	s.records = append(s.records, Record{
		Name:      name,
		Command:   strings.Join(tokens, " "),
		Timestamp: s.clock.Now().Format(TimestampLayout),
	})

	if err := s.persist(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}

	s.logger.Info().Str("name", name).Int("values", len(tokens)).Msg("saved chain")
	return nil
}

// UpdateExisting replaces the command of an existing record and persists
// the document. The original timestamp is kept.
func (s *Store) UpdateExisting(name string, tokens []string) error {
	name = normalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	previous := s.records[i].Command
	s.records[i].Command = strings.Join(tokens, " ")

	if err := s.persist(); err != nil {
		s.records[i].Command = previous
		return err
	}

	s.logger.Info().Str("name", name).Int("values", len(tokens)).Msg("updated chain")
	return nil
}

// Names returns record names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.records))
	for i, r := range s.records {
		names[i] = r.Name
	}
	return names
}

// Get returns a copy of the named record.
func (s *Store) Get(name string) (Record, error) {
	name = normalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(name)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.records[i], nil
}

// Records returns a copy of every record.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// NextName proposes a default name for a new record: "chain N" where N is
// one past the record count, bumped until unused.
func (s *Store) NextName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for n := len(s.records) + 1; ; n++ {
		name := fmt.Sprintf("chain %d", n)
		if s.indexOf(name) < 0 {
			return name
		}
	}
}

// ExportCSV writes every record as CSV with a header row.
func (s *Store) ExportCSV(w io.Writer) error {
	records := s.Records()
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to export history as CSV: %w", err)
	}
	return nil
}

// ExportJSON writes the document as stored.
func (s *Store) ExportJSON(w io.Writer) error {
	data, err := encode(s.Records())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("%w: failed to encode history: %w", ErrStorage, err)
	}
	return buf.Bytes(), nil
}

// persist rewrites the whole document through a temp file and rename.
// Callers hold s.mu.
func (s *Store) persist() error {
	data, err := encode(s.records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", ErrStorage, dir, err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrStorage, tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: failed to replace %s: %w", ErrStorage, s.path, err)
	}

	return nil
}
