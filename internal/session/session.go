// Package session persists autosave popup snapshots across enable/disable
// cycles as a JSONL file with a schema header line.
package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/sidepop/internal/rules"
)

// SchemaVersion is the current session file schema version.
const SchemaVersion = 1

// ErrClosed is returned when operations are attempted on a closed file.
var ErrClosed = errors.New("session file is closed")

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	SidepopSchemaVersion int   `json:"sidepop_schema_version"`
	CreatedAt            int64 `json:"created_at"`
}

// Snapshot is one saved popup: enough to reopen it on the next enable.
type Snapshot struct {
	Buffer   string         `json:"buffer"`
	Decision rules.Decision `json:"decision"`
	SavedAt  int64          `json:"saved_at"`
}

// File is the JSONL-backed session store.
type File struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFile creates a session store at path, creating parent directories.
func NewFile(path string) (*File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &File{path: path}, nil
}

// Path returns the session file path.
func (f *File) Path() string {
	return f.path
}

// Load reads all snapshots. A missing file is an empty session; malformed
// lines are skipped.
func (f *File) Load() ([]Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var snaps []Snapshot
	scanner := bufio.NewScanner(file)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// First line is the header
		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.SidepopSchemaVersion > 0 {
				if header.SidepopSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.SidepopSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var s Snapshot
		if err := json.Unmarshal(line, &s); err != nil {
			// Skip malformed lines
			continue
		}
		if s.Buffer != "" {
			snaps = append(snaps, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return snaps, fmt.Errorf("error reading session file: %w", err)
	}

	return snaps, nil
}

// Append adds one snapshot to the file, creating it with a header if needed.
func (f *File) Append(s Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	file, created, err := f.openLocked()
	if err != nil {
		return err
	}
	defer file.Close()

	if created {
		if err := writeHeader(file); err != nil {
			return err
		}
	}

	if s.SavedAt == 0 {
		s.SavedAt = time.Now().Unix()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return err
	}
	return file.Sync()
}

// Rewrite replaces the session contents with the given snapshots.
func (f *File) Rewrite(snaps []Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	tmpPath := f.path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err := writeHeader(file); err != nil {
		file.Close()
		return err
	}

	now := time.Now().Unix()
	for _, s := range snaps {
		if s.SavedAt == 0 {
			s.SavedAt = now
		}
		data, err := json.Marshal(s)
		if err != nil {
			file.Close()
			return err
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			file.Close()
			return err
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, f.path)
}

// Clear removes all stored snapshots.
func (f *File) Clear() error {
	return f.Rewrite(nil)
}

// Close marks the store closed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// openLocked opens the file for appending, reporting whether it was created.
func (f *File) openLocked() (*os.File, bool, error) {
	info, statErr := os.Stat(f.path)
	created := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open session file %s: %w", f.path, err)
	}
	return file, created, nil
}

func writeHeader(file *os.File) error {
	header := schemaHeader{
		SidepopSchemaVersion: SchemaVersion,
		CreatedAt:            time.Now().Unix(),
	}
	data, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n'))
	return err
}
