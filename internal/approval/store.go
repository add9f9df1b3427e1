// Package approval implements the file-system-mediated human approval
// protocol: a root directory with pending/, approved/, and denied/
// subdirectories. Guardian only ever writes into pending/; the companion
// UI (an external collaborator, out of scope) moves files between the
// three directories by rename. Store is therefore purely a reader of
// approved/denied state once it has written the pending file -- it
// never renames anything itself in production use.
package approval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Status is the three-state (plus Unknown) machine an approval id moves
// through.
type Status int

const (
	// Pending means the file exists only in pending/.
	Pending Status = iota
	// Approved means the file has been renamed into approved/.
	Approved
	// Denied means the file has been renamed into denied/.
	Denied
	// Unknown means the file is in none of the three directories. Treated
	// identically to Denied by callers: synthesize a denial response.
	Unknown
)

// String returns the directory-name token for a Status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Store manages the three approval directories rooted at Dir.
type Store struct {
	Dir string
}

// NewStore creates a Store rooted at dir, creating pending/, approved/,
// and denied/ if they do not already exist.
func NewStore(dir string) (*Store, error) {
	s := &Store{Dir: dir}
	for _, sub := range []string{"pending", "approved", "denied"} {
		if err := os.MkdirAll(s.path(sub), 0o700); err != nil {
			return nil, fmt.Errorf("approval: create %s dir: %w", sub, err)
		}
	}
	return s, nil
}

func (s *Store) path(sub string) string {
	return filepath.Join(s.Dir, sub)
}

// WritePending writes payload to pending/{filename} atomically (temp
// file in the same directory, then rename), so a watcher that sees the
// file always sees the complete JSON.
func (s *Store) WritePending(filename string, payload json.RawMessage) error {
	finalPath := filepath.Join(s.path("pending"), filename)
	tmpPath := finalPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("approval: create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(payload); err != nil {
		cleanup()
		return fmt.Errorf("approval: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("approval: fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("approval: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("approval: rename temp to pending: %w", err)
	}
	return nil
}

// StatusOf reports which of the three directories filename currently
// exists in, checked in pending/approved/denied order. Returns Unknown
// if it exists in none of them.
func (s *Store) StatusOf(filename string) Status {
	if fileExists(filepath.Join(s.path("pending"), filename)) {
		return Pending
	}
	if fileExists(filepath.Join(s.path("approved"), filename)) {
		return Approved
	}
	if fileExists(filepath.Join(s.path("denied"), filename)) {
		return Denied
	}
	return Unknown
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListPending returns the filename -> decoded payload map of every
// approval currently waiting in pending/ -- a read-only helper for an
// out-of-scope companion UI or CLI to inspect outstanding approvals.
func (s *Store) ListPending() (map[string]json.RawMessage, error) {
	entries, err := os.ReadDir(s.path("pending"))
	if err != nil {
		return nil, fmt.Errorf("approval: read pending dir: %w", err)
	}

	out := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.path("pending"), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("approval: read %s: %w", entry.Name(), err)
		}
		out[entry.Name()] = json.RawMessage(data)
	}
	return out, nil
}

// Approve renames filename from pending/ to approved/. Provided for
// completeness/testing of the protocol from the approver's side; the
// production companion UI performs this rename itself.
func (s *Store) Approve(filename string) error {
	return os.Rename(filepath.Join(s.path("pending"), filename), filepath.Join(s.path("approved"), filename))
}

// Deny renames filename from pending/ to denied/.
func (s *Store) Deny(filename string) error {
	return os.Rename(filepath.Join(s.path("pending"), filename), filepath.Join(s.path("denied"), filename))
}
