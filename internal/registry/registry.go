// Package registry tracks the set of live popup windows and their placement
// state. Every live popup has exactly one entry and carries a persistent
// host-level marker; the two are created and destroyed together.
package registry

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/rules"
)

// Persistent window metadata keys. The marker and the serialized placement
// survive the host's layout save/restore.
const (
	MetaPopup     = "sidepop.popup"
	MetaPlacement = "sidepop.placement"
)

// Registry errors.
var (
	ErrAlreadyRegistered = errors.New("window already registered")
	ErrNoSuchWindow      = errors.New("window not tracked")
)

// Entry is the tracked state of one popup window.
type Entry struct {
	ID        string // ULID, stable for the entry's lifetime
	Window    host.WindowID
	Buffer    string
	Decision  rules.Decision
	CreatedAt time.Time

	// Pinned blocks reuse by stacking and TTL expiry.
	Pinned bool
}

// Snapshot is the remembered identity of a closed popup, enough to reopen it.
type Snapshot struct {
	Buffer   string         `json:"buffer"`
	Decision rules.Decision `json:"decision"`
}

// Registry owns the popup entries and the single remember-last slot.
type Registry struct {
	mu      sync.RWMutex
	h       host.Host
	logger  *slog.Logger
	entries map[host.WindowID]*Entry
	last    *Snapshot
}

// New creates a Registry over a host.
func New(h host.Host, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		h:       h,
		logger:  logger,
		entries: make(map[host.WindowID]*Entry),
	}
}

// Register starts tracking a window as a popup. The window receives the
// persistent popup marker and its serialized placement as metadata. A handle
// that is already tracked fails with ErrAlreadyRegistered.
func (r *Registry) Register(win host.WindowID, buffer string, d rules.Decision) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[win]; exists {
		return nil, fmt.Errorf("register %s: %w", win, ErrAlreadyRegistered)
	}

	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	e := &Entry{
		ID:        id.String(),
		Window:    win,
		Buffer:    buffer,
		Decision:  d,
		CreatedAt: time.Now(),
	}

	if err := r.markLocked(win, d); err != nil {
		return nil, err
	}
	r.entries[win] = e

	r.logger.Debug("registered popup", "window", win, "buffer", buffer, "id", e.ID)
	return e, nil
}

// markLocked writes the persistent popup metadata onto the window.
func (r *Registry) markLocked(win host.WindowID, d rules.Decision) error {
	if err := r.h.SetMeta(win, MetaPopup, "1"); err != nil {
		return fmt.Errorf("mark popup %s: %w", win, err)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.h.SetMeta(win, MetaPlacement, string(data))
}

// Unregister stops tracking a window and strips its markers. Idempotent:
// unregistering an untracked handle is a no-op.
func (r *Registry) Unregister(win host.WindowID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[win]; !exists {
		return
	}
	delete(r.entries, win)

	// Strip markers only if the window still exists; a window deleted by the
	// host took its metadata with it.
	if r.h.Live(win) {
		r.h.DeleteMeta(win, MetaPopup)
		r.h.DeleteMeta(win, MetaPlacement)
	}

	r.logger.Debug("unregistered popup", "window", win)
}

// Update rewrites the buffer and placement of an existing entry in place,
// used when stacking reuses a window for a new buffer.
func (r *Registry) Update(win host.WindowID, buffer string, d rules.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[win]
	if !exists {
		return fmt.Errorf("update %s: %w", win, ErrNoSuchWindow)
	}
	e.Buffer = buffer
	e.Decision = d
	return r.markLocked(win, d)
}

// Get returns the entry for a window.
func (r *Registry) Get(win host.WindowID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[win]
	return e, ok
}

// All returns every tracked entry, oldest first.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Find returns the first entry (oldest first) matching the predicate, or nil.
func (r *Registry) Find(pred func(*Entry) bool) *Entry {
	for _, e := range r.All() {
		if pred(e) {
			return e
		}
	}
	return nil
}

// Count returns the number of tracked popups.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SetPinned flags an entry as pinned, blocking stacking reuse and TTL expiry.
func (r *Registry) SetPinned(win host.WindowID, pinned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[win]
	if !exists {
		return fmt.Errorf("pin %s: %w", win, ErrNoSuchWindow)
	}
	e.Pinned = pinned
	return nil
}

// Remember stores the closing popup's identity in the single restore slot.
// Only the most recent snapshot is retained.
func (r *Registry) Remember(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &Snapshot{Buffer: e.Buffer, Decision: e.Decision}
}

// Restore consumes and returns the remembered snapshot, or nil if none.
func (r *Registry) Restore() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.last
	r.last = nil
	return s
}
