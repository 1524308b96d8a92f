package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Host errors.
var (
	ErrNoWindow        = errors.New("no such window")
	ErrSplitImpossible = errors.New("frame too small to split")
)

// WindowInfo describes one window of a MemHost for rendering and tests.
type WindowInfo struct {
	ID        WindowID
	Buffer    string
	Side      Side
	Size      int
	Dedicated bool
	Modeline  bool
}

// memWindow is the internal window record.
type memWindow struct {
	ID        WindowID          `json:"id"`
	Buffer    string            `json:"buffer"`
	Side      Side              `json:"side"`
	Size      int               `json:"size"`
	Dedicated bool              `json:"dedicated"`
	Modeline  bool              `json:"modeline"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// memSnapshot is the JSON form of a saved layout.
type memSnapshot struct {
	Cols       int                 `json:"cols"`
	Rows       int                 `json:"rows"`
	MainBuffer string              `json:"main_buffer"`
	Selected   WindowID            `json:"selected"`
	NextID     int                 `json:"next_id"`
	Order      map[Side][]WindowID `json:"order"`
	Windows    []*memWindow        `json:"windows"`
}

// MemHost is an in-memory pane host: one main region plus windows attached to
// the frame edges. It implements Host completely and is the reference host
// for tests and the demo TUI.
type MemHost struct {
	mu sync.Mutex

	cols, rows int
	mainBuffer string
	selected   WindowID
	nextID     int

	windows map[WindowID]*memWindow
	order   map[Side][]WindowID

	content map[string][2]int // buffer -> cols, rows

	onDelete  []func(WindowID)
	onFocus   []func(prev, cur WindowID)
	onDisplay DisplayFunc
}

var _ Host = (*MemHost)(nil)

// NewMemHost creates a MemHost with the given frame dimensions.
func NewMemHost(cols, rows int) *MemHost {
	return &MemHost{
		cols:    cols,
		rows:    rows,
		windows: make(map[WindowID]*memWindow),
		order:   make(map[Side][]WindowID),
		content: make(map[string][2]int),
	}
}

// SetFrameSize resizes the frame.
func (h *MemHost) SetFrameSize(cols, rows int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cols = cols
	h.rows = rows
}

// FrameSize returns the frame dimensions.
func (h *MemHost) FrameSize() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cols, h.rows
}

// SetMainBuffer sets the buffer shown in the main region.
func (h *MemHost) SetMainBuffer(buffer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mainBuffer = buffer
}

// MainBuffer returns the buffer shown in the main region.
func (h *MemHost) MainBuffer() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mainBuffer
}

// capacityLocked returns the remaining extent available for new windows along
// the given axis, keeping at least one row and one column for the main region.
func (h *MemHost) capacityLocked(vertical bool) int {
	if vertical {
		used := 0
		for _, id := range h.order[SideTop] {
			used += h.windows[id].Size
		}
		for _, id := range h.order[SideBottom] {
			used += h.windows[id].Size
		}
		return h.rows - 1 - used
	}
	used := 0
	for _, id := range h.order[SideLeft] {
		used += h.windows[id].Size
	}
	for _, id := range h.order[SideRight] {
		used += h.windows[id].Size
	}
	return h.cols - 1 - used
}

// Split creates a window on a frame edge.
func (h *MemHost) Split(side Side, size, at int) (WindowID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if size < 1 {
		return "", fmt.Errorf("%w: size %d", ErrSplitImpossible, size)
	}
	if size > h.capacityLocked(side.Vertical()) {
		return "", fmt.Errorf("%w: size %d exceeds capacity", ErrSplitImpossible, size)
	}

	h.nextID++
	id := WindowID(fmt.Sprintf("w%d", h.nextID))
	w := &memWindow{
		ID:   id,
		Side: side,
		Size: size,
		Meta: make(map[string]string),
	}
	h.windows[id] = w

	siblings := h.order[side]
	if at < 0 || at > len(siblings) {
		at = len(siblings)
	}
	siblings = append(siblings, "")
	copy(siblings[at+1:], siblings[at:])
	siblings[at] = id
	h.order[side] = siblings

	return id, nil
}

// Close destroys a window and fires deletion hooks synchronously.
func (h *MemHost) Close(id WindowID) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("close %s: %w", id, ErrNoWindow)
	}
	delete(h.windows, id)
	h.order[w.Side] = removeID(h.order[w.Side], id)

	var focusHooks []func(prev, cur WindowID)
	prev := h.selected
	if h.selected == id {
		h.selected = ""
		focusHooks = append(focusHooks, h.onFocus...)
	}
	deleteHooks := append([]func(WindowID){}, h.onDelete...)
	h.mu.Unlock()

	for _, fn := range deleteHooks {
		fn(id)
	}
	for _, fn := range focusHooks {
		fn(prev, "")
	}
	return nil
}

func removeID(ids []WindowID, id WindowID) []WindowID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// SetBuffer replaces the buffer shown in a window.
func (h *MemHost) SetBuffer(id WindowID, buffer string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return fmt.Errorf("set buffer %s: %w", id, ErrNoWindow)
	}
	w.Buffer = buffer
	return nil
}

// Buffer returns the buffer shown in a window.
func (h *MemHost) Buffer(id WindowID) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return "", false
	}
	return w.Buffer, true
}

// Resize changes a window's extent along its side's axis.
func (h *MemHost) Resize(id WindowID, size int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return fmt.Errorf("resize %s: %w", id, ErrNoWindow)
	}
	if size < 1 {
		return fmt.Errorf("%w: size %d", ErrSplitImpossible, size)
	}
	if size > h.capacityLocked(w.Side.Vertical())+w.Size {
		return fmt.Errorf("%w: size %d exceeds capacity", ErrSplitImpossible, size)
	}
	w.Size = size
	return nil
}

// SetDedicated sets the host-level dedication flag.
func (h *MemHost) SetDedicated(id WindowID, dedicated bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return fmt.Errorf("dedicate %s: %w", id, ErrNoWindow)
	}
	w.Dedicated = dedicated
	return nil
}

// Decorate applies cosmetic window options.
func (h *MemHost) Decorate(id WindowID, modeline bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return fmt.Errorf("decorate %s: %w", id, ErrNoWindow)
	}
	w.Modeline = modeline
	return nil
}

// SetMeta attaches persistent metadata to a window.
func (h *MemHost) SetMeta(id WindowID, key, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return fmt.Errorf("set meta %s: %w", id, ErrNoWindow)
	}
	w.Meta[key] = value
	return nil
}

// Meta returns a window's metadata value.
func (h *MemHost) Meta(id WindowID, key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return "", false
	}
	v, ok := w.Meta[key]
	return v, ok
}

// DeleteMeta removes a window's metadata value. Unknown windows and keys are
// a no-op.
func (h *MemHost) DeleteMeta(id WindowID, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.windows[id]; ok {
		delete(w.Meta, key)
	}
	return nil
}

// Select focuses a window. The zero WindowID focuses the main region.
func (h *MemHost) Select(id WindowID) error {
	h.mu.Lock()
	if id != "" {
		if _, ok := h.windows[id]; !ok {
			h.mu.Unlock()
			return fmt.Errorf("select %s: %w", id, ErrNoWindow)
		}
	}
	prev := h.selected
	if prev == id {
		h.mu.Unlock()
		return nil
	}
	h.selected = id
	hooks := append([]func(prev, cur WindowID){}, h.onFocus...)
	h.mu.Unlock()

	for _, fn := range hooks {
		fn(prev, id)
	}
	return nil
}

// Selected returns the focused window.
func (h *MemHost) Selected() WindowID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

// Live reports whether a window still exists.
func (h *MemHost) Live(id WindowID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.windows[id]
	return ok
}

// Windows returns all window ids, side by side in layout order.
func (h *MemHost) Windows() []WindowID {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ids []WindowID
	for _, side := range ValidSides() {
		ids = append(ids, h.order[side]...)
	}
	return ids
}

// WindowSize returns a window's extent along its side's axis.
func (h *MemHost) WindowSize(id WindowID) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return 0, false
	}
	return w.Size, true
}

// SideWindows returns the windows on one side in layout order.
func (h *MemHost) SideWindows(side Side) []WindowID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]WindowID{}, h.order[side]...)
}

// Info returns a window's description.
func (h *MemHost) Info(id WindowID) (WindowInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return WindowInfo{}, false
	}
	return WindowInfo{
		ID:        w.ID,
		Buffer:    w.Buffer,
		Side:      w.Side,
		Size:      w.Size,
		Dedicated: w.Dedicated,
		Modeline:  w.Modeline,
	}, true
}

// SetContentSize records a buffer's rendered extent for fit sizing.
func (h *MemHost) SetContentSize(buffer string, cols, rows int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.content[buffer] = [2]int{cols, rows}
}

// ContentSize measures a buffer. Unmeasured buffers report one line per
// newline-separated chunk of the buffer name, which keeps fit sizing sane in
// the demo without a real renderer.
func (h *MemHost) ContentSize(buffer string) (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.content[buffer]; ok {
		return c[0], c[1]
	}
	lines := strings.Count(buffer, "\n") + 1
	return len(buffer), lines
}

// OnDelete registers a deletion hook.
func (h *MemHost) OnDelete(fn func(WindowID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDelete = append(h.onDelete, fn)
}

// OnFocus registers a focus-change hook.
func (h *MemHost) OnFocus(fn func(prev, cur WindowID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFocus = append(h.onFocus, fn)
}

// OnDisplay installs the display-request handler, replacing any previous one.
// A nil handler uninstalls.
func (h *MemHost) OnDisplay(fn DisplayFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisplay = fn
}

// RequestDisplay shows a buffer, consulting the installed handler first.
// The default placement is a bottom split of a third of the frame; if that is
// impossible the buffer lands in the main region.
func (h *MemHost) RequestDisplay(buffer string, override *Override) (WindowID, error) {
	h.mu.Lock()
	fn := h.onDisplay
	h.mu.Unlock()

	if fn != nil {
		if id, handled := fn(buffer, override); handled {
			return id, nil
		}
	}

	side := SideBottom
	_, rows := h.FrameSize()
	size := rows / 3
	if override != nil && override.Side != "" {
		side = override.Side
		if override.Size > 0 {
			size = override.Size
		}
	}
	if size < 1 {
		size = 1
	}

	id, err := h.Split(side, size, -1)
	if err != nil {
		h.SetMainBuffer(buffer)
		return "", nil
	}
	if err := h.SetBuffer(id, buffer); err != nil {
		return "", err
	}
	return id, nil
}

// SaveLayout snapshots the full display configuration as JSON.
func (h *MemHost) SaveLayout() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := memSnapshot{
		Cols:       h.cols,
		Rows:       h.rows,
		MainBuffer: h.mainBuffer,
		Selected:   h.selected,
		NextID:     h.nextID,
		Order:      make(map[Side][]WindowID, len(h.order)),
	}
	// Side order is fixed so identical states serialize identically.
	for _, side := range ValidSides() {
		ids, ok := h.order[side]
		if !ok {
			continue
		}
		snap.Order[side] = append([]WindowID{}, ids...)
		for _, id := range ids {
			snap.Windows = append(snap.Windows, h.windows[id])
		}
	}
	return json.Marshal(snap)
}

// RestoreLayout replaces the display configuration with a saved snapshot.
// Deletion hooks do not fire; the restore is the host's own teardown path.
func (h *MemHost) RestoreLayout(data []byte) error {
	var snap memSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore layout: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cols = snap.Cols
	h.rows = snap.Rows
	h.mainBuffer = snap.MainBuffer
	h.selected = snap.Selected
	h.nextID = snap.NextID
	h.windows = make(map[WindowID]*memWindow, len(snap.Windows))
	h.order = make(map[Side][]WindowID, len(snap.Order))
	for side, ids := range snap.Order {
		h.order[side] = append([]WindowID{}, ids...)
	}
	for _, w := range snap.Windows {
		if w.Meta == nil {
			w.Meta = make(map[string]string)
		}
		h.windows[w.ID] = w
	}
	return nil
}
