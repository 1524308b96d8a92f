package host

// WindowID identifies a window inside the host. The zero value refers to the
// host's main (non-popup) region.
type WindowID string

// Side is the frame edge a popup window is attached to.
type Side string

const (
	SideBottom Side = "bottom"
	SideTop    Side = "top"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// ValidSides returns all valid side values.
func ValidSides() []Side {
	return []Side{SideBottom, SideTop, SideLeft, SideRight}
}

// Vertical reports whether windows on this side consume frame rows (as
// opposed to columns).
func (s Side) Vertical() bool {
	return s == SideBottom || s == SideTop
}

// Override is a caller-supplied placement accompanying a display request.
// The engine takes precedence over it unless Significant is set.
type Override struct {
	Side        Side
	Size        int
	Significant bool
}

// DisplayFunc intercepts a display request. It returns the window the buffer
// was placed in and whether the request was handled; an unhandled request
// falls through to the host's default placement.
type DisplayFunc func(buffer string, override *Override) (WindowID, bool)

// Host is the surface the engine consumes from the embedding application.
//
// All calls are delivered on the host's event loop; hooks registered via
// OnDelete, OnFocus and OnDisplay fire synchronously from the mutating call.
type Host interface {
	// FrameSize returns the current frame dimensions in columns and rows.
	FrameSize() (cols, rows int)

	// Split creates a new window of the given extent on a frame edge.
	// Extent is rows for top/bottom, columns for left/right. at is the
	// insertion index among the windows already on that side.
	Split(side Side, size, at int) (WindowID, error)

	// Close destroys a window. Deletion hooks fire before Close returns.
	Close(id WindowID) error

	SetBuffer(id WindowID, buffer string) error
	Buffer(id WindowID) (string, bool)
	Resize(id WindowID, size int) error
	SetDedicated(id WindowID, dedicated bool) error

	// Decorate applies the popup's cosmetic window options.
	Decorate(id WindowID, modeline bool) error

	// SetMeta attaches persistent metadata to a window. Metadata survives
	// SaveLayout/RestoreLayout, which is what keeps popup markers intact
	// across session save and restore.
	SetMeta(id WindowID, key, value string) error
	Meta(id WindowID, key string) (string, bool)
	DeleteMeta(id WindowID, key string) error

	// Select focuses a window; the zero WindowID focuses the main region.
	Select(id WindowID) error
	Selected() WindowID

	Live(id WindowID) bool
	Windows() []WindowID

	// WindowSize returns a window's current extent along its side's axis.
	WindowSize(id WindowID) (size int, ok bool)

	// ContentSize measures a buffer's rendered extent for fit sizing.
	ContentSize(buffer string) (cols, rows int)

	// OnDelete registers a hook fired synchronously whenever a window is
	// destroyed by any path.
	OnDelete(fn func(WindowID))

	// OnFocus registers a hook fired when the selected window changes.
	OnFocus(fn func(prev, cur WindowID))

	// OnDisplay installs the display-request interception point. At most
	// one handler is active; installing replaces the previous one.
	OnDisplay(fn DisplayFunc)

	// RequestDisplay is the caller-initiated "show buffer" primitive. The
	// installed DisplayFunc is consulted first; unhandled requests get the
	// host's default placement.
	RequestDisplay(buffer string, override *Override) (WindowID, error)

	// SaveLayout snapshots the full display configuration; RestoreLayout
	// restores it exactly. Restoring does not fire deletion hooks.
	SaveLayout() ([]byte, error)
	RestoreLayout(data []byte) error
}
