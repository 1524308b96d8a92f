// Package layout turns placement decisions into window arrangements against
// the host's frame: side splits ordered by slot, stacking reuse, and the
// three sizing strategies.
package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/registry"
	"github.com/jmylchreest/sidepop/internal/rules"
)

// ErrInfeasible is returned when the frame is too small for the requested
// split. Callers fall back to host-default placement.
var ErrInfeasible = errors.New("layout infeasible")

// Limits bounds the engine's geometry.
type Limits struct {
	// MaxFitFraction is the ceiling for shrink-to-fit sizing, as a fraction
	// of the frame extent. The ceiling is truncated toward zero so a fit
	// popup never exceeds it by rounding.
	MaxFitFraction float64

	// MinSize is the smallest popup extent in lines/columns.
	MinSize int
}

// Engine arranges popup windows on the host frame.
type Engine struct {
	h      host.Host
	reg    *registry.Registry
	limits Limits
	logger *slog.Logger
}

// New creates an Engine.
func New(h host.Host, reg *registry.Registry, limits Limits, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.MaxFitFraction <= 0 || limits.MaxFitFraction > 1 {
		limits.MaxFitFraction = 0.5
	}
	if limits.MinSize < 1 {
		limits.MinSize = 1
	}
	return &Engine{h: h, reg: reg, limits: limits, logger: logger}
}

// Place arranges a window for the decision. An existing live popup in the
// same side+vslot group that is not pinned is reused (stacking); otherwise
// the frame is split on the decision's side, ordered by slot then vslot
// among that side's popups. The second return reports reuse, so the caller
// knows whether to update or register the window.
func (e *Engine) Place(buffer string, d rules.Decision) (host.WindowID, bool, error) {
	if existing := e.reg.Find(func(en *registry.Entry) bool {
		return en.Decision.Side == d.Side &&
			en.Decision.VSlot == d.VSlot &&
			!en.Pinned &&
			e.h.Live(en.Window)
	}); existing != nil {
		win := existing.Window
		if err := e.h.SetBuffer(win, buffer); err != nil {
			return "", false, err
		}
		if size, err := e.computeSize(d); err == nil {
			// Keep the old extent if the resize is impossible; the
			// popup stays usable either way.
			if err := e.h.Resize(win, size); err != nil {
				e.logger.Debug("resize on reuse failed", "window", win, "error", err)
			}
		}
		e.h.Decorate(win, d.Modeline)
		e.logger.Debug("reused popup window", "window", win, "buffer", buffer)
		return win, true, nil
	}

	size, err := e.computeSize(d)
	if err != nil {
		return "", false, err
	}

	at := e.insertionIndex(d)
	win, err := e.h.Split(d.Side, size, at)
	if err != nil {
		return "", false, fmt.Errorf("place %q on %s: %w", buffer, d.Side, ErrInfeasible)
	}

	if err := e.h.SetBuffer(win, buffer); err != nil {
		e.h.Close(win)
		return "", false, err
	}

	// Dedication keeps ordinary buffer switches from repurposing the window;
	// the engine's own reuse path goes through SetBuffer above regardless.
	e.h.SetDedicated(win, true)
	e.h.Decorate(win, d.Modeline)

	e.logger.Debug("placed popup window",
		"window", win,
		"buffer", buffer,
		"side", d.Side,
		"size", size,
		"slot", d.Slot,
		"vslot", d.VSlot,
	)
	return win, false, nil
}

// Refit re-measures and resizes every open shrink-to-fit popup showing the
// buffer. Called when buffer content changes while its window stays open.
func (e *Engine) Refit(buffer string) {
	for _, en := range e.reg.All() {
		if en.Buffer != buffer || en.Decision.Size.Kind != rules.SizeFit {
			continue
		}
		if !e.h.Live(en.Window) {
			continue
		}
		size, err := e.computeSize(en.Decision)
		if err != nil {
			continue
		}
		if cur, ok := e.h.WindowSize(en.Window); ok && cur != size {
			if err := e.h.Resize(en.Window, size); err != nil {
				e.logger.Debug("refit resize failed", "window", en.Window, "error", err)
			}
		}
	}
}

// extent returns the frame dimension along the decision's split axis.
func (e *Engine) extent(side host.Side) int {
	cols, rows := e.h.FrameSize()
	if side.Vertical() {
		return rows
	}
	return cols
}

// computeSize resolves the decision's size to a concrete extent.
func (e *Engine) computeSize(d rules.Decision) (int, error) {
	extent := e.extent(d.Side)

	var size int
	switch d.Size.Kind {
	case rules.SizeAbsolute:
		size = d.Size.Lines
	case rules.SizeFit:
		ccols, crows := e.h.ContentSize(d.Buffer)
		if d.Side.Vertical() {
			size = crows
		} else {
			size = ccols
		}
		ceiling := int(e.limits.MaxFitFraction * float64(extent))
		if ceiling < e.limits.MinSize {
			ceiling = e.limits.MinSize
		}
		if size > ceiling {
			size = ceiling
		}
	default: // fraction
		size = int(d.Size.Fraction * float64(extent))
	}

	if size < e.limits.MinSize {
		size = e.limits.MinSize
	}

	// Clamp to what the frame can give up while every other window keeps at
	// least one line.
	max := e.available(d.Side)
	if max < e.limits.MinSize {
		return 0, fmt.Errorf("frame %d too small on %s: %w", extent, d.Side, ErrInfeasible)
	}
	if size > max {
		size = max
	}
	return size, nil
}

// available returns the largest extent a new popup may take on the side's
// axis, leaving one line/column for the main region.
func (e *Engine) available(side host.Side) int {
	extent := e.extent(side)
	used := 0
	for _, en := range e.reg.All() {
		if en.Decision.Side.Vertical() != side.Vertical() {
			continue
		}
		if size, ok := e.h.WindowSize(en.Window); ok {
			used += size
		}
	}
	return extent - 1 - used
}

// insertionIndex returns the position among the side's popups where the
// decision's (slot, vslot) pair sorts.
func (e *Engine) insertionIndex(d rules.Decision) int {
	type key struct{ slot, vslot int }
	var keys []key
	for _, en := range e.reg.All() {
		if en.Decision.Side != d.Side || !e.h.Live(en.Window) {
			continue
		}
		keys = append(keys, key{en.Decision.Slot, en.Decision.VSlot})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].slot != keys[j].slot {
			return keys[i].slot < keys[j].slot
		}
		return keys[i].vslot < keys[j].vslot
	})

	at := len(keys)
	for i, k := range keys {
		if d.Slot < k.slot || (d.Slot == k.slot && d.VSlot < k.vslot) {
			at = i
			break
		}
	}
	return at
}
