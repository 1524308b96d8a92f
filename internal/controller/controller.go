// Package controller owns the popup engine's lifecycle: enable/disable with
// exact layout restore, display-request interception, TTL expiry, and the
// close/escape command surface.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/sidepop/internal/config"
	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/layout"
	"github.com/jmylchreest/sidepop/internal/registry"
	"github.com/jmylchreest/sidepop/internal/rules"
	"github.com/jmylchreest/sidepop/internal/session"
)

// Controller errors.
var (
	ErrNotPopup         = errors.New("buffer is not a popup")
	ErrDisabled         = errors.New("popup management is disabled")
	ErrNothingToRestore = errors.New("no popup to restore")
)

// SetMode selects how SetRules treats the existing rule set.
type SetMode int

const (
	ModeReplace SetMode = iota
	ModeAppend
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithSession attaches an autosave session store.
func WithSession(f *session.File) Option {
	return func(c *Controller) { c.sess = f }
}

// Controller is the process-wide popup lifecycle owner. All popup mutation
// runs through it so registry entries and host markers never diverge.
type Controller struct {
	h        host.Host
	store    *rules.Store
	resolver *rules.Resolver
	reg      *registry.Registry
	eng      *layout.Engine
	sess     *session.File
	logger   *slog.Logger

	mu      sync.Mutex
	enabled bool
	hooked  bool
	saved   []byte
	timers  map[host.WindowID]*time.Timer
}

// New builds a Controller over a host from the given configuration.
func New(h host.Host, cfg *config.Config, opts ...Option) (*Controller, error) {
	c := &Controller{
		h:      h,
		logger: slog.Default(),
		timers: make(map[host.WindowID]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.store = rules.NewStore()
	if err := c.store.SetRules(cfg.Rules); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	c.resolver = rules.NewResolver(c.store, cfg.ResolverDefaults())
	c.reg = registry.New(h, c.logger)
	c.eng = layout.New(h, c.reg, layout.Limits{
		MaxFitFraction: cfg.Layout.MaxFitFraction,
		MinSize:        cfg.Layout.MinSize,
	}, c.logger)

	return c, nil
}

// Store exposes the rule store, e.g. for the hot-reload watcher.
func (c *Controller) Store() *rules.Store {
	return c.store
}

// Registry exposes the window registry for read-mostly callers.
func (c *Controller) Registry() *registry.Registry {
	return c.reg
}

// Enabled reports whether popup management is active.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Enable snapshots the host display configuration, installs the display and
// deletion hooks, and reopens any autosaved popups from the session store.
func (c *Controller) Enable() error {
	c.mu.Lock()
	if c.enabled {
		c.mu.Unlock()
		return nil
	}

	saved, err := c.h.SaveLayout()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("snapshot layout: %w", err)
	}
	c.saved = saved
	c.enabled = true
	hooked := c.hooked
	c.hooked = true
	c.mu.Unlock()

	// Deletion and focus hooks are additive on the host, so they are
	// installed once; their handlers check the enabled flag.
	c.h.OnDisplay(c.handleDisplay)
	if !hooked {
		c.h.OnDelete(c.handleDelete)
		c.h.OnFocus(c.handleFocus)
	}

	if c.sess != nil {
		snaps, err := c.sess.Load()
		if err != nil {
			c.logger.Warn("failed to load session", "error", err)
		}
		for _, s := range snaps {
			if _, err := c.open(s.Decision); err != nil {
				c.logger.Warn("failed to restore autosaved popup",
					"buffer", s.Buffer, "error", err)
			}
		}
	}

	c.logger.Info("popup management enabled")
	return nil
}

// Disable tears everything down: timers stopped, autosave popups persisted,
// all entries unregistered, and the pre-enable display configuration
// restored exactly.
func (c *Controller) Disable() error {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil
	}
	c.enabled = false
	saved := c.saved
	c.saved = nil
	for win, t := range c.timers {
		t.Stop()
		delete(c.timers, win)
	}
	c.mu.Unlock()

	c.h.OnDisplay(nil)

	var snaps []session.Snapshot
	for _, e := range c.reg.All() {
		if e.Decision.Autosave {
			snaps = append(snaps, session.Snapshot{Buffer: e.Buffer, Decision: e.Decision})
		}
		c.reg.Unregister(e.Window)
	}

	if err := c.h.RestoreLayout(saved); err != nil {
		return fmt.Errorf("restore layout: %w", err)
	}

	if c.sess != nil {
		if err := c.sess.Rewrite(snaps); err != nil {
			c.logger.Warn("failed to save session", "error", err)
		}
	}

	c.logger.Info("popup management disabled")
	return nil
}

// handleDisplay is the installed display-request interception point.
// Unhandled requests (not a popup, override-significant, infeasible layout)
// fall through to the host's default placement.
func (c *Controller) handleDisplay(buffer string, override *host.Override) (host.WindowID, bool) {
	if !c.Enabled() {
		return "", false
	}
	if override != nil && override.Significant {
		return "", false
	}

	d, ok := c.resolver.Resolve(buffer)
	if !ok {
		return "", false
	}

	win, err := c.open(d)
	if err != nil {
		if errors.Is(err, layout.ErrInfeasible) {
			c.logger.Warn("layout infeasible, falling back to host placement",
				"buffer", buffer)
		} else {
			c.logger.Warn("failed to place popup", "buffer", buffer, "error", err)
		}
		return "", false
	}
	return win, true
}

// open places a window for the decision and records it. The reuse path
// updates the existing entry; the split path registers a new one.
func (c *Controller) open(d rules.Decision) (host.WindowID, error) {
	win, reused, err := c.eng.Place(d.Buffer, d)
	if err != nil {
		return "", err
	}

	if reused {
		c.stopTimer(win)
		if err := c.reg.Update(win, d.Buffer, d); err != nil {
			return "", err
		}
	} else {
		if _, err := c.reg.Register(win, d.Buffer, d); err != nil {
			c.h.Close(win)
			return "", err
		}
	}

	if d.Select {
		c.h.Select(win)
	} else if d.TTL > 0 {
		// Opened unfocused: the countdown starts immediately
		c.startTimer(win, d.TTL)
	}

	return win, nil
}

// Show displays a buffer as a popup. ErrNotPopup means no rule claims the
// buffer; callers fall back to the host's default display.
func (c *Controller) Show(buffer string) (host.WindowID, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	d, ok := c.resolver.Resolve(buffer)
	if !ok {
		return "", fmt.Errorf("%q: %w", buffer, ErrNotPopup)
	}
	return c.open(d)
}

// Toggle opens the buffer's popup if none is live, else closes it. The bool
// reports whether a popup was opened.
func (c *Controller) Toggle(buffer string) (host.WindowID, bool, error) {
	if !c.Enabled() {
		return "", false, ErrDisabled
	}

	if e := c.reg.Find(func(e *registry.Entry) bool {
		return e.Buffer == buffer && c.h.Live(e.Window)
	}); e != nil {
		return "", false, c.Close(e.Window, true)
	}

	win, err := c.Show(buffer)
	if err != nil {
		return "", false, err
	}
	return win, true, nil
}

// Close closes one popup. Without force, a quit=false popup is left alone.
func (c *Controller) Close(win host.WindowID, force bool) error {
	e, ok := c.reg.Get(win)
	if !ok {
		return fmt.Errorf("close %s: %w", win, registry.ErrNoSuchWindow)
	}
	if !e.Decision.Quit && !force {
		c.logger.Debug("popup declines quit", "window", win, "buffer", e.Buffer)
		return nil
	}
	c.closeEntry(e)
	return nil
}

// CloseAll closes every popup; force bypasses quit=false.
func (c *Controller) CloseAll(force bool) {
	for _, e := range c.reg.All() {
		if !e.Decision.Quit && !force {
			continue
		}
		c.closeEntry(e)
	}
}

// Escape handles the cancel signal. If the selected window is itself a
// quit-enabled popup only that one closes; otherwise every non-selected
// quit-enabled popup closes. One cancel peels one layer.
func (c *Controller) Escape() {
	sel := c.h.Selected()

	if e, ok := c.reg.Get(sel); ok {
		if e.Decision.Quit {
			c.closeEntry(e)
		}
		return
	}

	for _, e := range c.reg.All() {
		if e.Window == sel || !e.Decision.Quit {
			continue
		}
		c.closeEntry(e)
	}
}

// RestoreLast reopens the most recently closed popup.
func (c *Controller) RestoreLast() (host.WindowID, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	snap := c.reg.Restore()
	if snap == nil {
		return "", ErrNothingToRestore
	}
	return c.open(snap.Decision)
}

// Pin marks a popup pinned: no stacking reuse, no TTL expiry.
func (c *Controller) Pin(win host.WindowID, pinned bool) error {
	if err := c.reg.SetPinned(win, pinned); err != nil {
		return err
	}
	if pinned {
		c.stopTimer(win)
	}
	return nil
}

// SetRules replaces or appends to the rule set. Taking effect immediately is
// the store's contract; no disable/enable cycle is needed.
func (c *Controller) SetRules(rs []rules.Rule, mode SetMode) error {
	if mode == ModeAppend {
		return c.store.AppendRules(rs)
	}
	return c.store.SetRules(rs)
}

// NotifyContentChanged re-fits any open shrink-to-fit popups for the buffer.
func (c *Controller) NotifyContentChanged(buffer string) {
	c.eng.Refit(buffer)
}

// closeEntry is the single close path: user close, escape, TTL expiry and
// external deletion all converge here or on handleDelete.
func (c *Controller) closeEntry(e *registry.Entry) {
	c.stopTimer(e.Window)
	c.reg.Remember(e)
	if e.Decision.Autosave && c.sess != nil {
		if err := c.sess.Append(session.Snapshot{Buffer: e.Buffer, Decision: e.Decision}); err != nil {
			c.logger.Warn("failed to autosave popup", "buffer", e.Buffer, "error", err)
		}
	}
	c.reg.Unregister(e.Window)
	if c.h.Live(e.Window) {
		c.h.Close(e.Window)
	}
}

// handleDelete observes any window deletion. A popup closed behind the
// engine's back is unregistered synchronously, never lazily.
func (c *Controller) handleDelete(win host.WindowID) {
	if !c.Enabled() {
		return
	}
	c.stopTimer(win)

	e, ok := c.reg.Get(win)
	if !ok {
		return
	}
	c.reg.Remember(e)
	if e.Decision.Autosave && c.sess != nil {
		if err := c.sess.Append(session.Snapshot{Buffer: e.Buffer, Decision: e.Decision}); err != nil {
			c.logger.Warn("failed to autosave popup", "buffer", e.Buffer, "error", err)
		}
	}
	c.reg.Unregister(win)
}

// handleFocus starts and cancels TTL countdowns as focus moves.
func (c *Controller) handleFocus(prev, cur host.WindowID) {
	if !c.Enabled() {
		return
	}

	if _, ok := c.reg.Get(cur); ok {
		c.stopTimer(cur)
	}

	if prev == "" || prev == cur {
		return
	}
	if e, ok := c.reg.Get(prev); ok && e.Decision.TTL > 0 && !e.Pinned && c.h.Live(prev) {
		c.startTimer(prev, e.Decision.TTL)
	}
}

// startTimer arms (or re-arms) a window's TTL countdown.
func (c *Controller) startTimer(win host.WindowID, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if t, ok := c.timers[win]; ok {
		t.Stop()
	}
	c.timers[win] = time.AfterFunc(ttl, func() { c.expire(win) })
}

// stopTimer cancels a window's TTL countdown if one is pending.
func (c *Controller) stopTimer(win host.WindowID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[win]; ok {
		t.Stop()
		delete(c.timers, win)
	}
}

// expire closes a popup whose TTL ran out, via the same path as a
// user-initiated close. A window that got focused or pinned since survives.
func (c *Controller) expire(win host.WindowID) {
	c.mu.Lock()
	delete(c.timers, win)
	enabled := c.enabled
	c.mu.Unlock()

	if !enabled {
		return
	}
	e, ok := c.reg.Get(win)
	if !ok {
		return
	}
	if e.Pinned || c.h.Selected() == win {
		return
	}

	c.logger.Debug("popup expired", "window", win, "buffer", e.Buffer, "ttl", e.Decision.TTL)
	c.closeEntry(e)
}
