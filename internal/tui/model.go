// Package tui is the interactive demo host: a Bubble Tea program rendering a
// MemHost frame so the placement engine can be exercised from a terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/sidepop/internal/controller"
	"github.com/jmylchreest/sidepop/internal/host"
)

// chromeRows is the screen estate reserved for the status and help lines.
const chromeRows = 2

// demoBuffers are the buffers the demo can display, keyed by name.
var demoBuffers = map[string]string{
	"*Help*":      "Popup demo.\nNumbers open buffers, esc dismisses,\nx closes, p pins, r restores.",
	"*Messages*":  "Loading rules...\nRules loaded.\nReady.",
	"*Warnings*":  "Warning: demo mode enabled.",
	"*grep*":      "model.go:12: match\nmodel.go:48: match\nkeymap.go:9: match",
	"scratch.txt": "This buffer matches no rule and lands in the main region.",
}

type tickMsg time.Time

// tick drives periodic repaints so TTL expiries become visible.
func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the demo's Bubble Tea model.
type Model struct {
	h    *host.MemHost
	ctl  *controller.Controller
	keys keyMap

	width  int
	height int
	status string

	styles styles
}

type styles struct {
	popup    lipgloss.Style
	selected lipgloss.Style
	main     lipgloss.Style
	modeline lipgloss.Style
	status   lipgloss.Style
	help     lipgloss.Style
}

func newStyles() styles {
	return styles{
		popup: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")),
		selected: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("205")),
		main: lipgloss.NewStyle().
			Padding(0, 1),
		modeline: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")).
			Background(lipgloss.Color("250")),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// New creates the demo model over a host and controller.
func New(h *host.MemHost, ctl *controller.Controller) Model {
	for name, content := range demoBuffers {
		cols, rows := measure(content)
		h.SetContentSize(name, cols, rows)
	}
	h.SetMainBuffer("scratch.txt")

	return Model{
		h:      h,
		ctl:    ctl,
		keys:   defaultKeyMap(),
		styles: newStyles(),
		status: "popup management enabled",
	}
}

func measure(content string) (cols, rows int) {
	for _, line := range strings.Split(content, "\n") {
		if w := lipgloss.Width(line); w > cols {
			cols = w
		}
		rows++
	}
	return cols, rows
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.h.SetFrameSize(msg.Width, msg.Height-chromeRows)
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Help):
		m.show("*Help*")
	case key.Matches(msg, k.Messages):
		m.show("*Messages*")
	case key.Matches(msg, k.Warnings):
		m.show("*Warnings*")
	case key.Matches(msg, k.Grep):
		m.show("*grep*")
	case key.Matches(msg, k.Scratch):
		m.show("scratch.txt")

	case key.Matches(msg, k.Escape):
		m.ctl.Escape()
		m.status = "escape"

	case key.Matches(msg, k.Close):
		if sel := m.h.Selected(); sel != "" {
			if err := m.ctl.Close(sel, false); err != nil {
				m.status = err.Error()
			} else {
				m.status = "closed " + string(sel)
			}
		} else {
			m.status = "no popup selected"
		}

	case key.Matches(msg, k.ForceAll):
		m.ctl.CloseAll(true)
		m.status = "closed all popups"

	case key.Matches(msg, k.Pin):
		if sel := m.h.Selected(); sel != "" {
			if err := m.ctl.Pin(sel, true); err != nil {
				m.status = err.Error()
			} else {
				m.status = "pinned " + string(sel)
			}
		} else {
			m.status = "no popup selected"
		}

	case key.Matches(msg, k.Restore):
		if _, err := m.ctl.RestoreLast(); err != nil {
			m.status = err.Error()
		} else {
			m.status = "restored last popup"
		}

	case key.Matches(msg, k.Cycle):
		m.cycleFocus()

	case key.Matches(msg, k.Enable):
		if m.ctl.Enabled() {
			if err := m.ctl.Disable(); err != nil {
				m.status = err.Error()
			} else {
				m.status = "popup management disabled"
			}
		} else {
			if err := m.ctl.Enable(); err != nil {
				m.status = err.Error()
			} else {
				m.status = "popup management enabled"
			}
		}
	}
	return m, nil
}

// show routes a buffer through the host's display request, which is where the
// engine intercepts.
func (m *Model) show(buffer string) {
	win, err := m.h.RequestDisplay(buffer, nil)
	switch {
	case err != nil:
		m.status = err.Error()
	case win == "":
		m.status = buffer + " shown in main region"
	default:
		m.status = fmt.Sprintf("%s shown in %s", buffer, win)
	}
}

// cycleFocus moves selection through main region and popups in layout order.
func (m *Model) cycleFocus() {
	wins := m.h.Windows()
	if len(wins) == 0 {
		m.h.Select("")
		return
	}
	sel := m.h.Selected()
	next := host.WindowID("")
	if sel == "" {
		next = wins[0]
	} else {
		for i, w := range wins {
			if w == sel && i+1 < len(wins) {
				next = wins[i+1]
				break
			}
		}
	}
	m.h.Select(next)
	if next == "" {
		m.status = "focus: main region"
	} else {
		m.status = "focus: " + string(next)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	cols, _ := m.h.FrameSize()

	var sections []string
	for _, id := range m.h.SideWindows(host.SideTop) {
		sections = append(sections, m.renderPopup(id, cols))
	}
	sections = append(sections, m.renderMiddle())
	for _, id := range m.h.SideWindows(host.SideBottom) {
		sections = append(sections, m.renderPopup(id, cols))
	}

	sections = append(sections,
		m.styles.status.Render(m.statusLine()),
		m.styles.help.Render("1-5 buffers · esc dismiss · x close · X close all · p pin · r restore · tab focus · e toggle · q quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderMiddle lays the left popups, main region, and right popups side by
// side.
func (m Model) renderMiddle() string {
	cols, rows := m.h.FrameSize()

	middle := rows
	for _, side := range []host.Side{host.SideTop, host.SideBottom} {
		for _, id := range m.h.SideWindows(side) {
			if size, ok := m.h.WindowSize(id); ok {
				middle -= size
			}
		}
	}
	if middle < 1 {
		middle = 1
	}

	var parts []string
	mainWidth := cols
	for _, id := range m.h.SideWindows(host.SideLeft) {
		if size, ok := m.h.WindowSize(id); ok {
			parts = append(parts, m.renderSidePopup(id, size, middle))
			mainWidth -= size
		}
	}

	mainRight := []string{}
	for _, id := range m.h.SideWindows(host.SideRight) {
		if size, ok := m.h.WindowSize(id); ok {
			mainRight = append(mainRight, m.renderSidePopup(id, size, middle))
			mainWidth -= size
		}
	}
	if mainWidth < 1 {
		mainWidth = 1
	}

	main := m.styles.main.
		Width(mainWidth - 2).
		Height(middle).
		Render(m.bufferContent(m.h.MainBuffer()))
	parts = append(parts, main)
	parts = append(parts, mainRight...)

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderPopup renders a top/bottom popup spanning the full frame width.
func (m Model) renderPopup(id host.WindowID, cols int) string {
	info, ok := m.h.Info(id)
	if !ok {
		return ""
	}

	style := m.styles.popup
	if m.h.Selected() == id {
		style = m.styles.selected
	}

	inner := info.Size
	body := m.bufferContent(info.Buffer)
	if info.Modeline {
		inner--
		body += "\n" + m.styles.modeline.Width(cols-2).Render(" "+info.Buffer)
	}
	if inner < 1 {
		inner = 1
	}
	return style.Width(cols - 2).Height(inner).Render(body)
}

// renderSidePopup renders a left/right popup of the given column extent.
func (m Model) renderSidePopup(id host.WindowID, size, rows int) string {
	info, ok := m.h.Info(id)
	if !ok {
		return ""
	}
	style := m.styles.popup
	if m.h.Selected() == id {
		style = m.styles.selected
	}
	return style.Width(size - 2).Height(rows).Render(m.bufferContent(info.Buffer))
}

func (m Model) bufferContent(buffer string) string {
	if content, ok := demoBuffers[buffer]; ok {
		return content
	}
	return buffer
}

func (m Model) statusLine() string {
	state := "off"
	if m.ctl.Enabled() {
		state = "on"
	}
	return fmt.Sprintf(" sidepop [%s] · %d popups · %s", state, m.ctl.Registry().Count(), m.status)
}
