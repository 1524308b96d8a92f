package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sidepop/internal/config"
	"github.com/jmylchreest/sidepop/internal/controller"
	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/rules"
	"github.com/jmylchreest/sidepop/internal/session"
	"github.com/jmylchreest/sidepop/internal/tui"
)

var demoOpts struct {
	noSession bool
	noWatch   bool
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Launch the interactive popup demo",
	Long: `Launch a terminal frame with the placement engine enabled.

Demo buffers are opened with the number keys and placed by the configured
rules; with no config file a small built-in rule set is used.

Key bindings:
  1-5         Show demo buffers
  esc         Dismiss popups
  x           Close the selected popup
  X           Force close all popups
  p           Pin the selected popup
  r           Restore the last closed popup
  tab         Cycle focus
  e           Toggle popup management
  q           Quit`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoOpts.noSession, "no-session", false,
		"Do not save or restore popups across runs")
	demoCmd.Flags().BoolVar(&demoOpts.noWatch, "no-watch", false,
		"Do not hot-reload rules when the config file changes")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	if len(cfg.Rules) == 0 {
		cfg.Rules = demoRules()
	}

	h := host.NewMemHost(80, 24)

	var opts []controller.Option
	opts = append(opts, controller.WithLogger(logger))

	var sess *session.File
	if !demoOpts.noSession {
		if err := config.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		var err error
		sess, err = session.NewFile(cfg.SessionPath())
		if err != nil {
			return fmt.Errorf("failed to open session file: %w", err)
		}
		defer sess.Close()
		opts = append(opts, controller.WithSession(sess))
	}

	ctl, err := controller.New(h, cfg, opts...)
	if err != nil {
		return err
	}
	if err := ctl.Enable(); err != nil {
		return err
	}
	defer ctl.Disable()

	if !demoOpts.noWatch {
		watcher, err := rules.NewFileWatcher(ctl.Store(), configFilePath(),
			config.RuleLoader(configFilePath()), logger)
		if err != nil {
			logger.Warn("failed to create rules watcher", "error", err)
		} else {
			if err := watcher.Start(); err != nil {
				logger.Warn("failed to start rules watcher", "error", err)
			}
			defer watcher.Stop()
		}
	}

	p := tea.NewProgram(tui.New(h, ctl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("demo error: %w", err)
	}
	return nil
}

// demoRules is the built-in rule set used when the config carries none.
func demoRules() []rules.Rule {
	boolPtr := func(b bool) *bool { return &b }
	sidePtr := func(s host.Side) *host.Side { return &s }
	sizePtr := func(s rules.Size) *rules.Size { return &s }
	ttlPtr := func(d rules.Duration) *rules.Duration { return &d }

	return []rules.Rule{
		{
			Pattern: `^\*Help\*$`,
			Side:    sidePtr(host.SideRight),
			Size:    sizePtr(rules.FractionSize(0.35)),
			Select:  boolPtr(true),
			TTL:     ttlPtr(0),
		},
		{
			Pattern:  `^\*Messages\*$`,
			Size:     sizePtr(rules.FitSize()),
			Modeline: boolPtr(true),
		},
		{
			Pattern: `^\*Warnings\*$`,
			Size:    sizePtr(rules.FitSize()),
			TTL:     ttlPtr(rules.Duration(3 * time.Second)),
		},
		{
			Pattern: `^\*grep\*$`,
			Side:    sidePtr(host.SideBottom),
			Size:    sizePtr(rules.FractionSize(0.3)),
			Select:  boolPtr(true),
		},
	}
}
