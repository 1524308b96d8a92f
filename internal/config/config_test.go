package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/rules"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "bottom", cfg.Defaults.Side)
	assert.Equal(t, rules.FractionSize(0.25), cfg.Defaults.Size)
	assert.Equal(t, 5*time.Second, cfg.Defaults.TTL.Duration())
	assert.True(t, cfg.Defaults.Quit)
	assert.False(t, cfg.Defaults.Select)
	assert.Equal(t, 0.5, cfg.Layout.MaxFitFraction)
	assert.Equal(t, 1, cfg.Layout.MinSize)
	assert.Empty(t, cfg.Rules)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidepop.toml")
	content := `
[defaults]
side = "right"
size = "0.3"
ttl = "10s"
quit = false

[layout]
max_fit_fraction = 0.4
min_size = 2

[[rules]]
pattern = '^\*Help\*$'
side = "left"
size = "fit"
select = true
ttl = "0"

[[rules]]
pattern = "grep"
match = "substring"
size = "15"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "right", cfg.Defaults.Side)
	assert.Equal(t, rules.FractionSize(0.3), cfg.Defaults.Size)
	assert.Equal(t, 10*time.Second, cfg.Defaults.TTL.Duration())
	assert.False(t, cfg.Defaults.Quit)
	assert.Equal(t, 0.4, cfg.Layout.MaxFitFraction)
	assert.Equal(t, 2, cfg.Layout.MinSize)

	require.Len(t, cfg.Rules, 2)

	r := cfg.Rules[0]
	require.NotNil(t, r.Side)
	assert.Equal(t, host.SideLeft, *r.Side)
	require.NotNil(t, r.Size)
	assert.Equal(t, rules.FitSize(), *r.Size)
	require.NotNil(t, r.Select)
	assert.True(t, *r.Select)
	require.NotNil(t, r.TTL)
	assert.Equal(t, time.Duration(0), r.TTL.Duration())
	assert.Nil(t, r.Quit, "unspecified fields stay unset")

	r = cfg.Rules[1]
	assert.Equal(t, rules.MatchSubstring, r.Match)
	require.NotNil(t, r.Size)
	assert.Equal(t, rules.AbsoluteSize(15), *r.Size)
}

func TestLoadConfig_InvalidRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidepop.toml")
	content := `
[[rules]]
pattern = '[unclosed'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("bad side", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Defaults.Side = "middle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad max_fit_fraction", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Layout.MaxFitFraction = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad min_size", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Layout.MinSize = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidepop.toml")

	cfg := DefaultConfig()
	side := host.SideTop
	cfg.Rules = []rules.Rule{{Pattern: `^\*Help\*$`, Side: &side}}
	require.NoError(t, cfg.Validate())

	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Defaults, loaded.Defaults)
	require.Len(t, loaded.Rules, 1)
	assert.Equal(t, `^\*Help\*$`, loaded.Rules[0].Pattern)
	require.NotNil(t, loaded.Rules[0].Side)
	assert.Equal(t, host.SideTop, *loaded.Rules[0].Side)
}

func TestConfig_ResolverDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Side = "left"
	cfg.Defaults.Select = true

	d := cfg.ResolverDefaults()
	assert.Equal(t, host.SideLeft, d.Side)
	assert.True(t, d.Select)
	assert.Equal(t, 5*time.Second, d.TTL)
}

func TestConfig_SessionPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.File = "/tmp/custom.jsonl"
	assert.Equal(t, "/tmp/custom.jsonl", cfg.SessionPath())
}
