package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sidepop/internal/host"
)

func boolPtr(b bool) *bool           { return &b }
func intPtr(n int) *int              { return &n }
func sidePtr(s host.Side) *host.Side { return &s }
func sizePtr(s Size) *Size           { return &s }

func durPtr(d time.Duration) *Duration {
	dd := Duration(d)
	return &dd
}

func newTestResolver(t *testing.T, rs ...Rule) *Resolver {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.SetRules(rs))
	return NewResolver(store, StandardDefaults())
}

func TestResolver_NoMatch(t *testing.T) {
	r := newTestResolver(t, Rule{Pattern: `^\*Help\*$`})

	_, ok := r.Resolve("random.txt")
	assert.False(t, ok)
}

func TestResolver_DefaultsApplied(t *testing.T) {
	r := newTestResolver(t, Rule{Pattern: `^\*Help\*$`})

	d, ok := r.Resolve("*Help*")
	require.True(t, ok)
	assert.Equal(t, "*Help*", d.Buffer)
	assert.Equal(t, host.SideBottom, d.Side)
	assert.Equal(t, FractionSize(0.25), d.Size)
	assert.Equal(t, 5*time.Second, d.TTL)
	assert.True(t, d.Quit)
	assert.False(t, d.Select)
}

func TestResolver_LastSpecifierWins(t *testing.T) {
	r := newTestResolver(t,
		Rule{
			Pattern: `^\*Messages\*$`,
			Side:    sidePtr(host.SideTop),
			Size:    sizePtr(AbsoluteSize(10)),
			Select:  boolPtr(true),
		},
		Rule{
			Pattern: `^\*M`,
			Side:    sidePtr(host.SideRight),
		},
	)

	d, ok := r.Resolve("*Messages*")
	require.True(t, ok)

	// The later rule overrides side but leaves the rest alone
	assert.Equal(t, host.SideRight, d.Side)
	assert.Equal(t, AbsoluteSize(10), d.Size)
	assert.True(t, d.Select)
}

func TestResolver_UnspecifiedNeverOverrides(t *testing.T) {
	r := newTestResolver(t,
		Rule{Pattern: `grep`, Match: MatchSubstring, TTL: durPtr(0)},
		Rule{Pattern: `^\*grep\*$`, Side: sidePtr(host.SideLeft)},
	)

	d, ok := r.Resolve("*grep*")
	require.True(t, ok)

	// The second rule leaves ttl unset; the first rule's explicit never-expire
	// survives rather than falling back to the default
	assert.Equal(t, time.Duration(0), d.TTL)
	assert.Equal(t, host.SideLeft, d.Side)
}

func TestResolver_IgnoreIsAbsolute(t *testing.T) {
	r := newTestResolver(t,
		Rule{Pattern: `^\*Ignored\*$`, Ignore: boolPtr(true)},
		Rule{Pattern: `^\*Ignored\*$`, Side: sidePtr(host.SideTop), Select: boolPtr(true)},
	)

	_, ok := r.Resolve("*Ignored*")
	assert.False(t, ok, "ignore wins regardless of later matching rules")
}

func TestResolver_ZeroTTLMeansNever(t *testing.T) {
	r := newTestResolver(t, Rule{Pattern: `^\*Help\*$`, TTL: durPtr(0)})

	d, ok := r.Resolve("*Help*")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d.TTL)
}

func TestResolver_SlotAndVSlot(t *testing.T) {
	r := newTestResolver(t, Rule{
		Pattern: `^\*grep\*$`,
		Slot:    intPtr(2),
		VSlot:   intPtr(1),
	})

	d, ok := r.Resolve("*grep*")
	require.True(t, ok)
	assert.Equal(t, 2, d.Slot)
	assert.Equal(t, 1, d.VSlot)
}

func TestResolver_OverlappingRuleSets(t *testing.T) {
	r := newTestResolver(t,
		Rule{
			Pattern: `^\*Messages\*$`,
			Side:    sidePtr(host.SideBottom),
			Select:  boolPtr(true),
			TTL:     durPtr(0),
		},
		Rule{
			Pattern: `^\*Warnings`,
			VSlot:   intPtr(99),
			Size:    sizePtr(FractionSize(0.25)),
		},
	)

	d, ok := r.Resolve("*Messages*")
	require.True(t, ok)
	assert.Equal(t, host.SideBottom, d.Side)
	assert.True(t, d.Select)
	assert.Equal(t, time.Duration(0), d.TTL)
	assert.Equal(t, FractionSize(0.25), d.Size) // default
	assert.Equal(t, 0, d.Slot)
	assert.Equal(t, 0, d.VSlot)

	d, ok = r.Resolve("*Warnings* and more")
	require.True(t, ok)
	assert.Equal(t, 99, d.VSlot)
	assert.Equal(t, FractionSize(0.25), d.Size)
	assert.Equal(t, host.SideBottom, d.Side) // default
	assert.False(t, d.Select)                // default
}

func TestResolver_Deterministic(t *testing.T) {
	r := newTestResolver(t,
		Rule{Pattern: `^\*W`, Side: sidePtr(host.SideTop)},
		Rule{Pattern: `Warnings`, Match: MatchSubstring, Size: sizePtr(FitSize())},
		Rule{Pattern: `^\*Warnings\*$`, Quit: boolPtr(false)},
	)

	first, ok := r.Resolve("*Warnings*")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		d, ok := r.Resolve("*Warnings*")
		require.True(t, ok)
		assert.Equal(t, first, d)
	}
}
