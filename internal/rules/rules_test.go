package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sidepop/internal/host"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"5s", 5 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"5", 5 * time.Second, false}, // bare integers are seconds
		{"0", 0, false},               // never expire
		{"120", 2 * time.Minute, false},
		{"abc", 0, true},
		{"5x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration())
		})
	}
}

func TestSize_UnmarshalText(t *testing.T) {
	tests := []struct {
		input    string
		expected Size
		wantErr  bool
	}{
		{"0.3", FractionSize(0.3), false},
		{"0.5", FractionSize(0.5), false},
		{"15", AbsoluteSize(15), false},
		{"1", AbsoluteSize(1), false},
		{"fit", FitSize(), false},
		{"0", Size{}, true},  // absolute must be at least 1
		{"-5", Size{}, true},
		{"1.5", Size{}, true}, // fraction must be below 1
		{"bogus", Size{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var s Size
			err := s.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestSize_String(t *testing.T) {
	assert.Equal(t, "0.3", FractionSize(0.3).String())
	assert.Equal(t, "15", AbsoluteSize(15).String())
	assert.Equal(t, "fit", FitSize().String())
}

func TestRule_Compile(t *testing.T) {
	t.Run("valid regex", func(t *testing.T) {
		r := Rule{Pattern: `^\*Help\*$`}
		require.NoError(t, r.Compile())
		assert.Equal(t, MatchRegex, r.Match)
	})

	t.Run("invalid regex", func(t *testing.T) {
		r := Rule{Pattern: `[unclosed`}
		assert.Error(t, r.Compile())
	})

	t.Run("invalid regex accepted as literal matcher", func(t *testing.T) {
		r := Rule{Pattern: `[unclosed`, Match: MatchSubstring}
		assert.NoError(t, r.Compile())
	})

	t.Run("empty pattern", func(t *testing.T) {
		r := Rule{}
		assert.ErrorIs(t, r.Compile(), ErrEmptyPattern)
	})

	t.Run("invalid match kind", func(t *testing.T) {
		r := Rule{Pattern: "x", Match: "fuzzy"}
		assert.Error(t, r.Compile())
	})

	t.Run("invalid side", func(t *testing.T) {
		bad := host.Side("middle")
		r := Rule{Pattern: "x", Side: &bad}
		assert.Error(t, r.Compile())
	})
}

func TestRule_Matches(t *testing.T) {
	t.Run("regex", func(t *testing.T) {
		r := Rule{Pattern: `^\*(Help|Messages)\*$`}
		require.NoError(t, r.Compile())

		assert.True(t, r.Matches("*Help*"))
		assert.True(t, r.Matches("*Messages*"))
		assert.False(t, r.Matches("*Warnings*"))
		assert.False(t, r.Matches("prefix *Help*"))
	})

	t.Run("substring", func(t *testing.T) {
		r := Rule{Pattern: "grep", Match: MatchSubstring}
		require.NoError(t, r.Compile())

		assert.True(t, r.Matches("*grep*"))
		assert.True(t, r.Matches("grep output"))
		assert.False(t, r.Matches("*Grep*")) // case-sensitive
	})

	t.Run("exact", func(t *testing.T) {
		r := Rule{Pattern: "*scratch*", Match: MatchExact}
		require.NoError(t, r.Compile())

		assert.True(t, r.Matches("*scratch*"))
		assert.False(t, r.Matches("*scratch* 2"))
	})
}

func TestStandardDefaults(t *testing.T) {
	d := StandardDefaults()
	assert.Equal(t, host.SideBottom, d.Side)
	assert.Equal(t, FractionSize(0.25), d.Size)
	assert.Equal(t, 5*time.Second, d.TTL)
	assert.False(t, d.Select)
	assert.True(t, d.Quit)
}
