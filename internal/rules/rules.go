// Package rules implements the popup placement rule store and resolver.
//
// A rule pairs a buffer-name pattern with a partial placement configuration.
// Rules are ordered; resolving a buffer merges every matching rule field by
// field, later rules overriding earlier ones, with `ignore` absolute.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/sidepop/internal/host"
)

// Duration is a time.Duration that unmarshals from human-readable strings.
// Supports formats like "5s", "1m30s", or a bare integer number of seconds.
// A value of "0" or 0 means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Bare integers are seconds
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m30s' or whole seconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// SizeKind discriminates the three sizing strategies.
type SizeKind int

const (
	SizeFraction SizeKind = iota // fraction of the frame dimension
	SizeAbsolute                 // exact line/column count
	SizeFit                      // shrink to buffer content
)

// Size is a popup extent: a frame fraction, an absolute line/column count, or
// shrink-to-fit.
type Size struct {
	Kind     SizeKind
	Fraction float64
	Lines    int
}

// FractionSize returns a fraction-of-frame size.
func FractionSize(f float64) Size { return Size{Kind: SizeFraction, Fraction: f} }

// AbsoluteSize returns an exact line/column size.
func AbsoluteSize(n int) Size { return Size{Kind: SizeAbsolute, Lines: n} }

// FitSize returns a shrink-to-fit size.
func FitSize() Size { return Size{Kind: SizeFit} }

// UnmarshalText implements encoding.TextUnmarshaler. Accepted forms:
// "0.3" (fraction), "15" (absolute lines/columns), "fit".
func (s *Size) UnmarshalText(text []byte) error {
	v := strings.TrimSpace(string(text))

	if v == "fit" {
		*s = FitSize()
		return nil
	}

	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 {
			return fmt.Errorf("invalid size %q: absolute size must be at least 1", v)
		}
		*s = AbsoluteSize(n)
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q: must be a fraction, a line count, or 'fit'", v)
	}
	if f <= 0 || f >= 1 {
		return fmt.Errorf("invalid size %q: fraction must be between 0 and 1 exclusive", v)
	}
	*s = FractionSize(f)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// String renders the size in its config form.
func (s Size) String() string {
	switch s.Kind {
	case SizeFit:
		return "fit"
	case SizeAbsolute:
		return strconv.Itoa(s.Lines)
	default:
		return strconv.FormatFloat(s.Fraction, 'g', -1, 64)
	}
}

// MatchKind selects how a rule pattern is applied to buffer names.
// Matching is always case-sensitive; there is no fuzzy mode.
type MatchKind string

const (
	MatchRegex     MatchKind = "regex"
	MatchSubstring MatchKind = "substring"
	MatchExact     MatchKind = "exact"
)

// Rule maps a buffer-name pattern to a partial placement configuration.
// Pointer fields distinguish "unspecified" from an explicit value; resolution
// merges matching rules per field, last specifier winning.
type Rule struct {
	Pattern string    `toml:"pattern" json:"pattern" yaml:"pattern"`
	Match   MatchKind `toml:"match,omitempty" json:"match,omitempty" yaml:"match,omitempty"`

	Ignore   *bool      `toml:"ignore,omitempty" json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Side     *host.Side `toml:"side,omitempty" json:"side,omitempty" yaml:"side,omitempty"`
	Size     *Size      `toml:"size,omitempty" json:"size,omitempty" yaml:"size,omitempty"`
	Slot     *int       `toml:"slot,omitempty" json:"slot,omitempty" yaml:"slot,omitempty"`
	VSlot    *int       `toml:"vslot,omitempty" json:"vslot,omitempty" yaml:"vslot,omitempty"`
	Select   *bool      `toml:"select,omitempty" json:"select,omitempty" yaml:"select,omitempty"`
	Modeline *bool      `toml:"modeline,omitempty" json:"modeline,omitempty" yaml:"modeline,omitempty"`
	Quit     *bool      `toml:"quit,omitempty" json:"quit,omitempty" yaml:"quit,omitempty"`
	TTL      *Duration  `toml:"ttl,omitempty" json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Autosave *bool      `toml:"autosave,omitempty" json:"autosave,omitempty" yaml:"autosave,omitempty"`

	re *regexp.Regexp
}

// Validation errors.
var (
	ErrEmptyPattern = errors.New("rule pattern cannot be empty")
)

// Compile validates the rule and precompiles its matcher.
func (r *Rule) Compile() error {
	if r.Pattern == "" {
		return ErrEmptyPattern
	}

	switch r.Match {
	case "", MatchRegex:
		r.Match = MatchRegex
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
		}
		r.re = re
	case MatchSubstring, MatchExact:
		// Literal matchers need no compilation
	default:
		return fmt.Errorf("invalid match kind %q (use regex, substring, or exact)", r.Match)
	}

	if r.Side != nil {
		valid := false
		for _, s := range host.ValidSides() {
			if *r.Side == s {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid side %q, must be one of: %v", *r.Side, host.ValidSides())
		}
	}

	return nil
}

// Matches reports whether the rule's pattern matches a buffer name.
// The rule must have been compiled.
func (r *Rule) Matches(buffer string) bool {
	switch r.Match {
	case MatchSubstring:
		return strings.Contains(buffer, r.Pattern)
	case MatchExact:
		return buffer == r.Pattern
	default:
		return r.re != nil && r.re.MatchString(buffer)
	}
}

// Decision is a fully resolved placement for one buffer: every field is
// concrete, defaults applied.
type Decision struct {
	Buffer   string        `json:"buffer" yaml:"buffer"`
	Side     host.Side     `json:"side" yaml:"side"`
	Size     Size          `json:"size" yaml:"size"`
	Slot     int           `json:"slot" yaml:"slot"`
	VSlot    int           `json:"vslot" yaml:"vslot"`
	Select   bool          `json:"select" yaml:"select"`
	Modeline bool          `json:"modeline" yaml:"modeline"`
	Quit     bool          `json:"quit" yaml:"quit"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"` // 0 = never expire
	Autosave bool          `json:"autosave" yaml:"autosave"`
}

// Defaults supplies the values for fields no matching rule specifies.
type Defaults struct {
	Side     host.Side
	Size     Size
	TTL      time.Duration
	Select   bool
	Modeline bool
	Quit     bool
	Autosave bool
}

// StandardDefaults returns the stock defaults: bottom side, a quarter of the
// frame, a five second after-blur TTL, quit on escape, no focus steal.
func StandardDefaults() Defaults {
	return Defaults{
		Side:     host.SideBottom,
		Size:     FractionSize(0.25),
		TTL:      5 * time.Second,
		Select:   false,
		Modeline: false,
		Quit:     true,
		Autosave: false,
	}
}
