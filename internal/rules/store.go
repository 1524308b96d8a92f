package rules

import (
	"fmt"
	"sync"
)

// Store holds the ordered rule set. Replacement is atomic: a bad rule in an
// update leaves the previous rules live.
type Store struct {
	mu        sync.RWMutex
	rules     []Rule
	onReplace []func([]Rule)
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// SetRules replaces the entire rule set. All rules are compiled before the
// swap; any compile failure aborts the whole update.
func (s *Store) SetRules(rules []Rule) error {
	compiled, err := compileAll(rules)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules = compiled
	callbacks := append([]func([]Rule){}, s.onReplace...)
	snapshot := append([]Rule{}, compiled...)
	s.mu.Unlock()

	// Replacing rules regenerates whatever derived state consumers keep, so
	// changes take effect without a disable/enable cycle.
	for _, fn := range callbacks {
		fn(snapshot)
	}
	return nil
}

// AppendRules adds rules after the existing ones, atomically.
func (s *Store) AppendRules(rules []Rule) error {
	compiled, err := compileAll(rules)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules = append(s.rules, compiled...)
	callbacks := append([]func([]Rule){}, s.onReplace...)
	snapshot := append([]Rule{}, s.rules...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(snapshot)
	}
	return nil
}

func compileAll(rules []Rule) ([]Rule, error) {
	compiled := make([]Rule, len(rules))
	copy(compiled, rules)
	for i := range compiled {
		if err := compiled[i].Compile(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return compiled, nil
}

// Rules returns a copy of the current rule set in store order.
func (s *Store) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Rule{}, s.rules...)
}

// Len returns the number of rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// FindMatches returns every rule matching the buffer, in store order. An
// empty result means the buffer is not a popup candidate.
func (s *Store) FindMatches(buffer string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Rule
	for _, r := range s.rules {
		if r.Matches(buffer) {
			matches = append(matches, r)
		}
	}
	return matches
}

// OnReplace registers a callback fired after every successful rule update.
func (s *Store) OnReplace(fn func([]Rule)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReplace = append(s.onReplace, fn)
}
