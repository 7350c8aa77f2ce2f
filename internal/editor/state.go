// Package editor models an editing surface as a sequence of immutable
// states. A View applies transactions one at a time; every transaction
// produces a new State whose fields are derived from the previous state and
// the transaction's effects. Derived values that did not change are carried
// over by reference so observers can compare them by identity.
package editor

import (
	"sync/atomic"

	"github.com/conneroisu/autotemplar/internal/vault"
)

// TemplateTag associates one front-matter tag with one template identifier.
type TemplateTag struct {
	Tag      string `json:"tag"`
	Template string `json:"template"`
}

// MatchSet is the ordered list of (tag, template) pairs that apply to a
// document. A MatchSet is never modified after construction; a new one is
// built for every recompute. Version increases with every construction.
type MatchSet struct {
	Version uint64
	Pairs   []TemplateTag
}

var matchSetVersion atomic.Uint64

// NewMatchSet wraps pairs in a fresh MatchSet.
func NewMatchSet(pairs []TemplateTag) *MatchSet {
	return &MatchSet{
		Version: matchSetVersion.Add(1),
		Pairs:   pairs,
	}
}

// Len returns the number of pairs. A nil MatchSet is empty.
func (m *MatchSet) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Pairs)
}

// Templates returns each template identifier once, in first-seen order.
func (m *MatchSet) Templates() []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]bool, len(m.Pairs))
	var out []string
	for _, pair := range m.Pairs {
		if !seen[pair.Template] {
			seen[pair.Template] = true
			out = append(out, pair.Template)
		}
	}
	return out
}

// Tags returns each tag once, in first-seen order.
func (m *MatchSet) Tags() []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]bool, len(m.Pairs))
	var out []string
	for _, pair := range m.Pairs {
		if !seen[pair.Tag] {
			seen[pair.Tag] = true
			out = append(out, pair.Tag)
		}
	}
	return out
}

// State is an immutable snapshot of a view.
type State struct {
	document    *vault.Document
	text        string
	matches     *MatchSet
	decorations *DecorationSet
}

// Document returns the handle of the document shown in the view.
func (s *State) Document() *vault.Document { return s.document }

// Text returns the document content.
func (s *State) Text() string { return s.text }

// Matches returns the current match set. It is never nil.
func (s *State) Matches() *MatchSet { return s.matches }

// Decorations returns the decorations computed for this state.
func (s *State) Decorations() *DecorationSet { return s.decorations }

// Effect is an instruction carried by a transaction.
type Effect interface {
	apply(next *State)
}

type setMatches struct {
	matches *MatchSet
}

func (e setMatches) apply(next *State) {
	next.matches = e.matches
}

// SetMatches replaces the match set of the view. A nil set is stored as an
// empty one.
func SetMatches(matches *MatchSet) Effect {
	if matches == nil {
		matches = NewMatchSet(nil)
	}
	return setMatches{matches: matches}
}

// Transaction describes one state transition. Doc, when non-nil, replaces
// the document text.
type Transaction struct {
	Doc     *string
	Effects []Effect
}

// ReplaceDoc is a transaction that swaps the document text.
func ReplaceDoc(text string) Transaction {
	return Transaction{Doc: &text}
}
