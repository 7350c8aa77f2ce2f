package editor

import (
	"context"
	"sync"

	"github.com/conneroisu/autotemplar/internal/vault"
)

// Update is delivered to subscribers after every transaction.
type Update struct {
	State          *State
	DocChanged     bool
	MatchesChanged bool
	// Elements is non-nil when the decoration set changed and its widgets
	// were mounted afresh.
	Elements []Element
}

// View owns the state of one open document. Transactions are applied one
// at a time in the order Dispatch is called.
type View struct {
	provider DecorationProvider
	ctx      context.Context
	cancel   context.CancelFunc

	mu          sync.Mutex
	state       *State
	elements    []Element
	subscribers map[int]func(Update)
	nextSub     int
	closed      bool
}

// NewView creates a view showing text. The match set starts empty and the
// provider computes the initial decorations.
func NewView(ctx context.Context, doc *vault.Document, text string, provider DecorationProvider) *View {
	ctx, cancel := context.WithCancel(ctx)
	v := &View{
		provider:    provider,
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[int]func(Update)),
	}

	state := &State{
		document: doc,
		text:     text,
		matches:  NewMatchSet(nil),
	}
	state.decorations = v.decorate(state, nil)
	v.state = state
	v.elements = v.mount(state.decorations)
	return v
}

func (v *View) decorate(state *State, previous *DecorationSet) *DecorationSet {
	if v.provider == nil {
		return previous
	}
	return v.provider.Refresh(state, previous)
}

func (v *View) mount(set *DecorationSet) []Element {
	elements := make([]Element, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		if widget := set.At(i).Widget; widget != nil {
			elements = append(elements, widget.Mount(v.ctx))
		}
	}
	return elements
}

// State returns the current state.
func (v *View) State() *State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Document returns the handle of the document shown in the view.
func (v *View) Document() *vault.Document {
	return v.State().Document()
}

// Block returns the first mounted element, or nil.
func (v *View) Block() Element {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.elements) == 0 {
		return nil
	}
	return v.elements[0]
}

// Dispatch applies a transaction and returns the resulting state. Calls on a
// closed view return the last state unchanged.
func (v *View) Dispatch(tx Transaction) *State {
	v.mu.Lock()
	if v.closed {
		state := v.state
		v.mu.Unlock()
		return state
	}

	prev := v.state
	next := &State{
		document: prev.document,
		text:     prev.text,
		matches:  prev.matches,
	}
	if tx.Doc != nil {
		next.text = *tx.Doc
	}
	for _, effect := range tx.Effects {
		effect.apply(next)
	}
	next.decorations = v.decorate(next, prev.decorations)

	update := Update{
		State:          next,
		DocChanged:     next.text != prev.text,
		MatchesChanged: next.matches != prev.matches,
	}
	if next.decorations != prev.decorations {
		v.elements = v.mount(next.decorations)
		update.Elements = append([]Element(nil), v.elements...)
	}
	v.state = next

	subscribers := make([]func(Update), 0, len(v.subscribers))
	for _, fn := range v.subscribers {
		subscribers = append(subscribers, fn)
	}
	v.mu.Unlock()

	for _, fn := range subscribers {
		fn(update)
	}
	return next
}

// Subscribe registers fn for updates and returns a function removing it.
func (v *View) Subscribe(fn func(Update)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextSub
	v.nextSub++
	v.subscribers[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.subscribers, id)
		v.mu.Unlock()
	}
}

// Close cancels in-flight widget work and stops accepting transactions.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
}

// Closed reports whether Close has been called.
func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
