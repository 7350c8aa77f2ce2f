package editor

import "context"

// PointerResult tells the host what to do with a pointer event.
type PointerResult struct {
	PreventDefault  bool
	StopPropagation bool
}

// Element is a mounted visual block.
type Element interface {
	// HTML returns what the element currently displays.
	HTML() string
	// Done is closed once the element has settled (filled, empty or discarded).
	Done() <-chan struct{}
	// HandlePointerDown is called for primary-button presses on the element.
	HandlePointerDown() PointerResult
}

// Widget produces an Element when a decoration is mounted.
type Widget interface {
	Mount(ctx context.Context) Element
}

// Decoration places a widget at a document offset.
type Decoration struct {
	Pos    int
	Block  bool
	Widget Widget
}

// DecorationSet is an immutable, position-ordered set of decorations.
// Sets are compared by pointer: a provider that returns the previous set
// signals that nothing needs to be remounted.
type DecorationSet struct {
	decorations []Decoration
}

// NewDecorationSet builds a set from decorations already ordered by Pos.
func NewDecorationSet(decorations ...Decoration) *DecorationSet {
	return &DecorationSet{decorations: decorations}
}

// Len returns the number of decorations. A nil set is empty.
func (d *DecorationSet) Len() int {
	if d == nil {
		return 0
	}
	return len(d.decorations)
}

// At returns the i-th decoration.
func (d *DecorationSet) At(i int) Decoration {
	return d.decorations[i]
}

// DecorationProvider derives a decoration set from a state. previous is the
// set of the prior state, nil for the first state of a view.
type DecorationProvider interface {
	Refresh(state *State, previous *DecorationSet) *DecorationSet
}
