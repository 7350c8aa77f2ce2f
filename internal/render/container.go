package render

import (
	"context"
	"sync"

	"github.com/conneroisu/autotemplar/internal/editor"
)

// Status is the lifecycle stage of a Container.
type Status int

const (
	// StatusPending means content is still being loaded or rendered.
	StatusPending Status = iota
	// StatusReady means the container holds rendered content.
	StatusReady
	// StatusEmpty means there was nothing to render, or rendering failed.
	StatusEmpty
	// StatusDiscarded means a newer mount superseded this one.
	StatusDiscarded
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusReady:     "ready",
	StatusEmpty:     "empty",
	StatusDiscarded: "discarded",
}

// String returns the string representation of the Status
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Container is the display-only block mounted beneath a note's header.
type Container struct {
	source string

	mu     sync.RWMutex
	status Status
	html   string
	err    error

	done chan struct{}
	once sync.Once
}

var _ editor.Element = (*Container)(nil)

func newContainer(source string) *Container {
	return &Container{
		source: source,
		status: StatusPending,
		done:   make(chan struct{}),
	}
}

// Source returns the path of the note the container is shown in.
func (c *Container) Source() string { return c.source }

// HTML implements editor.Element.
func (c *Container) HTML() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.html
}

// Status returns the current status.
func (c *Container) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Err returns the error that left the container empty, if any.
func (c *Container) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Done implements editor.Element.
func (c *Container) Done() <-chan struct{} { return c.done }

// Wait blocks until the container settles or ctx ends.
func (c *Container) Wait(ctx context.Context) (Status, error) {
	select {
	case <-c.done:
		return c.Status(), nil
	case <-ctx.Done():
		return c.Status(), ctx.Err()
	}
}

// HandlePointerDown keeps primary-button presses from reaching the editor,
// so clicking the block never puts the host into edit mode.
func (c *Container) HandlePointerDown() editor.PointerResult {
	return editor.PointerResult{PreventDefault: true, StopPropagation: true}
}

func (c *Container) settle(status Status, html string, err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.status = status
		c.html = html
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}
