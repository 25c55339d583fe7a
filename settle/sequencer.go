package settle

import (
	"context"
	"sync/atomic"
)

// Sequencer supplies the marker stamped on records paid in one step. In a
// chain-backed deployment it is the block height; markers must never
// decrease between calls.
type Sequencer interface {
	Next(ctx context.Context) (uint64, error)
}

// SequencerFunc adapts a function to Sequencer.
type SequencerFunc func(ctx context.Context) (uint64, error)

// Next implements Sequencer.
func (f SequencerFunc) Next(ctx context.Context) (uint64, error) { return f(ctx) }

// Counter is an in-process Sequencer that counts up from a start value.
type Counter struct {
	n atomic.Uint64
}

var _ Sequencer = (*Counter)(nil)

// NewCounter returns a Counter whose first marker is start+1.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.n.Store(start)
	return c
}

// Next implements Sequencer.
func (c *Counter) Next(context.Context) (uint64, error) {
	return c.n.Add(1), nil
}
