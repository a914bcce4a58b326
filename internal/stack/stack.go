// Package stack maintains the front-to-back ordering of photos on the wall.
package stack

import "sync"

// SourceLayer is the z-index of the frame source's fixed visual layer;
// photos always stack above it.
const SourceLayer = 20

// Coordinator owns the wall-wide top-of-stack counter. It is the only
// writer of stacking order, so two BringToFront calls can never observe the
// same value: the counter is strictly increasing for the life of the
// process.
type Coordinator struct {
	mu   sync.Mutex
	topZ int
}

// NewCoordinator creates a coordinator whose counter starts just above the
// given layer, so the first print already draws over it. A base of 0 falls
// back to the frame source layer.
func NewCoordinator(base int) *Coordinator {
	if base <= 0 {
		base = SourceLayer
	}
	return &Coordinator{topZ: base + 1}
}

// BringToFront advances the top-of-stack counter and returns the new value,
// which becomes the raised photo's z-index. Called once per drag start;
// drag-continue and drag-end never touch ordering.
func (c *Coordinator) BringToFront() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topZ++
	return c.topZ
}

// Top returns the current top-of-stack value without advancing it.
func (c *Coordinator) Top() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topZ
}
