// Package stack provides unit tests for the stacking coordinator.
package stack

import (
	"sort"
	"sync"
	"testing"
)

// TestNewCoordinator_base verifies the counter starts above the frame
// source layer.
func TestNewCoordinator_base(t *testing.T) {
	c := NewCoordinator(0)
	if c.Top() <= SourceLayer {
		t.Errorf("Top() = %d, want above the source layer %d", c.Top(), SourceLayer)
	}

	c = NewCoordinator(42)
	if c.Top() <= 42 {
		t.Errorf("Top() = %d, want above base 42", c.Top())
	}
}

// TestBringToFront_strictlyIncreasing verifies sequential calls yield
// strictly increasing values and the counter never decreases.
func TestBringToFront_strictlyIncreasing(t *testing.T) {
	c := NewCoordinator(SourceLayer)

	prev := c.Top()
	for i := 0; i < 100; i++ {
		z := c.BringToFront()
		if z <= prev {
			t.Fatalf("BringToFront() = %d after %d, want strictly increasing", z, prev)
		}
		if c.Top() != z {
			t.Fatalf("Top() = %d, want %d", c.Top(), z)
		}
		prev = z
	}
}

// TestBringToFront_concurrent verifies no two calls observe the same value.
func TestBringToFront_concurrent(t *testing.T) {
	c := NewCoordinator(SourceLayer)

	const calls = 500
	results := make([]int, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.BringToFront()
		}(i)
	}
	wg.Wait()

	base := NewCoordinator(SourceLayer).Top()
	sort.Ints(results)
	for i := 1; i < calls; i++ {
		if results[i] == results[i-1] {
			t.Fatalf("two BringToFront calls observed %d", results[i])
		}
	}
	if results[0] != base+1 {
		t.Errorf("lowest value = %d, want %d", results[0], base+1)
	}
	if results[calls-1] != base+calls {
		t.Errorf("highest value = %d, want %d", results[calls-1], base+calls)
	}
}
