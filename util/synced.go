package util

import "sync/atomic"

// Gate admits one holder at a time without blocking. The zero value is open.
type Gate struct {
	held atomic.Bool
}

// NewGate creates an open Gate.
func NewGate() *Gate {
	return &Gate{}
}

// TryAcquire closes the gate and reports true, or reports false if it was already closed.
func (g *Gate) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release opens the gate. Releasing an open gate is a no-op.
func (g *Gate) Release() {
	g.held.Store(false)
}

// Generation is a monotonically increasing run counter. Callbacks capture the
// value returned by Next and later check IsCurrent to detect that a newer run
// has started since.
type Generation struct {
	n atomic.Uint64
}

// NewGeneration creates a Generation at zero.
func NewGeneration() *Generation {
	return &Generation{}
}

// Next starts a new generation and returns it.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current returns the latest generation.
func (g *Generation) Current() uint64 {
	return g.n.Load()
}

// IsCurrent reports whether gen is still the latest generation.
func (g *Generation) IsCurrent(gen uint64) bool {
	return g.n.Load() == gen
}
