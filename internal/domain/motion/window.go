// Package motion turns sampled positions into raw and smoothed speeds.
package motion

// DefaultHistory is the number of raw samples averaged by a Window.
const DefaultHistory = 5

// Window is a fixed-size FIFO of raw speeds. Pushing into a full window
// evicts the oldest sample. The zero value is not usable; use NewWindow.
type Window struct {
	samples []float64
	next    int // next write position
	size    int // current number of samples
}

// NewWindow creates a window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultHistory
	}
	return &Window{samples: make([]float64, capacity)}
}

// Push appends raw, evicting the oldest sample when full.
func (w *Window) Push(raw float64) {
	w.samples[w.next] = raw
	w.next = (w.next + 1) % len(w.samples)
	if w.size < len(w.samples) {
		w.size++
	}
}

// Average returns the arithmetic mean of the held samples, or 0 when empty.
func (w *Window) Average() float64 {
	if w.size == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.Samples() {
		sum += v
	}
	return sum / float64(w.size)
}

// Len returns the number of held samples.
func (w *Window) Len() int { return w.size }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.samples) }

// Samples returns the held samples, oldest first.
func (w *Window) Samples() []float64 {
	out := make([]float64, w.size)
	start := (w.next - w.size + len(w.samples)) % len(w.samples)
	for i := 0; i < w.size; i++ {
		out[i] = w.samples[(start+i)%len(w.samples)]
	}
	return out
}
