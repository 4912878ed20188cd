package motion

import (
	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/domain/model"
)

// DefaultRate converts displacement per tick into displacement per second
// for a 200ms tick.
const DefaultRate = 5.0

// state is the motion state of one entity. It is created on first sample
// and never removed; an offline entity simply stops being sampled.
type state struct {
	last    model.Position
	hasLast bool
	window  *Window
}

// Sampler computes displacement-based speeds for many entities.
// It is not safe for concurrent use; the owner serializes access.
type Sampler struct {
	rate    float64
	history int
	states  map[uuid.UUID]*state
}

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithRate sets the sampling rate multiplier.
func WithRate(rate float64) Option {
	return func(s *Sampler) {
		if rate > 0 {
			s.rate = rate
		}
	}
}

// WithHistory sets the smoothing window size for newly tracked entities.
func WithHistory(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.history = n
		}
	}
}

// NewSampler creates a Sampler.
func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		rate:    DefaultRate,
		history: DefaultHistory,
		states:  make(map[uuid.UUID]*state),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample records the current position of id and returns the raw speed of
// this tick together with the smoothed average after pushing it.
//
// Raw speed is 0 on the first sample and whenever the world changed since
// the previous sample, so teleports across worlds never produce a spike.
// The current position always becomes the new baseline.
func (s *Sampler) Sample(id uuid.UUID, current model.Position) (raw, avg float64) {
	st, ok := s.states[id]
	if !ok {
		st = &state{window: NewWindow(s.history)}
		s.states[id] = st
	}

	if st.hasLast && current.SameWorld(st.last) {
		raw = current.Distance(st.last) * s.rate
	}
	st.last = current
	st.hasLast = true

	st.window.Push(raw)
	return raw, st.window.Average()
}

// Average returns the current smoothed speed of id, or 0 if never sampled.
func (s *Sampler) Average(id uuid.UUID) float64 {
	st, ok := s.states[id]
	if !ok {
		return 0
	}
	return st.window.Average()
}

// LastPosition returns the baseline position of id.
func (s *Sampler) LastPosition(id uuid.UUID) (model.Position, bool) {
	st, ok := s.states[id]
	if !ok || !st.hasLast {
		return model.Position{}, false
	}
	return st.last, true
}

// SetRate changes the sampling rate for subsequent samples.
func (s *Sampler) SetRate(rate float64) {
	if rate > 0 {
		s.rate = rate
	}
}

// Rate returns the sampling rate.
func (s *Sampler) Rate() float64 { return s.rate }

// Len returns the number of entities ever sampled.
func (s *Sampler) Len() int { return len(s.states) }
