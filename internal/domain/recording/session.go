// Package recording implements the per-entity recording session state
// machine: Idle -> Recording -> Idle.
package recording

import (
	"time"

	"github.com/google/uuid"
)

// Ticket identifies who a session belongs to and who asked for it. It is
// captured when the session starts and handed back unchanged on completion,
// so later preference changes or disconnects cannot alter it.
type Ticket struct {
	EntityID   uuid.UUID
	EntityName string
	IssuerID   uuid.UUID
	StartedAt  time.Time
}

// Result is what a finished session produced.
type Result struct {
	Ticket
	Peak float64
}

type session struct {
	ticket Ticket
	peak   float64
}

// Manager tracks at most one active session per entity.
// It is not safe for concurrent use; the owner serializes access.
type Manager struct {
	active map[uuid.UUID]*session
	now    func() time.Time
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[uuid.UUID]*session),
		now:    time.Now,
	}
}

// Start moves the ticket's entity into Recording with a zero peak.
// It fails with ErrAlreadyRecording, leaving the running session untouched.
func (m *Manager) Start(t Ticket) (Ticket, error) {
	if _, ok := m.active[t.EntityID]; ok {
		return Ticket{}, ErrAlreadyRecording
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = m.now()
	}
	m.active[t.EntityID] = &session{ticket: t}
	return t, nil
}

// Observe raises the peak of id's session to avg if it is higher.
// Entities that are not recording are ignored.
func (m *Manager) Observe(id uuid.UUID, avg float64) {
	s, ok := m.active[id]
	if !ok {
		return
	}
	if avg > s.peak {
		s.peak = avg
	}
}

// Finish ends id's session and returns its result. The session is removed,
// so a second Finish fails with ErrNotRecording.
func (m *Manager) Finish(id uuid.UUID) (Result, error) {
	s, ok := m.active[id]
	if !ok {
		return Result{}, ErrNotRecording
	}
	delete(m.active, id)
	return Result{Ticket: s.ticket, Peak: s.peak}, nil
}

// Current returns the ticket of id's running session.
func (m *Manager) Current(id uuid.UUID) (Ticket, bool) {
	s, ok := m.active[id]
	if !ok {
		return Ticket{}, false
	}
	return s.ticket, true
}

// Recording reports whether id has an active session.
func (m *Manager) Recording(id uuid.UUID) bool {
	_, ok := m.active[id]
	return ok
}

// Peak returns the running peak of id's session.
func (m *Manager) Peak(id uuid.UUID) (float64, bool) {
	s, ok := m.active[id]
	if !ok {
		return 0, false
	}
	return s.peak, true
}

// Active returns the number of running sessions.
func (m *Manager) Active() int { return len(m.active) }
