// Package world is the host bridge: it holds the entities the host reports
// as online together with their latest positions and permissions.
package world

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/domain/model"
)

// Sentinel kinds for registry errors.
var (
	ErrInvalidEntity = errors.New("entity needs an id and a name")
	ErrNotFound      = errors.New("entity not online")
)

// Entity is what the host reports about one online entity.
type Entity struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Position    model.Position `json:"position"`
	Permissions []string       `json:"permissions,omitempty"`
}

type record struct {
	tracked model.Tracked
	perms   map[string]struct{}
}

// Registry is a concurrency-safe set of online entities.
type Registry struct {
	mu       sync.RWMutex
	entities map[uuid.UUID]*record
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[uuid.UUID]*record)}
}

// Upsert marks e online, replacing its position, name and permissions.
// It returns true when e was not online before.
func (r *Registry) Upsert(_ context.Context, e Entity) (bool, error) {
	name := strings.TrimSpace(e.Name)
	if e.ID == uuid.Nil || name == "" {
		return false, ErrInvalidEntity
	}
	perms := make(map[string]struct{}, len(e.Permissions))
	for _, p := range e.Permissions {
		perms[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.entities[e.ID]
	r.entities[e.ID] = &record{
		tracked: model.Tracked{ID: e.ID, Name: name, Position: e.Position},
		perms:   perms,
	}
	return !existed, nil
}

// Move updates the position of an online entity.
func (r *Registry) Move(_ context.Context, id uuid.UUID, pos model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.entities[id]
	if !ok {
		return ErrNotFound
	}
	rec.tracked.Position = pos
	return nil
}

// Remove marks id offline.
func (r *Registry) Remove(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[id]; !ok {
		return ErrNotFound
	}
	delete(r.entities, id)
	return nil
}

// Online returns a snapshot of every online entity ordered by name.
func (r *Registry) Online(_ context.Context) []model.Tracked {
	r.mu.RLock()
	out := make([]model.Tracked, 0, len(r.entities))
	for _, rec := range r.entities {
		out = append(out, rec.tracked)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the online entity with id.
func (r *Registry) Lookup(_ context.Context, id uuid.UUID) (model.Tracked, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entities[id]
	if !ok {
		return model.Tracked{}, false
	}
	return rec.tracked, true
}

// HasPermission reports whether the online entity id holds perm. Holding
// "*" grants everything.
func (r *Registry) HasPermission(id uuid.UUID, perm string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entities[id]
	if !ok {
		return false
	}
	if _, ok := rec.perms["*"]; ok {
		return true
	}
	_, ok = rec.perms[strings.ToLower(perm)]
	return ok
}

// Len returns the number of online entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}
