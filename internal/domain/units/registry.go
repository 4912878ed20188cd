package units

import (
	"context"
	"sync"

	"github.com/okian/speedhud/pkg/logger"
	"github.com/okian/speedhud/pkg/metrics"
)

// Source tells which lookup tier answered a resolution.
type Source int

const (
	// SourceRequested means the requested id exists.
	SourceRequested Source = iota
	// SourceDefault means the configured default answered.
	SourceDefault
	// SourceBuiltin means neither existed and Neutral was returned.
	SourceBuiltin
)

func (s Source) String() string {
	switch s {
	case SourceRequested:
		return "requested"
	case SourceDefault:
		return "default"
	default:
		return "builtin"
	}
}

// Resolution is the tagged result of a unit lookup.
type Resolution struct {
	Unit   Unit
	Source Source
}

// Registry is the ordered unit table. Insertion order defines cycle order.
// A Registry is immutable after New except for its warn-once bookkeeping,
// so a reload builds a fresh one.
type Registry struct {
	order       []string
	units       map[string]Unit
	defaultLive string
	defaultTop  string
	degraded    bool

	logger logger.Logger
	warnMu sync.Mutex
	warned map[string]struct{}
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a registry from defs. With no usable defs it degrades to the
// built-in ms/kmh pair and both defaults become kmh. Defaults that name an
// unknown unit fall back to the first unit.
func New(ctx context.Context, defs []Unit, defaultLive, defaultTop string, opts ...Option) *Registry {
	r := &Registry{
		units:  make(map[string]Unit, len(defs)),
		warned: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get()
	}

	for _, u := range defs {
		if _, exists := r.units[u.ID]; !exists {
			r.order = append(r.order, u.ID)
		}
		r.units[u.ID] = u
	}

	if len(r.order) == 0 {
		r.logger.Warn(ctx, "no usable speed units configured; using built-in units")
		metrics.RecordUnitFallback("degraded_config")
		for _, u := range Builtin() {
			r.order = append(r.order, u.ID)
			r.units[u.ID] = u
		}
		r.degraded = true
		defaultLive, defaultTop = BuiltinDefault, BuiltinDefault
	}

	r.defaultLive = r.validDefault(ctx, "default_unit", defaultLive)
	r.defaultTop = r.validDefault(ctx, "default_topspeed_display_unit", defaultTop)
	return r
}

func (r *Registry) validDefault(ctx context.Context, key, id string) string {
	if _, ok := r.units[id]; ok {
		return id
	}
	first := r.order[0]
	r.logger.Warn(ctx, "default unit not found among enabled units; using first available",
		logger.String("key", key),
		logger.String("unit", id),
		logger.String("fallback", first),
	)
	metrics.RecordUnitFallback("unknown_unit")
	return first
}

// Resolve looks up id, then fallbackID, then returns Neutral.
func (r *Registry) Resolve(id, fallbackID string) Resolution {
	if u, ok := r.units[id]; ok {
		return Resolution{Unit: u, Source: SourceRequested}
	}
	r.warnUnknown(id)
	if u, ok := r.units[fallbackID]; ok {
		return Resolution{Unit: u, Source: SourceDefault}
	}
	metrics.RecordUnitFallback("builtin_unit")
	return Resolution{Unit: Neutral, Source: SourceBuiltin}
}

// ResolveLive resolves a live HUD unit falling back to the default unit.
func (r *Registry) ResolveLive(id string) Resolution {
	return r.Resolve(id, r.defaultLive)
}

// ResolveTop resolves a leaderboard display unit falling back to the default top unit.
func (r *Registry) ResolveTop(id string) Resolution {
	return r.Resolve(id, r.defaultTop)
}

// warnUnknown logs each unknown, non-empty id once per registry.
func (r *Registry) warnUnknown(id string) {
	if id == "" {
		return
	}
	r.warnMu.Lock()
	_, seen := r.warned[id]
	r.warned[id] = struct{}{}
	r.warnMu.Unlock()
	if seen {
		return
	}
	r.logger.Warn(context.Background(), "unknown unit reference; using default", logger.String("unit", id))
	metrics.RecordUnitFallback("unknown_unit")
}

// CycleNext returns the id following current in insertion order, wrapping
// around. An unknown current yields the first id.
func (r *Registry) CycleNext(current string) string {
	for i, id := range r.order {
		if id == current {
			return r.order[(i+1)%len(r.order)]
		}
	}
	return r.order[0]
}

// Get returns the unit registered under id.
func (r *Registry) Get(id string) (Unit, bool) {
	u, ok := r.units[id]
	return u, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.units[id]
	return ok
}

// IDs returns the unit ids in cycle order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultLive returns the effective default live unit id.
func (r *Registry) DefaultLive() string { return r.defaultLive }

// DefaultTop returns the effective default leaderboard unit id.
func (r *Registry) DefaultTop() string { return r.defaultTop }

// Degraded reports whether the built-in units are in use.
func (r *Registry) Degraded() bool { return r.degraded }
