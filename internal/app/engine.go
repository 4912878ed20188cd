// Package app wires the speed tracking engine: the tick loop, recording
// sessions, viewer preferences and the leaderboard.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/adapters/repository"
	"github.com/okian/speedhud/internal/config"
	"github.com/okian/speedhud/internal/domain/messages"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/internal/domain/motion"
	"github.com/okian/speedhud/internal/domain/prefs"
	"github.com/okian/speedhud/internal/domain/recording"
	"github.com/okian/speedhud/internal/domain/units"
	"github.com/okian/speedhud/pkg/logger"
	"github.com/okian/speedhud/pkg/metrics"
)

// Engine owns all mutable tracking state.
//
// mu serializes the tick handler, recording completions, commands and
// reloads, so none of them ever observe each other half-done. Nothing is
// delivered or persisted while mu is held.
type Engine struct {
	mu sync.Mutex

	cfg      *config.Config
	registry *units.Registry
	catalog  *messages.Catalog
	sampler  *motion.Sampler
	sessions *recording.Manager
	prefs    *prefs.Store
	timers   map[uuid.UUID]Timer

	store     repository.Store
	provider  EntityProvider
	messenger Messenger
	scheduler Scheduler
	reloader  Reloader
	logger    logger.Logger

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds an engine from cfg. store is required.
func New(ctx context.Context, cfg *config.Config, store repository.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:       cfg,
		sessions:  recording.NewManager(),
		prefs:     prefs.NewStore(),
		timers:    make(map[uuid.UUID]Timer),
		store:     store,
		provider:  noEntities{},
		messenger: discardMessenger{},
		scheduler: realScheduler{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}

	if e.catalog == nil {
		c, err := messages.Load(ctx, cfg.Language, cfg.MessagesDir)
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		e.catalog = c
	}
	e.registry = e.buildRegistry(ctx, cfg)
	e.sampler = motion.NewSampler(
		motion.WithRate(cfg.SamplingRate),
		motion.WithHistory(cfg.HistorySize),
	)

	e.logger.Info(ctx, "engine created",
		logger.Any("units", e.registry.IDs()),
		logger.String("default_unit", e.registry.DefaultLive()),
		logger.String("default_top_unit", e.registry.DefaultTop()),
		logger.String("language", e.catalog.Language()),
	)
	return e, nil
}

func (e *Engine) buildRegistry(ctx context.Context, cfg *config.Config) *units.Registry {
	return units.New(ctx, units.FromConfig(cfg.Units), cfg.DefaultUnit, cfg.DefaultTopUnit,
		units.WithLogger(e.logger.Named("units")))
}

// Start runs the tick loop until ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	interval := e.cfg.TickInterval()
	e.mu.Unlock()

	go e.loop(ctx, interval)
	e.logger.Info(ctx, "tick loop started", logger.Duration("interval", interval))
	return nil
}

func (e *Engine) loop(ctx context.Context, interval time.Duration) {
	defer close(e.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.OnTick(ctx)

			e.mu.Lock()
			next := e.cfg.TickInterval()
			e.mu.Unlock()
			if next != interval {
				interval = next
				ticker.Reset(interval)
				e.logger.Info(ctx, "tick interval changed", logger.Duration("interval", interval))
			}
		}
	}
}

// Stop ends the tick loop and cancels pending recording completions.
// Sessions still running are discarded and their entities return to idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	close(e.stopCh)
	pending := len(e.timers)
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
		if _, err := e.sessions.Finish(id); err == nil {
			metrics.RecordRecordingDiscarded()
		}
	}
	done := e.doneCh
	e.mu.Unlock()

	<-done
	e.logger.Info(context.Background(), "tick loop stopped", logger.Int("discarded_sessions", pending))
}

// OnTick samples every online entity, feeds running sessions and emits a
// HUD update to each online viewer with the HUD enabled.
func (e *Engine) OnTick(ctx context.Context) {
	start := time.Now()
	online := e.provider.Online(ctx)

	e.mu.Lock()
	byID := make(map[uuid.UUID]float64, len(online))
	for _, t := range online {
		_, avg := e.sampler.Sample(t.ID, t.Position)
		e.sessions.Observe(t.ID, avg)
		byID[t.ID] = avg
	}

	viewers := e.prefs.EnabledViewers()
	updates := make([]model.HUDUpdate, 0, len(viewers))
	for _, viewer := range viewers {
		avg, ok := byID[viewer]
		if !ok {
			continue
		}
		updates = append(updates, e.hudUpdateLocked(viewer, avg))
	}
	e.mu.Unlock()

	delivered := 0
	for _, u := range updates {
		if err := e.messenger.ActionBar(ctx, u.Viewer, u); err != nil {
			metrics.RecordDeliveryFailure()
			e.logger.Debug(ctx, "hud update dropped",
				logger.String("viewer", u.Viewer.String()),
				logger.Error(err),
			)
			continue
		}
		delivered++
	}

	metrics.RecordTick(float64(time.Since(start).Microseconds()) / 1000.0)
	metrics.UpdateTrackedEntities(len(online))
	metrics.UpdateHUDViewers(len(viewers))
	metrics.RecordHUDUpdates(delivered)
}

// hudUpdateLocked renders viewer's live reading. Callers hold mu.
func (e *Engine) hudUpdateLocked(viewer uuid.UUID, avg float64) model.HUDUpdate {
	unit := e.registry.ResolveLive(e.prefs.LiveUnit(viewer, e.registry.DefaultLive())).Unit
	display := unit.Convert(avg)
	severity := unit.Classify(display)
	label := e.catalog.Label(unit.DisplayKey)

	return model.HUDUpdate{
		Viewer:   viewer,
		Speed:    display,
		UnitID:   unit.ID,
		Label:    label,
		Severity: severity,
		Text:     e.catalog.Format("hud_display", nil) + severity.ColorCode() + formatSpeed(display) + " " + label,
	}
}

func formatSpeed(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// StartRecording opens a session for entityID. The outcome is reported to
// issuerID when the session completes. Fails with ErrAlreadyRecording while
// a session is running and with ErrUnknownEntity when the entity is offline.
func (e *Engine) StartRecording(ctx context.Context, entityID, issuerID uuid.UUID) error {
	entity, ok := e.provider.Lookup(ctx, entityID)
	if !ok {
		return ErrUnknownEntity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ticket, err := e.sessions.Start(recording.Ticket{
		EntityID:   entity.ID,
		EntityName: entity.Name,
		IssuerID:   issuerID,
	})
	if err != nil {
		metrics.RecordRecordingRejected()
		return err
	}

	bg := context.WithoutCancel(ctx)
	e.timers[entity.ID] = e.scheduler.AfterFunc(e.cfg.RecordDuration(), func() {
		e.complete(bg, ticket)
	})
	metrics.RecordRecordingStarted()
	e.logger.Info(ctx, "recording started",
		logger.String("entity", entity.Name),
		logger.String("issuer", issuerID.String()),
		logger.Duration("duration", e.cfg.RecordDuration()),
	)
	return nil
}

// complete finishes ticket's session, stores the peak and tells the issuer.
func (e *Engine) complete(ctx context.Context, ticket recording.Ticket) {
	_, online := e.provider.Lookup(ctx, ticket.EntityID)

	e.mu.Lock()
	// The session may have been discarded by Stop after this timer fired,
	// or replaced by a newer session of the same entity.
	if current, ok := e.sessions.Current(ticket.EntityID); !ok || current != ticket {
		e.mu.Unlock()
		e.logger.Debug(ctx, "stale recording completion ignored",
			logger.String("entity", ticket.EntityName),
		)
		return
	}
	delete(e.timers, ticket.EntityID)
	// Current matched above, so Finish cannot fail.
	res, _ := e.sessions.Finish(ticket.EntityID)

	unitID := e.registry.DefaultLive()
	if online {
		unitID = e.prefs.LiveUnit(ticket.EntityID, unitID)
	}
	unit := e.registry.ResolveLive(unitID).Unit
	text := e.catalog.Format("start_record_finished", messages.Args{
		"speed": formatSpeed(unit.Convert(res.Peak)),
		"unit":  e.catalog.Label(unit.DisplayKey),
	})
	e.mu.Unlock()

	metrics.RecordRecordingCompleted(res.Peak)
	// Persist failures are logged by the store; the entry stays in memory.
	_ = e.store.Record(ctx, ticket.EntityName, res.Peak, unit.ID)

	e.logger.Info(ctx, "recording finished",
		logger.String("entity", ticket.EntityName),
		logger.Float64("peak", res.Peak),
		logger.String("unit", unit.ID),
	)

	if err := e.messenger.Chat(ctx, ticket.IssuerID, text); err != nil {
		metrics.RecordDeliveryFailure()
		e.logger.Debug(ctx, "recording result dropped",
			logger.String("issuer", ticket.IssuerID.String()),
			logger.Error(err),
		)
	}
}

// Recording reports whether entityID has a running session.
func (e *Engine) Recording(entityID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.Recording(entityID)
}

// SetHUD enables or disables viewer's HUD.
func (e *Engine) SetHUD(ctx context.Context, viewer uuid.UUID, enable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enable {
		p := e.prefs.Enable(viewer, e.registry)
		e.logger.Debug(ctx, "hud enabled",
			logger.String("viewer", viewer.String()),
			logger.String("unit", p.LiveUnit),
		)
	} else {
		e.prefs.Disable(viewer)
		e.logger.Debug(ctx, "hud disabled", logger.String("viewer", viewer.String()))
	}
	metrics.UpdateHUDViewers(len(e.prefs.EnabledViewers()))
}

// CycleLiveUnit advances viewer's live unit and returns its label.
func (e *Engine) CycleLiveUnit(_ context.Context, viewer uuid.UUID) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.prefs.ToggleLive(viewer, e.registry)
	return e.catalog.Label(e.registry.ResolveLive(id).Unit.DisplayKey)
}

// CycleLeaderboardUnit advances viewer's leaderboard unit and returns its label.
func (e *Engine) CycleLeaderboardUnit(_ context.Context, viewer uuid.UUID) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.prefs.ToggleTop(viewer, e.registry)
	return e.catalog.Label(e.registry.ResolveTop(id).Unit.DisplayKey)
}

// QueryLeaderboard returns the ranked leaderboard in viewer's leaderboard
// unit along with that unit's label. uuid.Nil gets the default unit.
// Fails with ErrNoData when nothing was recorded yet.
func (e *Engine) QueryLeaderboard(ctx context.Context, viewer uuid.UUID) ([]model.RankedEntry, string, error) {
	e.mu.Lock()
	unit := e.registry.ResolveTop(e.prefs.TopUnit(viewer, e.registry.DefaultTop())).Unit
	label := e.catalog.Label(unit.DisplayKey)
	e.mu.Unlock()

	entries, err := e.store.Ranked(ctx, unit)
	if err != nil {
		return nil, label, err
	}
	return entries, label, nil
}

// Preferences returns a copy of viewer's display preferences.
func (e *Engine) Preferences(viewer uuid.UUID) (prefs.Preferences, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.Get(viewer)
}

// Reload re-reads configuration and messages and swaps them in. Running
// sessions, motion state and preferences are kept. On error the current
// configuration stays active.
func (e *Engine) Reload(ctx context.Context) error {
	if e.reloader == nil {
		metrics.RecordConfigReload("error")
		return ErrNoReloader
	}
	cfg, err := e.reloader(ctx)
	if err != nil {
		metrics.RecordConfigReload("error")
		e.logger.Error(ctx, "config reload failed", logger.Error(err))
		return fmt.Errorf("reload config: %w", err)
	}
	catalog, err := messages.Load(ctx, cfg.Language, cfg.MessagesDir)
	if err != nil {
		metrics.RecordConfigReload("error")
		e.logger.Error(ctx, "message reload failed", logger.Error(err))
		return fmt.Errorf("reload messages: %w", err)
	}
	registry := e.buildRegistry(ctx, cfg)

	e.mu.Lock()
	e.cfg = cfg
	e.catalog = catalog
	e.registry = registry
	e.sampler.SetRate(cfg.SamplingRate)
	active := e.sessions.Active()
	e.mu.Unlock()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		e.logger.Warn(ctx, "invalid log level", logger.String("level", cfg.LogLevel))
	}
	metrics.RecordConfigReload("ok")
	e.logger.Info(ctx, "configuration reloaded",
		logger.Any("units", registry.IDs()),
		logger.Int("active_sessions", active),
	)
	return nil
}

// Messages returns the active message catalog.
func (e *Engine) Messages() *messages.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog
}

// Subcommands returns the active canonical-name to alias map.
func (e *Engine) Subcommands() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.cfg.Subcommands))
	for k, v := range e.cfg.Subcommands {
		out[k] = v
	}
	return out
}

// Units returns the registered unit ids in cycle order.
func (e *Engine) Units() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.IDs()
}

// Stats returns engine statistics for monitoring.
func (e *Engine) Stats(ctx context.Context) map[string]any {
	e.mu.Lock()
	stats := map[string]any{
		"started":         e.started,
		"trackedEntities": e.sampler.Len(),
		"activeSessions":  e.sessions.Active(),
		"hudViewers":      len(e.prefs.EnabledViewers()),
		"units":           e.registry.IDs(),
		"degradedUnits":   e.registry.Degraded(),
	}
	e.mu.Unlock()

	stats["leaderboardEntries"] = e.store.Count(ctx)
	return stats
}
