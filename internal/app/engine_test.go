package app_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/speedhud/internal/adapters/repository"
	"github.com/okian/speedhud/internal/app"
	"github.com/okian/speedhud/internal/config"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
	os.Exit(m.Run())
}

// world is a fake entity provider whose positions tests move by hand.
type world struct {
	mu       sync.Mutex
	entities map[uuid.UUID]model.Tracked
}

func newWorld() *world { return &world{entities: make(map[uuid.UUID]model.Tracked)} }

func (w *world) put(id uuid.UUID, name string, x float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[id] = model.Tracked{ID: id, Name: name, Position: model.Position{World: "overworld", X: x}}
}

func (w *world) remove(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
}

func (w *world) Online(context.Context) []model.Tracked {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Tracked, 0, len(w.entities))
	for _, t := range w.entities {
		out = append(out, t)
	}
	return out
}

func (w *world) Lookup(_ context.Context, id uuid.UUID) (model.Tracked, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.entities[id]
	return t, ok
}

type chat struct {
	to   uuid.UUID
	text string
}

// inbox records everything the engine delivers.
type inbox struct {
	mu          sync.Mutex
	updates     []model.HUDUpdate
	chats       []chat
	unreachable map[uuid.UUID]bool
}

func newInbox() *inbox { return &inbox{unreachable: make(map[uuid.UUID]bool)} }

func (i *inbox) ActionBar(_ context.Context, viewer uuid.UUID, u model.HUDUpdate) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unreachable[viewer] {
		return errors.New("unreachable")
	}
	i.updates = append(i.updates, u)
	return nil
}

func (i *inbox) Chat(_ context.Context, to uuid.UUID, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unreachable[to] {
		return errors.New("unreachable")
	}
	i.chats = append(i.chats, chat{to: to, text: text})
	return nil
}

func (i *inbox) lastUpdate() model.HUDUpdate {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.updates[len(i.updates)-1]
}

// manualScheduler holds callbacks until the test fires them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// fireAll runs every pending callback once.
func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.f()
		}
	}
}

type fixture struct {
	engine *app.Engine
	world  *world
	inbox  *inbox
	sched  *manualScheduler
	store  *repository.Leaderboard
}

func newFixture(t *testing.T, cfg *config.Config, opts ...app.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := repository.NewLeaderboard(ctx, repository.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	f := &fixture{world: newWorld(), inbox: newInbox(), sched: &manualScheduler{}, store: store}
	base := []app.Option{
		app.WithLogger(logger.Discard()),
		app.WithProvider(f.world),
		app.WithMessenger(f.inbox),
		app.WithScheduler(f.sched),
	}
	e, err := app.New(ctx, cfg, store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	f.engine = e
	return f
}

// walk moves id by step blocks along x on each of n ticks.
func (f *fixture) walk(id uuid.UUID, name string, x *float64, step float64, n int) {
	for i := 0; i < n; i++ {
		*x += step
		f.world.put(id, name, *x)
		f.engine.OnTick(context.Background())
	}
}

func TestEngineHUD(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with one walking entity", t, func() {
		f := newFixture(t, config.New())
		steve := uuid.New()
		x := 0.0
		f.world.put(steve, "Steve", x)
		f.engine.OnTick(ctx)

		Convey("When the HUD is disabled", func() {
			f.walk(steve, "Steve", &x, 2, 5)

			Convey("Then nothing should be delivered", func() {
				So(f.inbox.updates, ShouldBeEmpty)
			})
		})

		Convey("When the HUD is enabled and the entity moves 2 blocks per tick", func() {
			f.engine.SetHUD(ctx, steve, true)
			f.walk(steve, "Steve", &x, 2, 5)

			Convey("Then the smoothed speed should read 36.00 km/h in red", func() {
				u := f.inbox.lastUpdate()
				So(u.Viewer, ShouldEqual, steve)
				So(u.UnitID, ShouldEqual, "kmh")
				So(u.Speed, ShouldAlmostEqual, 36.0)
				So(u.Severity, ShouldEqual, model.SeverityRed)
				So(u.Text, ShouldEqual, "§7Speed: §c36.00 km/h")
				So(len(f.inbox.updates), ShouldEqual, 5)
			})

			Convey("And cycling the live unit should switch to mph", func() {
				label := f.engine.CycleLiveUnit(ctx, steve)
				f.walk(steve, "Steve", &x, 2, 1)

				So(label, ShouldEqual, "mph")
				u := f.inbox.lastUpdate()
				So(u.UnitID, ShouldEqual, "mph")
				So(u.Speed, ShouldAlmostEqual, 22.369362920544, 1e-6)
			})
		})

		Convey("When the entity changes world", func() {
			f.engine.SetHUD(ctx, steve, true)
			f.walk(steve, "Steve", &x, 2, 5)
			f.world.mu.Lock()
			f.world.entities[steve] = model.Tracked{ID: steve, Name: "Steve", Position: model.Position{World: "nether", X: 1000}}
			f.world.mu.Unlock()
			f.engine.OnTick(ctx)

			Convey("Then that tick should contribute a zero sample", func() {
				So(f.inbox.lastUpdate().Speed, ShouldAlmostEqual, 36.0*4/5)
			})
		})

		Convey("When the viewer cannot be reached", func() {
			f.engine.SetHUD(ctx, steve, true)
			f.inbox.unreachable[steve] = true

			Convey("Then ticks should keep running", func() {
				So(func() { f.walk(steve, "Steve", &x, 1, 3) }, ShouldNotPanic)
				So(f.inbox.updates, ShouldBeEmpty)
			})
		})
	})
}

func TestEngineRecording(t *testing.T) {
	ctx := context.Background()

	Convey("Given an entity that sprints and then slows down while recording", t, func() {
		f := newFixture(t, config.New())
		steve := uuid.New()
		x := 0.0
		f.world.put(steve, "Steve", x)
		f.engine.OnTick(ctx)

		So(f.engine.StartRecording(ctx, steve, steve), ShouldBeNil)
		So(f.engine.Recording(steve), ShouldBeTrue)
		So(f.sched.pending[0].d, ShouldEqual, 10*time.Second)

		f.walk(steve, "Steve", &x, 1.6, 5)
		f.walk(steve, "Steve", &x, 0.4, 5)

		Convey("When a second start is requested", func() {
			err := f.engine.StartRecording(ctx, steve, steve)

			Convey("Then it should be rejected without touching the session", func() {
				So(errors.Is(err, app.ErrAlreadyRecording), ShouldBeTrue)
				So(len(f.sched.pending), ShouldEqual, 1)
			})
		})

		Convey("When the session completes", func() {
			f.sched.fireAll()

			Convey("Then the peak smoothed speed should be stored", func() {
				So(f.engine.Recording(steve), ShouldBeFalse)
				e, err := f.store.Get(ctx, "Steve")
				So(err, ShouldBeNil)
				So(e.SpeedMS, ShouldAlmostEqual, 8.0, 1e-9)
				So(e.UnitID, ShouldEqual, "kmh")
			})

			Convey("And the issuer should be told the speed in their unit", func() {
				So(len(f.inbox.chats), ShouldEqual, 1)
				So(f.inbox.chats[0].to, ShouldEqual, steve)
				So(f.inbox.chats[0].text, ShouldEqual, "§6[SpeedHUD]§r §aRecording finished! Your top speed: §e28.80 km/h")
			})

			Convey("And a new session may start", func() {
				So(f.engine.StartRecording(ctx, steve, steve), ShouldBeNil)
			})
		})

		Convey("When the entity chose another unit before completion", func() {
			f.engine.CycleLiveUnit(ctx, steve) // kmh -> mph
			f.sched.fireAll()

			Convey("Then that unit should be stored with the entry", func() {
				e, err := f.store.Get(ctx, "Steve")
				So(err, ShouldBeNil)
				So(e.UnitID, ShouldEqual, "mph")
			})
		})

		Convey("When the entity leaves before completion", func() {
			f.engine.CycleLiveUnit(ctx, steve)
			f.world.remove(steve)
			f.sched.fireAll()

			Convey("Then the default unit should be stored", func() {
				e, err := f.store.Get(ctx, "Steve")
				So(err, ShouldBeNil)
				So(e.UnitID, ShouldEqual, "kmh")
				So(e.SpeedMS, ShouldAlmostEqual, 8.0, 1e-9)
			})
		})

		Convey("When the issuer is unreachable at completion", func() {
			f.inbox.unreachable[steve] = true

			Convey("Then completion should still store the entry", func() {
				So(f.sched.fireAll, ShouldNotPanic)
				So(f.store.Count(ctx), ShouldEqual, 1)
				So(f.inbox.chats, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an offline entity", t, func() {
		f := newFixture(t, config.New())

		Convey("When a recording is requested", func() {
			err := f.engine.StartRecording(ctx, uuid.New(), uuid.Nil)

			Convey("Then it should fail with ErrUnknownEntity", func() {
				So(errors.Is(err, app.ErrUnknownEntity), ShouldBeTrue)
				So(f.sched.pending, ShouldBeEmpty)
			})
		})
	})
}

func TestEngineLeaderboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a leaderboard with three entries", t, func() {
		f := newFixture(t, config.New())
		viewer := uuid.New()

		Convey("When it is still empty", func() {
			_, label, err := f.engine.QueryLeaderboard(ctx, viewer)

			Convey("Then it should report no data", func() {
				So(errors.Is(err, app.ErrNoData), ShouldBeTrue)
				So(label, ShouldEqual, "km/h")
			})
		})

		So(f.store.Record(ctx, "A", 12, "ms"), ShouldBeNil)
		So(f.store.Record(ctx, "B", 20, "ms"), ShouldBeNil)
		So(f.store.Record(ctx, "C", 5, "ms"), ShouldBeNil)

		Convey("When a viewer queries it with the default unit", func() {
			entries, label, err := f.engine.QueryLeaderboard(ctx, viewer)

			Convey("Then ranks should follow speed and use km/h", func() {
				So(err, ShouldBeNil)
				So(label, ShouldEqual, "km/h")
				So(entries[0].Name, ShouldEqual, "B")
				So(entries[1].Name, ShouldEqual, "A")
				So(entries[2].Name, ShouldEqual, "C")
				So(entries[0].DisplaySpeed, ShouldAlmostEqual, 72.0)
			})
		})

		Convey("When the viewer cycles the leaderboard unit", func() {
			label := f.engine.CycleLeaderboardUnit(ctx, viewer)
			entries, _, err := f.engine.QueryLeaderboard(ctx, viewer)

			Convey("Then entries should be re-projected without touching the live unit", func() {
				So(label, ShouldEqual, "mph")
				So(err, ShouldBeNil)
				So(entries[0].DisplaySpeed, ShouldAlmostEqual, 44.738725841088, 1e-6)
				p, ok := f.engine.Preferences(viewer)
				So(ok, ShouldBeTrue)
				So(p.LiveUnit, ShouldEqual, "")
			})
		})

		Convey("When the viewer's unit disappears after a reload", func() {
			reduced := config.New()
			reduced.Units = reduced.Units[:2]
			reloaded := newFixture(t, config.New(), app.WithReloader(func(context.Context) (*config.Config, error) {
				return reduced, nil
			}))
			reloaded.engine.CycleLeaderboardUnit(ctx, viewer) // kmh -> mph
			So(reloaded.store.Record(ctx, "A", 12, "ms"), ShouldBeNil)
			So(reloaded.engine.Reload(ctx), ShouldBeNil)

			entries, label, err := reloaded.engine.QueryLeaderboard(ctx, viewer)

			Convey("Then the configured default should be used", func() {
				So(err, ShouldBeNil)
				So(label, ShouldEqual, "km/h")
				So(entries[0].DisplaySpeed, ShouldAlmostEqual, 43.2)
				So(reloaded.engine.Units(), ShouldResemble, []string{"ms", "kmh"})
			})
		})
	})
}

func TestEngineReload(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with a running session", t, func() {
		next := config.New()
		next.Language = "ru"
		next.Subcommands["enable"] = "vkl"
		var fail bool
		f := newFixture(t, config.New(), app.WithReloader(func(context.Context) (*config.Config, error) {
			if fail {
				return nil, config.ErrInvalidConfig
			}
			return next, nil
		}))
		steve := uuid.New()
		f.world.put(steve, "Steve", 0)
		So(f.engine.StartRecording(ctx, steve, steve), ShouldBeNil)

		Convey("When reloading succeeds", func() {
			So(f.engine.Reload(ctx), ShouldBeNil)

			Convey("Then new messages and aliases apply and the session survives", func() {
				So(f.engine.Messages().Language(), ShouldEqual, "ru")
				So(f.engine.Subcommands()["enable"], ShouldEqual, "vkl")
				So(f.engine.Recording(steve), ShouldBeTrue)
			})
		})

		Convey("When reloading fails", func() {
			fail = true
			err := f.engine.Reload(ctx)

			Convey("Then the previous configuration should stay active", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
				So(f.engine.Messages().Language(), ShouldEqual, "en")
				So(f.engine.Recording(steve), ShouldBeTrue)
			})
		})
	})

	Convey("Given an engine without a reloader", t, func() {
		f := newFixture(t, config.New())
		So(errors.Is(f.engine.Reload(ctx), app.ErrNoReloader), ShouldBeTrue)
	})
}

func TestEngineLifecycle(t *testing.T) {
	Convey("Given a started engine with a fast tick", t, func() {
		cfg := config.New()
		cfg.TickIntervalMS = 10
		f := newFixture(t, cfg)
		steve := uuid.New()
		f.world.put(steve, "Steve", 0)
		f.engine.SetHUD(context.Background(), steve, true)

		So(f.engine.Start(context.Background()), ShouldBeNil)
		So(errors.Is(f.engine.Start(context.Background()), app.ErrAlreadyStarted), ShouldBeTrue)

		Convey("When it runs for a while and is stopped", func() {
			So(f.engine.StartRecording(context.Background(), steve, steve), ShouldBeNil)
			time.Sleep(100 * time.Millisecond)
			f.engine.Stop()

			Convey("Then HUD updates should have been emitted and the session discarded", func() {
				f.inbox.mu.Lock()
				n := len(f.inbox.updates)
				f.inbox.mu.Unlock()
				So(n, ShouldBeGreaterThan, 0)
				So(f.sched.pending[0].stopped, ShouldBeTrue)
				stats := f.engine.Stats(context.Background())
				So(stats["started"], ShouldEqual, false)
				So(f.engine.Recording(steve), ShouldBeFalse)

				// A completion that fired during Stop finds nothing to store.
				f.sched.pending[0].f()
				So(f.store.Count(context.Background()), ShouldEqual, 0)
				So(f.inbox.chats, ShouldBeEmpty)
			})

			Convey("And a restarted engine should record the entity again", func() {
				stale := f.sched.pending[0]
				So(f.engine.Start(context.Background()), ShouldBeNil)
				defer f.engine.Stop()

				So(f.engine.StartRecording(context.Background(), steve, steve), ShouldBeNil)
				So(f.engine.Recording(steve), ShouldBeTrue)

				// The discarded session's callback must not end the new one.
				stale.f()
				So(f.engine.Recording(steve), ShouldBeTrue)
				So(f.store.Count(context.Background()), ShouldEqual, 0)
			})
		})
	})
}
