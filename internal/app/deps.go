package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/config"
	"github.com/okian/speedhud/internal/domain/model"
)

// EntityProvider enumerates the entities currently online.
type EntityProvider interface {
	Online(ctx context.Context) []model.Tracked
	Lookup(ctx context.Context, id uuid.UUID) (model.Tracked, bool)
}

// Messenger delivers rendered output to a viewer. Errors mean the viewer
// could not be reached; the engine drops the message.
type Messenger interface {
	ActionBar(ctx context.Context, viewer uuid.UUID, update model.HUDUpdate) error
	Chat(ctx context.Context, recipient uuid.UUID, text string) error
}

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs one-shot delayed callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Reloader produces a fresh configuration.
type Reloader func(ctx context.Context) (*config.Config, error)

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type noEntities struct{}

func (noEntities) Online(context.Context) []model.Tracked { return nil }

func (noEntities) Lookup(context.Context, uuid.UUID) (model.Tracked, bool) {
	return model.Tracked{}, false
}

type discardMessenger struct{}

func (discardMessenger) ActionBar(context.Context, uuid.UUID, model.HUDUpdate) error { return nil }
func (discardMessenger) Chat(context.Context, uuid.UUID, string) error               { return nil }
