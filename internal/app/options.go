package app

import (
	"github.com/okian/speedhud/internal/domain/messages"
	"github.com/okian/speedhud/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProvider sets the source of online entities.
func WithProvider(p EntityProvider) Option {
	return func(e *Engine) {
		if p != nil {
			e.provider = p
		}
	}
}

// WithMessenger sets the delivery surface for HUD updates and chat.
func WithMessenger(m Messenger) Option {
	return func(e *Engine) {
		if m != nil {
			e.messenger = m
		}
	}
}

// WithScheduler sets the one-shot timer source used for recording sessions.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.scheduler = s
		}
	}
}

// WithReloader sets the configuration source used by Reload.
func WithReloader(r Reloader) Option {
	return func(e *Engine) {
		if r != nil {
			e.reloader = r
		}
	}
}

// WithCatalog sets the message catalog instead of loading it from config.
func WithCatalog(c *messages.Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}
