// Package hud delivers live speed readings and chat text to connected
// viewers over websockets.
package hud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/logger"
)

const defaultSendBuffer = 64

// Frame types.
const (
	FrameActionBar = "action_bar"
	FrameChat      = "chat"
)

// ErrUnreachable means the viewer has no live connection or cannot keep up.
var ErrUnreachable = errors.New("viewer unreachable")

// Frame is the JSON document written to a viewer's socket.
type Frame struct {
	Type string           `json:"type"`
	HUD  *model.HUDUpdate `json:"hud,omitempty"`
	Text string           `json:"text,omitempty"`
}

// CommandHandler runs a command line typed by viewer and returns the reply lines.
type CommandHandler func(ctx context.Context, viewer uuid.UUID, line string) []string

// Hub tracks at most one connection per viewer. A new connection for the
// same viewer replaces the old one.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client

	upgrader   websocket.Upgrader
	sendBuffer int
	commands   CommandHandler
	logger     logger.Logger
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSendBuffer sets how many frames may wait for one viewer.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCommandHandler lets viewers type commands into their socket.
func WithCommandHandler(fn CommandHandler) Option {
	return func(h *Hub) {
		h.commands = fn
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]*client),
		sendBuffer: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("hud")
	}
	return h
}

// SetCommandHandler replaces the command handler after construction.
func (h *Hub) SetCommandHandler(fn CommandHandler) {
	h.mu.Lock()
	h.commands = fn
	h.mu.Unlock()
}

// Serve upgrades the request and attaches it to viewer. It returns once the
// pumps are running.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, viewer uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	c := &client{hub: h, viewer: viewer, conn: conn, send: make(chan Frame, h.sendBuffer)}

	h.mu.Lock()
	if old, ok := h.clients[viewer]; ok {
		close(old.send)
	}
	h.clients[viewer] = c
	h.mu.Unlock()

	// The request context ends with the handler; pumps outlive it.
	ctx := context.WithoutCancel(r.Context())
	h.logger.Debug(ctx, "viewer connected", logger.String("viewer", viewer.String()))

	go c.writePump()
	go c.readPump(ctx)
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.viewer]; ok && cur == c {
		delete(h.clients, c.viewer)
		close(c.send)
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *client, line string) {
	h.mu.RLock()
	fn := h.commands
	h.mu.RUnlock()

	line = strings.TrimSpace(line)
	if fn == nil || line == "" {
		return
	}
	for _, reply := range fn(ctx, c.viewer, line) {
		if err := h.Chat(ctx, c.viewer, reply); err != nil {
			return
		}
	}
}

func (h *Hub) push(viewer uuid.UUID, f Frame) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[viewer]
	if !ok {
		return ErrUnreachable
	}
	select {
	case c.send <- f:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full", ErrUnreachable)
	}
}

// ActionBar sends a live reading to viewer.
func (h *Hub) ActionBar(_ context.Context, viewer uuid.UUID, update model.HUDUpdate) error {
	return h.push(viewer, Frame{Type: FrameActionBar, HUD: &update})
}

// Chat sends text to recipient.
func (h *Hub) Chat(_ context.Context, recipient uuid.UUID, text string) error {
	return h.push(recipient, Frame{Type: FrameChat, Text: text})
}

// Connected reports whether viewer has a live connection.
func (h *Hub) Connected(viewer uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[viewer]
	return ok
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}
