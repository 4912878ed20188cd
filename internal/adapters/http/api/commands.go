package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/adapters/command"
)

// CommandsHandler runs commands for players and the console.
type CommandsHandler struct {
	commands Commands
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(c Commands) *CommandsHandler {
	return &CommandsHandler{commands: c}
}

// commandRequest carries either a raw line or pre-split args. An empty
// sender runs the command as the console.
type commandRequest struct {
	Sender string   `json:"sender"`
	Line   string   `json:"line"`
	Args   []string `json:"args"`
}

type commandResponse struct {
	Lines []string `json:"lines"`
}

// HandlePostCommand handles POST /v1/commands.
func (h *CommandsHandler) HandlePostCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	sender := command.Console
	if req.Sender != "" {
		id, err := uuid.Parse(req.Sender)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid sender: %w", ErrBadRequest, err))
			return
		}
		sender = command.Sender{ID: id}
	}
	args := req.Args
	if len(args) == 0 {
		args = strings.Fields(req.Line)
	}
	writeJSON(w, http.StatusOK, commandResponse{Lines: h.commands.Run(r.Context(), sender, args)})
}
