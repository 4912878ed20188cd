// Package command runs the text commands viewers and the console type,
// e.g. "on", "unit" or "topspeed", and renders every outcome as messages.
package command

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/speedhud/internal/app"
	"github.com/okian/speedhud/internal/domain/messages"
	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/logger"
	"github.com/okian/speedhud/pkg/metrics"
)

// Canonical subcommand names. Their typed aliases come from configuration.
const (
	Enable           = "enable"
	Disable          = "disable"
	ToggleUnit       = "toggle_unit"
	Reload           = "reload"
	Help             = "help"
	StartRecordSpeed = "startrecordspeed"
	TopSpeed         = "topspeed"
	TopToggleUnit    = "toptoggleunit"
)

// Permissions checked per subcommand. Unit toggling needs none.
const (
	PermToggle           = "speedhud.toggle"
	PermStartRecordSpeed = "speedhud.startrecordspeed"
	PermTopSpeed         = "speedhud.topspeed"
	PermTopToggleUnit    = "speedhud.toptoggleunit"
	PermReload           = "speedhud.reload"
)

// DefaultLabel is the command name shown in help text.
const DefaultLabel = "speedhud"

// helpOrder is the order help lines are printed in.
var helpOrder = []string{Enable, Disable, ToggleUnit, Reload, Help, StartRecordSpeed, TopSpeed, TopToggleUnit} //nolint:gochecknoglobals // read-only table

// matchOrder decides which subcommand wins when two share an alias.
var matchOrder = []string{Help, StartRecordSpeed, TopSpeed, TopToggleUnit, Enable, Disable, ToggleUnit, Reload} //nolint:gochecknoglobals // read-only table

// helpKeys maps canonical names to their placeholder and help message key.
var helpKeys = map[string]struct{ placeholder, key string }{ //nolint:gochecknoglobals // read-only table
	Enable:           {"enable", "help_enable"},
	Disable:          {"disable", "help_disable"},
	ToggleUnit:       {"unit", "help_unit"},
	Reload:           {"reload", "help_reload"},
	Help:             {"help", "help_help"},
	StartRecordSpeed: {"startrecordspeed", "help_startrecordspeed"},
	TopSpeed:         {"topspeed", "help_topspeed"},
	TopToggleUnit:    {"toptoggleunit", "help_toptoggleunit"},
}

// Sender is whoever typed the command. The console has uuid.Nil and every
// permission.
type Sender struct {
	ID uuid.UUID
}

// Console is the operator console sender.
var Console = Sender{} //nolint:gochecknoglobals // zero value

// IsConsole reports whether s is the console.
func (s Sender) IsConsole() bool { return s.ID == uuid.Nil }

// Engine is the part of the engine commands drive.
type Engine interface {
	SetHUD(ctx context.Context, viewer uuid.UUID, enable bool)
	CycleLiveUnit(ctx context.Context, viewer uuid.UUID) string
	CycleLeaderboardUnit(ctx context.Context, viewer uuid.UUID) string
	QueryLeaderboard(ctx context.Context, viewer uuid.UUID) ([]model.RankedEntry, string, error)
	StartRecording(ctx context.Context, entityID, issuerID uuid.UUID) error
	Reload(ctx context.Context) error
	Messages() *messages.Catalog
	Subcommands() map[string]string
}

// Permissions answers permission checks for online entities.
type Permissions interface {
	HasPermission(id uuid.UUID, perm string) bool
}

// Dispatcher resolves aliases and runs subcommands.
type Dispatcher struct {
	engine Engine
	perms  Permissions
	label  string
	logger logger.Logger
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithLabel sets the command name shown in help text.
func WithLabel(label string) Option {
	return func(d *Dispatcher) {
		if label != "" {
			d.label = label
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(engine Engine, perms Permissions, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine: engine,
		perms:  perms,
		label:  DefaultLabel,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("command")
	}
	return d
}

// Line splits line into arguments and runs it.
func (d *Dispatcher) Line(ctx context.Context, s Sender, line string) []string {
	return d.Run(ctx, s, strings.Fields(line))
}

// Run executes args for s and returns the rendered reply lines.
func (d *Dispatcher) Run(ctx context.Context, s Sender, args []string) []string {
	cat := d.engine.Messages()
	aliases := d.engine.Subcommands()
	help := d.helpArgs(aliases)

	if len(args) == 0 {
		metrics.RecordCommand(Help, "ok")
		return d.helpLines(cat, help)
	}

	typed := strings.ToLower(args[0])
	name := resolve(aliases, typed)
	out, result := d.run(ctx, s, cat, help, name)
	if name == "" {
		name = "unknown"
	}
	metrics.RecordCommand(name, result)
	d.logger.Debug(ctx, "command handled",
		logger.String("sender", s.ID.String()),
		logger.String("typed", typed),
		logger.String("command", name),
		logger.String("result", result),
	)
	return out
}

// resolve maps a typed word to its canonical name, or "". Aliases are
// checked in matchOrder.
func resolve(aliases map[string]string, typed string) string {
	for _, name := range matchOrder {
		if alias, ok := aliases[name]; ok && strings.EqualFold(alias, typed) {
			return name
		}
	}
	return ""
}

func (d *Dispatcher) allowed(s Sender, perm string) bool {
	return s.IsConsole() || d.perms.HasPermission(s.ID, perm)
}

func one(cat *messages.Catalog, key string, args messages.Args) []string {
	return []string{cat.Format(key, args)}
}

//nolint:gocyclo // one branch per subcommand
func (d *Dispatcher) run(ctx context.Context, s Sender, cat *messages.Catalog, help messages.Args, name string) ([]string, string) {
	switch name {
	case Help:
		return d.helpLines(cat, help), "ok"

	case StartRecordSpeed:
		if s.IsConsole() {
			return one(cat, "start_record_player_only", nil), "rejected"
		}
		if !d.allowed(s, PermStartRecordSpeed) {
			return one(cat, "no_permission", nil), "denied"
		}
		err := d.engine.StartRecording(ctx, s.ID, s.ID)
		switch {
		case err == nil:
			return one(cat, "start_record_started", nil), "ok"
		case errors.Is(err, app.ErrAlreadyRecording):
			return one(cat, "start_record_already_recording", nil), "rejected"
		case errors.Is(err, app.ErrUnknownEntity):
			return one(cat, "start_record_player_only", nil), "rejected"
		default:
			d.logger.Warn(ctx, "recording start failed", logger.String("sender", s.ID.String()), logger.Error(err))
			return one(cat, "start_record_player_only", nil), "error"
		}

	case TopSpeed:
		if !d.allowed(s, PermTopSpeed) {
			return one(cat, "no_permission", nil), "denied"
		}
		entries, label, err := d.engine.QueryLeaderboard(ctx, s.ID)
		if err != nil {
			if !errors.Is(err, app.ErrNoData) {
				d.logger.Warn(ctx, "leaderboard query failed", logger.Error(err))
			}
			return one(cat, "topspeed_no_data", nil), "ok"
		}
		out := make([]string, 0, len(entries)+1)
		out = append(out, cat.Format("topspeed_header", nil))
		for _, e := range entries {
			out = append(out, cat.Format("topspeed_entry", messages.Args{
				"rank":   strconv.Itoa(e.Rank),
				"player": e.Name,
				"speed":  strconv.FormatFloat(e.DisplaySpeed, 'f', 2, 64),
				"unit":   label,
			}))
		}
		return out, "ok"

	case TopToggleUnit:
		if s.IsConsole() {
			return one(cat, "no_console_player_command", nil), "rejected"
		}
		if !d.allowed(s, PermTopToggleUnit) {
			return one(cat, "no_permission", nil), "denied"
		}
		label := d.engine.CycleLeaderboardUnit(ctx, s.ID)
		return one(cat, "topspeed_unit_changed", messages.Args{"unit": label}), "ok"

	case Enable, Disable:
		if s.IsConsole() {
			return one(cat, "no_console_player_command", nil), "rejected"
		}
		if !d.allowed(s, PermToggle) {
			return one(cat, "no_permission", nil), "denied"
		}
		d.engine.SetHUD(ctx, s.ID, name == Enable)
		if name == Enable {
			return one(cat, "hud_enabled", nil), "ok"
		}
		return one(cat, "hud_disabled", nil), "ok"

	case ToggleUnit:
		if s.IsConsole() {
			return one(cat, "no_console_player_command", nil), "rejected"
		}
		label := d.engine.CycleLiveUnit(ctx, s.ID)
		return one(cat, "unit_changed", messages.Args{"unit": label}), "ok"

	case Reload:
		if !d.allowed(s, PermReload) {
			return one(cat, "no_permission", nil), "denied"
		}
		out := one(cat, "plugin_reloading", nil)
		if err := d.engine.Reload(ctx); err != nil {
			return append(out, cat.Format("config_reload_failed", nil)), "error"
		}
		// Render with the catalog that was just loaded.
		return append(out, d.engine.Messages().Format("config_updated", nil)), "ok"

	default:
		return one(cat, "unknown_subcommand", help), "unknown"
	}
}

func (d *Dispatcher) helpArgs(aliases map[string]string) messages.Args {
	args := messages.Args{"label": d.label}
	for name, hk := range helpKeys {
		args[hk.placeholder] = aliases[name]
	}
	return args
}

func (d *Dispatcher) helpLines(cat *messages.Catalog, help messages.Args) []string {
	out := make([]string, 0, len(helpOrder)+1)
	out = append(out, cat.Format("help_header", help))
	for _, name := range helpOrder {
		out = append(out, cat.Format(helpKeys[name].key, help))
	}
	return out
}
