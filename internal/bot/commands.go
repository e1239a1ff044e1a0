package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sleeperbot/internal/metrics"
)

var (
	ErrNotConfigured    = errors.New("not configured")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTargetNotFound   = errors.New("target not found")
)

// Error shown to the user as is, with its own card
type UserError struct {
	Title       string
	Description string
	Color       int
	Err         error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Description)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func notConfigured(description string) error {
	return &UserError{Title: "Not configured", Description: description, Color: COLOR_WARN, Err: ErrNotConfigured}
}

// Card for an error returned by a handler
func errorEmbed(err error) *discordgo.MessageEmbed {
	var userErr *UserError
	switch {
	case errors.As(err, &userErr):
		return card(userErr.Title, userErr.Description, userErr.Color)
	case errors.Is(err, ErrPermissionDenied):
		return ErrorEmbed(MESSAGE_PERMISSION_DENIED)
	default:
		return ErrorEmbed(MESSAGE_GENERIC_ERROR)
	}
}

// An invoked command, decoupled from the discord interaction
type Request struct {
	Command   string
	UserId    string
	GuildId   string
	ChannelId string
	Options   Options
	Respond   Responder
}

// Handlers reply through the request. A returned error is turned into an
// error card by the dispatcher
type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name string
	// Only commissioners may run it
	Privileged bool
	Handler    HandlerFunc
}

func (bot *Bot) registry() map[string]*Command {
	commands := []*Command{
		{Name: "ping", Handler: bot.ping},
		{Name: "league", Handler: bot.league},
		{Name: "standings", Handler: bot.standings},
		{Name: "schedule", Handler: bot.schedule},
		{Name: "results", Handler: bot.results},
		{Name: "transactions", Handler: bot.transactions},
		{Name: "announce", Privileged: true, Handler: bot.announce},
		{Name: "announce_preview", Privileged: true, Handler: bot.announceWeekly(previewPost)},
		{Name: "announce_results", Privileged: true, Handler: bot.announceWeekly(resultsPost)},
		{Name: "config get", Privileged: true, Handler: bot.configGet},
		{Name: "config set", Privileged: true, Handler: bot.configSet},
	}
	registry := make(map[string]*Command, len(commands))
	for _, command := range commands {
		registry[command.Name] = command
	}
	return registry
}

func (bot *Bot) isCommissioner(userId string) bool {
	_, ok := bot.commissioners[userId]
	return ok
}

// The one place where privileges are checked
func (bot *Bot) authorize(command *Command, userId string) error {
	if command.Privileged && !bot.isCommissioner(userId) {
		return fmt.Errorf("%w: user %s cannot run %s", ErrPermissionDenied, userId, command.Name)
	}
	return nil
}

// Run a command: look it up, authorize the user, call the handler and
// make sure the user always gets an answer
func (bot *Bot) Dispatch(ctx context.Context, req *Request) {
	logger := log.With().Str("run", uuid.NewString()).Str("command", req.Command).Str("user", req.UserId).Logger()
	ctx = logger.WithContext(ctx)

	outcome := metrics.OutcomeOK
	defer func() {
		metrics.CommandsTotal.WithLabelValues(req.Command, outcome).Inc()
	}()

	replyError := func(err error) {
		if err := req.Respond.Reply(errorEmbed(err), true); err != nil {
			logger.Error().Err(err).Msg("Could not send the error reply")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomeError
			logger.Error().Msg(fmt.Sprintf("Command panicked: %v", r))
			replyError(fmt.Errorf("panic: %v", r))
		}
	}()

	command, ok := bot.commands[req.Command]
	if !ok {
		outcome = metrics.OutcomeError
		logger.Error().Msg(fmt.Sprintf("Unknown command %s", req.Command))
		replyError(fmt.Errorf("unknown command %s", req.Command))
		return
	}

	if err := bot.authorize(command, req.UserId); err != nil {
		outcome = metrics.OutcomeDenied
		logger.Warn().Err(err).Msg("Permission denied")
		replyError(err)
		return
	}

	logger.Info().Msg(fmt.Sprintf("Running command %s", req.Command))
	if err := command.Handler(ctx, req); err != nil {
		outcome = metrics.OutcomeError
		if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrTargetNotFound) {
			logger.Warn().Err(err).Msg("Command aborted")
		} else {
			logger.Error().Err(err).Msg("Command failed")
		}
		replyError(err)
	}
}

func minValue(value float64) *float64 {
	return &value
}

// Slash command definitions registered with discord
func Definitions() []*discordgo.ApplicationCommand {
	weekOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "week",
		Description: "NFL week number (optional)",
		MinValue:    minValue(1),
	}
	textChannel := []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
	dowDescription := "Day of week (0=Mon … 6=Sun)"

	integer := func(name string, description string, min float64, max float64) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        name,
			Description: description,
			MinValue:    minValue(min),
			MaxValue:    max,
		}
	}
	boolean := func(name string, description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: name, Description: description}
	}

	return []*discordgo.ApplicationCommand{
		{Name: "ping", Description: "Check if the bot is alive."},
		{Name: "league", Description: "Show basic Sleeper league info."},
		{Name: "standings", Description: "Show league standings."},
		{
			Name:        "schedule",
			Description: "Show matchups for a given week (defaults to current).",
			Options:     []*discordgo.ApplicationCommandOption{weekOption},
		},
		{
			Name:        "results",
			Description: "Show final (or current) results for a given week.",
			Options:     []*discordgo.ApplicationCommandOption{weekOption},
		},
		{
			Name:        "transactions",
			Description: "Show recent completed transactions.",
			Options: []*discordgo.ApplicationCommandOption{
				integer("days", "Lookback in days (defaults to the configured value)", 1, 60),
			},
		},
		{
			Name:        "announce",
			Description: "(Commissioner only) Post an announcement to a channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Headline for the card", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "body", Description: "Main announcement text", Required: true},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Target channel (optional, uses config default if omitted)", ChannelTypes: textChannel},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Optional role to ping (uses config default if omitted)"},
				boolean("ping", "If true, tag the role"),
				{Type: discordgo.ApplicationCommandOptionString, Name: "image_url", Description: "Optional image URL"},
			},
		},
		{Name: "announce_preview", Description: "(Commissioner only) Manually post this week's preview to default channel."},
		{Name: "announce_results", Description: "(Commissioner only) Manually post last week's results to default channel."},
		{
			Name:        "config",
			Description: "Commissioner-only bot configuration.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "get", Description: "Show current configuration."},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Update a configuration value.",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "league_id", Description: "Sleeper League ID"},
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "announce_channel", Description: "Default channel for announcements", ChannelTypes: textChannel},
						{Type: discordgo.ApplicationCommandOptionRole, Name: "announce_role", Description: "Default role to ping"},
						integer("default_days", "Default transaction lookback in days", 1, 60),
						boolean("schedule_enabled", "Enable weekly preview job?"),
						integer("schedule_dow", dowDescription, 0, 6),
						integer("schedule_hour", "Hour (0-23)", 0, 23),
						integer("schedule_minute", "Minute (0-59)", 0, 59),
						boolean("results_enabled", "Enable weekly results job?"),
						integer("results_dow", dowDescription+"; Tuesday=1", 0, 6),
						integer("results_hour", "Hour (0-23)", 0, 23),
						integer("results_minute", "Minute (0-59)", 0, 59),
					},
				},
			},
		},
	}
}
