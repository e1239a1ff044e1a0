package bot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"sleeperbot/internal/settings"
)

// Options of an invoked command, by name
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

// Name of the invoked command and its options. Subcommands are part of the
// name, so "/config set" becomes "config set"
func ParseCommand(data discordgo.ApplicationCommandInteractionData) (string, Options) {
	name := data.Name
	options := data.Options
	for len(options) == 1 && isSubcommand(options[0]) {
		name += " " + options[0].Name
		options = options[0].Options
	}
	return name, NewOptions(options)
}

func isSubcommand(option *discordgo.ApplicationCommandInteractionDataOption) bool {
	return option.Type == discordgo.ApplicationCommandOptionSubCommand ||
		option.Type == discordgo.ApplicationCommandOptionSubCommandGroup
}

func NewOptions(options []*discordgo.ApplicationCommandInteractionDataOption) Options {
	result := Options{}
	for _, option := range options {
		result[option.Name] = option
	}
	return result
}

func (o Options) String(name string) (string, bool) {
	option, ok := o[name]
	if !ok || option.Value == nil {
		return "", false
	}
	switch value := option.Value.(type) {
	case string:
		return value, true
	default:
		return fmt.Sprint(value), true
	}
}

// Integers arrive as JSON numbers, so float64 when decoded from the gateway
func (o Options) Int(name string) (int, bool) {
	option, ok := o[name]
	if !ok || option.Value == nil {
		return 0, false
	}
	switch value := option.Value.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case int64:
		return int(value), true
	case json.Number:
		n, err := value.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		return n, err == nil
	default:
		return 0, false
	}
}

func (o Options) Bool(name string) (bool, bool) {
	option, ok := o[name]
	if !ok || option.Value == nil {
		return false, false
	}
	switch value := option.Value.(type) {
	case bool:
		return value, true
	case string:
		b, err := strconv.ParseBool(value)
		return b, err == nil
	default:
		return false, false
	}
}

// Channel, role and user options carry the snowflake as a string
func (o Options) Id(name string) (settings.ID, bool) {
	value, ok := o.String(name)
	if !ok || value == "" {
		return "", false
	}
	return settings.ID(value), true
}

// Partial settings update from the options of "/config set"
func ParseSettingsUpdate(o Options) settings.Update {
	var update settings.Update
	if value, ok := o.String("league_id"); ok {
		update.LeagueId = &value
	}
	if value, ok := o.Id("announce_channel"); ok {
		update.AnnounceChannelId = &value
	}
	if value, ok := o.Id("announce_role"); ok {
		update.AnnounceRoleId = &value
	}
	intField := func(name string) *int {
		if value, ok := o.Int(name); ok {
			return &value
		}
		return nil
	}
	boolField := func(name string) *bool {
		if value, ok := o.Bool(name); ok {
			return &value
		}
		return nil
	}
	update.DefaultDays = intField("default_days")
	update.ScheduleEnabled = boolField("schedule_enabled")
	update.ScheduleDow = intField("schedule_dow")
	update.ScheduleHour = intField("schedule_hour")
	update.ScheduleMinute = intField("schedule_minute")
	update.ResultsEnabled = boolField("results_enabled")
	update.ResultsDow = intField("results_dow")
	update.ResultsHour = intField("results_hour")
	update.ResultsMinute = intField("results_minute")
	return update
}

type AnnounceArgs struct {
	Title     string
	Body      string
	ChannelId settings.ID
	RoleId    settings.ID
	Ping      bool
	ImageUrl  string
}

func ParseAnnounce(o Options) (AnnounceArgs, error) {
	var args AnnounceArgs
	args.Title, _ = o.String("title")
	args.Body, _ = o.String("body")
	if strings.TrimSpace(args.Title) == "" || strings.TrimSpace(args.Body) == "" {
		return args, fmt.Errorf("announce requires a title and a body")
	}
	args.ChannelId, _ = o.Id("channel")
	args.RoleId, _ = o.Id("role")
	args.Ping, _ = o.Bool("ping")
	args.ImageUrl, _ = o.String("image_url")
	args.ImageUrl = strings.TrimSpace(args.ImageUrl)
	return args, nil
}
