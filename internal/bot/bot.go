package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"sleeperbot/internal/scheduler"
	"sleeperbot/internal/settings"
	"sleeperbot/internal/sleeper"
)

// Time given to a command before its upstream calls are cancelled
const COMMAND_TIMEOUT = 2 * time.Minute

type Config struct {
	Token string
	// League used when the settings carry none
	LeagueId string
	// Guild where commands are registered and jobs post. Empty means global
	// registration and the first guild for jobs
	GuildId       string
	Commissioners map[string]struct{}
	Location      *time.Location
	Clock         clock.Clock
}

type Bot struct {
	token         string
	envLeagueId   string
	guildId       string
	commissioners map[string]struct{}
	location      *time.Location
	clock         clock.Clock

	settings   *settings.Store
	sleeperapi *sleeper.SleeperApi
	scheduler  *scheduler.Scheduler
	gateway    Gateway
	commands   map[string]*Command

	connected atomic.Bool
}

// Create the bot and register the weekly jobs from the current settings.
// Jobs are registered again every time the settings change
func New(options Config, store *settings.Store, sleeperapi *sleeper.SleeperApi, sched *scheduler.Scheduler) *Bot {

	if options.Clock == nil {
		options.Clock = clock.New()
	}
	if options.Location == nil {
		options.Location = sched.Location()
	}

	var bot Bot
	bot.token = options.Token
	bot.envLeagueId = options.LeagueId
	bot.guildId = options.GuildId
	bot.commissioners = options.Commissioners
	bot.location = options.Location
	bot.clock = options.Clock
	bot.settings = store
	bot.sleeperapi = sleeperapi
	bot.scheduler = sched
	bot.commands = bot.registry()

	store.OnChange(bot.registerJobs)
	bot.registerJobs(store.Get())

	return &bot
}

// Connect to discord, register the slash commands and run the scheduler
// until the context is done
func (bot *Bot) Run(ctx context.Context) error {
	// Create session
	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuilds
	bot.gateway = sessionGateway{session: discord}

	// Event handlers
	discord.AddHandler(bot.ready)
	discord.AddHandler(bot.disconnect)
	discord.AddHandler(bot.interactionCreate)

	// Open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	if _, err := discord.ApplicationCommandBulkOverwrite(discord.State.User.ID, bot.guildId, Definitions()); err != nil {
		return fmt.Errorf("could not register slash commands: %w", err)
	}
	if bot.guildId != "" {
		log.Info().Msg(fmt.Sprintf("Slash commands synced to guild %s", bot.guildId))
	} else {
		log.Info().Msg("Slash commands synced globally")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduler did not stop cleanly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	wg.Wait()
	return nil
}

// True while the gateway connection is up
func (bot *Bot) Connected() bool {
	return bot.connected.Load()
}

func (bot *Bot) ready(discord *discordgo.Session, ready *discordgo.Ready) {
	bot.connected.Store(true)
	log.Info().Msg(fmt.Sprintf("Logged in as %s (ID: %s)", ready.User.Username, ready.User.ID))
	log.Info().Msg(fmt.Sprintf("Settings: %+v", bot.settings.Get()))
}

func (bot *Bot) disconnect(discord *discordgo.Session, event *discordgo.Disconnect) {
	bot.connected.Store(false)
	log.Warn().Msg("Disconnected from discord")
}

func (bot *Bot) interactionCreate(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name, options := ParseCommand(interaction.ApplicationCommandData())
	req := &Request{
		Command:   name,
		UserId:    interactionUser(interaction.Interaction),
		GuildId:   interaction.GuildID,
		ChannelId: interaction.ChannelID,
		Options:   options,
		Respond:   newInteractionResponder(discord, interaction.Interaction),
	}

	ctx, cancel := context.WithTimeout(context.Background(), COMMAND_TIMEOUT)
	defer cancel()
	bot.Dispatch(ctx, req)
}

// Guild interactions carry a member, direct messages a user
func interactionUser(interaction *discordgo.Interaction) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}
