package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sleeperbot/internal/metrics"
	"sleeperbot/internal/scheduler"
	"sleeperbot/internal/settings"
	"sleeperbot/internal/sleeper"
)

const (
	JOB_WEEKLY_PREVIEW = "weekly_preview"
	JOB_WEEKLY_RESULTS = "weekly_results"
)

// A weekly post: which week it shows and how it is rendered
type weeklyPost struct {
	job          string
	label        string
	confirmation string
	schedule     func(settings.Settings) settings.Schedule
	build        func(bot *Bot, ctx context.Context, leagueId string, state sleeper.State) (*discordgo.MessageEmbed, int, error)
}

// Preview of the week being played
var previewPost = weeklyPost{
	job:          JOB_WEEKLY_PREVIEW,
	label:        "preview",
	confirmation: "Preview sent ✅",
	schedule:     settings.Settings.Preview,
	build: func(bot *Bot, ctx context.Context, leagueId string, state sleeper.State) (*discordgo.MessageEmbed, int, error) {
		week := state.CurrentWeek()
		embed, err := bot.buildPreview(ctx, leagueId, week)
		return embed, week, err
	},
}

// Results of the week that just finished
var resultsPost = weeklyPost{
	job:          JOB_WEEKLY_RESULTS,
	label:        "results",
	confirmation: "Results sent ✅",
	schedule:     settings.Settings.Results,
	build: func(bot *Bot, ctx context.Context, leagueId string, state sleeper.State) (*discordgo.MessageEmbed, int, error) {
		week := state.CompletedWeek()
		embed, err := bot.buildResults(ctx, leagueId, week, state.CurrentWeek())
		return embed, week, err
	},
}

// Re-register both weekly jobs from the settings. Safe to call any number
// of times: a job is removed first and only added back when enabled
func (bot *Bot) registerJobs(s settings.Settings) {
	for _, post := range []weeklyPost{previewPost, resultsPost} {
		bot.scheduler.Remove(post.job)
		schedule := post.schedule(s)
		if !schedule.Enabled {
			log.Info().Msg(fmt.Sprintf("Scheduler: %s disabled via config", post.job))
			continue
		}
		spec := scheduler.Spec{Weekday: schedule.Weekday, Hour: schedule.Hour, Minute: schedule.Minute}
		if err := bot.scheduler.Add(post.job, spec, bot.weeklyJob(post)); err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Scheduler: could not enable %s", post.job))
			continue
		}
		log.Info().Msg(fmt.Sprintf("Scheduler: %s enabled at %s %s", post.job, schedule, bot.scheduler.Location()))
	}
}

func (bot *Bot) weeklyJob(post weeklyPost) scheduler.Job {
	return func(ctx context.Context) {
		logger := log.With().Str("run", uuid.NewString()).Str("job", post.job).Logger()
		outcome := bot.runWeekly(logger.WithContext(ctx), post)
		metrics.JobsTotal.WithLabelValues(post.job, outcome).Inc()
	}
}

// Post the weekly view to the configured channel of the home guild.
// Anything missing is a warning, never a failure
func (bot *Bot) runWeekly(ctx context.Context, post weeklyPost) string {
	logger := zerolog.Ctx(ctx)
	s := bot.settings.Get()
	leagueId := bot.leagueId(s)
	if leagueId == "" || s.AnnounceChannelId == "" {
		logger.Warn().Msg(fmt.Sprintf("Weekly %s skipped: league_id or announce_channel missing", post.label))
		return metrics.OutcomeSkipped
	}
	guild, err := bot.homeGuild()
	if err != nil {
		logger.Warn().Err(err).Msg(fmt.Sprintf("Weekly %s skipped: guild not found", post.label))
		return metrics.OutcomeSkipped
	}
	channel, err := bot.gateway.Channel(guild.ID, string(s.AnnounceChannelId))
	if err != nil {
		logger.Warn().Err(err).Msg(fmt.Sprintf("Weekly %s skipped: channel not found", post.label))
		return metrics.OutcomeSkipped
	}

	_, week, err := bot.postWeekly(ctx, post, leagueId, guild.ID, channel.ID, s.AnnounceRoleId)
	if err != nil {
		logger.Warn().Err(err).Msg(fmt.Sprintf("Weekly %s failed", post.label))
		return metrics.OutcomeError
	}
	logger.Info().Msg(fmt.Sprintf("Weekly %s posted to channel %s for week %d", post.label, channel.ID, week))
	return metrics.OutcomeOK
}

// The configured guild, or any guild the bot is in when none is configured
func (bot *Bot) homeGuild() (*discordgo.Guild, error) {
	if bot.guildId != "" {
		return bot.gateway.Guild(bot.guildId)
	}
	return bot.gateway.FirstGuild()
}

// Build the weekly view and post it, mentioning the announce role when it
// still exists. Returns the posted message and the week shown
func (bot *Bot) postWeekly(ctx context.Context, post weeklyPost, leagueId string, guildId string, channelId string, roleId settings.ID) (*discordgo.Message, int, error) {
	state, err := bot.sleeperapi.GetState(ctx)
	if err != nil {
		return nil, 0, err
	}
	embed, week, err := post.build(bot, ctx, leagueId, state)
	if err != nil {
		return nil, week, err
	}

	message := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: allowedMentions(nil),
	}
	if roleId != "" {
		if role, err := bot.gateway.Role(guildId, string(roleId)); err == nil {
			message.Content = role.Mention()
			message.AllowedMentions = allowedMentions(role)
		} else {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Announce role not found, posting without mention")
		}
	}

	sent, err := bot.send(guildId, channelId, message)
	return sent, week, err
}
