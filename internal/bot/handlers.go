package bot

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"sleeperbot/internal/settings"
	"sleeperbot/internal/sleeper"
)

// Most transactions listed at once, the limit of fields in an embed
const MAX_TRANSACTIONS = 25

const MESSAGE_NO_LEAGUE = "No league ID set. Use /config set league_id."

// League id from the settings, or the one given in the environment
func (bot *Bot) leagueId(s settings.Settings) string {
	if s.LeagueId != "" {
		return s.LeagueId
	}
	return bot.envLeagueId
}

func (bot *Bot) requireLeague() (string, error) {
	leagueId := bot.leagueId(bot.settings.Get())
	if leagueId == "" {
		return "", notConfigured(MESSAGE_NO_LEAGUE)
	}
	return leagueId, nil
}

func (bot *Bot) rosterNames(ctx context.Context, leagueId string) (map[sleeper.RosterId]string, []sleeper.Roster, error) {
	users, err := bot.sleeperapi.GetUsers(ctx, leagueId)
	if err != nil {
		return nil, nil, err
	}
	rosters, err := bot.sleeperapi.GetRosters(ctx, leagueId)
	if err != nil {
		return nil, nil, err
	}
	return NameMap(users, rosters), rosters, nil
}

func (bot *Bot) buildPreview(ctx context.Context, leagueId string, week int) (*discordgo.MessageEmbed, error) {
	names, _, err := bot.rosterNames(ctx, leagueId)
	if err != nil {
		return nil, err
	}
	matchups, err := bot.sleeperapi.GetMatchups(ctx, leagueId, week)
	if err != nil {
		return nil, err
	}
	return PreviewEmbed(week, PreviewFields(matchups, names, week)), nil
}

func (bot *Bot) buildResults(ctx context.Context, leagueId string, week int, currentWeek int) (*discordgo.MessageEmbed, error) {
	names, _, err := bot.rosterNames(ctx, leagueId)
	if err != nil {
		return nil, err
	}
	matchups, err := bot.sleeperapi.GetMatchups(ctx, leagueId, week)
	if err != nil {
		return nil, err
	}
	return ResultsEmbed(week, currentWeek, ResultsFields(matchups, names, week)), nil
}

func (bot *Bot) ping(ctx context.Context, req *Request) error {
	return req.Respond.Reply(Pong(), false)
}

func (bot *Bot) league(ctx context.Context, req *Request) error {
	if err := req.Respond.Defer(false); err != nil {
		return err
	}
	leagueId, err := bot.requireLeague()
	if err != nil {
		return err
	}
	league, err := bot.sleeperapi.GetLeague(ctx, leagueId)
	if err != nil {
		return err
	}
	return req.Respond.Reply(LeagueEmbed(league, leagueId), false)
}

// Most wins first, points for breaking ties
func SortStandings(rosters []sleeper.Roster) []sleeper.Roster {
	sorted := slices.Clone(rosters)
	slices.SortStableFunc(sorted, func(a, b sleeper.Roster) int {
		if a.Settings.Wins != b.Settings.Wins {
			return cmp.Compare(b.Settings.Wins, a.Settings.Wins)
		}
		return cmp.Compare(b.Settings.PointsFor(), a.Settings.PointsFor())
	})
	return sorted
}

func (bot *Bot) standings(ctx context.Context, req *Request) error {
	if err := req.Respond.Defer(false); err != nil {
		return err
	}
	leagueId, err := bot.requireLeague()
	if err != nil {
		return err
	}
	names, rosters, err := bot.rosterNames(ctx, leagueId)
	if err != nil {
		return err
	}
	return req.Respond.Reply(StandingsEmbed(SortStandings(rosters), names), false)
}

func (bot *Bot) schedule(ctx context.Context, req *Request) error {
	if err := req.Respond.Defer(false); err != nil {
		return err
	}
	leagueId, err := bot.requireLeague()
	if err != nil {
		return err
	}
	week, ok := req.Options.Int("week")
	if !ok {
		state, err := bot.sleeperapi.GetState(ctx)
		if err != nil {
			return err
		}
		week = state.CurrentWeek()
	}
	embed, err := bot.buildPreview(ctx, leagueId, max(1, week))
	if err != nil {
		return err
	}
	return req.Respond.Reply(embed, false)
}

func (bot *Bot) results(ctx context.Context, req *Request) error {
	if err := req.Respond.Defer(false); err != nil {
		return err
	}
	leagueId, err := bot.requireLeague()
	if err != nil {
		return err
	}
	state, err := bot.sleeperapi.GetState(ctx)
	if err != nil {
		return err
	}
	currentWeek := state.CurrentWeek()
	week, ok := req.Options.Int("week")
	if !ok {
		week = currentWeek
	}
	embed, err := bot.buildResults(ctx, leagueId, max(1, week), currentWeek)
	if err != nil {
		return err
	}
	return req.Respond.Reply(embed, false)
}

// Completed transactions updated at or after the cutoff, newest first
func RecentTransactions(transactions []sleeper.Transaction, cutoff time.Time, limit int) []sleeper.Transaction {
	recent := []sleeper.Transaction{}
	for _, transaction := range transactions {
		if transaction.Status != "complete" {
			continue
		}
		if time.UnixMilli(transaction.StatusUpdated).Before(cutoff) {
			continue
		}
		recent = append(recent, transaction)
	}
	slices.SortStableFunc(recent, func(a, b sleeper.Transaction) int {
		return cmp.Compare(b.StatusUpdated, a.StatusUpdated)
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}

func (bot *Bot) transactions(ctx context.Context, req *Request) error {
	if err := req.Respond.Defer(false); err != nil {
		return err
	}
	leagueId, err := bot.requireLeague()
	if err != nil {
		return err
	}
	days := bot.settings.Get().DefaultDays
	if value, ok := req.Options.Int("days"); ok {
		days = value
	}
	days = max(1, min(60, days))

	state, err := bot.sleeperapi.GetState(ctx)
	if err != nil {
		return err
	}
	names, _, err := bot.rosterNames(ctx, leagueId)
	if err != nil {
		return err
	}

	// Transactions are listed per week, one extra week covers the boundary
	currentWeek := state.CurrentWeek()
	oldestWeek := max(1, currentWeek-days/7-1)
	all := []sleeper.Transaction{}
	for week := currentWeek; week >= oldestWeek; week-- {
		transactions, err := bot.sleeperapi.GetTransactions(ctx, leagueId, week)
		if err != nil {
			return err
		}
		all = append(all, transactions...)
	}
	cutoff := bot.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	recent := RecentTransactions(all, cutoff, MAX_TRANSACTIONS)

	players := sleeper.Players{}
	if len(recent) > 0 {
		if players, err = bot.sleeperapi.GetPlayers(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Player directory unavailable, listing transactions without names")
			players = sleeper.Players{}
		}
	}
	return req.Respond.Reply(TransactionsEmbed(recent, days, names, players, bot.location), false)
}

func (bot *Bot) announce(ctx context.Context, req *Request) error {
	if err := req.Respond.Defer(true); err != nil {
		return err
	}
	args, err := ParseAnnounce(req.Options)
	if err != nil {
		return &UserError{Title: "Invalid input", Description: "Provide a title and a body.", Color: COLOR_WARN, Err: err}
	}

	s := bot.settings.Get()
	channelId := args.ChannelId
	if channelId == "" {
		channelId = s.AnnounceChannelId
	}
	missingChannel := func(err error) error {
		return &UserError{Title: "Missing channel", Description: "Provide channel: or set a default via /config set announce_channel.", Color: COLOR_WARN, Err: err}
	}
	if channelId == "" {
		return missingChannel(ErrNotConfigured)
	}
	channel, err := bot.gateway.Channel(req.GuildId, string(channelId))
	if err != nil {
		return missingChannel(err)
	}

	roleId := args.RoleId
	if roleId == "" {
		roleId = s.AnnounceRoleId
	}
	var role *discordgo.Role
	if args.Ping && roleId != "" {
		if role, err = bot.gateway.Role(req.GuildId, string(roleId)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Announcement role not found, posting without mention")
			role = nil
		}
	}

	message := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{AnnouncementEmbed(args.Title, args.Body, args.ImageUrl)},
		AllowedMentions: allowedMentions(role),
	}
	if role != nil {
		message.Content = role.Mention()
	}
	sent, err := bot.send(req.GuildId, channel.ID, message)
	if err != nil {
		if isForbidden(err) {
			return &UserError{Title: "Permission error", Description: "I don't have permission to post in that channel.", Color: COLOR_ERROR, Err: err}
		}
		return &UserError{Title: "Error sending announcement", Description: err.Error(), Color: COLOR_ERROR, Err: err}
	}
	return req.Respond.Reply(Posted("Announcement sent ✅", sent), true)
}

// Manual version of a weekly job, posting to the configured channel of the
// guild the command came from
func (bot *Bot) announceWeekly(post weeklyPost) HandlerFunc {
	return func(ctx context.Context, req *Request) error {
		if err := req.Respond.Defer(true); err != nil {
			return err
		}
		s := bot.settings.Get()
		leagueId := bot.leagueId(s)
		if leagueId == "" || s.AnnounceChannelId == "" {
			return notConfigured("Set league_id and announce_channel in /config set.")
		}
		channel, err := bot.gateway.Channel(req.GuildId, string(s.AnnounceChannelId))
		if err != nil {
			return &UserError{Title: "Channel not found", Description: "Update /config set announce_channel.", Color: COLOR_WARN, Err: err}
		}
		sent, _, err := bot.postWeekly(ctx, post, leagueId, req.GuildId, channel.ID, s.AnnounceRoleId)
		if err != nil {
			return err
		}
		return req.Respond.Reply(Posted(post.confirmation, sent), true)
	}
}

func (bot *Bot) configGet(ctx context.Context, req *Request) error {
	return req.Respond.Reply(ConfigEmbed(bot.settings.Get(), bot.envLeagueId), true)
}

func (bot *Bot) configSet(ctx context.Context, req *Request) error {
	_, changed, err := bot.settings.Update(ParseSettingsUpdate(req.Options))
	if err != nil {
		return err
	}
	return req.Respond.Reply(ConfigUpdated(changed), true)
}

// Only the given role can be mentioned, nobody when it is nil
func allowedMentions(role *discordgo.Role) *discordgo.MessageAllowedMentions {
	if role == nil {
		return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	}
	return &discordgo.MessageAllowedMentions{Roles: []string{role.ID}}
}

func (bot *Bot) send(guildId string, channelId string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	sent, err := bot.gateway.Send(channelId, message)
	if err != nil {
		return nil, fmt.Errorf("could not post to channel %s: %w", channelId, err)
	}
	if sent.GuildID == "" {
		sent.GuildID = guildId
	}
	if sent.ChannelID == "" {
		sent.ChannelID = channelId
	}
	return sent, nil
}
