package bot

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"sleeperbot/internal/settings"
	"sleeperbot/internal/sleeper"
)

// Card colors
const (
	COLOR_PRIMARY int = 0x4F46E5
	COLOR_SUCCESS int = 0x16A34A
	COLOR_WARN    int = 0xEAB308
	COLOR_ERROR   int = 0xDC2626
	COLOR_INFO    int = 0x0EA5E9
)

const MESSAGE_GENERIC_ERROR = "Something went wrong. Please try again."
const MESSAGE_PERMISSION_DENIED = "Permission denied — commissioner only."

const unset = "—"

// Discord rejects embeds above these sizes, counted in characters
const (
	EMBED_FIELD_VALUE_LIMIT = 1024
	EMBED_TOTAL_LIMIT       = 6000
)

// Room kept in the embed for the note about hidden transactions
const embedOmittedReserve = 64

func card(title string, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func addKV(embed *discordgo.MessageEmbed, name string, value string) {
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: false})
}

func addFields(embed *discordgo.MessageEmbed, fields []Field) {
	for _, field := range fields {
		addKV(embed, field.Name, field.Value)
	}
}

func Pong() *discordgo.MessageEmbed {
	return card("Pong! 🏓", "", COLOR_SUCCESS)
}

func LeagueEmbed(league sleeper.League, leagueId string) *discordgo.MessageEmbed {
	name := league.Name
	if name == "" {
		name = "Unknown League"
	}
	season := league.Season
	if season == "" {
		season = "Unknown"
	}
	totalRosters := "N/A"
	if league.TotalRosters > 0 {
		totalRosters = fmt.Sprint(league.TotalRosters)
	}
	embed := card(name, fmt.Sprintf("Season **%s**", season), COLOR_PRIMARY)
	addKV(embed, "Total Rosters", totalRosters)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("League ID: %s", leagueId)}
	return embed
}

// Rosters are expected already sorted
func StandingsEmbed(rosters []sleeper.Roster, names map[sleeper.RosterId]string) *discordgo.MessageEmbed {
	embed := card("League Standings", "", COLOR_INFO)
	for i, roster := range rosters {
		addKV(embed,
			fmt.Sprintf("#%d — %s", i+1, rosterName(names, roster.RosterId)),
			fmt.Sprintf("Wins: %d | Losses: %d | Points: %.2f", roster.Settings.Wins, roster.Settings.Losses, roster.Settings.PointsFor()))
	}
	return embed
}

func PreviewEmbed(week int, fields []Field) *discordgo.MessageEmbed {
	embed := card(fmt.Sprintf("Week %d Preview", week), "", COLOR_PRIMARY)
	addFields(embed, fields)
	return embed
}

func ResultsEmbed(week int, currentWeek int, fields []Field) *discordgo.MessageEmbed {
	title, color := ResultsTitle(week, currentWeek)
	embed := card(title, "", color)
	addFields(embed, fields)
	return embed
}

// Current settings, one field per stored key. The league id falls back to
// the one given in the environment
func ConfigEmbed(s settings.Settings, envLeagueId string) *discordgo.MessageEmbed {
	orUnset := func(value string) string {
		if value == "" {
			return unset
		}
		return value
	}
	leagueId := s.LeagueId
	if leagueId == "" {
		leagueId = envLeagueId
	}

	embed := card("Current Configuration", "", COLOR_PRIMARY)
	addKV(embed, "league_id", orUnset(leagueId))
	addKV(embed, "announce_channel_id", orUnset(string(s.AnnounceChannelId)))
	addKV(embed, "announce_role_id", orUnset(string(s.AnnounceRoleId)))
	addKV(embed, "default_days", fmt.Sprint(s.DefaultDays))
	addKV(embed, "schedule_enabled", fmt.Sprint(s.ScheduleEnabled))
	addKV(embed, "schedule_dow", fmt.Sprint(s.ScheduleDow))
	addKV(embed, "schedule_hour", fmt.Sprint(s.ScheduleHour))
	addKV(embed, "schedule_minute", fmt.Sprint(s.ScheduleMinute))
	addKV(embed, "results_enabled", fmt.Sprint(s.ResultsEnabled))
	addKV(embed, "results_dow", fmt.Sprint(s.ResultsDow))
	addKV(embed, "results_hour", fmt.Sprint(s.ResultsHour))
	addKV(embed, "results_minute", fmt.Sprint(s.ResultsMinute))
	return embed
}

func ConfigUpdated(changed []string) *discordgo.MessageEmbed {
	if len(changed) == 0 {
		return card("No changes", "Provide at least one field to update.", COLOR_WARN)
	}
	embed := card("Config updated ✅", "", COLOR_SUCCESS)
	addKV(embed, "Changed", strings.Join(changed, ", "))
	return embed
}

func transactionType(kind string) string {
	switch kind {
	case "waiver":
		return "Waiver"
	case "free_agent":
		return "Free Agent"
	case "trade":
		return "Trade"
	case "commissioner":
		return "Commissioner"
	default:
		return kind
	}
}

// Transactions are expected already filtered and sorted
func TransactionsEmbed(transactions []sleeper.Transaction, days int, names map[sleeper.RosterId]string, players sleeper.Players, location *time.Location) *discordgo.MessageEmbed {
	embed := card("Recent Transactions", fmt.Sprintf("Completed in the last %d days", days), COLOR_INFO)
	if len(transactions) == 0 {
		addKV(embed, "No transactions", fmt.Sprintf("No completed transactions in the last %d days.", days))
		return embed
	}
	size := embedSize(embed)
	for i, transaction := range transactions {
		when := time.UnixMilli(transaction.StatusUpdated).In(location).Format("Mon Jan 2 15:04")
		name := fmt.Sprintf("%s • %s", transactionType(transaction.Type), when)
		value := fitLines(transactionBody(transaction, names, players), EMBED_FIELD_VALUE_LIMIT)
		fieldSize := utf8.RuneCountInString(name) + utf8.RuneCountInString(value)
		if size+fieldSize > EMBED_TOTAL_LIMIT-embedOmittedReserve {
			embed.Description += fmt.Sprintf("\nShowing %d of %d, the rest did not fit", i, len(transactions))
			break
		}
		addKV(embed, name, value)
		size += fieldSize
	}
	return embed
}

func embedSize(embed *discordgo.MessageEmbed) int {
	size := utf8.RuneCountInString(embed.Title) + utf8.RuneCountInString(embed.Description)
	for _, field := range embed.Fields {
		size += utf8.RuneCountInString(field.Name) + utf8.RuneCountInString(field.Value)
	}
	return size
}

// Join lines up to limit characters. Lines that do not fit are dropped whole
// and counted in a last line
func fitLines(lines []string, limit int) string {
	joined := strings.Join(lines, "\n")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}
	kept := []string{}
	size := 0
	for i, line := range lines {
		more := fmt.Sprintf("…and %d more", len(lines)-i)
		next := size + utf8.RuneCountInString(line) + 1
		if next+utf8.RuneCountInString(more) > limit {
			return strings.Join(append(kept, more), "\n")
		}
		kept = append(kept, line)
		size = next
	}
	return joined
}

// One line per added or dropped player, adds first, sorted by label
func transactionBody(transaction sleeper.Transaction, names map[sleeper.RosterId]string, players sleeper.Players) []string {
	lines := func(moves map[string]sleeper.RosterId, sign string) []string {
		result := []string{}
		for playerId, rosterId := range moves {
			result = append(result, fmt.Sprintf("%s %s: %s", sign, rosterName(names, rosterId), players.Label(playerId)))
		}
		slices.Sort(result)
		return result
	}
	body := append(lines(transaction.Adds, "+"), lines(transaction.Drops, "−")...)
	if len(body) == 0 {
		return []string{"No player moves"}
	}
	return body
}

func AnnouncementEmbed(title string, body string, imageUrl string) *discordgo.MessageEmbed {
	embed := card(title, body, COLOR_PRIMARY)
	if imageUrl != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: imageUrl}
	}
	return embed
}

// Confirmation sent back to the commissioner after posting
func Posted(title string, message *discordgo.Message) *discordgo.MessageEmbed {
	description := fmt.Sprintf("Posted to <#%s>", message.ChannelID)
	if message.GuildID != "" && message.ID != "" {
		description += fmt.Sprintf("\n[Jump to message](https://discord.com/channels/%s/%s/%s)", message.GuildID, message.ChannelID, message.ID)
	}
	return card(title, description, COLOR_SUCCESS)
}

func ErrorEmbed(message string) *discordgo.MessageEmbed {
	return card("Error", message, COLOR_ERROR)
}
