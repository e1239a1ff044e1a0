package bot

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// The guilds, channels and roles the bot can see, and the way to post
// in them
type Gateway interface {
	Guild(guildId string) (*discordgo.Guild, error)
	// Any guild the bot is a member of
	FirstGuild() (*discordgo.Guild, error)
	// A channel, only if it belongs to the guild
	Channel(guildId string, channelId string) (*discordgo.Channel, error)
	Role(guildId string, roleId string) (*discordgo.Role, error)
	Send(channelId string, message *discordgo.MessageSend) (*discordgo.Message, error)
}

// Gateway backed by a discord session, reading from its state cache first
type sessionGateway struct {
	session *discordgo.Session
}

func (g sessionGateway) Guild(guildId string) (*discordgo.Guild, error) {
	if guild, err := g.session.State.Guild(guildId); err == nil {
		return guild, nil
	}
	guild, err := g.session.Guild(guildId)
	if err != nil {
		return nil, fmt.Errorf("%w: guild %s: %w", ErrTargetNotFound, guildId, err)
	}
	return guild, nil
}

func (g sessionGateway) FirstGuild() (*discordgo.Guild, error) {
	g.session.State.RLock()
	defer g.session.State.RUnlock()
	if len(g.session.State.Guilds) == 0 {
		return nil, fmt.Errorf("%w: the bot is not in any guild", ErrTargetNotFound)
	}
	return g.session.State.Guilds[0], nil
}

func (g sessionGateway) Channel(guildId string, channelId string) (*discordgo.Channel, error) {
	channel, err := g.session.State.Channel(channelId)
	if err != nil {
		channel, err = g.session.Channel(channelId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: channel %s: %w", ErrTargetNotFound, channelId, err)
	}
	if channel.GuildID != guildId {
		return nil, fmt.Errorf("%w: channel %s is not in guild %s", ErrTargetNotFound, channelId, guildId)
	}
	return channel, nil
}

func (g sessionGateway) Role(guildId string, roleId string) (*discordgo.Role, error) {
	if role, err := g.session.State.Role(guildId, roleId); err == nil {
		return role, nil
	}
	roles, err := g.session.GuildRoles(guildId)
	if err != nil {
		return nil, fmt.Errorf("%w: roles of guild %s: %w", ErrTargetNotFound, guildId, err)
	}
	for _, role := range roles {
		if role.ID == roleId {
			return role, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s", ErrTargetNotFound, roleId)
}

func (g sessionGateway) Send(channelId string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	return g.session.ChannelMessageSendComplex(channelId, message)
}

// Discord refused the request for lack of permissions
func isForbidden(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == 403
}
