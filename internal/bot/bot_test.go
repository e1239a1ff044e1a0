package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleeperbot/internal/scheduler"
	"sleeperbot/internal/settings"
	"sleeperbot/internal/sleeper"
	"sleeperbot/internal/testutils"
)

const (
	commissionerId = "100"
	memberId       = "200"
	homeGuildId    = "g1"
	announceId     = "c1"
	generalId      = "c2"
	otherGuildChan = "c9"
	roleId         = "r1"
)

// Thursday 2025-09-25 12:00 UTC, during week 4 of the fixtures
var testNow = time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC)

type fakeResponder struct {
	mu        sync.Mutex
	deferred  bool
	ephemeral []bool
	replies   []*discordgo.MessageEmbed
}

func (r *fakeResponder) Defer(ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = true
	return nil
}

func (r *fakeResponder) Reply(embed *discordgo.MessageEmbed, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, embed)
	r.ephemeral = append(r.ephemeral, ephemeral)
	return nil
}

// The single reply of a command
func (r *fakeResponder) reply(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.replies, 1)
	return r.replies[0]
}

type sentMessage struct {
	channelId string
	message   *discordgo.MessageSend
}

type fakeGateway struct {
	mu       sync.Mutex
	guilds   map[string]*discordgo.Guild
	channels map[string]*discordgo.Channel
	roles    map[string]*discordgo.Role
	sent     []sentMessage
	sendErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		guilds: map[string]*discordgo.Guild{homeGuildId: {ID: homeGuildId, Name: "Home"}},
		channels: map[string]*discordgo.Channel{
			announceId:     {ID: announceId, GuildID: homeGuildId, Name: "announcements"},
			generalId:      {ID: generalId, GuildID: homeGuildId, Name: "general"},
			otherGuildChan: {ID: otherGuildChan, GuildID: "g9", Name: "elsewhere"},
		},
		roles: map[string]*discordgo.Role{roleId: {ID: roleId, Name: "League"}},
	}
}

func (g *fakeGateway) Guild(guildId string) (*discordgo.Guild, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if guild, ok := g.guilds[guildId]; ok {
		return guild, nil
	}
	return nil, fmt.Errorf("%w: guild %s", ErrTargetNotFound, guildId)
}

func (g *fakeGateway) FirstGuild() (*discordgo.Guild, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, guild := range g.guilds {
		return guild, nil
	}
	return nil, fmt.Errorf("%w: no guild", ErrTargetNotFound)
}

func (g *fakeGateway) Channel(guildId string, channelId string) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if channel, ok := g.channels[channelId]; ok && channel.GuildID == guildId {
		return channel, nil
	}
	return nil, fmt.Errorf("%w: channel %s", ErrTargetNotFound, channelId)
}

func (g *fakeGateway) Role(guildId string, roleId string) (*discordgo.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if role, ok := g.roles[roleId]; ok {
		return role, nil
	}
	return nil, fmt.Errorf("%w: role %s", ErrTargetNotFound, roleId)
}

func (g *fakeGateway) Send(channelId string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.sent = append(g.sent, sentMessage{channelId: channelId, message: message})
	return &discordgo.Message{ID: fmt.Sprintf("m%d", len(g.sent)), ChannelID: channelId}, nil
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage{}, g.sent...)
}

type testBot struct {
	*Bot
	fake  *testutils.FakeSleeperServer
	gw    *fakeGateway
	store *settings.Store
	mock  *clock.Mock
	// Drives the scheduler, set to the same instant as mock
	cron *clockwork.FakeClock
	dir  string
}

type testOption func(*Config)

func withoutEnvLeague() testOption {
	return func(o *Config) { o.LeagueId = "" }
}

func withoutHomeGuild() testOption {
	return func(o *Config) { o.GuildId = "" }
}

func newTestBot(t *testing.T, opts ...testOption) *testBot {
	t.Helper()
	fake := testutils.NewFakeSleeperServer()
	t.Cleanup(fake.Close)

	dir := t.TempDir()
	location, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	mock := clock.NewMock()
	mock.Set(testNow)

	api := sleeper.NewSleeperApi(sleeper.Options{
		BaseUrl:          fake.URL(),
		Timeout:          5 * time.Second,
		PlayersCachePath: filepath.Join(dir, "players.cache.json"),
	})
	store := settings.NewStore(filepath.Join(dir, "config.json"))
	options := Config{
		LeagueId:      testutils.LeagueID,
		GuildId:       homeGuildId,
		Commissioners: map[string]struct{}{commissionerId: {}},
		Location:      location,
		Clock:         mock,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cron := clockwork.NewFakeClockAt(testNow)
	sched, err := scheduler.New(cron, location)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	bot := New(options, store, api, sched)
	gateway := newFakeGateway()
	bot.gateway = gateway
	return &testBot{Bot: bot, fake: fake, gw: gateway, store: store, mock: mock, cron: cron, dir: dir}
}

// Run a command as the given user and return what it answered
func (tb *testBot) run(t *testing.T, userId string, command string, options ...*discordgo.ApplicationCommandInteractionDataOption) *fakeResponder {
	t.Helper()
	responder := &fakeResponder{}
	tb.Dispatch(context.Background(), &Request{
		Command: command,
		UserId:  userId,
		GuildId: homeGuildId,
		Options: NewOptions(options),
		Respond: responder,
	})
	return responder
}

func option(name string, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
}

func (tb *testBot) configure(t *testing.T, update settings.Update) {
	t.Helper()
	_, _, err := tb.store.Update(update)
	require.NoError(t, err)
}

func ptr[T any](value T) *T {
	return &value
}

func TestNewRegistersEnabledJobs(t *testing.T) {
	dir := t.TempDir()
	store := settings.NewStore(filepath.Join(dir, "config.json"))
	s := settings.Default()
	s.ResultsEnabled = true
	require.NoError(t, store.Save(s))

	sched, err := scheduler.New(clockwork.NewFakeClock(), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })
	New(Config{}, store, sleeper.NewSleeperApi(sleeper.Options{PlayersCachePath: filepath.Join(dir, "p.json")}), sched)

	assert.Equal(t, []string{JOB_WEEKLY_RESULTS}, sched.Jobs())
}

func TestInteractionUser(t *testing.T) {
	member := &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "1"}}}
	direct := &discordgo.Interaction{User: &discordgo.User{ID: "2"}}

	assert.Equal(t, "1", interactionUser(member))
	assert.Equal(t, "2", interactionUser(direct))
	assert.Equal(t, "", interactionUser(&discordgo.Interaction{}))
}
