package sleeper

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleeperbot/internal/testutils"
)

func newTestApi(t *testing.T, fake *testutils.FakeSleeperServer) *SleeperApi {
	t.Helper()
	return NewSleeperApi(Options{
		BaseUrl:          fake.URL(),
		Timeout:          2 * time.Second,
		PlayersCachePath: filepath.Join(t.TempDir(), "players.cache.json"),
	})
}

func TestGetLeague(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	league, err := api.GetLeague(context.Background(), testutils.LeagueID)
	require.NoError(t, err)
	assert.Equal(t, League{LeagueId: testutils.LeagueID, Name: "Gridiron Gang", Season: "2025", Status: "in_season", TotalRosters: 5}, league)

	_, err = api.GetLeague(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGetRostersAndUsers(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	rosters, err := api.GetRosters(context.Background(), testutils.LeagueID)
	require.NoError(t, err)
	require.Len(t, rosters, 5)
	assert.Equal(t, RosterId(1), rosters[0].RosterId)
	assert.Equal(t, UserId("u1"), rosters[0].OwnerId)
	assert.Equal(t, 3, rosters[0].Settings.Wins)
	assert.InDelta(t, 350.25, rosters[0].Settings.PointsFor(), 1e-9)
	assert.Equal(t, UserId(""), rosters[3].OwnerId)

	users, err := api.GetUsers(context.Background(), testutils.LeagueID)
	require.NoError(t, err)
	require.Len(t, users, 4)
	assert.Equal(t, "Alice", users[0].Name())
	assert.Equal(t, "bobby", users[1].Name())
	assert.Equal(t, "Unknown", users[3].Name())
}

func TestGetMatchups(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	matchups, err := api.GetMatchups(context.Background(), testutils.LeagueID, 3)
	require.NoError(t, err)
	require.Len(t, matchups, 5)
	two := MatchupId(2)
	assert.Equal(t, Matchup{MatchupId: &two, RosterId: 3, Points: 101.5}, matchups[0])

	// null points decode as zero
	matchups, err = api.GetMatchups(context.Background(), testutils.LeagueID, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, matchups[2].Points)

	// Playoff week: teams out of the bracket have no matchup id
	matchups, err = api.GetMatchups(context.Background(), testutils.LeagueID, 15)
	require.NoError(t, err)
	require.Len(t, matchups, 5)
	require.NotNil(t, matchups[0].MatchupId)
	assert.Equal(t, MatchupId(1), *matchups[0].MatchupId)
	for _, matchup := range matchups[2:] {
		assert.Nil(t, matchup.MatchupId, "roster %d", matchup.RosterId)
	}

	matchups, err = api.GetMatchups(context.Background(), testutils.LeagueID, 17)
	require.NoError(t, err)
	assert.Empty(t, matchups)
}

func TestGetState(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	state, err := api.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, state.CurrentWeek())
	assert.Equal(t, 3, state.CompletedWeek())

	fake.SetWeek(1)
	state, err = api.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, state.CompletedWeek())
}

func TestGetTransactions(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	transactions, err := api.GetTransactions(context.Background(), testutils.LeagueID, 4)
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "waiver", transactions[0].Type)
	assert.Equal(t, map[string]RosterId{"4046": 2}, transactions[0].Adds)
	assert.Equal(t, map[string]RosterId{"6904": 2}, transactions[0].Drops)
	assert.Nil(t, transactions[1].Drops)
}

func TestUpstreamFailure(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	fake.SetStatus(http.StatusInternalServerError)

	_, err := api.GetState(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	_, err = api.GetMatchups(context.Background(), testutils.LeagueID, 3)
	assert.ErrorIs(t, err, ErrUpstream)
	_, err = api.GetPlayers(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGetPlayers(t *testing.T) {
	fake := testutils.NewFakeSleeperServer()
	defer fake.Close()
	api := newTestApi(t, fake)

	players, err := api.GetPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "Patrick Mahomes (QB KC)", players.Label("4046"))
	assert.Equal(t, "Philadelphia Eagles (DEF PHI)", players.Label("PHI"))
	assert.Equal(t, "PHI", players["PHI"].PlayerId)

	// Second call is served from memory
	_, err = api.GetPlayers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Hits("/v1/players/nfl"))
}
