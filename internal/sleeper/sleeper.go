package sleeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"sleeperbot/internal/common"
)

const DEFAULT_BASE_URL = "https://api.sleeper.app/v1"

// Routes inside the sleeper API
const ROUTE_LEAGUE = "/league/%s"
const ROUTE_ROSTERS = "/league/%s/rosters"
const ROUTE_USERS = "/league/%s/users"
const ROUTE_MATCHUPS = "/league/%s/matchups/%d"
const ROUTE_TRANSACTIONS = "/league/%s/transactions/%d"
const ROUTE_STATE = "/state/nfl"
const ROUTE_PLAYERS = "/players/nfl"

const DEFAULT_TIMEOUT = 10 * time.Second
const PLAYERS_CACHE_TTL = 24 * time.Hour

// Sleeper asks to stay under 1000 calls per minute
var DefaultRestrictions = []common.Restriction{{Requests: 1000, Duration: time.Minute}}

// Every failed request to the league API wraps this error
var ErrUpstream = errors.New("league api request failed")

type Options struct {
	BaseUrl          string
	Timeout          time.Duration
	PlayersCachePath string
	PlayersCacheTTL  time.Duration
	Restrictions     []common.Restriction
	Clock            clock.Clock
}

type SleeperApi struct {
	baseUrl        string
	proxy          *common.Proxy
	playersTimeout time.Duration
	players        *PlayerCache
}

func NewSleeperApi(options Options) *SleeperApi {

	if options.BaseUrl == "" {
		options.BaseUrl = DEFAULT_BASE_URL
	}
	if options.Timeout <= 0 {
		options.Timeout = DEFAULT_TIMEOUT
	}
	if options.PlayersCacheTTL <= 0 {
		options.PlayersCacheTTL = PLAYERS_CACHE_TTL
	}
	if options.Restrictions == nil {
		options.Restrictions = DefaultRestrictions
	}
	if options.Clock == nil {
		options.Clock = clock.New()
	}

	var sleeperapi SleeperApi
	sleeperapi.baseUrl = options.BaseUrl
	sleeperapi.proxy = common.NewProxy(map[string]string{"Accept": "application/json"}, options.Timeout, common.NewRateLimiter(options.Restrictions, options.Clock))
	// The player directory is several megabytes
	sleeperapi.playersTimeout = 3 * options.Timeout
	sleeperapi.players = NewPlayerCache(options.PlayersCachePath, options.PlayersCacheTTL, options.Clock, sleeperapi.fetchPlayers)

	return &sleeperapi
}

func (sleeperapi *SleeperApi) GetLeague(ctx context.Context, leagueId string) (League, error) {
	data, err := sleeperapi.request(ctx, fmt.Sprintf(ROUTE_LEAGUE, leagueId))
	if err != nil {
		return League{}, err
	}
	league, err := UnmarshalLeague(data)
	if err != nil {
		return League{}, fmt.Errorf("%w: league %s: %w", ErrUpstream, leagueId, err)
	}
	return league, nil
}

func (sleeperapi *SleeperApi) GetRosters(ctx context.Context, leagueId string) ([]Roster, error) {
	data, err := sleeperapi.request(ctx, fmt.Sprintf(ROUTE_ROSTERS, leagueId))
	if err != nil {
		return nil, err
	}
	rosters, err := UnmarshalRosters(data)
	if err != nil {
		return nil, fmt.Errorf("%w: rosters of league %s: %w", ErrUpstream, leagueId, err)
	}
	return rosters, nil
}

func (sleeperapi *SleeperApi) GetUsers(ctx context.Context, leagueId string) ([]User, error) {
	data, err := sleeperapi.request(ctx, fmt.Sprintf(ROUTE_USERS, leagueId))
	if err != nil {
		return nil, err
	}
	users, err := UnmarshalUsers(data)
	if err != nil {
		return nil, fmt.Errorf("%w: users of league %s: %w", ErrUpstream, leagueId, err)
	}
	return users, nil
}

func (sleeperapi *SleeperApi) GetMatchups(ctx context.Context, leagueId string, week int) ([]Matchup, error) {
	data, err := sleeperapi.request(ctx, fmt.Sprintf(ROUTE_MATCHUPS, leagueId, week))
	if err != nil {
		return nil, err
	}
	matchups, err := UnmarshalMatchups(data)
	if err != nil {
		return nil, fmt.Errorf("%w: matchups of league %s week %d: %w", ErrUpstream, leagueId, week, err)
	}
	return matchups, nil
}

func (sleeperapi *SleeperApi) GetState(ctx context.Context) (State, error) {
	data, err := sleeperapi.request(ctx, ROUTE_STATE)
	if err != nil {
		return State{}, err
	}
	state, err := UnmarshalState(data)
	if err != nil {
		return State{}, fmt.Errorf("%w: nfl state: %w", ErrUpstream, err)
	}
	log.Debug().Msg(fmt.Sprintf("NFL state is season %s week %d", state.Season, state.Week))
	return state, nil
}

func (sleeperapi *SleeperApi) GetTransactions(ctx context.Context, leagueId string, week int) ([]Transaction, error) {
	data, err := sleeperapi.request(ctx, fmt.Sprintf(ROUTE_TRANSACTIONS, leagueId, week))
	if err != nil {
		return nil, err
	}
	transactions, err := UnmarshalTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: transactions of league %s week %d: %w", ErrUpstream, leagueId, week, err)
	}
	return transactions, nil
}

// The player directory, served from memory or disk while fresh
func (sleeperapi *SleeperApi) GetPlayers(ctx context.Context) (Players, error) {
	return sleeperapi.players.Get(ctx)
}

func (sleeperapi *SleeperApi) fetchPlayers(ctx context.Context) ([]byte, error) {
	data, err := sleeperapi.proxy.RequestTimeout(ctx, sleeperapi.baseUrl+ROUTE_PLAYERS, sleeperapi.playersTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return data, nil
}

func (sleeperapi *SleeperApi) request(ctx context.Context, route string) ([]byte, error) {
	data, err := sleeperapi.proxy.Request(ctx, sleeperapi.baseUrl+route)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return data, nil
}
