package sleeper

import (
	"fmt"
	"strings"
)

type RosterId int
type UserId string
type MatchupId int

type League struct {
	LeagueId     string `json:"league_id"`
	Name         string `json:"name"`
	Season       string `json:"season"`
	Status       string `json:"status"`
	TotalRosters int    `json:"total_rosters"`
}

type RosterSettings struct {
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Ties        int     `json:"ties"`
	Fpts        float64 `json:"fpts"`
	FptsDecimal float64 `json:"fpts_decimal"`
}

// Points for, combining the integer and decimal parts the API sends separately
func (s RosterSettings) PointsFor() float64 {
	return s.Fpts + s.FptsDecimal/100
}

type Roster struct {
	RosterId RosterId       `json:"roster_id"`
	OwnerId  UserId         `json:"owner_id"`
	Settings RosterSettings `json:"settings"`
}

type User struct {
	UserId      UserId `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
}

// Name shown for the user: display name, then username, then "Unknown"
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}

// MatchupId is null for rosters without an opponent that week, as happens
// during the playoffs
type Matchup struct {
	MatchupId *MatchupId `json:"matchup_id"`
	RosterId  RosterId   `json:"roster_id"`
	Points    float64    `json:"points"`
}

// League-wide state of the NFL season
type State struct {
	Week        int    `json:"week"`
	Season      string `json:"season"`
	SeasonType  string `json:"season_type"`
	DisplayWeek int    `json:"display_week"`
}

// The week currently being played, never lower than 1
func (s State) CurrentWeek() int {
	if s.Week < 1 {
		return 1
	}
	return s.Week
}

// The most recently completed week, never lower than 1
func (s State) CompletedWeek() int {
	return max(1, s.CurrentWeek()-1)
}

type Transaction struct {
	TransactionId string              `json:"transaction_id"`
	Type          string              `json:"type"`
	Status        string              `json:"status"`
	Leg           int                 `json:"leg"`
	Created       int64               `json:"created"`
	StatusUpdated int64               `json:"status_updated"`
	RosterIds     []RosterId          `json:"roster_ids"`
	Adds          map[string]RosterId `json:"adds"`
	Drops         map[string]RosterId `json:"drops"`
}

type Player struct {
	PlayerId  string `json:"player_id"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	Team      string `json:"team"`
}

// Players indexed by player id
type Players map[string]Player

// Short label for a player, like "Jalen Hurts (QB PHI)"
func PlayerLabel(player *Player) string {
	if player == nil {
		return "Unknown Player"
	}
	name := player.FullName
	if name == "" {
		name = strings.TrimSpace(player.FirstName + " " + player.LastName)
	}
	if name == "" {
		name = "Unknown"
	}
	suffix := strings.TrimSpace(player.Position + " " + player.Team)
	if suffix == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, suffix)
}

// Label for a player id, looking it up in the directory
func (players Players) Label(playerId string) string {
	if player, ok := players[playerId]; ok {
		return PlayerLabel(&player)
	}
	return PlayerLabel(nil)
}
