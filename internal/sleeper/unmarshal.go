package sleeper

import (
	"encoding/json"
	"fmt"
)

func UnmarshalLeague(data []byte) (League, error) {
	var league League
	if err := json.Unmarshal(data, &league); err != nil {
		return League{}, err
	}
	return league, nil
}

// The API answers "null" for unknown leagues, which is treated as empty
func UnmarshalRosters(data []byte) ([]Roster, error) {
	var rosters []Roster
	if err := json.Unmarshal(data, &rosters); err != nil {
		return nil, err
	}
	return rosters, nil
}

func UnmarshalUsers(data []byte) ([]User, error) {
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func UnmarshalMatchups(data []byte) ([]Matchup, error) {
	var matchups []Matchup
	if err := json.Unmarshal(data, &matchups); err != nil {
		return nil, err
	}
	return matchups, nil
}

func UnmarshalState(data []byte) (State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

func UnmarshalTransactions(data []byte) ([]Transaction, error) {
	var transactions []Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// The player directory is an object keyed by player id. Some entries
// (team defenses) do not repeat the id inside the object
func UnmarshalPlayers(data []byte) (Players, error) {
	var players Players
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, err
	}
	if players == nil {
		return nil, fmt.Errorf("player directory is empty")
	}
	for id, player := range players {
		if player.PlayerId == "" {
			player.PlayerId = id
			players[id] = player
		}
	}
	return players, nil
}
