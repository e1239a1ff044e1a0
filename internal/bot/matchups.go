package bot

import (
	"cmp"
	"fmt"
	"slices"

	"sleeperbot/internal/sleeper"
)

// Heading and body of one embed field
type Field struct {
	Name  string
	Value string
}

// Entries sharing a matchup id. Entries without an id are each their own
// group, with a nil Id
type MatchupGroup struct {
	Id      *sleeper.MatchupId
	Entries []sleeper.Matchup
}

func (group MatchupGroup) Heading() string {
	if group.Id == nil {
		return "Unmatched"
	}
	return fmt.Sprintf("Matchup %d", *group.Id)
}

// Roster id to the name of its owner. Rosters without an owner, or whose
// owner is not among the users, are called "Roster {id}"
func NameMap(users []sleeper.User, rosters []sleeper.Roster) map[sleeper.RosterId]string {
	userNames := make(map[sleeper.UserId]string, len(users))
	for _, user := range users {
		userNames[user.UserId] = user.Name()
	}
	names := make(map[sleeper.RosterId]string, len(rosters))
	for _, roster := range rosters {
		if name, ok := userNames[roster.OwnerId]; ok && roster.OwnerId != "" {
			names[roster.RosterId] = name
		} else {
			names[roster.RosterId] = fmt.Sprintf("Roster %d", roster.RosterId)
		}
	}
	return names
}

func rosterName(names map[sleeper.RosterId]string, id sleeper.RosterId) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("Roster %d", id)
}

// Group entries by matchup id, in ascending id order. Entries keep their
// relative order inside a group. Entries without a matchup id follow, one
// group each, in input order
func GroupMatchups(entries []sleeper.Matchup) []MatchupGroup {
	index := map[sleeper.MatchupId]int{}
	groups := []MatchupGroup{}
	alone := []MatchupGroup{}
	for _, entry := range entries {
		if entry.MatchupId == nil {
			alone = append(alone, MatchupGroup{Entries: []sleeper.Matchup{entry}})
			continue
		}
		id := *entry.MatchupId
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, MatchupGroup{Id: &id})
		}
		groups[i].Entries = append(groups[i].Entries, entry)
	}
	slices.SortStableFunc(groups, func(a, b MatchupGroup) int {
		return cmp.Compare(*a.Id, *b.Id)
	})
	return append(groups, alone...)
}

func noData(week int) []Field {
	return []Field{{Name: "No data", Value: fmt.Sprintf("No matchups found for week %d.", week)}}
}

func unmatched(names map[sleeper.RosterId]string, entry sleeper.Matchup) string {
	return fmt.Sprintf("%s (bye or unmatched)", rosterName(names, entry.RosterId))
}

// One field per matchup with both teams and their current points
func PreviewFields(entries []sleeper.Matchup, names map[sleeper.RosterId]string, week int) []Field {
	if len(entries) == 0 {
		return noData(week)
	}
	fields := []Field{}
	for _, group := range GroupMatchups(entries) {
		var value string
		if len(group.Entries) == 2 {
			a, b := group.Entries[0], group.Entries[1]
			value = fmt.Sprintf("%s vs %s\n(Current: %.2f – %.2f)",
				rosterName(names, a.RosterId), rosterName(names, b.RosterId), a.Points, b.Points)
		} else {
			value = unmatched(names, group.Entries[0])
		}
		fields = append(fields, Field{Name: group.Heading(), Value: value})
	}
	return fields
}

// One field per matchup, the higher scorer first and crowned
func ResultsFields(entries []sleeper.Matchup, names map[sleeper.RosterId]string, week int) []Field {
	if len(entries) == 0 {
		return noData(week)
	}
	fields := []Field{}
	for _, group := range GroupMatchups(entries) {
		var value string
		if len(group.Entries) == 2 {
			a, b := group.Entries[0], group.Entries[1]
			aName, bName := rosterName(names, a.RosterId), rosterName(names, b.RosterId)
			switch {
			case a.Points > b.Points:
				value = fmt.Sprintf("👑 %s %.2f — %.2f %s", aName, a.Points, b.Points, bName)
			case b.Points > a.Points:
				value = fmt.Sprintf("👑 %s %.2f — %.2f %s", bName, b.Points, a.Points, aName)
			default:
				value = fmt.Sprintf("🤝 %s %.2f — %.2f %s (tie)", aName, a.Points, b.Points, bName)
			}
		} else {
			value = unmatched(names, group.Entries[0])
		}
		fields = append(fields, Field{Name: group.Heading(), Value: value})
	}
	return fields
}

// A week is final once the league has moved past it
func IsFinal(week, currentWeek int) bool {
	return week < currentWeek
}

func ResultsTitle(week, currentWeek int) (string, int) {
	if IsFinal(week, currentWeek) {
		return fmt.Sprintf("Week %d Results", week), COLOR_SUCCESS
	}
	return fmt.Sprintf("Week %d Results (in progress)", week), COLOR_INFO
}
