// Package settings persists the league settings edited through /config.
package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Discord snowflake. Older config files stored ids as JSON numbers, so
// both numbers and strings are accepted; ids are always written as strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
		return fmt.Errorf("invalid id %s", raw)
	}
	*id = ID(raw)
	return nil
}

// Weekly schedule of a job. Weekday follows the stored convention,
// 0 is Monday and 6 is Sunday
type Schedule struct {
	Enabled bool
	Weekday int
	Hour    int
	Minute  int
}

func (s Schedule) String() string {
	return fmt.Sprintf("DOW=%d %02d:%02d", s.Weekday, s.Hour, s.Minute)
}

type Settings struct {
	LeagueId          string `json:"league_id"`
	AnnounceChannelId ID     `json:"announce_channel_id"`
	AnnounceRoleId    ID     `json:"announce_role_id"`
	DefaultDays       int    `json:"default_days"`

	// preview scheduling
	ScheduleEnabled bool `json:"schedule_enabled"`
	ScheduleDow     int  `json:"schedule_dow"`
	ScheduleHour    int  `json:"schedule_hour"`
	ScheduleMinute  int  `json:"schedule_minute"`

	// results scheduling
	ResultsEnabled bool `json:"results_enabled"`
	ResultsDow     int  `json:"results_dow"`
	ResultsHour    int  `json:"results_hour"`
	ResultsMinute  int  `json:"results_minute"`
}

// Defaults: previews on Wednesday 09:00, results on Tuesday 09:00, both off
func Default() Settings {
	return Settings{
		DefaultDays:    7,
		ScheduleDow:    2,
		ScheduleHour:   9,
		ScheduleMinute: 0,
		ResultsDow:     1,
		ResultsHour:    9,
		ResultsMinute:  0,
	}
}

func (s Settings) Preview() Schedule {
	return Schedule{Enabled: s.ScheduleEnabled, Weekday: s.ScheduleDow, Hour: s.ScheduleHour, Minute: s.ScheduleMinute}
}

func (s Settings) Results() Schedule {
	return Schedule{Enabled: s.ResultsEnabled, Weekday: s.ResultsDow, Hour: s.ResultsHour, Minute: s.ResultsMinute}
}

// Bring every numeric field back into its documented range
func (s Settings) Clamped() Settings {
	s.DefaultDays = clamp(s.DefaultDays, 1, 60)
	s.ScheduleDow = clamp(s.ScheduleDow, 0, 6)
	s.ScheduleHour = clamp(s.ScheduleHour, 0, 23)
	s.ScheduleMinute = clamp(s.ScheduleMinute, 0, 59)
	s.ResultsDow = clamp(s.ResultsDow, 0, 6)
	s.ResultsHour = clamp(s.ResultsHour, 0, 23)
	s.ResultsMinute = clamp(s.ResultsMinute, 0, 59)
	return s
}

func clamp(value, lo, hi int) int {
	return max(lo, min(hi, value))
}

// Partial update of the settings. Nil fields keep their current value
type Update struct {
	LeagueId          *string
	AnnounceChannelId *ID
	AnnounceRoleId    *ID
	DefaultDays       *int
	ScheduleEnabled   *bool
	ScheduleDow       *int
	ScheduleHour      *int
	ScheduleMinute    *int
	ResultsEnabled    *bool
	ResultsDow        *int
	ResultsHour       *int
	ResultsMinute     *int
}

// Apply the update, clamping numeric fields. Returns the new settings and
// the names of the fields that were provided, in a stable order
func (s Settings) Apply(u Update) (Settings, []string) {
	changed := []string{}
	if u.LeagueId != nil {
		s.LeagueId = strings.TrimSpace(*u.LeagueId)
		changed = append(changed, "league_id")
	}
	if u.AnnounceChannelId != nil {
		s.AnnounceChannelId = *u.AnnounceChannelId
		changed = append(changed, "announce_channel_id")
	}
	if u.AnnounceRoleId != nil {
		s.AnnounceRoleId = *u.AnnounceRoleId
		changed = append(changed, "announce_role_id")
	}
	setInt := func(field *int, value *int, lo, hi int, name string) {
		if value != nil {
			*field = clamp(*value, lo, hi)
			changed = append(changed, name)
		}
	}
	setBool := func(field *bool, value *bool, name string) {
		if value != nil {
			*field = *value
			changed = append(changed, name)
		}
	}
	setInt(&s.DefaultDays, u.DefaultDays, 1, 60, "default_days")
	setBool(&s.ScheduleEnabled, u.ScheduleEnabled, "schedule_enabled")
	setInt(&s.ScheduleDow, u.ScheduleDow, 0, 6, "schedule_dow")
	setInt(&s.ScheduleHour, u.ScheduleHour, 0, 23, "schedule_hour")
	setInt(&s.ScheduleMinute, u.ScheduleMinute, 0, 59, "schedule_minute")
	setBool(&s.ResultsEnabled, u.ResultsEnabled, "results_enabled")
	setInt(&s.ResultsDow, u.ResultsDow, 0, 6, "results_dow")
	setInt(&s.ResultsHour, u.ResultsHour, 0, 23, "results_hour")
	setInt(&s.ResultsMinute, u.ResultsMinute, 0, 59, "results_minute")
	return s, changed
}
