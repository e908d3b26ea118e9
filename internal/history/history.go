package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/feed"
	"github.com/fortuna/stathistory/internal/stats"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

// EntitySeries is one player's derived stats, one block per axis point.
type EntitySeries struct {
	ID     string                   `json:"id"`
	Name   string                   `json:"name"`
	Label  string                   `json:"label"`
	Points []stats.DerivedStatBlock `json:"points"`
}

// Values extracts one stat across the series.
func (s EntitySeries) Values(stat string) []stats.Value {
	out := make([]stats.Value, len(s.Points))
	for i, block := range s.Points {
		out[i] = block.Get(stat)
	}
	return out
}

// History is a computed chart input: the axis, every entity's derived
// series on it, and the feed annotations over the same range.
type History struct {
	Target      config.Target      `json:"target"`
	Title       string             `json:"title"`
	Role        stats.Role         `json:"role"`
	Stats       []string           `json:"stats"`
	Start       timeaxis.TimePoint `json:"start"`
	End         timeaxis.TimePoint `json:"end"`
	Axis        timeaxis.Axis      `json:"axis"`
	Entities    []EntitySeries     `json:"entities"`
	Annotations []feed.Annotation  `json:"annotations"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Solo reports whether the history charts one player's stats rather than
// one stat across a roster.
func (h *History) Solo() bool {
	return h.Target.Mode == config.ModePlayer
}

// Names lists the feed names of every charted entity.
func (h *History) Names() []string {
	names := make([]string, len(h.Entities))
	for i, e := range h.Entities {
		names[i] = e.Name
	}
	return names
}

func seasonLabel(start, end timeaxis.TimePoint) string {
	if start.Season == end.Season {
		return fmt.Sprintf("S%d", start.Season)
	}
	return fmt.Sprintf("S%d-S%d", start.Season, end.Season)
}

// roleWord turns "Batter" into "Batting".
func roleWord(role stats.Role) string {
	return strings.TrimSuffix(string(role), "er") + "ing"
}

func soloTitle(player, team string, role stats.Role, start, end timeaxis.TimePoint) string {
	if team == "" {
		return fmt.Sprintf("%s %s %s History", player, seasonLabel(start, end), roleWord(role))
	}
	return fmt.Sprintf("%s (%s) %s %s History", player, team, seasonLabel(start, end), roleWord(role))
}

func teamTitle(team string, role stats.Role, stat string, start, end timeaxis.TimePoint) string {
	return fmt.Sprintf("%s %s %s History (%s)", team, seasonLabel(start, end), roleWord(role), strings.ToUpper(stat))
}
