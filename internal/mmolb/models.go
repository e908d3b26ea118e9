package mmolb

import (
	"encoding/json"
	"fmt"

	"github.com/fortuna/stathistory/internal/feed"
	"github.com/fortuna/stathistory/internal/stats"
)

// Kind is the subject type a stats query is addressed by.
type Kind string

const (
	KindPlayer Kind = "player"
	KindTeam   Kind = "team"
)

// Subject names the player or team a stats query covers.
type Subject struct {
	Kind Kind
	ID   string
}

// Player is a player snapshot. Roster slots inside a team snapshot decode
// into the same type.
type Player struct {
	ID           string       `json:"PlayerID"`
	FirstName    string       `json:"FirstName"`
	LastName     string       `json:"LastName"`
	Position     string       `json:"Position"`
	PositionType stats.Role   `json:"PositionType"`
	TeamID       string       `json:"TeamID,omitempty"`
	Feed         []feed.Entry `json:"Feed,omitempty"`
}

// FullName is the "First Last" form used in feed text.
func (p Player) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Label is the legend label: slot followed by name.
func (p Player) Label() string {
	if p.Position == "" {
		return p.FullName()
	}
	return fmt.Sprintf("%s %s", p.Position, p.FullName())
}

// Team is a team snapshot with its roster.
type Team struct {
	ID       string       `json:"-"`
	Location string       `json:"Location"`
	Name     string       `json:"Name"`
	Emoji    string       `json:"Emoji,omitempty"`
	League   string       `json:"League"`
	Players  []Player     `json:"Players"`
	Feed     []feed.Entry `json:"Feed,omitempty"`
}

// FullName is "Location Name".
func (t Team) FullName() string {
	return t.Location + " " + t.Name
}

// Roster returns the players of one position type, in roster order.
func (t Team) Roster(role stats.Role) []Player {
	var out []Player
	for _, p := range t.Players {
		if p.PositionType == role {
			out = append(out, p)
		}
	}
	return out
}

// entityEnvelope is the lookup endpoint's response shape.
type entityEnvelope struct {
	Items []struct {
		EntityID string          `json:"entity_id"`
		Data     json.RawMessage `json:"data"`
	} `json:"items"`
}
