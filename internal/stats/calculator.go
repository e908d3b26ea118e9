package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownRole is returned for a role other than Batter or Pitcher.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnknownStat is returned when a requested stat has no formula for the role.
	ErrUnknownStat = errors.New("unknown stat")
)

// Role selects which formula table applies. Values match the upstream
// PositionType field.
type Role string

const (
	Batter  Role = "Batter"
	Pitcher Role = "Pitcher"
)

// Formula computes one derived statistic from a raw block.
type Formula struct {
	Name    string
	Compute func(RawStatBlock) Value
}

// Stat is one named entry of a DerivedStatBlock.
type Stat struct {
	Name  string
	Value Value
}

// DerivedStatBlock holds derived statistics in formula-table order.
type DerivedStatBlock []Stat

// Get returns the named statistic, Undefined when absent.
func (d DerivedStatBlock) Get(name string) Value {
	for _, s := range d {
		if s.Name == name {
			return s.Value
		}
	}
	return Undefined
}

// MarshalJSON encodes the block as an object in table order.
func (d DerivedStatBlock) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		val, err := s.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func hits(b RawStatBlock) float64 {
	return float64(b.Get(Singles) + b.Get(Doubles) + b.Get(Triples) + b.Get(HomeRuns))
}

func obp(b RawStatBlock) Value {
	return Ratio(hits(b)+float64(b.Get(Walked)+b.Get(HitByPitch)), float64(b.Get(PlateAppearances)))
}

func slg(b RawStatBlock) Value {
	bases := b.Get(Singles) + 2*b.Get(Doubles) + 3*b.Get(Triples) + 4*b.Get(HomeRuns)
	return Ratio(float64(bases), float64(b.Get(AtBats)))
}

var hitterFormulas = []Formula{
	{"ba", func(b RawStatBlock) Value {
		return Ratio(hits(b), float64(b.Get(AtBats)))
	}},
	{"obp", obp},
	{"slg", slg},
	{"ops", func(b RawStatBlock) Value {
		return obp(b).Add(slg(b))
	}},
	{"babip", func(b RawStatBlock) Value {
		den := b.Get(AtBats) - b.Get(HomeRuns) - b.Get(StruckOut) + b.Get(SacFlies)
		return Ratio(hits(b)-float64(b.Get(HomeRuns)), float64(den))
	}},
	{"bb_p", func(b RawStatBlock) Value {
		return Ratio(float64(b.Get(Walked)), float64(b.Get(PlateAppearances)))
	}},
	{"k_p", func(b RawStatBlock) Value {
		return Ratio(float64(b.Get(StruckOut)), float64(b.Get(PlateAppearances)))
	}},
	{"sb_p", func(b RawStatBlock) Value {
		sb := b.Get(StolenBases)
		return Ratio(float64(sb), float64(sb+b.Get(CaughtStealing)))
	}},
}

func innings(b RawStatBlock) float64 {
	return float64(b.Get(Outs)) / 3
}

// per9 scales a pitching count to a nine-inning rate.
func per9(name string) func(RawStatBlock) Value {
	return func(b RawStatBlock) Value {
		return Ratio(9*float64(b.Get(name)), innings(b))
	}
}

var pitcherFormulas = []Formula{
	{"era", per9(EarnedRuns)},
	{"fip_r", func(b RawStatBlock) Value {
		num := 13*b.Get(HomeRunsAllowed) + 3*(b.Get(Walks)+b.Get(HitBatters)) - 2*b.Get(Strikeouts)
		return Ratio(float64(num), innings(b))
	}},
	{"whip", func(b RawStatBlock) Value {
		return Ratio(float64(b.Get(HitsAllowed)+b.Get(Walks)), innings(b))
	}},
	{"h9", per9(HitsAllowed)},
	{"hr9", per9(HomeRunsAllowed)},
	{"k9", per9(Strikeouts)},
	{"bb9", per9(Walks)},
	// A pitcher with no recorded outs has no line at all, so kpbb follows
	// the other pitching rates and is undefined at zero innings.
	{"kpbb", func(b RawStatBlock) Value {
		if innings(b) == 0 {
			return Undefined
		}
		return Ratio(float64(b.Get(Strikeouts)), float64(b.Get(Walks)))
	}},
}

// Formulas returns the formula table for a role.
func Formulas(role Role) ([]Formula, error) {
	switch role {
	case Batter:
		return hitterFormulas, nil
	case Pitcher:
		return pitcherFormulas, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// Names lists the derived stat names of a role in table order.
func Names(role Role) []string {
	formulas, err := Formulas(role)
	if err != nil {
		return nil
	}
	names := make([]string, len(formulas))
	for i, f := range formulas {
		names[i] = f.Name
	}
	return names
}

// RoleOf reports which role computes the named stat.
func RoleOf(stat string) (Role, error) {
	for _, role := range []Role{Batter, Pitcher} {
		for _, name := range Names(role) {
			if name == stat {
				return role, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStat, stat)
}

// Calculator computes derived blocks for one role, optionally restricted to
// a subset of stats.
type Calculator struct {
	role     Role
	formulas []Formula
}

// NewCalculator builds a calculator. An empty subset keeps every stat of
// the role; otherwise only the named stats are computed, in table order.
// Names that belong to the other role are ignored; unknown names fail.
func NewCalculator(role Role, subset []string) (*Calculator, error) {
	formulas, err := Formulas(role)
	if err != nil {
		return nil, err
	}
	if len(subset) == 0 {
		return &Calculator{role: role, formulas: formulas}, nil
	}

	wanted := make(map[string]bool, len(subset))
	for _, name := range subset {
		if _, err := RoleOf(name); err != nil {
			return nil, err
		}
		wanted[name] = true
	}

	var picked []Formula
	for _, f := range formulas {
		if wanted[f.Name] {
			picked = append(picked, f)
		}
	}
	return &Calculator{role: role, formulas: picked}, nil
}

// Role returns the calculator's role.
func (c *Calculator) Role() Role {
	return c.role
}

// Names lists the stats the calculator produces.
func (c *Calculator) Names() []string {
	names := make([]string, len(c.formulas))
	for i, f := range c.formulas {
		names[i] = f.Name
	}
	return names
}

// Compute derives the rate stats of one raw block.
func (c *Calculator) Compute(raw RawStatBlock) DerivedStatBlock {
	out := make(DerivedStatBlock, len(c.formulas))
	for i, f := range c.formulas {
		out[i] = Stat{Name: f.Name, Value: f.Compute(raw)}
	}
	return out
}

// Compute derives every rate stat of a role from a raw block.
func Compute(raw RawStatBlock, role Role) (DerivedStatBlock, error) {
	calc, err := NewCalculator(role, nil)
	if err != nil {
		return nil, err
	}
	return calc.Compute(raw), nil
}
