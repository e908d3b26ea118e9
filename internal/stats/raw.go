package stats

import (
	"encoding/json"
	"math"
)

// Counting stat names reported by the upstream API.
const (
	PlateAppearances = "plate_appearances"
	AtBats           = "at_bats"
	Walked           = "walked"
	Singles          = "singles"
	Doubles          = "doubles"
	Triples          = "triples"
	HomeRuns         = "home_runs"
	HitByPitch       = "hit_by_pitch"
	StruckOut        = "struck_out"
	SacFlies         = "sac_flies"
	StolenBases      = "stolen_bases"
	CaughtStealing   = "caught_stealing"

	Outs            = "outs"
	HitsAllowed     = "hits_allowed"
	HomeRunsAllowed = "home_runs_allowed"
	Strikeouts      = "strikeouts"
	Walks           = "walks"
	EarnedRuns      = "earned_runs"
	HitBatters      = "hit_batters"
)

// CountingFields lists every counting stat the calculators read, batting
// first. It is also the field list requested from the tabular endpoint.
var CountingFields = []string{
	PlateAppearances, AtBats, Walked, Singles, Doubles, Triples, HomeRuns,
	HitByPitch, StruckOut, SacFlies, StolenBases, CaughtStealing,
	Outs, HitsAllowed, HomeRunsAllowed, Strikeouts, Walks, EarnedRuns, HitBatters,
}

// RawStatBlock maps counting-stat names to counts. Missing keys read as zero.
type RawStatBlock map[string]int

// Get returns the count for name, zero when absent.
func (b RawStatBlock) Get(name string) int {
	return b[name]
}

// Clone copies the block. A nil block clones to an empty one.
func (b RawStatBlock) Clone() RawStatBlock {
	out := make(RawStatBlock, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Add returns the key-wise sum of two blocks.
func (b RawStatBlock) Add(o RawStatBlock) RawStatBlock {
	out := b.Clone()
	for k, v := range o {
		out[k] += v
	}
	return out
}

// UnmarshalJSON keeps integral numeric fields and skips anything else the
// upstream may attach to a stat block.
func (b *RawStatBlock) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RawStatBlock, len(raw))
	for k, v := range raw {
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			continue
		}
		out[k] = int(f)
	}
	*b = out
	return nil
}
