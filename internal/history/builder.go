// Package history runs the full pipeline for one chart subject: entity
// lookup, time axis, stat fetch, aggregation, rate stats and feed
// annotation.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/feed"
	"github.com/fortuna/stathistory/internal/mmolb"
	"github.com/fortuna/stathistory/internal/stats"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

// ErrEmptyRoster is returned when a team has nobody in the requested role.
var ErrEmptyRoster = errors.New("no players in role")

// Reporter receives progress while a history is built. Builders accept a
// nil Reporter.
type Reporter interface {
	OnStart(target config.Target)
	OnProgress(message string, current, total int)
	OnComplete(h *History)
}

// Builder computes histories against the upstream API.
type Builder struct {
	client *mmolb.Client
	logger *log.Logger
	now    func() time.Time
}

// NewBuilder creates a builder.
func NewBuilder(client *mmolb.Client, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(log.Writer(), "[history] ", log.LstdFlags)
	}
	return &Builder{client: client, logger: logger, now: time.Now}
}

// subjectPlan is everything the shared part of the pipeline needs to know
// about one subject.
type subjectPlan struct {
	subject mmolb.Subject
	league  timeaxis.League
	roster  []mmolb.Player
	calc    *stats.Calculator
	feed    []feed.Entry
	title   func(start, end timeaxis.TimePoint) string
}

// Build computes the history cfg describes. cfg must have been validated.
func (b *Builder) Build(ctx context.Context, cfg config.Config, reporter Reporter) (*History, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("%w: empty id", config.ErrInvalid)
	}
	if reporter != nil {
		reporter.OnStart(cfg.Target())
	}

	var (
		plan *subjectPlan
		err  error
	)
	if cfg.Mode == config.ModePlayer {
		plan, err = b.planPlayer(ctx, cfg)
	} else {
		plan, err = b.planTeam(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	start := timeaxis.At(cfg.Start.Season, plan.league.NormalizeStart(cfg.Start.Day))
	end := timeaxis.At(cfg.End.Season, plan.league.NormalizeEnd(cfg.End.Day))
	axis := timeaxis.Build(cfg.Start, cfg.End, plan.league)
	b.logger.Printf("Axis for %s: %d points from %s to %s", cfg.Target(), len(axis), start, end)

	table, err := b.fetchTable(ctx, cfg, plan, axis, reporter)
	if err != nil {
		return nil, err
	}

	h := &History{
		Target:      cfg.Target(),
		Title:       plan.title(start, end),
		Role:        plan.calc.Role(),
		Stats:       plan.calc.Names(),
		Start:       start,
		End:         end,
		Axis:        axis,
		Entities:    make([]EntitySeries, len(plan.roster)),
		GeneratedAt: b.now().UTC(),
	}
	for i, p := range plan.roster {
		raw := table[p.ID]
		points := make([]stats.DerivedStatBlock, len(raw))
		for j, block := range raw {
			points[j] = plan.calc.Compute(block)
		}
		h.Entities[i] = EntitySeries{ID: p.ID, Name: p.FullName(), Label: p.Label(), Points: points}
	}
	h.Annotations = feed.Annotate(plan.feed, h.Names(), start, end)

	b.logger.Printf("✓ Built %s: %d entities, %d annotations", h.Title, len(h.Entities), len(h.Annotations))
	if reporter != nil {
		reporter.OnComplete(h)
	}
	return h, nil
}

func (b *Builder) planPlayer(ctx context.Context, cfg config.Config) (*subjectPlan, error) {
	p, err := b.client.Player(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up player: %w", err)
	}
	calc, err := stats.NewCalculator(p.PositionType, cfg.SoloStats)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", p.ID, err)
	}

	// The league, and with it the day parity, comes from the player's team.
	var league timeaxis.League
	teamName := ""
	if p.TeamID != "" {
		team, err := b.client.Team(ctx, p.TeamID)
		if err != nil {
			return nil, fmt.Errorf("looking up team of player %s: %w", p.ID, err)
		}
		league = timeaxis.ForID(team.League, cfg.GreaterLeagueIDs)
		teamName = team.FullName()
	} else {
		b.logger.Printf("⚠️  Player %s has no team, assuming lesser league calendar", p.ID)
	}

	return &subjectPlan{
		subject: mmolb.Subject{Kind: mmolb.KindPlayer, ID: p.ID},
		league:  league,
		roster:  []mmolb.Player{*p},
		calc:    calc,
		feed:    p.Feed,
		title: func(start, end timeaxis.TimePoint) string {
			return soloTitle(p.FullName(), teamName, p.PositionType, start, end)
		},
	}, nil
}

func (b *Builder) planTeam(ctx context.Context, cfg config.Config) (*subjectPlan, error) {
	team, err := b.client.Team(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up team: %w", err)
	}
	role := cfg.Mode.Role()
	roster := team.Roster(role)
	if len(roster) == 0 {
		return nil, fmt.Errorf("team %s: %w %s", team.ID, ErrEmptyRoster, role)
	}
	stat := cfg.TeamStat()
	calc, err := stats.NewCalculator(role, []string{stat})
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", team.ID, err)
	}

	return &subjectPlan{
		subject: mmolb.Subject{Kind: mmolb.KindTeam, ID: team.ID},
		league:  timeaxis.ForID(team.League, cfg.GreaterLeagueIDs),
		roster:  roster,
		calc:    calc,
		feed:    team.Feed,
		title: func(start, end timeaxis.TimePoint) string {
			return teamTitle(team.FullName(), role, stat, start, end)
		},
	}, nil
}

func (b *Builder) fetchTable(ctx context.Context, cfg config.Config, plan *subjectPlan, axis timeaxis.Axis, reporter Reporter) (aggregate.Table, error) {
	ids := make([]string, len(plan.roster))
	for i, p := range plan.roster {
		ids[i] = p.ID
	}
	addr := aggregate.Addressing{Mode: cfg.Addressing, Window: cfg.Window}

	if cfg.Transport == config.TransportCSV {
		if len(axis) == 0 {
			return aggregate.FromRows(axis, ids, nil, cfg.Start, addr), nil
		}
		span := aggregate.Range{Start: axis[0], End: axis[len(axis)-1]}
		if addr.Mode == aggregate.Cumulative && cfg.Start.Before(span.Start) {
			span.Start = cfg.Start
		}
		if reporter != nil {
			reporter.OnProgress("Fetching per-day stats", 0, 1)
		}
		rows, err := b.client.StatRows(ctx, plan.subject, span, stats.CountingFields)
		if err != nil {
			return nil, err
		}
		if reporter != nil {
			reporter.OnProgress("Fetching per-day stats", 1, 1)
		}
		return aggregate.FromRows(axis, ids, rows, cfg.Start, addr), nil
	}

	ranges := aggregate.Ranges(axis, cfg.Start, addr)
	var progress mmolb.Progress
	if reporter != nil {
		progress = func(done, total int) {
			reporter.OnProgress("Fetching stat ranges", done, total)
		}
	}
	results, err := b.client.StatRanges(ctx, plan.subject, ranges, progress)
	if err != nil {
		return nil, err
	}
	return aggregate.Reshape(axis, ids, results)
}
