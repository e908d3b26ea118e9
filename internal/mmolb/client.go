package mmolb

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/stats"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

const (
	// DefaultChronBase serves entity snapshots.
	DefaultChronBase = "https://freecashe.ws/api/chron/v0"
	// DefaultAPIBase serves stat queries.
	DefaultAPIBase = "https://freecashe.ws/api"

	kindPlayerLite = "player_lite"
	kindTeamLite   = "team_lite"
)

// ErrNotFound is returned when an entity lookup comes back empty.
var ErrNotFound = errors.New("entity not found")

// Client talks to the community stats API.
type Client struct {
	fetcher   *Fetcher
	chronBase string
	apiBase   string
	logger    *log.Logger
}

// New creates a client. Empty bases fall back to the public endpoints.
func New(fetcher *Fetcher, chronBase, apiBase string, logger *log.Logger) *Client {
	if chronBase == "" {
		chronBase = DefaultChronBase
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[mmolb-client] ", log.LstdFlags)
	}
	return &Client{
		fetcher:   fetcher,
		chronBase: strings.TrimRight(chronBase, "/"),
		apiBase:   strings.TrimRight(apiBase, "/"),
		logger:    logger,
	}
}

func (c *Client) lookup(ctx context.Context, kind string, ids []string) (map[string]json.RawMessage, error) {
	url := fmt.Sprintf("%s/entities?kind=%s&id=%s", c.chronBase, kind, strings.Join(ids, ","))
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var env entityEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding %s lookup: %w", kind, err)
	}

	out := make(map[string]json.RawMessage, len(env.Items))
	for _, item := range env.Items {
		out[item.EntityID] = item.Data
	}
	return out, nil
}

// Players looks up several players in one request. Ids without a snapshot
// are absent from the result.
func (c *Client) Players(ctx context.Context, ids ...string) (map[string]*Player, error) {
	items, err := c.lookup(ctx, kindPlayerLite, ids)
	if err != nil {
		return nil, err
	}

	players := make(map[string]*Player, len(items))
	for id, data := range items {
		p := &Player{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("decoding player %s: %w", id, err)
		}
		p.ID = id
		players[id] = p
	}
	return players, nil
}

// Player looks up one player.
func (c *Client) Player(ctx context.Context, id string) (*Player, error) {
	players, err := c.Players(ctx, id)
	if err != nil {
		return nil, err
	}
	p, ok := players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Team looks up one team with its roster.
func (c *Client) Team(ctx context.Context, id string) (*Team, error) {
	items, err := c.lookup(ctx, kindTeamLite, []string{id})
	if err != nil {
		return nil, err
	}
	data, ok := items[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}

	t := &Team{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decoding team %s: %w", id, err)
	}
	t.ID = id
	return t, nil
}

// RangeURL is the per-range stats query for a subject.
func (c *Client) RangeURL(subject Subject, r aggregate.Range) string {
	return fmt.Sprintf("%s/player-stats?%s=%s&start=%s&end=%s",
		c.apiBase, subject.Kind, subject.ID, r.Start.Query(), r.End.Query())
}

// RowsURL is the tabular per-day stats query for a subject.
func (c *Client) RowsURL(subject Subject, r aggregate.Range, fields []string) string {
	return fmt.Sprintf("%s/stats?%s=%s&start=%s&end=%s&group=player,day&fields=%s",
		c.apiBase, subject.Kind, subject.ID, r.Start.Query(), r.End.Query(), strings.Join(fields, ","))
}

// StatRanges runs one stats query per range as a single batch; results[i]
// answers ranges[i].
func (c *Client) StatRanges(ctx context.Context, subject Subject, ranges []aggregate.Range, progress Progress) ([][]aggregate.Record, error) {
	urls := make([]string, len(ranges))
	for i, r := range ranges {
		urls[i] = c.RangeURL(subject, r)
	}

	c.logger.Printf("Fetching %d stat ranges for %s %s", len(urls), subject.Kind, subject.ID)
	bodies, err := c.fetcher.GetAll(ctx, urls, progress)
	if err != nil {
		return nil, fmt.Errorf("fetching stats: %w", err)
	}

	results := make([][]aggregate.Record, len(bodies))
	for i, body := range bodies {
		var records []aggregate.Record
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("decoding stats for %s: %w", urls[i], err)
		}
		results[i] = records
	}
	return results, nil
}

// StatRows runs one tabular query covering r and parses its rows.
func (c *Client) StatRows(ctx context.Context, subject Subject, r aggregate.Range, fields []string) ([]aggregate.Row, error) {
	url := c.RowsURL(subject, r, fields)
	c.logger.Printf("Fetching per-day stat rows for %s %s", subject.Kind, subject.ID)

	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching stats: %w", err)
	}
	rows, err := ParseRows(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing stats for %s: %w", url, err)
	}
	return rows, nil
}

// ParseRows reads the tabular endpoint's CSV: a header of
// season,day,player_id followed by stat fields, one row per entity per day.
// Empty cells count as zero; a non-numeric day is a special day.
func ParseRows(r io.Reader) ([]aggregate.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 3 || header[0] != "season" || header[1] != "day" || header[2] != "player_id" {
		return nil, fmt.Errorf("unexpected header %v", header)
	}
	fields := header[3:]

	var rows []aggregate.Row
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: %d columns, header has %d", line, len(rec), len(header))
		}

		t, err := timeaxis.Parse(rec[0] + "," + rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		block := make(stats.RawStatBlock, len(fields))
		for i, name := range fields {
			cell := strings.TrimSpace(rec[3+i])
			if cell == "" {
				continue
			}
			n, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %s: %w", line, name, err)
			}
			block[name] = n
		}
		rows = append(rows, aggregate.Row{Time: t, EntityID: rec[2], Stats: block})
	}
	return rows, nil
}
