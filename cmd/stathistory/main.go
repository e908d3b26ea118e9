package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/history"
	"github.com/fortuna/stathistory/internal/render"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

const (
	serviceName    = "stathistory"
	serviceVersion = "1.0.0"
)

// flags holds command-line overrides. Only flags the user actually set are
// applied over the file and environment configuration.
type flags struct {
	configPath     string
	start          string
	end            string
	addressing     string
	window         int
	transport      string
	stats          []string
	stat           string
	smooth         int
	format         string
	output         string
	cache          string
	maxConnections int
	role           string
	purgeAll       bool
}

func main() {
	if err := newRootCmd(&flags{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Chart MMOLB player and team stat histories",
		Version:       serviceVersion,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file")
	pf.StringVar(&f.start, "start", "", "first time point (season,day)")
	pf.StringVar(&f.end, "end", "", "last time point (season,day)")
	pf.StringVar(&f.addressing, "addressing", "", "cumulative or rolling")
	pf.IntVar(&f.window, "window", 0, "rolling window width in days")
	pf.StringVar(&f.transport, "transport", "", "json (one request per point) or csv (one request per span)")
	pf.StringVar(&f.cache, "cache", "", "response cache backend: redis, postgres or none")
	pf.IntVar(&f.maxConnections, "max-connections", 0, "concurrent upstream requests")
	pf.IntVar(&f.smooth, "smooth", 0, "chart smoothing window")
	pf.StringVar(&f.format, "format", "", "output format: json, svg, html or png")
	pf.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")

	player := &cobra.Command{
		Use:   "player <player-id>",
		Short: "Chart one player's stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg.With(config.Target{Mode: config.ModePlayer, ID: args[0]}))
		},
	}
	player.Flags().StringSliceVar(&f.stats, "stats", nil, "stats to chart (default: every stat of the player's role)")

	team := &cobra.Command{
		Use:   "team <team-id>",
		Short: "Chart one stat across a team's batters or pitchers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			mode, err := roleMode(f.role)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg.With(config.Target{Mode: mode, ID: args[0]}))
		},
	}
	team.Flags().StringVar(&f.role, "role", "batters", "batters or pitchers")
	team.Flags().StringVar(&f.stat, "stat", "", "stat to chart (default ops for batters, era for pitchers)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve histories over REST and push watched targets over websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cacheCmd := &cobra.Command{Use: "cache", Short: "Manage the response cache"}
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Drop cached upstream responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runPurge(cmd.Context(), cfg, f.purgeAll)
		},
	}
	purge.Flags().BoolVar(&f.purgeAll, "all", false, "drop unexpired responses too (postgres)")
	cacheCmd.AddCommand(purge)

	root.AddCommand(player, team, serve, cacheCmd)
	return root
}

func roleMode(role string) (config.Mode, error) {
	switch strings.ToLower(role) {
	case "", "batters":
		return config.ModeBatters, nil
	case "pitchers":
		return config.ModePitchers, nil
	}
	return "", fmt.Errorf("%w: role %q (want batters or pitchers)", config.ErrInvalid, role)
}

// loadConfig layers defaults, the config file, the environment and finally
// any flags set on the command line.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	set := cmd.Flags().Changed
	if set("start") {
		if cfg.Start, err = timeaxis.Parse(f.start); err != nil {
			return cfg, fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
	}
	if set("end") {
		if cfg.End, err = timeaxis.Parse(f.end); err != nil {
			return cfg, fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
	}
	if set("addressing") {
		cfg.Addressing = aggregate.Mode(strings.ToLower(f.addressing))
	}
	if set("window") {
		cfg.Window = f.window
	}
	if set("transport") {
		cfg.Transport = config.Transport(strings.ToLower(f.transport))
	}
	if set("cache") {
		cfg.CacheBackend = strings.ToLower(f.cache)
	}
	if set("max-connections") {
		cfg.MaxConnections = f.maxConnections
	}
	if set("smooth") {
		cfg.Smooth = f.smooth
	}
	if set("stats") {
		cfg.SoloStats = f.stats
	}
	if set("stat") {
		if strings.ToLower(f.role) == "pitchers" {
			cfg.PitcherStat = strings.ToLower(f.stat)
		} else {
			cfg.BatterStat = strings.ToLower(f.stat)
		}
	}
	if set("output") {
		cfg.Output = f.output
		if !set("format") {
			if format := formatFor(f.output); format != "" {
				cfg.Format = format
			}
		}
	}
	if set("format") {
		cfg.Format = strings.ToLower(f.format)
	}
	return cfg, nil
}

// formatFor guesses an output format from a file extension.
func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return config.FormatJSON
	case ".svg":
		return config.FormatSVG
	case ".html", ".htm":
		return config.FormatHTML
	case ".png":
		return config.FormatPNG
	}
	return ""
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(parent context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signalContext(parent)
	defer stop()

	d, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	var png *render.PNGExporter
	if cfg.Format == config.FormatPNG {
		png = render.NewPNGExporter(nil)
		defer png.Close()
	}

	h, err := d.builder.Build(ctx, cfg, &consoleReporter{})
	if err != nil {
		return err
	}
	out, err := render.NewRenderer(render.OptionsFrom(cfg), png).Render(ctx, h, cfg.Format)
	if err != nil {
		return err
	}

	if cfg.Output == "" || cfg.Output == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(cfg.Output, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Output, err)
	}
	log.Printf("✓ Wrote %s (%d bytes)", cfg.Output, len(out))
	return nil
}

// consoleReporter logs build progress to stderr.
type consoleReporter struct{}

func (c *consoleReporter) OnStart(target config.Target) {
	log.Printf("Building %s history", target)
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	log.Printf("Progress: %s (%d/%d)", message, current, total)
}

func (c *consoleReporter) OnComplete(h *history.History) {
	log.Printf("✓ %s: %d entities over %d points, %d annotations",
		h.Title, len(h.Entities), len(h.Axis), len(h.Annotations))
}
