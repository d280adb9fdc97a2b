package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"osm-route-server/logging"
	"osm-route-server/overpass"
	"osm-route-server/routing"
)

type options struct {
	input     string
	start     string
	end       string
	output    string
	endpoint  string
	logLevel  string
	timeout   time.Duration
	fetchFunc func(ctx context.Context, bbox routing.BoundingBox) ([]byte, error)
}

type report struct {
	Source   string               `json:"source"`
	Bounds   *routing.BoundingBox `json:"bounds,omitempty"`
	Summary  routing.Summary      `json:"summary"`
	Verified bool                 `json:"verified"`
	Reason   string               `json:"reason,omitempty"`
}

var errVerifyFailed = errors.New("graph verification failed")

func parseCoordinate(s string) (routing.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return routing.Coordinate{}, fmt.Errorf("expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("bad latitude in %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("bad longitude in %q: %w", s, err)
	}
	return routing.NewCoordinate(lat, lon)
}

// load reads the extract from disk, or fetches the padded box around the
// start and end points and optionally saves the raw response.
func load(ctx context.Context, opts options, logger zerolog.Logger) ([]byte, report, error) {
	if opts.input != "" {
		data, err := os.ReadFile(opts.input)
		if err != nil {
			return nil, report{}, fmt.Errorf("failed to open JSON file %s: %w", opts.input, err)
		}
		return data, report{Source: opts.input}, nil
	}

	start, err := parseCoordinate(opts.start)
	if err != nil {
		return nil, report{}, fmt.Errorf("-start: %w", err)
	}
	end, err := parseCoordinate(opts.end)
	if err != nil {
		return nil, report{}, fmt.Errorf("-end: %w", err)
	}
	bbox, err := routing.ComputeBoundingBox(start, end)
	if err != nil {
		return nil, report{}, err
	}

	fetch := opts.fetchFunc
	if fetch == nil {
		fetch = overpass.NewClient(overpass.Options{Endpoint: opts.endpoint, Timeout: opts.timeout}, logger).Fetch
	}
	data, err := fetch(ctx, bbox)
	if err != nil {
		return nil, report{}, err
	}

	if opts.output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
			return nil, report{}, fmt.Errorf("failed to create output directory for %s: %w", opts.output, err)
		}
		if err := os.WriteFile(opts.output, data, 0o644); err != nil {
			return nil, report{}, fmt.Errorf("failed to write %s: %w", opts.output, err)
		}
		logger.Info().Str("file", opts.output).Int("bytes", len(data)).Msg("saved extract")
	}
	return data, report{Source: opts.endpoint, Bounds: &bbox}, nil
}

func extract(ctx context.Context, opts options, out io.Writer, logger zerolog.Logger) error {
	data, rep, err := load(ctx, opts, logger)
	if err != nil {
		return err
	}

	g := routing.NewRoadGraph(logger)
	if err := g.LoadFromJSON(data); err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	rep.Summary = g.Summary()
	rep.Verified, rep.Reason = g.Verify()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return err
	}
	if !rep.Verified {
		return fmt.Errorf("%w: %s", errVerifyFailed, rep.Reason)
	}
	return nil
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "in", "", "OSM JSON extract to load")
	flag.StringVar(&opts.start, "start", "", "route start as lat,lon (fetches from overpass)")
	flag.StringVar(&opts.end, "end", "", "route end as lat,lon")
	flag.StringVar(&opts.output, "out", "", "where to save the fetched extract")
	flag.StringVar(&opts.endpoint, "overpass", overpass.DEFAULT_ENDPOINT, "overpass interpreter URL")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level")
	flag.DurationVar(&opts.timeout, "timeout", time.Minute, "overpass request timeout")
	flag.Parse()

	if opts.input == "" && flag.NArg() > 0 {
		opts.input = flag.Arg(0)
	}
	if opts.input == "" && (opts.start == "" || opts.end == "") {
		fmt.Println("Usage: graph_generators -in <osm.json> | -start lat,lon -end lat,lon [-out file]")
		os.Exit(1)
	}

	logger, err := logging.New(opts.logLevel, "console", os.Stderr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := extract(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Msg("extract failed")
		os.Exit(1)
	}
}
