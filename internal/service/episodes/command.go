package episodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/repository/episode"
)

// Options configures the episodes listing.
type Options struct {
	// ConfigPath to YAML settings file.
	ConfigPath string
	// JournalPath overrides the configured journal.
	JournalPath string
	// Limit keeps only the most recent episodes when positive.
	Limit int
	// JSON prints one JSON object per episode.
	JSON bool
	// Output receives the listing; stdout when nil.
	Output io.Writer
}

// ErrJournalDisabled is returned when no journal path is configured.
var ErrJournalDisabled = errors.New("episode journal is disabled")

// Run prints recorded alert episodes, oldest first.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "episodes")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	path := cfg.Journal.Path
	if opts.JournalPath != "" {
		path = opts.JournalPath
	}

	if path == "" {
		return ErrJournalDisabled
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return list(ctx, episode.NewFileJournal(path), out, opts.Limit, opts.JSON)
}

func list(ctx context.Context, repo episode.Repository, out io.Writer, limit int, asJSON bool) error {
	items, err := repo.List(ctx)

	switch {
	case errors.Is(err, episode.ErrNotFound):
		logger.Info(ctx, "No episodes recorded yet")
		return nil
	case err != nil:
		return fmt.Errorf("list episodes: %w", err)
	}

	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}

	if asJSON {
		return writeJSON(out, items)
	}

	return writeTable(out, items)
}

func writeJSON(out io.Writer, items []*domain.Episode) error {
	encoder := json.NewEncoder(out)

	for _, e := range items {
		if err := encoder.Encode(e); err != nil {
			return err
		}
	}

	return nil
}

func writeTable(out io.Writer, items []*domain.Episode) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "STARTED\tDURATION\tPEAK\tTHRESHOLD\tENDED BY")

	for _, e := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.0f\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.Duration().Round(time.Millisecond),
			e.PeakLevel,
			e.Threshold,
			e.EndReason)
	}

	return tw.Flush()
}
