// Package store archives run reports so they can be fetched again by ID.
//
// Two implementations are provided: [Memory] for a single process and
// [Mongo] for a shared MongoDB collection. Both keep at most
// [Options.MaxEntries] ranking rows per report; the full ranking belongs in
// an exported CSV, not in the archive.
package store

import (
	"context"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/pipeline"
)

// DefaultMaxEntries is the number of ranking rows kept per report.
const DefaultMaxEntries = 1000

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "run not found")

// Store persists reports.
type Store interface {
	pipeline.Archive
	// Get returns the report with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*pipeline.Report, error)
	// List returns up to limit reports, newest first, without entries.
	List(ctx context.Context, limit int) ([]*pipeline.Report, error)
	Close() error
}

// Options configures both implementations.
type Options struct {
	// MaxEntries caps stored ranking rows (0 = DefaultMaxEntries, < 0 = all).
	MaxEntries int
}

func (o Options) prepare(r *pipeline.Report) *pipeline.Report {
	switch {
	case o.MaxEntries == 0:
		return r.Truncate(DefaultMaxEntries)
	case o.MaxEntries < 0:
		return r.Truncate(0)
	default:
		return r.Truncate(o.MaxEntries)
	}
}

func summary(r *pipeline.Report) *pipeline.Report {
	cp := r.Truncate(0)
	cp.Entries = nil
	return cp
}
