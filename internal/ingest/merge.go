package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/worker"
)

// Merger loads yearly sources concurrently and merges them in input order
type Merger struct {
	workers int
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewMerger creates a Merger. fetcher may be nil when every source is a local file.
func NewMerger(workers int, fetcher *Fetcher, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{workers: workers, fetcher: fetcher, logger: logger}
}

// loadResult carries one loaded source back from the pool
type loadResult struct {
	index int
	table *Table
	err   error
}

func (r *loadResult) GetError() error {
	return r.err
}

type loadJob struct {
	index  int
	source Source
	merger *Merger
}

func (j *loadJob) Execute(ctx context.Context) worker.Result {
	table, err := j.merger.Load(ctx, j.source)
	if err != nil {
		err = fmt.Errorf("%s: %w", j.source.Location, err)
	}
	return &loadResult{index: j.index, table: table, err: err}
}

// Load reads a single source: HTML pages are fetched and parsed, anything
// else is read as a CSV file
func (m *Merger) Load(ctx context.Context, src Source) (*Table, error) {
	if src.IsRemote() {
		if m.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for remote source")
		}
		page, err := m.fetcher.FetchWithRetry(ctx, src.Location)
		if err != nil {
			return nil, err
		}
		return ParseHTMLTable(strings.NewReader(page.HTML))
	}

	f, err := os.Open(src.Location)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSVTable(f)
}

// Merge loads every source through the worker pool and returns one table.
// Rows keep source order, then file order within a source.
func (m *Merger) Merge(ctx context.Context, sources []Source) (*Table, error) {
	pool := worker.NewPool(ctx, m.workers)
	pool.Start()

	for i, src := range sources {
		if !pool.Submit(&loadJob{index: i, source: src, merger: m}) {
			pool.Shutdown()
			return nil, fmt.Errorf("merge cancelled: %w", context.Cause(ctx))
		}
	}

	tables := make([]*Table, len(sources))
	years := make([]int, len(sources))
	loaded := 0
	var firstErr error
	firstErrIndex := len(sources)

	for _, r := range pool.Wait() {
		res := r.(*loadResult)
		if res.err != nil {
			if res.index < firstErrIndex {
				firstErr, firstErrIndex = res.err, res.index
			}
			continue
		}
		tables[res.index] = res.table
		years[res.index] = sources[res.index].Year
		loaded++

		m.logger.Debug("source loaded",
			zap.String("source", sources[res.index].Location),
			zap.Int("year", sources[res.index].Year),
			zap.Int("rows", len(res.table.Rows)))
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if loaded != len(sources) {
		return nil, fmt.Errorf("merge interrupted after %d of %d sources: %w", loaded, len(sources), context.Cause(ctx))
	}

	merged := mergeTables(tables, years)
	m.logger.Info("merged sources",
		zap.Int("sources", len(sources)),
		zap.Int("rows", len(merged.Rows)),
		zap.Strings("columns", merged.Columns))
	return merged, nil
}
