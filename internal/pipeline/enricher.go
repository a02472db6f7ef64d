package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/honorscan/internal/classifier"
	"github.com/ppiankov/honorscan/internal/metrics"
	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/validate"
)

// Reasons recorded on uncertain cases
const (
	ReasonClassifierUnavailable   = "classifier unavailable"
	ReasonConfirmationUnavailable = "confirmation unavailable"
)

// Classifier answers a prompt; failures are carried in the Result
type Classifier interface {
	Classify(ctx context.Context, prompt string, grounding bool) classifier.Result
}

// Records is the honoree table the pass reads and checkpoints
type Records interface {
	Load() ([]model.HonoreeRecord, []string, error)
	Save(records []model.HonoreeRecord, schema []string) error
}

// Progress persists counters and the result log
type Progress interface {
	LoadProgress() (model.ProgressState, error)
	SaveProgress(state *model.ProgressState) error
	AppendFraudCase(c model.FraudCase) error
	AppendUncertainCase(c model.UncertainCase) error
}

// SourceRanker ranks the pages a grounded answer cited
type SourceRanker interface {
	Rank(urls []string) []model.SourceRef
}

// Config tunes one enrichment pass
type Config struct {
	EnableConfirmation bool
	CheckpointEvery    int // labeled rows between table flushes; 0 flushes only at the end
	ProgressEvery      int // labeled rows between progress log lines; 0 disables
	StartFrom          int // first row index to scan
	Limit              int // max rows to label this run; 0 means no limit
	DryRun             bool
}

// DefaultConfig returns the defaults of the enrich command
func DefaultConfig() Config {
	return Config{
		EnableConfirmation: true,
		CheckpointEvery:    10,
		ProgressEvery:      10,
	}
}

// ConfigFromModel converts the pipeline section of the application config
func ConfigFromModel(cfg model.PipelineConfig) Config {
	return Config{
		EnableConfirmation: cfg.EnableConfirmation,
		CheckpointEvery:    cfg.CheckpointEvery,
		ProgressEvery:      cfg.ProgressEvery,
		StartFrom:          cfg.StartFrom,
		Limit:              cfg.Limit,
		DryRun:             cfg.DryRun,
	}
}

// Kind is how a row reached its label
type Kind string

const (
	KindSkipped     Kind = "skipped"     // already labeled, no calls made
	KindNone        Kind = "none"        // classifier answered N/A
	KindUnavailable Kind = "unavailable" // classifier failed, labeled N/A
	KindFlagged     Kind = "flagged"     // controversy text kept as label
	KindOverruled   Kind = "overruled"   // confirmation rejected the first answer
)

// Decision is the outcome of labeling one row
type Decision struct {
	Label        string
	Kind         Kind
	Model        string // model that produced the label text
	Query        string
	Confirmation string
	Sources      []string // pages cited by the grounded answer
	Uncertain    string   // non-empty when the row needs manual review
}

// Summary reports what a pass did
type Summary struct {
	RunID       string
	TotalRows   int
	Labeled     int
	Skipped     int
	Flagged     int
	Overruled   int
	None        int
	Uncertain   int
	Checkpoints int
	Interrupted bool
	Elapsed     time.Duration
}

// Enricher walks the honoree table and labels every unlabeled row
type Enricher struct {
	classifier Classifier
	records    Records
	progress   Progress
	ranker     SourceRanker
	cfg        Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates an Enricher. logger and m may be nil.
func New(c Classifier, records Records, progress Progress, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StartFrom < 0 {
		cfg.StartFrom = 0
	}
	return &Enricher{
		classifier: c,
		records:    records,
		progress:   progress,
		ranker:     validate.NewAuthorityClassifier(nil),
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// WithSourceRanker replaces the default authority ranking of cited pages
func (e *Enricher) WithSourceRanker(r SourceRanker) *Enricher {
	if r != nil {
		e.ranker = r
	}
	return e
}

// Label decides the label of a single row without persisting anything.
// Labeled rows are returned unchanged without calling the classifier.
func (e *Enricher) Label(ctx context.Context, rec model.HonoreeRecord) Decision {
	if rec.IsLabeled() {
		return Decision{Label: rec.FraudLabel, Kind: KindSkipped}
	}

	query := InitialPrompt(rec)
	initial := e.classifier.Classify(ctx, query, true)

	if !initial.OK() {
		return Decision{
			Label:     model.LabelNone,
			Kind:      KindUnavailable,
			Query:     query,
			Uncertain: ReasonClassifierUnavailable,
		}
	}

	if strings.Contains(initial.Text, model.LabelNone) {
		return Decision{Label: model.LabelNone, Kind: KindNone, Model: initial.Model, Query: query}
	}

	flagged := Decision{Label: initial.Text, Kind: KindFlagged, Model: initial.Model, Query: query, Sources: initial.Sources}
	if !e.cfg.EnableConfirmation {
		return flagged
	}

	confirm := e.classifier.Classify(ctx, ConfirmPrompt(rec, initial.Text), false)
	if !confirm.OK() {
		flagged.Uncertain = ReasonConfirmationUnavailable
		return flagged
	}

	flagged.Confirmation = confirm.Text
	if strings.Contains(strings.ToLower(confirm.Text), "no") {
		return Decision{
			Label:        model.LabelNone,
			Kind:         KindOverruled,
			Model:        initial.Model,
			Query:        query,
			Confirmation: confirm.Text,
		}
	}
	return flagged
}

// Run labels rows in file order until every row is labeled, the limit is
// reached, or ctx is cancelled. Storage failures abort the pass; the table
// is flushed at checkpoints and at the end.
func (e *Enricher) Run(ctx context.Context) (*Summary, error) {
	start := e.now()
	summary := &Summary{RunID: uuid.NewString()}

	records, schema, err := e.records.Load()
	if err != nil {
		return summary, fmt.Errorf("load records: %w", err)
	}
	state, err := e.progress.LoadProgress()
	if err != nil {
		return summary, fmt.Errorf("load progress: %w", err)
	}
	state.TotalRows = len(records)
	summary.TotalRows = len(records)

	log := e.logger.With(zap.String("run_id", summary.RunID))
	log.Info("enrichment started",
		zap.Int("rows", len(records)),
		zap.Int("start_from", e.cfg.StartFrom),
		zap.Int("limit", e.cfg.Limit),
		zap.Bool("confirmation", e.cfg.EnableConfirmation),
		zap.Bool("dry_run", e.cfg.DryRun))

	pending := 0
	checkpoint := func() error {
		if e.cfg.DryRun {
			return nil
		}
		if pending > 0 {
			if err := e.records.Save(records, schema); err != nil {
				return fmt.Errorf("checkpoint records: %w", err)
			}
			summary.Checkpoints++
			e.metrics.IncCheckpoint()
			pending = 0
		}
		if err := e.progress.SaveProgress(&state); err != nil {
			return fmt.Errorf("checkpoint progress: %w", err)
		}
		return nil
	}

	for i := e.cfg.StartFrom; i < len(records); i++ {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		if records[i].IsLabeled() {
			summary.Skipped++
			continue
		}
		if e.cfg.Limit > 0 && summary.Labeled >= e.cfg.Limit {
			break
		}

		d := e.Label(ctx, records[i])
		if ctx.Err() != nil {
			// Row stays unlabeled and is retried on the next run
			summary.Interrupted = true
			break
		}

		if err := e.apply(i, records[i], d, summary, &state); err != nil {
			return summary, err
		}
		records[i].FraudLabel = d.Label
		pending++

		if e.cfg.ProgressEvery > 0 && summary.Labeled%e.cfg.ProgressEvery == 0 {
			log.Info("progress",
				zap.Int("row", i),
				zap.Int("labeled", summary.Labeled),
				zap.Int("flagged", summary.Flagged),
				zap.Int("processed_total", state.ProcessedCount),
				zap.Int("total_rows", state.TotalRows))
		}

		if e.cfg.CheckpointEvery > 0 && pending >= e.cfg.CheckpointEvery {
			if err := checkpoint(); err != nil {
				return summary, err
			}
		}
	}

	if err := checkpoint(); err != nil {
		return summary, err
	}

	summary.Elapsed = e.now().Sub(start)
	log.Info("enrichment finished",
		zap.Int("labeled", summary.Labeled),
		zap.Int("skipped", summary.Skipped),
		zap.Int("flagged", summary.Flagged),
		zap.Int("overruled", summary.Overruled),
		zap.Int("uncertain", summary.Uncertain),
		zap.Bool("interrupted", summary.Interrupted),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

// apply records a decision in the counters and the result log
func (e *Enricher) apply(row int, rec model.HonoreeRecord, d Decision, summary *Summary, state *model.ProgressState) error {
	summary.Labeled++
	state.ProcessedCount++

	switch d.Kind {
	case KindFlagged:
		summary.Flagged++
		state.FraudFoundCount++
		e.metrics.IncLabel(metrics.LabelFlagged)
	case KindOverruled:
		summary.Overruled++
		e.metrics.IncLabel(metrics.LabelOverruled)
	default:
		summary.None++
		e.metrics.IncLabel(metrics.LabelNone)
	}

	e.logger.Debug("row labeled",
		zap.Int("row", row),
		zap.String("name", rec.Name),
		zap.String("kind", string(d.Kind)),
		zap.String("model", d.Model))

	if d.Uncertain != "" {
		summary.Uncertain++
		e.metrics.IncUncertain(d.Uncertain)
	}

	if e.cfg.DryRun {
		return nil
	}

	if d.Kind == KindFlagged {
		confidence, indicators := AnalyzeIndicators(d.Label)
		err := e.progress.AppendFraudCase(model.FraudCase{
			RunID:            summary.RunID,
			Row:              row,
			Name:             rec.Name,
			Year:             rec.Year,
			Company:          rec.Company,
			FraudDescription: d.Label,
			Source:           d.Model,
			QueryUsed:        d.Query,
			Confidence:       confidence,
			Indicators:       indicators,
			Citations:        e.ranker.Rank(d.Sources),
			Timestamp:        e.now(),
		})
		if err != nil {
			return fmt.Errorf("append fraud case: %w", err)
		}
	}

	if d.Uncertain != "" {
		err := e.progress.AppendUncertainCase(model.UncertainCase{
			RunID:     summary.RunID,
			Row:       row,
			Name:      rec.Name,
			Year:      rec.Year,
			Company:   rec.Company,
			Reason:    d.Uncertain,
			Timestamp: e.now(),
		})
		if err != nil {
			return fmt.Errorf("append uncertain case: %w", err)
		}
	}
	return nil
}
