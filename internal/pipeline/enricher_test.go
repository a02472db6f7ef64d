package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/honorscan/internal/classifier"
	"github.com/ppiankov/honorscan/internal/metrics"
	"github.com/ppiankov/honorscan/internal/model"
	"github.com/ppiankov/honorscan/internal/store"
)

type classifyCall struct {
	Prompt    string
	Grounding bool
}

// scriptedClassifier answers initial and confirmation prompts from fixed scripts
type scriptedClassifier struct {
	mu      sync.Mutex
	calls   []classifyCall
	initial map[string]classifier.Result // keyed by honoree name
	confirm map[string]classifier.Result
	onCall  func(n int)
}

func (s *scriptedClassifier) Classify(ctx context.Context, prompt string, grounding bool) classifier.Result {
	s.mu.Lock()
	s.calls = append(s.calls, classifyCall{Prompt: prompt, Grounding: grounding})
	n := len(s.calls)
	s.mu.Unlock()

	if s.onCall != nil {
		s.onCall(n)
	}

	script := s.initial
	if strings.Contains(prompt, "Answer strictly YES or NO") {
		script = s.confirm
	}
	for name, res := range script {
		if strings.Contains(prompt, name) {
			return res
		}
	}
	return classifier.Result{Text: "N/A", Model: "primary"}
}

func (s *scriptedClassifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func text(s string) classifier.Result {
	return classifier.Result{Text: s, Model: "primary"}
}

func failed() classifier.Result {
	return classifier.Result{Model: "fallback", Err: &classifier.TransportError{Model: "fallback", Err: errors.New("down")}}
}

type fixture struct {
	dir      string
	table    string
	records  *store.RecordStore
	progress *store.ProgressTracker
}

func newFixture(t *testing.T, csv string) *fixture {
	t.Helper()
	dir := t.TempDir()
	table := filepath.Join(dir, "table.csv")
	require.NoError(t, os.WriteFile(table, []byte(csv), 0644))
	return &fixture{
		dir:      dir,
		table:    table,
		records:  store.NewRecordStore(table, nil),
		progress: store.NewProgressTracker(filepath.Join(dir, "progress", "progress.json"), filepath.Join(dir, "progress", "results.json")),
	}
}

func (f *fixture) labels(t *testing.T) []string {
	t.Helper()
	records, _, err := f.records.Load()
	require.NoError(t, err)
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FraudLabel
	}
	return out
}

func (f *fixture) results(t *testing.T) *model.ResultLog {
	t.Helper()
	log, err := f.progress.LoadResults()
	require.NoError(t, err)
	return log
}

func (f *fixture) enricher(c Classifier, cfg Config) *Enricher {
	return New(c, f.records, f.progress, cfg, nil, metrics.New())
}

const oneRow = `year,name,company,fraud
2020,Jane Doe,Acme,
`

const johnRoe = `year,name,company,fraud
2021,John Roe,Beta,
`

const fiveRows = `year,name,company,fraud
2019,Person A,Alpha,
2019,Person B,Bravo,
2020,Person C,Charlie,
2020,Person D,Delta,
2021,Person E,Echo,
`

func TestRun_NoControversy(t *testing.T) {
	f := newFixture(t, oneRow)
	c := &scriptedClassifier{initial: map[string]classifier.Result{"Jane Doe": text("N/A")}}

	summary, err := f.enricher(c, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"N/A"}, f.labels(t))
	assert.Equal(t, 1, c.count(), "N/A answer must not trigger a confirmation call")
	assert.Equal(t, 1, summary.Labeled)
	assert.Equal(t, 1, summary.None)

	require.Len(t, c.calls, 1)
	assert.Contains(t, c.calls[0].Prompt, "Jane Doe from Acme")
	assert.True(t, c.calls[0].Grounding)
}

func TestRun_ConfirmedControversy(t *testing.T) {
	f := newFixture(t, johnRoe)
	c := &scriptedClassifier{
		initial: map[string]classifier.Result{"John Roe": text("Sued by SEC in 2021")},
		confirm: map[string]classifier.Result{"John Roe": text("YES")},
	}

	summary, err := f.enricher(c, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sued by SEC in 2021"}, f.labels(t))
	assert.Equal(t, 2, c.count())
	assert.Equal(t, 1, summary.Flagged)

	require.Len(t, c.calls, 2)
	assert.Contains(t, c.calls[1].Prompt, "Sued by SEC in 2021")
	assert.False(t, c.calls[1].Grounding)

	log := f.results(t)
	require.Len(t, log.FraudCases, 1)
	fc := log.FraudCases[0]
	assert.Equal(t, "John Roe", fc.Name)
	assert.Equal(t, 2021, fc.Year)
	assert.Equal(t, "Beta", fc.Company)
	assert.Equal(t, "Sued by SEC in 2021", fc.FraudDescription)
	assert.Equal(t, "primary", fc.Source)
	assert.Equal(t, summary.RunID, fc.RunID)
	assert.Equal(t, c.calls[0].Prompt, fc.QueryUsed)
	assert.Empty(t, log.UncertainCases)

	state, err := f.progress.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalRows)
	assert.Equal(t, 1, state.ProcessedCount)
	assert.Equal(t, 1, state.FraudFoundCount)
	assert.False(t, state.LastUpdated.IsZero())
}

type staticRanker struct{}

func (staticRanker) Rank(urls []string) []model.SourceRef {
	refs := make([]model.SourceRef, len(urls))
	for i, u := range urls {
		refs[i] = model.SourceRef{URL: u, Tier: model.TierSecondary}
	}
	return refs
}

func TestRun_FraudCaseCitations(t *testing.T) {
	grounded := classifier.Result{
		Text:    "Charged with securities fraud in 2021",
		Model:   "primary",
		Sources: []string{"https://www.sec.gov/litigation/litreleases/lr1", "https://blog.example/x"},
	}

	t.Run("default authority tiers", func(t *testing.T) {
		f := newFixture(t, johnRoe)
		c := &scriptedClassifier{
			initial: map[string]classifier.Result{"John Roe": grounded},
			confirm: map[string]classifier.Result{"John Roe": text("YES")},
		}

		_, err := f.enricher(c, DefaultConfig()).Run(context.Background())
		require.NoError(t, err)

		log := f.results(t)
		require.Len(t, log.FraudCases, 1)
		assert.Equal(t, []model.SourceRef{
			{URL: "https://www.sec.gov/litigation/litreleases/lr1", Tier: model.TierPrimary},
			{URL: "https://blog.example/x", Tier: model.TierTertiary},
		}, log.FraudCases[0].Citations)
		assert.Equal(t, ConfidenceMedium, log.FraudCases[0].Confidence)
	})

	t.Run("custom ranker", func(t *testing.T) {
		f := newFixture(t, johnRoe)
		c := &scriptedClassifier{
			initial: map[string]classifier.Result{"John Roe": grounded},
			confirm: map[string]classifier.Result{"John Roe": text("YES")},
		}

		_, err := f.enricher(c, DefaultConfig()).WithSourceRanker(staticRanker{}).Run(context.Background())
		require.NoError(t, err)

		citations := f.results(t).FraudCases[0].Citations
		require.Len(t, citations, 2)
		assert.Equal(t, model.TierSecondary, citations[0].Tier)
	})
}

func TestRun_ConfirmationOverrule(t *testing.T) {
	f := newFixture(t, johnRoe)
	c := &scriptedClassifier{
		initial: map[string]classifier.Result{"John Roe": text("Sued by SEC in 2021")},
		confirm: map[string]classifier.Result{"John Roe": text("No, not a real controversy")},
	}

	summary, err := f.enricher(c, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"N/A"}, f.labels(t))
	assert.Equal(t, 1, summary.Overruled)
	assert.Empty(t, f.results(t).FraudCases)
}

func TestRun_ConfirmationUnavailableKeepsInitial(t *testing.T) {
	f := newFixture(t, johnRoe)
	c := &scriptedClassifier{
		initial: map[string]classifier.Result{"John Roe": text("Sued by SEC in 2021")},
		confirm: map[string]classifier.Result{"John Roe": failed()},
	}

	_, err := f.enricher(c, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sued by SEC in 2021"}, f.labels(t))

	log := f.results(t)
	require.Len(t, log.FraudCases, 1)
	require.Len(t, log.UncertainCases, 1)
	assert.Equal(t, ReasonConfirmationUnavailable, log.UncertainCases[0].Reason)
}

func TestRun_ClassifierUnavailableLabelsNone(t *testing.T) {
	f := newFixture(t, oneRow)
	c := &scriptedClassifier{initial: map[string]classifier.Result{"Jane Doe": failed()}}

	summary, err := f.enricher(c, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"N/A"}, f.labels(t))
	assert.Equal(t, 1, c.count())
	assert.Equal(t, 1, summary.Uncertain)

	log := f.results(t)
	require.Len(t, log.UncertainCases, 1)
	assert.Equal(t, ReasonClassifierUnavailable, log.UncertainCases[0].Reason)
	assert.Equal(t, "Jane Doe", log.UncertainCases[0].Name)
	assert.Empty(t, log.FraudCases)
}

func TestRun_ConfirmationDisabled(t *testing.T) {
	f := newFixture(t, johnRoe)
	c := &scriptedClassifier{
		initial: map[string]classifier.Result{"John Roe": text("Sued by SEC in 2021")},
		confirm: map[string]classifier.Result{"John Roe": text("NO")},
	}
	cfg := DefaultConfig()
	cfg.EnableConfirmation = false

	_, err := f.enricher(c, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sued by SEC in 2021"}, f.labels(t))
	assert.Equal(t, 1, c.count())
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, fiveRows)
	c := &scriptedClassifier{}

	_, err := f.enricher(c, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, c.count())

	before, err := os.ReadFile(f.table)
	require.NoError(t, err)

	again := &scriptedClassifier{}
	summary, err := f.enricher(again, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	after, err := os.ReadFile(f.table)
	require.NoError(t, err)

	assert.Equal(t, 0, again.count(), "labeled rows must not be re-queried")
	assert.Equal(t, 5, summary.Skipped)
	assert.Equal(t, string(before), string(after))
}

func TestRun_ResumesAfterCancel(t *testing.T) {
	f := newFixture(t, fiveRows)
	cfg := DefaultConfig()
	cfg.EnableConfirmation = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := &scriptedClassifier{onCall: func(n int) {
		if n == 3 {
			cancel()
		}
	}}

	summary, err := f.enricher(first, cfg).Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 2, summary.Labeled)
	assert.Equal(t, []string{"N/A", "N/A", "", "", ""}, f.labels(t))

	state, err := f.progress.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, 2, state.ProcessedCount)

	second := &scriptedClassifier{}
	summary, err = f.enricher(second, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, 3, second.count())
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, []string{"N/A", "N/A", "N/A", "N/A", "N/A"}, f.labels(t))

	state, err = f.progress.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, 5, state.ProcessedCount)
	assert.Equal(t, 5, state.TotalRows)
}

// countingRecords counts table flushes
type countingRecords struct {
	Records
	saves int
}

func (c *countingRecords) Save(records []model.HonoreeRecord, schema []string) error {
	c.saves++
	return c.Records.Save(records, schema)
}

func TestRun_Checkpoints(t *testing.T) {
	f := newFixture(t, fiveRows)
	records := &countingRecords{Records: f.records}
	cfg := DefaultConfig()
	cfg.CheckpointEvery = 2

	summary, err := New(&scriptedClassifier{}, records, f.progress, cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	// after rows 2 and 4, then the remainder at the end
	assert.Equal(t, 3, records.saves)
	assert.Equal(t, 3, summary.Checkpoints)
}

func TestRun_CheckpointOnlyAtEnd(t *testing.T) {
	f := newFixture(t, fiveRows)
	records := &countingRecords{Records: f.records}
	cfg := DefaultConfig()
	cfg.CheckpointEvery = 0

	_, err := New(&scriptedClassifier{}, records, f.progress, cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, records.saves)
}

func TestRun_LimitAndStartFrom(t *testing.T) {
	f := newFixture(t, fiveRows)
	cfg := DefaultConfig()
	cfg.StartFrom = 1
	cfg.Limit = 2

	c := &scriptedClassifier{}
	summary, err := f.enricher(c, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Labeled)
	assert.Equal(t, 2, c.count())
	assert.Equal(t, []string{"", "N/A", "N/A", "", ""}, f.labels(t))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t, johnRoe)
	c := &scriptedClassifier{
		initial: map[string]classifier.Result{"John Roe": text("Convicted and sentenced to prison")},
		confirm: map[string]classifier.Result{"John Roe": text("YES")},
	}
	cfg := DefaultConfig()
	cfg.DryRun = true

	summary, err := f.enricher(c, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Flagged)
	assert.Equal(t, []string{""}, f.labels(t))
	_, err = os.Stat(filepath.Join(f.dir, "progress"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MissingTableIsStorageError(t *testing.T) {
	dir := t.TempDir()
	e := New(&scriptedClassifier{},
		store.NewRecordStore(filepath.Join(dir, "missing.csv"), nil),
		store.NewProgressTracker(filepath.Join(dir, "p.json"), filepath.Join(dir, "r.json")),
		DefaultConfig(), nil, nil)

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestLabel_SkipsLabeledRow(t *testing.T) {
	c := &scriptedClassifier{}
	e := New(c, nil, nil, DefaultConfig(), nil, nil)

	d := e.Label(context.Background(), model.HonoreeRecord{Name: "Jane Doe", FraudLabel: "Sued"})

	assert.Equal(t, KindSkipped, d.Kind)
	assert.Equal(t, "Sued", d.Label)
	assert.Equal(t, 0, c.count())
}

func TestLabel_IdentifierWithoutCompany(t *testing.T) {
	c := &scriptedClassifier{}
	e := New(c, nil, nil, DefaultConfig(), nil, nil)

	d := e.Label(context.Background(), model.HonoreeRecord{Name: "Solo Person"})

	assert.Equal(t, KindNone, d.Kind)
	require.Len(t, c.calls, 1)
	assert.Contains(t, c.calls[0].Prompt, "Solo Person ever")
	assert.NotContains(t, c.calls[0].Prompt, " from ")
}
