package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ppiankov/honorscan/internal/model"
)

// ProgressTracker persists the progress counters and the result log as two
// JSON documents. Both are read and written wholesale by a single writer.
type ProgressTracker struct {
	progressPath string
	resultsPath  string
	now          func() time.Time
}

// NewProgressTracker creates a tracker for the given progress and results files
func NewProgressTracker(progressPath, resultsPath string) *ProgressTracker {
	return &ProgressTracker{
		progressPath: progressPath,
		resultsPath:  resultsPath,
		now:          time.Now,
	}
}

// LoadProgress reads the progress state. A missing file is a first run and
// yields the zero state.
func (t *ProgressTracker) LoadProgress() (model.ProgressState, error) {
	var state model.ProgressState
	found, err := readJSON(t.progressPath, &state)
	if err != nil {
		return model.ProgressState{}, storageErr("load progress", t.progressPath, err)
	}
	if !found {
		return model.ProgressState{}, nil
	}
	return state, nil
}

// SaveProgress stamps LastUpdated with the current time and persists the state
func (t *ProgressTracker) SaveProgress(state *model.ProgressState) error {
	state.LastUpdated = t.now()
	if err := writeJSON(t.progressPath, state); err != nil {
		return storageErr("save progress", t.progressPath, err)
	}
	return nil
}

// LoadResults reads the result log. A missing file yields an empty log.
func (t *ProgressTracker) LoadResults() (*model.ResultLog, error) {
	log := &model.ResultLog{}
	if _, err := readJSON(t.resultsPath, log); err != nil {
		return nil, storageErr("load results", t.resultsPath, err)
	}
	if log.FraudCases == nil {
		log.FraudCases = []model.FraudCase{}
	}
	if log.UncertainCases == nil {
		log.UncertainCases = []model.UncertainCase{}
	}
	return log, nil
}

// SaveResults persists the result log
func (t *ProgressTracker) SaveResults(log *model.ResultLog) error {
	if err := writeJSON(t.resultsPath, log); err != nil {
		return storageErr("save results", t.resultsPath, err)
	}
	return nil
}

// AppendFraudCase adds a fraud case to the result log
func (t *ProgressTracker) AppendFraudCase(c model.FraudCase) error {
	log, err := t.LoadResults()
	if err != nil {
		return err
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = t.now()
	}
	log.FraudCases = append(log.FraudCases, c)
	return t.SaveResults(log)
}

// AppendUncertainCase adds a case for manual review to the result log
func (t *ProgressTracker) AppendUncertainCase(c model.UncertainCase) error {
	log, err := t.LoadResults()
	if err != nil {
		return err
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = t.now()
	}
	log.UncertainCases = append(log.UncertainCases, c)
	return t.SaveResults(log)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
