package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/honorscan/internal/cache"
	"github.com/ppiankov/honorscan/internal/model"
)

// requiredColumns must be present in every honoree table header
var requiredColumns = []string{model.ColYear, model.ColName, model.ColCompany}

// RecordStore loads and saves the ordered honoree table as CSV.
// It assumes a single writer: every Save rewrites the whole file.
type RecordStore struct {
	path  string
	cache cache.Cache
}

// snapshot is a parsed table remembered for the file state it was read from
type snapshot struct {
	modTime time.Time
	size    int64
	records []model.HonoreeRecord
	schema  []string
	byName  map[string][]int
}

// NewRecordStore creates a store for the CSV file at path. A nil cache
// disables snapshot reuse between loads.
func NewRecordStore(path string, c cache.Cache) *RecordStore {
	return &RecordStore{path: path, cache: c}
}

// Path returns the backing file path
func (s *RecordStore) Path() string {
	return s.path
}

// Load reads every record in file order together with the header schema.
// A missing fraud column is appended to the schema so labels can be written back.
func (s *RecordStore) Load() ([]model.HonoreeRecord, []string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	return cloneRecords(snap.records), slices.Clone(snap.schema), nil
}

// Save rewrites the table atomically. An empty schema falls back to model.DefaultSchema.
func (s *RecordStore) Save(records []model.HonoreeRecord, schema []string) error {
	if len(schema) == 0 {
		schema = model.DefaultSchema
	}

	err := writeFileAtomic(s.path, func(w io.Writer) error {
		return WriteCSV(w, records, schema)
	})
	s.invalidate()
	if err != nil {
		return storageErr("save", s.path, err)
	}
	return nil
}

// UpdateLabel sets the fraud label of one row and saves the table.
// It returns false when index is out of range.
func (s *RecordStore) UpdateLabel(index int, label string) (bool, error) {
	records, schema, err := s.Load()
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(records) {
		return false, nil
	}

	records[index].FraudLabel = label
	if err := s.Save(records, schema); err != nil {
		return false, err
	}
	return true, nil
}

// Query selects honorees by identity. Year 0 and empty Company match anything.
type Query struct {
	Name    string
	Year    int
	Company string
}

// Match is the first row satisfying a Query
type Match struct {
	Index      int
	Record     model.HonoreeRecord
	Duplicates int // Other rows satisfying the same query
}

// Find returns the first row whose name equals q.Name (case-insensitive),
// whose year equals q.Year when set, and whose company contains q.Company
// (case-insensitive) when set. It returns nil when nothing matches.
func (s *RecordStore) Find(q Query) (*Match, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	var match *Match
	company := strings.ToLower(strings.TrimSpace(q.Company))
	for _, i := range snap.byName[normalizeName(q.Name)] {
		rec := snap.records[i]
		if q.Year != 0 && rec.Year != q.Year {
			continue
		}
		if company != "" && !strings.Contains(strings.ToLower(rec.Company), company) {
			continue
		}
		if match == nil {
			match = &Match{Index: i, Record: cloneRecord(rec)}
			continue
		}
		match.Duplicates++
	}
	return match, nil
}

func (s *RecordStore) snapshot() (*snapshot, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, storageErr("load", s.path, err)
	}

	key := cache.CacheKey(s.path)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			snap := v.(*snapshot)
			if snap.modTime.Equal(info.ModTime()) && snap.size == info.Size() {
				return snap, nil
			}
		}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, storageErr("load", s.path, err)
	}
	defer func() { _ = f.Close() }()

	records, schema, err := ReadCSV(f)
	if err != nil {
		return nil, storageErr("load", s.path, err)
	}

	snap := &snapshot{
		modTime: info.ModTime(),
		size:    info.Size(),
		records: records,
		schema:  schema,
		byName:  make(map[string][]int, len(records)),
	}
	for i, rec := range records {
		name := normalizeName(rec.Name)
		snap.byName[name] = append(snap.byName[name], i)
	}

	if s.cache != nil {
		s.cache.Set(key, snap, 0)
	}
	return snap, nil
}

func (s *RecordStore) invalidate() {
	if s.cache != nil {
		s.cache.Delete(cache.CacheKey(s.path))
	}
}

// ReadCSV parses an honoree table. Header names are trimmed and lowercased,
// and the header must contain the year, name and company columns.
func ReadCSV(r io.Reader) ([]model.HonoreeRecord, []string, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("empty file: no header")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	schema := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		schema[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, col := range requiredColumns {
		if !slices.Contains(schema, col) {
			return nil, nil, fmt.Errorf("header missing required column %q", col)
		}
	}

	var records []model.HonoreeRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}

		var rec model.HonoreeRecord
		for i, value := range row {
			rec.SetField(schema[i], value)
		}
		records = append(records, rec)
	}

	if !slices.Contains(schema, model.ColFraud) {
		schema = append(schema, model.ColFraud)
	}
	return records, schema, nil
}

// WriteCSV writes records as a CSV table with the given column order
func WriteCSV(w io.Writer, records []model.HonoreeRecord, schema []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(schema))
	for i, rec := range records {
		for j, col := range schema {
			row[j] = rec.Field(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cloneRecord(r model.HonoreeRecord) model.HonoreeRecord {
	if r.Age != nil {
		age := *r.Age
		r.Age = &age
	}
	r.Extra = maps.Clone(r.Extra)
	return r
}

func cloneRecords(records []model.HonoreeRecord) []model.HonoreeRecord {
	out := make([]model.HonoreeRecord, len(records))
	for i, r := range records {
		out[i] = cloneRecord(r)
	}
	return out
}
