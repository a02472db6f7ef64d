package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/honorscan/internal/model"
)

const sqliteSchema = `
CREATE TABLE honorees (
	row_index INTEGER PRIMARY KEY,
	year INTEGER,
	name TEXT NOT NULL,
	age INTEGER,
	title TEXT,
	company TEXT,
	category TEXT,
	description TEXT,
	fraud TEXT,
	extra TEXT
);
CREATE INDEX idx_honorees_name ON honorees(name);
CREATE TABLE fraud_cases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	row_index INTEGER,
	name TEXT NOT NULL,
	year INTEGER,
	company TEXT,
	fraud_description TEXT NOT NULL,
	source TEXT,
	query_used TEXT,
	confidence TEXT,
	indicators TEXT,
	citations TEXT,
	timestamp DATETIME
);
CREATE TABLE uncertain_cases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	row_index INTEGER,
	name TEXT NOT NULL,
	year INTEGER,
	company TEXT,
	reason TEXT NOT NULL,
	timestamp DATETIME
);
`

// insertBatch keeps multi-row inserts under the SQLite variable limit
const insertBatch = 200

// WriteSQLite writes the honoree table and the result log to a new SQLite
// database at path, replacing any existing file. log may be nil.
func WriteSQLite(ctx context.Context, path string, records []model.HonoreeRecord, log *model.ResultLog) (err error) {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close sqlite: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := insertHonorees(ctx, tx, records); err != nil {
		return err
	}
	if log != nil {
		if err := insertFraudCases(ctx, tx, log.FraudCases); err != nil {
			return err
		}
		if err := insertUncertainCases(ctx, tx, log.UncertainCases); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename sqlite: %w", err)
	}
	return nil
}

func insertHonorees(ctx context.Context, tx *sql.Tx, records []model.HonoreeRecord) error {
	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))

		q := sq.Insert("honorees").Columns(
			"row_index", "year", "name", "age", "title", "company",
			"category", "description", "fraud", "extra",
		)
		for i := start; i < end; i++ {
			r := records[i]
			extra, err := encodeJSON(r.Extra, len(r.Extra) == 0)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			q = q.Values(i, nullInt(r.Year), r.Name, r.Age, r.Title, r.Company,
				r.Category, r.Description, r.FraudLabel, extra)
		}

		if err := exec(ctx, tx, q); err != nil {
			return fmt.Errorf("insert honorees: %w", err)
		}
	}
	return nil
}

func insertFraudCases(ctx context.Context, tx *sql.Tx, cases []model.FraudCase) error {
	for _, c := range cases {
		citations, err := encodeJSON(c.Citations, len(c.Citations) == 0)
		if err != nil {
			return fmt.Errorf("encode citations of row %d: %w", c.Row, err)
		}
		q := sq.Insert("fraud_cases").
			Columns("run_id", "row_index", "name", "year", "company", "fraud_description",
				"source", "query_used", "confidence", "indicators", "citations", "timestamp").
			Values(c.RunID, c.Row, c.Name, nullInt(c.Year), c.Company, c.FraudDescription,
				c.Source, c.QueryUsed, c.Confidence, strings.Join(c.Indicators, ","), citations, c.Timestamp.UTC())
		if err := exec(ctx, tx, q); err != nil {
			return fmt.Errorf("insert fraud case: %w", err)
		}
	}
	return nil
}

func insertUncertainCases(ctx context.Context, tx *sql.Tx, cases []model.UncertainCase) error {
	for _, c := range cases {
		q := sq.Insert("uncertain_cases").
			Columns("run_id", "row_index", "name", "year", "company", "reason", "timestamp").
			Values(c.RunID, c.Row, c.Name, nullInt(c.Year), c.Company, c.Reason, c.Timestamp.UTC())
		if err := exec(ctx, tx, q); err != nil {
			return fmt.Errorf("insert uncertain case: %w", err)
		}
	}
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, q sq.InsertBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

// encodeJSON stores v as a JSON column, or NULL when empty is set
func encodeJSON(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
