package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/honorscan/internal/model"
)

func TestCSVToJSON(t *testing.T) {
	input := " year ,name,fraud\r\n2019, Charlie Javice ,\"Convicted\r\n\"\r\n2021,Jane Doe,N/A\r\n"

	var out bytes.Buffer
	n, err := CSVToJSON(strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, strings.HasPrefix(out.String(), `[{"year":"2019","name":"Charlie Javice","fraud":"Convicted"}`),
		"keys must keep header order: %s", out.String())

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "N/A", decoded[1]["fraud"])
}

func TestCSVToJSON_BareQuotes(t *testing.T) {
	input := "name,description\nJane Doe,She is 5'11\" tall\n"

	var out bytes.Buffer
	n, err := CSVToJSON(strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.JSONEq(t, `[{"name":"Jane Doe","description":"She is 5'11\" tall"}]`, out.String())
}

func TestCSVToJSON_Empty(t *testing.T) {
	var out bytes.Buffer
	n, err := CSVToJSON(strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "[]", strings.TrimSpace(out.String()))

	out.Reset()
	_, err = CSVToJSON(strings.NewReader("name,company\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out.String()))
}

func TestWriteSQLite(t *testing.T) {
	age := 27
	records := []model.HonoreeRecord{
		{Year: 2019, Name: "Charlie Javice", Age: &age, Company: "Frank", FraudLabel: "Convicted of fraud"},
		{Year: 2021, Name: "Jane Doe", Company: "Acme", FraudLabel: model.LabelNone, Extra: map[string]string{"twitter": "@jd"}},
		{Year: 2022, Name: "Unlabeled Person", Company: "Beta"},
	}
	log := &model.ResultLog{
		FraudCases: []model.FraudCase{{
			RunID: "run-1", Row: 0, Name: "Charlie Javice", Year: 2019, Company: "Frank",
			FraudDescription: "Convicted of fraud", Source: "gemini-3-flash-preview",
			Confidence: "high", Indicators: []string{"convicted"}, Timestamp: time.Now(),
			Citations: []model.SourceRef{{URL: "https://www.justice.gov/opa/pr/x", Tier: model.TierPrimary}},
		}},
		UncertainCases: []model.UncertainCase{{
			RunID: "run-1", Row: 1, Name: "Jane Doe", Year: 2021, Company: "Acme",
			Reason: "classifier unavailable", Timestamp: time.Now(),
		}},
	}

	path := filepath.Join(t.TempDir(), "honorees.db")
	require.NoError(t, WriteSQLite(context.Background(), path, records, log))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, sq.Select("COUNT(*)").From("honorees").RunWith(db).QueryRow().Scan(&count))
	assert.Equal(t, 3, count)

	var flagged []string
	rows, err := sq.Select("name").From("honorees").
		Where(sq.And{sq.NotEq{"fraud": ""}, sq.NotEq{"fraud": model.LabelNone}}).
		OrderBy("row_index").RunWith(db).Query()
	require.NoError(t, err)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		flagged = append(flagged, name)
	}
	require.NoError(t, rows.Err())
	_ = rows.Close()
	assert.Equal(t, []string{"Charlie Javice"}, flagged)

	var gotAge sql.NullInt64
	var extra sql.NullString
	require.NoError(t, sq.Select("age", "extra").From("honorees").Where(sq.Eq{"row_index": 1}).
		RunWith(db).QueryRow().Scan(&gotAge, &extra))
	assert.False(t, gotAge.Valid)
	assert.JSONEq(t, `{"twitter":"@jd"}`, extra.String)

	var indicators, citations string
	require.NoError(t, sq.Select("indicators", "citations").From("fraud_cases").RunWith(db).QueryRow().Scan(&indicators, &citations))
	assert.Equal(t, "convicted", indicators)
	assert.JSONEq(t, `[{"url":"https://www.justice.gov/opa/pr/x","tier":"primary"}]`, citations)

	var reason string
	require.NoError(t, sq.Select("reason").From("uncertain_cases").RunWith(db).QueryRow().Scan(&reason))
	assert.Equal(t, "classifier unavailable", reason)
}

func TestWriteSQLite_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "honorees.db")
	ctx := context.Background()

	require.NoError(t, WriteSQLite(ctx, path, []model.HonoreeRecord{{Name: "A"}, {Name: "B"}}, nil))
	require.NoError(t, WriteSQLite(ctx, path, []model.HonoreeRecord{{Name: "C"}}, nil))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM honorees").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWriteSQLite_ManyRows(t *testing.T) {
	records := make([]model.HonoreeRecord, insertBatch*2+7)
	for i := range records {
		records[i] = model.HonoreeRecord{Year: 2020, Name: "Person"}
	}

	path := filepath.Join(t.TempDir(), "many.db")
	require.NoError(t, WriteSQLite(context.Background(), path, records, &model.ResultLog{}))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM honorees").Scan(&count))
	assert.Equal(t, len(records), count)
}
