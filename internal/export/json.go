// Package export converts the enriched honoree table into other formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// row is a CSV row that marshals as a JSON object in header order
type row struct {
	keys   []string
	values []string
}

func (r row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func clean(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\r", "")
}

// CSVToJSON writes every CSV row as a JSON object keyed by the trimmed
// header. Values are trimmed and carriage returns removed. It returns the
// number of rows written.
func CSVToJSON(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true // hand-edited exports carry bare quotes in unquoted fields

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		_, err = io.WriteString(w, "[]")
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		values := make([]string, len(keys))
		for i := range keys {
			if i < len(rec) {
				values[i] = clean(rec[i])
			}
		}
		rows = append(rows, row{keys: keys, values: values})
	}

	if rows == nil {
		rows = []row{}
	}
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		return 0, fmt.Errorf("encode json: %w", err)
	}
	return len(rows), nil
}
