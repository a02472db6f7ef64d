package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/honorscan/internal/model"
)

// Table is an untyped honoree table: a column order plus rows keyed by column
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// ReadCSVTable parses a yearly CSV export with normalized headers and values
func ReadCSVTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true // hand-edited exports carry bare quotes in unquoted fields

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeHeader(h)
	}

	t := &Table{Columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}

		row := make(map[string]string, len(columns))
		for i, v := range rec {
			if i < len(columns) && columns[i] != "" {
				row[columns[i]] = NormalizeValue(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ParseHTMLTable extracts the first table on a page whose header row has a
// name column. Header cells come from th elements, or from the first row
// when the table has none.
func ParseHTMLTable(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var found *Table
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		rows := tbl.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		headerRow := rows.First()
		if th := tbl.Find("tr:has(th)").First(); th.Length() > 0 {
			headerRow = th
		}

		var columns []string
		headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			columns = append(columns, NormalizeHeader(cell.Text()))
		})
		if !slices.Contains(columns, model.ColName) {
			return true
		}

		t := &Table{Columns: columns}
		rows.Each(func(_ int, tr *goquery.Selection) {
			if tr.IsSelection(headerRow) {
				return
			}
			cells := tr.Find("td")
			if cells.Length() == 0 {
				return
			}
			row := make(map[string]string, len(columns))
			cells.Each(func(i int, cell *goquery.Selection) {
				if i < len(columns) && columns[i] != "" {
					row[columns[i]] = NormalizeValue(cell.Text())
				}
			})
			t.Rows = append(t.Rows, row)
		})

		found = t
		return false
	})

	if found == nil {
		return nil, errors.New("no table with a name column found")
	}
	return found, nil
}

// mergeTables concatenates tables in order, sets the year column of every
// row to its table's year, and orders columns with the preferred columns
// first followed by the rest sorted by name.
func mergeTables(tables []*Table, years []int) *Table {
	seen := make(map[string]bool)
	var rows []map[string]string

	for i, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			out := make(map[string]string, len(row)+1)
			for k, v := range row {
				out[k] = v
				seen[k] = true
			}
			if years[i] > 0 {
				out[model.ColYear] = strconv.Itoa(years[i])
				seen[model.ColYear] = true
			}
			rows = append(rows, out)
		}
	}

	var columns []string
	for _, col := range model.PreferredOrder {
		if seen[col] {
			columns = append(columns, col)
		}
	}
	var rest []string
	for col := range seen {
		if !slices.Contains(columns, col) {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	columns = append(columns, rest...)

	return &Table{Columns: columns, Rows: rows}
}

// Records converts rows to honoree records. Values outside the canonical
// columns are kept in Extra.
func (t *Table) Records() []model.HonoreeRecord {
	records := make([]model.HonoreeRecord, len(t.Rows))
	for i, row := range t.Rows {
		for _, col := range t.Columns {
			if v, ok := row[col]; ok {
				records[i].SetField(col, v)
			}
		}
	}
	return records
}

// WriteCSV writes the table with its column order; missing cells are empty
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, col := range t.Columns {
			line[j] = row[col]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (t *Table) String() string {
	return fmt.Sprintf("%d rows, columns [%s]", len(t.Rows), strings.Join(t.Columns, ", "))
}
