package model

import (
	"strconv"
	"strings"
)

// LabelNone marks a row that was checked and has no known controversy
const LabelNone = "N/A"

// Canonical column names of the honoree table
const (
	ColYear        = "year"
	ColName        = "name"
	ColAge         = "age"
	ColTitle       = "title"
	ColCompany     = "company"
	ColCategory    = "category"
	ColDescription = "description"
	ColFraud       = "fraud"
)

// DefaultSchema is the column order used when a table is written without an explicit schema
var DefaultSchema = []string{
	ColYear, ColName, ColAge, ColTitle, ColCompany, ColCategory, ColDescription, ColFraud,
}

// PreferredOrder is the leading column order of a merged table
var PreferredOrder = []string{
	ColYear, ColName, ColAge, ColTitle, ColCompany, ColCategory, ColDescription,
}

// HonoreeRecord is one person on a yearly honoree list
type HonoreeRecord struct {
	Year        int               `json:"year"`
	Name        string            `json:"name"`
	Age         *int              `json:"age,omitempty"`
	Title       string            `json:"title"`
	Company     string            `json:"company"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	FraudLabel  string            `json:"fraud"`
	Extra       map[string]string `json:"extra,omitempty"` // Columns outside the canonical set
}

// IsLabeled reports whether the row already reached a terminal label
func (r HonoreeRecord) IsLabeled() bool {
	return strings.TrimSpace(r.FraudLabel) != ""
}

// IsFlagged reports whether the row carries a controversy description
func (r HonoreeRecord) IsFlagged() bool {
	return r.IsLabeled() && r.FraudLabel != LabelNone
}

// Identifier is the human-readable handle used in prompts
func (r HonoreeRecord) Identifier() string {
	if strings.TrimSpace(r.Company) == "" {
		return r.Name
	}
	return r.Name + " from " + r.Company
}

// Field returns the string value of a column
func (r HonoreeRecord) Field(col string) string {
	switch col {
	case ColYear:
		if r.Year == 0 {
			return r.Extra[col]
		}
		return strconv.Itoa(r.Year)
	case ColName:
		return r.Name
	case ColAge:
		if r.Age == nil {
			return r.Extra[col]
		}
		return strconv.Itoa(*r.Age)
	case ColTitle:
		return r.Title
	case ColCompany:
		return r.Company
	case ColCategory:
		return r.Category
	case ColDescription:
		return r.Description
	case ColFraud:
		return r.FraudLabel
	default:
		return r.Extra[col]
	}
}

// SetField assigns a column from its string form. Unparseable year or age
// values are kept in Extra under the column name so nothing is lost on rewrite.
func (r *HonoreeRecord) SetField(col, value string) {
	switch col {
	case ColYear:
		if value == "" {
			r.Year = 0
			return
		}
		if y, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			r.Year = y
			return
		}
		r.setExtra(col, value)
	case ColName:
		r.Name = value
	case ColAge:
		if strings.TrimSpace(value) == "" {
			r.Age = nil
			return
		}
		if a, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			r.Age = &a
			return
		}
		r.setExtra(col, value)
	case ColTitle:
		r.Title = value
	case ColCompany:
		r.Company = value
	case ColCategory:
		r.Category = value
	case ColDescription:
		r.Description = value
	case ColFraud:
		r.FraudLabel = value
	default:
		r.setExtra(col, value)
	}
}

func (r *HonoreeRecord) setExtra(col, value string) {
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[col] = value
}
