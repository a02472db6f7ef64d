package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHonoreeRecord_Identifier(t *testing.T) {
	assert.Equal(t, "Jane Doe from Acme", HonoreeRecord{Name: "Jane Doe", Company: "Acme"}.Identifier())
	assert.Equal(t, "Jane Doe", HonoreeRecord{Name: "Jane Doe"}.Identifier())
	assert.Equal(t, "Jane Doe", HonoreeRecord{Name: "Jane Doe", Company: "  "}.Identifier())
}

func TestHonoreeRecord_Labels(t *testing.T) {
	var r HonoreeRecord
	assert.False(t, r.IsLabeled())
	assert.False(t, r.IsFlagged())

	r.FraudLabel = LabelNone
	assert.True(t, r.IsLabeled())
	assert.False(t, r.IsFlagged())

	r.FraudLabel = "Sued by SEC in 2021"
	assert.True(t, r.IsFlagged())
}

func TestHonoreeRecord_FieldRoundTrip(t *testing.T) {
	var r HonoreeRecord
	r.SetField(ColYear, "2019")
	r.SetField(ColAge, " 27 ")
	r.SetField(ColName, "Charlie Javice")
	r.SetField("twitter", "@cj")

	require.NotNil(t, r.Age)
	assert.Equal(t, 2019, r.Year)
	assert.Equal(t, 27, *r.Age)
	assert.Equal(t, "2019", r.Field(ColYear))
	assert.Equal(t, "27", r.Field(ColAge))
	assert.Equal(t, "@cj", r.Field("twitter"))
	assert.Equal(t, "", r.Field(ColFraud))
}

func TestHonoreeRecord_UnparseableAgeKept(t *testing.T) {
	var r HonoreeRecord
	r.SetField(ColAge, "late 20s")

	assert.Nil(t, r.Age)
	assert.Equal(t, "late 20s", r.Field(ColAge))
}
