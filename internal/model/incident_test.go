package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncident_ParseOccurredAt(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     time.Time
		wantErr  bool
		wantYear int
	}{
		{
			name:     "standard timestamp",
			raw:      "03/15/2017 22:40",
			want:     time.Date(2017, 3, 15, 22, 40, 0, 0, time.UTC),
			wantYear: 2017,
		},
		{
			name:     "blank keeps zero time",
			raw:      "",
			want:     time.Time{},
			wantYear: 0,
		},
		{
			name:    "malformed timestamp",
			raw:     "2017-03-15",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Incident{DateOccur: tt.raw}
			err := rec.ParseOccurredAt()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.OccurredAt)
			assert.Equal(t, tt.wantYear, rec.OccurrenceYear())
		})
	}
}

func TestIncident_CategoryOf(t *testing.T) {
	tests := []struct {
		name string
		code string
		want Category
	}{
		{name: "homicide", code: "10000", want: CategoryPart1},
		{name: "robbery", code: "31111", want: CategoryPart1},
		{name: "arson", code: "89999", want: CategoryPart1},
		{name: "drug offense", code: "182220", want: CategoryOther},
		{name: "below part 1 block", code: "9999", want: CategoryOther},
		{name: "unparsable code", code: "N/A", want: CategoryOther},
		{name: "padded whitespace", code: " 41011 ", want: CategoryPart1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Incident{CrimeCode: tt.code}
			assert.Equal(t, tt.want, rec.CategoryOf())
		})
	}
}

func TestIncident_OffenseGroup(t *testing.T) {
	rec := Incident{CrimeCode: "31111"}
	assert.Equal(t, "Robbery", rec.OffenseGroup())

	rec = Incident{CrimeCode: "182220"}
	assert.Empty(t, rec.OffenseGroup())
}

func TestIncident_HasCoordinates(t *testing.T) {
	x, y := -90.2, 38.6

	assert.False(t, (&Incident{}).HasCoordinates())
	assert.False(t, (&Incident{X: &x}).HasCoordinates())
	assert.True(t, (&Incident{X: &x, Y: &y}).HasCoordinates())
}
