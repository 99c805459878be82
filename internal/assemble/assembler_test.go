package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitydata/crimepipe/internal/model"
	"github.com/opencitydata/crimepipe/internal/schema"
)

// row builds a canonical 20-cell release row.
func row(complaint, codedMonth, dateOccur, count, crime, description, addr, street, x, y string) []string {
	r := make([]string, len(schema.CanonicalColumns))
	r[0] = complaint
	r[1] = codedMonth
	r[2] = dateOccur
	r[6] = count
	r[8] = crime
	r[10] = description
	r[11] = addr
	r[12] = street
	r[18] = x
	r[19] = y
	return r
}

func release(year, month int, rows ...[]string) model.MonthlyRelease {
	return model.MonthlyRelease{
		Year:   year,
		Month:  month,
		Header: append([]string(nil), schema.CanonicalColumns...),
		Rows:   rows,
	}
}

func TestAssemble_LateReportedCrimeAttributedToOccurrenceYear(t *testing.T) {
	// Occurred December 2017, reported in the January 2018 release.
	late := row("18-000001", "2018-01", "12/28/2017 23:10", "1", "31111", "ROBBERY", "1200", "MARKET ST", "", "")
	// Occurred and reported in 2018.
	current := row("18-000002", "2018-01", "01/03/2018 08:15", "1", "41011", "AGG ASSAULT", "3400", "OLIVE ST", "", "")

	set2017 := model.ReleaseSet{Year: 2017, Releases: []model.MonthlyRelease{
		release(2017, 12, row("17-009999", "2017-12", "12/01/2017 10:00", "1", "51111", "BURGLARY", "800", "PINE ST", "", "")),
	}}
	set2018 := model.ReleaseSet{Year: 2018, Releases: []model.MonthlyRelease{
		release(2018, 1, late, current),
	}}

	table2017 := Assemble(set2017, set2018)
	table2018 := Assemble(set2018)

	complaints := func(table model.YearTable) []string {
		var out []string
		for _, rec := range table.Records {
			out = append(out, rec.Complaint)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"17-009999", "18-000001"}, complaints(table2017))
	assert.ElementsMatch(t, []string{"18-000002"}, complaints(table2018))
}

func TestAssemble_DropsZeroCountAndNonPart1(t *testing.T) {
	set := model.ReleaseSet{Year: 2017, Releases: []model.MonthlyRelease{
		release(2017, 6,
			row("17-000001", "2017-06", "06/01/2017 12:00", "1", "31111", "ROBBERY", "100", "MAIN ST", "", ""),
			row("17-000002", "2017-06", "06/02/2017 12:00", "0", "31111", "ROBBERY", "100", "MAIN ST", "", ""),
			row("17-000003", "2017-06", "06/03/2017 12:00", "1", "182220", "DRUG POSSESSION", "100", "MAIN ST", "", ""),
			row("17-000004", "2017-06", "06/04/2017 12:00", "-1", "61112", "LARCENY", "100", "MAIN ST", "", ""),
		),
	}}

	table := Assemble(set)

	require.Equal(t, 2, table.Len())
	for _, rec := range table.Records {
		assert.Equal(t, model.CategoryPart1, rec.CategoryOf())
		assert.NotZero(t, rec.Count)
	}
}

func TestAssemble_ParsesCoordinatesAndZeroMeansMissing(t *testing.T) {
	set := model.ReleaseSet{Year: 2017, Releases: []model.MonthlyRelease{
		release(2017, 1,
			row("17-000001", "2017-01", "01/01/2017 01:00", "1", "31111", "ROBBERY", "100", "MAIN ST", "890123.5", "1021456.2"),
			row("17-000002", "2017-01", "01/02/2017 01:00", "1", "31111", "ROBBERY", "0", "OAK AVE", "0", "0"),
			row("17-000003", "2017-01", "01/03/2017 01:00", "1", "31111", "ROBBERY", "200", "ELM ST", "", ""),
		),
	}}

	table := Assemble(set)
	require.Equal(t, 3, table.Len())

	withXY := table.Records[0]
	require.True(t, withXY.HasCoordinates())
	assert.InDelta(t, 890123.5, *withXY.X, 0.001)
	assert.InDelta(t, 1021456.2, *withXY.Y, 0.001)

	assert.False(t, table.Records[1].HasCoordinates())
	assert.False(t, table.Records[2].HasCoordinates())
}

func TestAssemble_SkipsUnparseableOccurrenceDates(t *testing.T) {
	set := model.ReleaseSet{Year: 2017, Releases: []model.MonthlyRelease{
		release(2017, 1,
			row("17-000001", "2017-01", "not a date", "1", "31111", "ROBBERY", "100", "MAIN ST", "", ""),
			row("17-000002", "2017-01", "01/02/2017 01:00", "1", "31111", "ROBBERY", "100", "MAIN ST", "", ""),
		),
	}}

	table := Assemble(set)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "17-000002", table.Records[0].Complaint)
}

func TestAssemble_DeterministicForIdenticalInputs(t *testing.T) {
	set := model.ReleaseSet{Year: 2017, Releases: []model.MonthlyRelease{
		release(2017, 2,
			row("17-000010", "2017-02", "02/01/2017 09:00", "1", "61112", "LARCENY", "300", "CHESTNUT ST", "", ""),
			row("17-000011", "2017-02", "02/01/2017 09:30", "1", "71121", "VEHICLE THEFT", "400", "SPRUCE ST", "", ""),
		),
	}}

	first := Assemble(set)
	second := Assemble(set)
	assert.Equal(t, first, second)
}
