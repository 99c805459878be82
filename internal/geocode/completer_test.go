package geocode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitydata/crimepipe/internal/common"
	"github.com/opencitydata/crimepipe/internal/model"
	"github.com/opencitydata/crimepipe/internal/spatial"
)

// mapService resolves queries from a fixed table; unknown queries miss.
type mapService struct {
	results map[string]model.GeocodeResult
	calls   int
	batches [][]string
}

func (s *mapService) GeocodeBatch(_ context.Context, queries []string) ([]model.GeocodeResult, error) {
	s.calls++
	s.batches = append(s.batches, queries)
	out := make([]model.GeocodeResult, len(queries))
	for i, q := range queries {
		if res, ok := s.results[q]; ok {
			out[i] = res
		}
	}
	return out, nil
}

// failingService simulates an unreachable geocoder.
type failingService struct{}

func (failingService) GeocodeBatch(context.Context, []string) ([]model.GeocodeResult, error) {
	return nil, common.ErrGeocodeUnavailable
}

// memCache is an in-memory Cache for tests.
type memCache struct {
	entries map[string]model.GeocodeResult
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]model.GeocodeResult)}
}

func (c *memCache) Get(_ context.Context, query string) (model.GeocodeResult, bool, error) {
	res, ok := c.entries[query]
	if ok {
		c.hits++
	}
	return res, ok, nil
}

func (c *memCache) Put(_ context.Context, query string, result model.GeocodeResult) error {
	c.entries[query] = result
	return nil
}

func resolvedResult(lon, lat float64) model.GeocodeResult {
	return model.GeocodeResult{
		X:        &lon,
		Y:        &lat,
		Score:    95.0,
		Tier:     model.TierFull,
		Address:  "resolved",
		Resolved: true,
	}
}

func withCoords(complaint string) model.Incident {
	x, y := spatial.WGS84ToStatePlane(38.63, -90.2)
	return model.Incident{Complaint: complaint, X: &x, Y: &y}
}

func missingCoords(complaint, addr, street string) model.Incident {
	return model.Incident{Complaint: complaint, AddressNum: addr, Street: street}
}

func TestCompleter_RowCountConservedAcrossBranches(t *testing.T) {
	// 1000 records: 950 with coordinates, 50 without, 40 of the 50 resolve.
	table := model.YearTable{Year: 2017}
	service := &mapService{results: make(map[string]model.GeocodeResult)}

	for i := 0; i < 950; i++ {
		table.Records = append(table.Records, withCoords(fmt.Sprintf("17-1%04d", i)))
	}
	for i := 0; i < 50; i++ {
		rec := missingCoords(fmt.Sprintf("17-2%04d", i), fmt.Sprintf("%d", 100+i), "TEST ST")
		table.Records = append(table.Records, rec)
		if i < 40 {
			service.results[BuildQuery(rec)] = resolvedResult(-90.21, 38.61)
		}
	}

	completer := NewCompleter(service, nil)
	out, stats, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 1000, out.Len())
	assert.Equal(t, 1000, stats.Total)
	assert.Equal(t, 50, stats.MissingBefore)
	assert.Equal(t, 10, stats.MissingAfter)

	nullCoords := 0
	for _, rec := range out.Records {
		if !rec.HasCoordinates() {
			nullCoords++
		}
	}
	assert.Equal(t, 10, nullCoords)

	// One batch call per year, never per record.
	assert.Equal(t, 1, service.calls)
}

func TestCompleter_ReprojectsExistingCoordinates(t *testing.T) {
	table := model.YearTable{Year: 2018, Records: []model.Incident{withCoords("18-000001")}}

	completer := NewCompleter(&mapService{}, nil)
	out, _, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	rec := out.Records[0]
	require.True(t, rec.HasCoordinates())
	assert.InDelta(t, -90.2, *rec.X, 1e-6)
	assert.InDelta(t, 38.63, *rec.Y, 1e-6)
}

func TestCompleter_GeocodeMissKeepsNilCoordinates(t *testing.T) {
	table := model.YearTable{Year: 2018, Records: []model.Incident{
		missingCoords("18-000001", "999", "UNKNOWN RD"),
	}}

	completer := NewCompleter(&mapService{results: map[string]model.GeocodeResult{}}, nil)
	out, stats, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.False(t, out.Records[0].HasCoordinates())
	assert.Equal(t, 1, stats.MissingAfter)
}

func TestCompleter_GeocodedRecordCarriesMatchFields(t *testing.T) {
	rec := missingCoords("18-000001", "1200", "MARKET ST")
	service := &mapService{results: map[string]model.GeocodeResult{
		"1200 MARKET ST": {
			X: floatPtr(-90.21), Y: floatPtr(38.63),
			Score: 97.4, Tier: model.TierFull, Address: "1200 MARKET ST, 63103",
			Resolved: true,
		},
	}}

	completer := NewCompleter(service, nil)
	out, _, err := completer.Complete(context.Background(), model.YearTable{Year: 2018, Records: []model.Incident{rec}})
	require.NoError(t, err)

	got := out.Records[0]
	require.True(t, got.HasCoordinates())
	assert.Equal(t, model.TierFull, got.GeocodeTier)
	assert.Equal(t, "1200 MARKET ST, 63103", got.GeocodeAddr)
	require.NotNil(t, got.GeocodeScore)
	assert.InDelta(t, 97.4, *got.GeocodeScore, 0.001)
}

func TestCompleter_BlankAddressSkipsService(t *testing.T) {
	table := model.YearTable{Year: 2018, Records: []model.Incident{
		missingCoords("18-000001", "", ""),
	}}

	service := &mapService{}
	completer := NewCompleter(service, nil)
	out, stats, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 1, stats.MissingAfter)
	assert.Zero(t, service.calls)
}

func TestCompleter_CacheShortCircuitsService(t *testing.T) {
	rec := missingCoords("18-000001", "1200", "MARKET ST")
	cache := newMemCache()
	service := &mapService{results: map[string]model.GeocodeResult{
		"1200 MARKET ST": resolvedResult(-90.21, 38.63),
	}}

	completer := NewCompleter(service, cache)
	table := model.YearTable{Year: 2018, Records: []model.Incident{rec}}

	// First run hits the service and populates the cache.
	_, _, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 1, service.calls)

	// Second run is served entirely from cache.
	out, stats, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 1, service.calls)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 0, stats.MissingAfter)
	assert.True(t, out.Records[0].HasCoordinates())
}

func TestCompleter_ServiceFailureIsFatal(t *testing.T) {
	table := model.YearTable{Year: 2018, Records: []model.Incident{
		missingCoords("18-000001", "1200", "MARKET ST"),
	}}

	completer := NewCompleter(failingService{}, nil)
	_, _, err := completer.Complete(context.Background(), table)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrGeocodeUnavailable)

	var stageErr *common.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, 2018, stageErr.Year)
}

func TestCompleter_IdenticalSchemaOnBothPaths(t *testing.T) {
	table := model.YearTable{Year: 2018, Records: []model.Incident{
		withCoords("18-000001"),
		missingCoords("18-000002", "1200", "MARKET ST"),
	}}
	service := &mapService{results: map[string]model.GeocodeResult{
		"1200 MARKET ST": resolvedResult(-90.21, 38.63),
	}}

	completer := NewCompleter(service, nil)
	out, _, err := completer.Complete(context.Background(), table)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	// Both paths produce WGS-84 lon/lat in the same fields.
	for _, rec := range out.Records {
		require.True(t, rec.HasCoordinates())
		assert.InDelta(t, -90.2, *rec.X, 0.1)
		assert.InDelta(t, 38.6, *rec.Y, 0.1)
	}
}
