package spatial

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/opencitydata/crimepipe/internal/common"
	"github.com/opencitydata/crimepipe/internal/model"
)

// Joiner attaches neighborhood and region labels to incident points. The
// two layers are looked up independently: a point keeps whichever labels
// it matched, and counts as not-joined only when it matched neither.
type Joiner struct {
	neighborhoods *Layer
	regions       *Layer
	nhdField      string
	regionField   string
}

// JoinStats summarizes one join pass for the metrics collector.
type JoinStats struct {
	WithCoords int
	NotJoined  int
}

// NewJoiner creates a joiner over the two polygon layers. nhdField and
// regionField name the attribute columns carrying the neighborhood number
// and region name.
func NewJoiner(neighborhoods, regions *Layer, nhdField, regionField string) *Joiner {
	return &Joiner{
		neighborhoods: neighborhoods,
		regions:       regions,
		nhdField:      nhdField,
		regionField:   regionField,
	}
}

// joinLabels is the containment outcome for one coordinate-bearing record.
type joinLabels struct {
	neighborhood *int
	region       *string
}

// Join labels every coordinate-bearing record in the table and returns the
// full table sorted ascending by occurrence timestamp. Every input record
// appears exactly once in the output, labeled or not; a count mismatch is
// a logic defect and fails the year.
func (j *Joiner) Join(table model.YearTable) (model.YearTable, JoinStats, error) {
	// Stable per-record identifiers; complaint numbers can repeat across
	// months, so they cannot key the reconciliation.
	ids := make([]uuid.UUID, table.Len())
	for i := range table.Records {
		ids[i] = uuid.New()
	}

	stats := JoinStats{}
	joined := make(map[uuid.UUID]joinLabels)

	for i := range table.Records {
		rec := &table.Records[i]
		if !rec.HasCoordinates() {
			continue
		}
		stats.WithCoords++

		x, y := WGS84ToStatePlane(*rec.Y, *rec.X)
		labels := joinLabels{}

		if attrs, ok := j.neighborhoods.Find(x, y); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(attrs[j.nhdField])); err == nil {
				labels.neighborhood = &n
			}
		}
		if attrs, ok := j.regions.Find(x, y); ok {
			if name := strings.TrimSpace(attrs[j.regionField]); name != "" {
				labels.region = &name
			}
		}

		if labels.neighborhood == nil && labels.region == nil {
			stats.NotJoined++
			continue
		}
		joined[ids[i]] = labels
	}

	// Reunite: records absent from the joined set pass through unlabeled.
	out := model.YearTable{Year: table.Year}
	out.Records = make([]model.Incident, 0, table.Len())
	for i, rec := range table.Records {
		if labels, ok := joined[ids[i]]; ok {
			rec.Neighborhood = labels.neighborhood
			rec.Region = labels.region
		}
		out.Records = append(out.Records, rec)
	}

	if out.Len() != table.Len() {
		return model.YearTable{}, JoinStats{}, common.CountMismatch("spatial join", table.Year, table.Len(), out.Len())
	}

	sort.SliceStable(out.Records, func(a, b int) bool {
		return out.Records[a].OccurredAt.Before(out.Records[b].OccurredAt)
	})

	slog.Info("Spatial join complete",
		"year", table.Year,
		"records", out.Len(),
		"with_coords", stats.WithCoords,
		"not_joined", stats.NotJoined)

	return out, stats, nil
}
