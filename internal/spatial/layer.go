// Package spatial loads polygon reference layers and attaches their
// attributes to incident points by geometric containment.
package spatial

import (
	"fmt"
	"math"

	shp "github.com/jonas-p/go-shp"

	"github.com/opencitydata/crimepipe/internal/common"
)

// Feature is one polygon (possibly multi-part) from a layer's shapefile
// together with its attribute table values. Ring coordinates are
// [x, y] state-plane feet.
type Feature struct {
	Attrs map[string]string
	Parts [][][2]float64
	MinX  float64
	MinY  float64
	MaxX  float64
	MaxY  float64
}

// Layer is an immutable polygon layer, loaded once per run and shared
// read-only across all years.
type Layer struct {
	Name     string
	features []Feature
}

// NewLayer builds a layer from in-memory features, computing any missing
// bounding boxes.
func NewLayer(name string, features []Feature) *Layer {
	for i := range features {
		f := &features[i]
		if f.MinX == 0 && f.MaxX == 0 && f.MinY == 0 && f.MaxY == 0 {
			f.MinX, f.MinY = math.MaxFloat64, math.MaxFloat64
			f.MaxX, f.MaxY = -math.MaxFloat64, -math.MaxFloat64
			for _, ring := range f.Parts {
				for _, pt := range ring {
					f.MinX = math.Min(f.MinX, pt[0])
					f.MaxX = math.Max(f.MaxX, pt[0])
					f.MinY = math.Min(f.MinY, pt[1])
					f.MaxY = math.Max(f.MaxY, pt[1])
				}
			}
		}
	}
	return &Layer{Name: name, features: features}
}

// LoadLayer reads the shapefile at path into an in-memory layer. The
// geometry must already be in the pipeline's projected coordinate system.
func LoadLayer(name, path string) (*Layer, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s layer %s: %v", common.ErrLayerUnavailable, name, path, err)
	}
	defer func() { _ = r.Close() }()

	fields := r.Fields()

	layer := &Layer{Name: name}
	for r.Next() {
		idx, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			// Skip non-polygon geometries (shouldn't exist in these layers)
			continue
		}

		numParts := len(poly.Parts)
		parts := make([][][2]float64, numParts)

		minX, minY := math.MaxFloat64, math.MaxFloat64
		maxX, maxY := -math.MaxFloat64, -math.MaxFloat64

		for partIdx := 0; partIdx < numParts; partIdx++ {
			start := poly.Parts[partIdx]
			end := int32(len(poly.Points))
			if partIdx+1 < numParts {
				end = poly.Parts[partIdx+1]
			}
			ring := make([][2]float64, int(end-start))
			j := 0
			for i := start; i < end; i++ {
				pt := poly.Points[i]
				ring[j] = [2]float64{pt.X, pt.Y}
				if pt.X < minX {
					minX = pt.X
				}
				if pt.X > maxX {
					maxX = pt.X
				}
				if pt.Y < minY {
					minY = pt.Y
				}
				if pt.Y > maxY {
					maxY = pt.Y
				}
				j++
			}
			parts[partIdx] = ring
		}

		attrs := make(map[string]string)
		for i, f := range fields {
			attrs[f.String()] = r.ReadAttribute(idx, i)
		}

		layer.features = append(layer.features, Feature{
			Parts: parts,
			Attrs: attrs,
			MinX:  minX,
			MinY:  minY,
			MaxX:  maxX,
			MaxY:  maxY,
		})
	}

	if len(layer.features) == 0 {
		return nil, fmt.Errorf("%w: %s layer %s contains no polygons", common.ErrLayerUnavailable, name, path)
	}

	return layer, nil
}

// Find returns the attribute map of the first polygon containing the given
// point. The second return value is false when the point falls outside
// every polygon in the layer.
func (l *Layer) Find(x, y float64) (map[string]string, bool) {
	for _, f := range l.features {
		if x < f.MinX || x > f.MaxX || y < f.MinY || y > f.MaxY {
			continue // quick bbox reject
		}
		for _, ring := range f.Parts {
			if pointInRing(x, y, ring) {
				return f.Attrs, true
			}
		}
	}
	return nil, false
}

// pointInRing implements the ray-casting algorithm for testing whether a
// point is inside a polygon ring. Shapefile rings are closed, so no
// explicit closing edge is needed.
func pointInRing(x, y float64, ring [][2]float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		intersect := ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi)
		if intersect {
			inside = !inside
		}
		j = i
	}
	return inside
}
