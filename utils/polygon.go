package utils

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Working areas are stored as JSON-encoded coordinate arrays. After parsing
// they are normalized to a multi-polygon: an ordered list of polygons, each
// an ordered list of rings, each ring an ordered list of [longitude,
// latitude] pairs of length >= 3. Only the outer ring (index 0) of each
// polygon participates in containment; holes are ignored.

type Point [2]float64 // [longitude, latitude]

type Ring []Point

type Polygon []Ring

type MultiPolygon []Polygon

var errEmptyWorkingArea = errors.New("working area is empty")

// ParseWorkingArea decodes a working-area payload. Input may be a single
// polygon ([][ring]) or a multi-polygon ([polygon...]); the single-polygon
// shape is auto-wrapped. Any structural violation is a parse failure.
func ParseWorkingArea(raw string) (MultiPolygon, error) {
	if raw == "" {
		return nil, errEmptyWorkingArea
	}

	var nested interface{}
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		return nil, fmt.Errorf("working area is not valid JSON: %w", err)
	}

	depth := arrayDepth(nested)
	switch depth {
	case 3: // [ring, ring, ...] -> single polygon, wrap
		poly, err := decodePolygon(nested)
		if err != nil {
			return nil, err
		}
		return MultiPolygon{poly}, nil
	case 4: // [polygon, polygon, ...]
		outer, ok := nested.([]interface{})
		if !ok || len(outer) == 0 {
			return nil, errors.New("working area multi-polygon is empty")
		}
		multi := make(MultiPolygon, 0, len(outer))
		for _, p := range outer {
			poly, err := decodePolygon(p)
			if err != nil {
				return nil, err
			}
			multi = append(multi, poly)
		}
		return multi, nil
	default:
		return nil, fmt.Errorf("working area has unexpected nesting depth %d", depth)
	}
}

// arrayDepth walks the first element of each level to determine nesting.
// Coordinates terminate the walk at the first non-array element.
func arrayDepth(v interface{}) int {
	depth := 0
	for {
		arr, ok := v.([]interface{})
		if !ok {
			return depth
		}
		depth++
		if len(arr) == 0 {
			return depth
		}
		v = arr[0]
	}
}

func decodePolygon(v interface{}) (Polygon, error) {
	rings, ok := v.([]interface{})
	if !ok || len(rings) == 0 {
		return nil, errors.New("polygon has no rings")
	}

	poly := make(Polygon, 0, len(rings))
	for _, r := range rings {
		ring, err := decodeRing(r)
		if err != nil {
			return nil, err
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

func decodeRing(v interface{}) (Ring, error) {
	points, ok := v.([]interface{})
	if !ok {
		return nil, errors.New("ring is not an array")
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("ring has %d points, need at least 3", len(points))
	}

	ring := make(Ring, 0, len(points))
	for _, p := range points {
		pair, ok := p.([]interface{})
		if !ok {
			return nil, errors.New("coordinate is not an array")
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("coordinate has %d components, need 2", len(pair))
		}
		lon, okLon := pair[0].(float64)
		lat, okLat := pair[1].(float64)
		if !okLon || !okLat {
			return nil, errors.New("coordinate component is not a number")
		}
		ring = append(ring, Point{lon, lat})
	}
	return ring, nil
}

// IsPointInRing checks containment with the standard ray-casting algorithm.
// Edges are half-open; on-edge behavior is implementation-defined.
func IsPointInRing(lon, lat float64, ring Ring) bool {
	if len(ring) < 3 {
		return false
	}

	x, y := lon, lat
	inside := false

	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// Contains reports whether the point lies inside the outer ring of any
// polygon. Stops at the first match.
func (mp MultiPolygon) Contains(lon, lat float64) bool {
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		if IsPointInRing(lon, lat, poly[0]) {
			return true
		}
	}
	return false
}
