package xsection

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ParsePaths extracts line strings from a GeoJSON FeatureCollection, Feature
// or bare Geometry. MultiLineStrings contribute each member line.
func ParsePaths(data []byte) ([]orb.LineString, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid feature: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("invalid geometry: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var paths []orb.LineString
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.LineString:
			paths = append(paths, v)
		case orb.MultiLineString:
			paths = append(paths, v...)
		case nil:
		default:
			return nil, fmt.Errorf("unsupported geometry %s, expected LineString", g.GeoJSONType())
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	return paths, nil
}

// ProfilesToFeatureCollection renders profiles as LineString features whose
// properties carry the sample distances and values.
func ProfilesToFeatureCollection(profiles []Profile) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range profiles {
		line := make(orb.LineString, len(p.Samples))
		for k, s := range p.Samples {
			line[k] = orb.Point{s.X, s.Y}
		}

		f := geojson.NewFeature(line)
		f.Properties["index"] = i
		f.Properties["distance"] = p.Distances()
		f.Properties["value"] = p.Values.nullable()
		fc.Append(f)
	}
	return fc
}

// PathsToFeatureCollection wraps bare paths as features, the shape
// ParsePaths accepts back.
func PathsToFeatureCollection(paths []orb.LineString) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range paths {
		fc.Append(geojson.NewFeature(p))
	}
	return fc
}
