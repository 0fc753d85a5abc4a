package geojson

import (
	"bytes"

	"github.com/rohmanhakim/opendata-harvester/pkg/jsonutil"
)

/*
Responsibilities

- Build point FeatureCollections from harvested records
- Keep feature properties in insertion order
- Encode with the ASCII-escaped, two-space indented layout used for every
  JSON artifact
*/

// Property is one key/value pair of a feature's properties object.
type Property struct {
	Key   string
	Value any
}

// P is shorthand for building property lists.
func P(key string, value any) Property {
	return Property{Key: key, Value: value}
}

type properties []Property

func (p properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := jsonutil.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		value, err := jsonutil.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Feature is a GeoJSON feature with point geometry.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   geometry   `json:"geometry"`
	Properties properties `json:"properties"`
}

// NewPointFeature places coordinates verbatim into the geometry; callers
// decide the axis order.
func NewPointFeature(coordinates [2]float64, props ...Property) Feature {
	return Feature{
		Type:       "Feature",
		Geometry:   geometry{Type: "Point", Coordinates: coordinates},
		Properties: append(properties{}, props...),
	}
}

func (f Feature) Coordinates() [2]float64 {
	return f.Geometry.Coordinates
}

// Property returns the first property named key.
func (f Feature) Property(key string) (any, bool) {
	for _, p := range f.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

func (c *FeatureCollection) Add(f Feature) {
	c.Features = append(c.Features, f)
}

func (c *FeatureCollection) Len() int {
	return len(c.Features)
}

// Encode renders the collection as an artifact body.
func (c *FeatureCollection) Encode() ([]byte, error) {
	return jsonutil.MarshalASCII(c)
}
