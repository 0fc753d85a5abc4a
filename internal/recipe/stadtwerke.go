package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rohmanhakim/opendata-harvester/internal/fetcher"
	"github.com/rohmanhakim/opendata-harvester/internal/geojson"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

const (
	netzplanStartURL = "https://www.netzplan-muenster.de"
	netzplanLayerURL = "%s/api/wfs-layers/%d/features?format=GeoJSON&locale=de-de&props=info,info2,foto,strasse,hausnr,Zusatz,plz,stadt,webseite,telefon,email,geometry,idint,f_type,centerx,centery,title,svg,svg_hover,extern_url,ttip_img&srs=EPSG:4326"
)

type netzplanLayer struct {
	name string
	id   int
}

var netzplanLayers = []netzplanLayer{
	{"haltestellen_barrierefrei", 14},
	{"park_and_ride_stationen", 60},
	{"ticketautomaten", 24},
	{"vorverkaufsstellen", 26},
	{"bike_and_ride_stationen", 13},
}

var stadtwerkeCSVHeader = []string{"ID", "Title", "Latitude", "Longitude", "Info"}

type netzplanFeature struct {
	Geometry struct {
		Coordinates [2]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Title string          `json:"title"`
		ID    json.RawMessage `json:"idint"`
		Info  string          `json:"info"`
	} `json:"properties"`
}

// Stadtwerke exports point layers of the public transport network map.
// The map's API only answers requests carrying the CSRF token and session
// cookie of a browser visit, so requests go through a Session.
type Stadtwerke struct{}

func NewStadtwerke() *Stadtwerke {
	return &Stadtwerke{}
}

func (s *Stadtwerke) Name() string    { return "stadtwerke" }
func (s *Stadtwerke) Version() string { return "2024.2" }
func (s *Stadtwerke) Description() string {
	return "Stops, ticket machines and P+R/B+R stations from the Netzplan"
}

func (s *Stadtwerke) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	start := env.source(s.Name(), "start", netzplanStartURL)
	session := fetcher.NewSession(env.MetadataSink, env.Fetcher, start)

	// Every layer is fetched and rendered before anything is written.
	var artifacts []storage.Artifact
	total := 0
	for _, layer := range netzplanLayers {
		layerURL := fmt.Sprintf(netzplanLayerURL, start, layer.id)
		param := env.fetchParam(layerURL).
			WithCacheKey(layer.name + ".json").
			WithStrictStatus()

		var doc struct {
			Features []netzplanFeature `json:"features"`
		}
		found, err := session.FetchJSON(ctx, param, &doc)
		if err != nil {
			return Outcome{}, err
		}
		if !found {
			return Outcome{}, env.fail(s.Name(), "Stadtwerke.Run", &RecipeError{
				Message: fmt.Sprintf("layer %s answered not found", layer.name),
				Cause:   ErrCauseUnexpectedData,
			})
		}

		geo, rows, renderErr := s.render(doc.Features)
		if renderErr != nil {
			return Outcome{}, env.fail(s.Name(), "Stadtwerke.render", &RecipeError{
				Message: fmt.Sprintf("%s: %s", layer.name, renderErr.Error()),
				Cause:   ErrCauseRenderFailed,
			})
		}
		total += len(doc.Features)
		artifacts = append(artifacts,
			storage.NewArtifact("data/"+layer.name+".geojson", metadata.ArtifactGeoJSON, geo),
			storage.NewArtifact("data/"+layer.name+".csv", metadata.ArtifactCSV, csvBytes(reshape.Semicolon, stadtwerkeCSVHeader, rows)),
		)
	}

	outcome := Outcome{rows: total, buckets: len(netzplanLayers), unknowns: 0}
	if err := env.writeAll(&outcome, artifacts...); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func (s *Stadtwerke) render(features []netzplanFeature) ([]byte, [][]string, error) {
	collection := geojson.NewFeatureCollection()
	rows := make([][]string, 0, len(features))
	for _, f := range features {
		var id any
		if len(f.Properties.ID) > 0 {
			if err := json.Unmarshal(f.Properties.ID, &id); err != nil {
				return nil, nil, err
			}
		}
		props := []geojson.Property{
			geojson.P("title", f.Properties.Title),
			geojson.P("id", id),
		}
		if f.Properties.Info != "" {
			props = append(props, geojson.P("info", f.Properties.Info))
		}
		coords := f.Geometry.Coordinates
		collection.Add(geojson.NewPointFeature(coords, props...))
		rows = append(rows, []string{
			idString(id),
			f.Properties.Title,
			formatFloat(coords[1]),
			formatFloat(coords[0]),
			f.Properties.Info,
		})
	}
	geo, err := collection.Encode()
	if err != nil {
		return nil, nil, err
	}
	return geo, rows, nil
}

func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
