package recipe

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/rohmanhakim/opendata-harvester/internal/cache"
	"github.com/rohmanhakim/opendata-harvester/internal/geojson"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

const (
	ladesaeulenURL      = "https://data.bundesnetzagentur.de/Bundesnetzagentur/SharedDocs/Downloads/DE/Sachgebiete/Energie/Unternehmen_Institutionen/E_Mobilitaet/Ladesaeulenregister.csv"
	ladesaeulenPreamble = 10
	ladesaeulenCity     = "Kreisfreie Stadt Münster"
	ladesaeulenHeader   = `"Betreiber";"Straße";"Hausnummer";"Adresszusatz";"Postleitzahl";"Ort";"Bundesland";"Kreis/kreisfreie Stadt";"Breitengrad";"Längengrad";"Inbetriebnahmedatum";"Nennleistung Ladeeinrichtung [kW]";"Art der Ladeeinrichung";"Anzahl Ladepunkte";"Steckertypen1";"P1 [kW]";"Public Key1";"Steckertypen2";"P2 [kW]";"Public Key2";"Steckertypen3";"P3 [kW]";"Public Key3";"Steckertypen4";"P4 [kW]";"Public Key4"`

	// Points outside these bounds are misplaced and left out of the GeoJSON.
	ladesaeulenMinLon = 7
	ladesaeulenMinLat = 51
)

// Column positions in the register.
const (
	colBetreiber      = 0
	colKreis          = 7
	colBreitengrad    = 8
	colLaengengrad    = 9
	colInbetriebnahme = 10
	colNennleistung   = 11
	colArt            = 12
	colLadepunkte     = 13
	colSteckertypen   = 14
	colLeistungP1     = 15
)

// Ladesaeulen filters the national charging station register down to the
// city and writes it as CSV and GeoJSON.
type Ladesaeulen struct{}

func NewLadesaeulen() *Ladesaeulen {
	return &Ladesaeulen{}
}

func (l *Ladesaeulen) Name() string    { return "ladesaeulen" }
func (l *Ladesaeulen) Version() string { return "2023.11" }
func (l *Ladesaeulen) Description() string {
	return "Charging stations from the Bundesnetzagentur register"
}

func (l *Ladesaeulen) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	sourceURL := env.source(l.Name(), "url", ladesaeulenURL)
	result, err := env.Fetcher.Fetch(ctx, env.fetchParam(sourceURL).WithCacheKey(cache.Key(path.Base(sourceURL), "")))
	if err != nil {
		return Outcome{}, err
	}
	content, err := reshape.Decode(result.Body(), reshape.CharsetUTF8BOM)
	if err != nil {
		return Outcome{}, err
	}

	reader := reshape.NewRowReader(env.MetadataSink, bytes.NewReader(content), reshape.Semicolon)
	if err := reader.Skip(ladesaeulenPreamble); err != nil {
		return Outcome{}, err
	}
	header, err := reader.ReadHeader()
	if err != nil {
		return Outcome{}, err
	}
	if err := header.Expect(ladesaeulenHeader, reshape.Semicolon); err != nil {
		return Outcome{}, err
	}

	rows := [][]string{}
	collection := geojson.NewFeatureCollection()
	total := 0
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			break
		}
		total++
		if row.Field(colKreis) != ladesaeulenCity {
			continue
		}
		rows = append(rows, row.Fields())

		// GeoJSON positions are [longitude, latitude].
		lon, parseErr := parseDecimalComma(row.Field(colLaengengrad))
		if parseErr != nil {
			return Outcome{}, l.invalidNumber(env, row, colLaengengrad)
		}
		lat, parseErr := parseDecimalComma(row.Field(colBreitengrad))
		if parseErr != nil {
			return Outcome{}, l.invalidNumber(env, row, colBreitengrad)
		}
		if lon < ladesaeulenMinLon || lat < ladesaeulenMinLat {
			env.warn(l.Name(), "skipping out of range coordinates",
				metadata.NewAttr(metadata.AttrLine, fmt.Sprintf("%d", row.Line())),
				metadata.NewAttr(metadata.AttrMessage, fmt.Sprintf("lat %v lon %v", lat, lon)),
			)
			continue
		}

		collection.Add(geojson.NewPointFeature([2]float64{lon, lat},
			geojson.P("Typ", row.Field(colInbetriebnahme)),
			geojson.P("Betreiber", row.Field(colBetreiber)),
			geojson.P("Inbetriebnahme", row.Field(colInbetriebnahme)),
			geojson.P("Nennleistung[kW]", row.Field(colNennleistung)),
			geojson.P("Ladeeinrichung", row.Field(colArt)),
			geojson.P("Anzahl Ladepunkte", row.Field(colLadepunkte)),
			geojson.P("Steckertypen", row.Field(colSteckertypen)),
			geojson.P("Ladeleistung[kW]", row.Field(colLeistungP1)),
		))
	}

	geo, jsonErr := collection.Encode()
	if jsonErr != nil {
		return Outcome{}, env.fail(l.Name(), "Ladesaeulen.Run", &RecipeError{
			Message: jsonErr.Error(),
			Cause:   ErrCauseRenderFailed,
		})
	}

	outcome := Outcome{rows: total, buckets: 1, unknowns: 0}
	if err := env.writeAll(&outcome,
		storage.NewArtifact("ladesaeulen-muenster.csv", metadata.ArtifactCSV, csvBytes(reshape.Semicolon, header.Names(), rows)),
		storage.NewArtifact("ladesaeulen-muenster.json", metadata.ArtifactGeoJSON, geo),
	); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func (l *Ladesaeulen) invalidNumber(env Env, row reshape.DelimitedRow, col int) *RecipeError {
	return env.fail(l.Name(), "Ladesaeulen.Run", &RecipeError{
		Message: fmt.Sprintf("line %d: column %d is not a number: %q", row.Line(), col, row.Field(col)),
		Cause:   ErrCauseInvalidNumber,
	})
}
