package recipe_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/config"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ladesaeulenHeaderLine = `Betreiber;Straße;Hausnummer;Adresszusatz;Postleitzahl;Ort;Bundesland;Kreis/kreisfreie Stadt;Breitengrad;Längengrad;Inbetriebnahmedatum;Nennleistung Ladeeinrichtung [kW];Art der Ladeeinrichung;Anzahl Ladepunkte;Steckertypen1;P1 [kW];Public Key1;Steckertypen2;P2 [kW];Public Key2;Steckertypen3;P3 [kW];Public Key3;Steckertypen4;P4 [kW];Public Key4`

// ladesaeulenRow fills the 26 register columns from the few the recipe reads.
func ladesaeulenRow(betreiber, kreis, lat, lon string) string {
	fields := make([]string, 26)
	fields[0] = betreiber
	fields[1] = "Hafenweg"
	fields[2] = "1"
	fields[4] = "48155"
	fields[5] = "Münster"
	fields[6] = "Nordrhein-Westfalen"
	fields[7] = kreis
	fields[8] = lat
	fields[9] = lon
	fields[10] = "01.02.2020"
	fields[11] = "22"
	fields[12] = "Normalladeeinrichtung"
	fields[13] = "2"
	fields[14] = "AC Typ 2 Steckdose"
	fields[15] = "11"
	return strings.Join(fields, ";")
}

func ladesaeulenRegister() string {
	var b strings.Builder
	b.WriteString("\ufeff")
	for i := 0; i < 10; i++ {
		b.WriteString("Ladesäulenregister der Bundesnetzagentur;;;\r\n")
	}
	b.WriteString(ladesaeulenHeaderLine + "\r\n")
	b.WriteString(ladesaeulenRow("Stadtwerke Münster", "Kreisfreie Stadt Münster", "51,9548", "7,6363") + "\r\n")
	b.WriteString(ladesaeulenRow("EnBW", "Kreis Steinfurt", "52,1", "7,5") + "\r\n")
	b.WriteString(ladesaeulenRow("Falsch GmbH", "Kreisfreie Stadt Münster", "7,62", "51,96") + "\r\n")
	return b.String()
}

func newRegisterServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestLadesaeulen_FiltersCity(t *testing.T) {
	srv, _ := newRegisterServer(t, ladesaeulenRegister())
	fx := newFixture(t, func(c *config.Config) {
		c.WithSources(map[string]string{"ladesaeulen.url": srv.URL + "/Ladesaeulenregister.csv"})
	})

	outcome, err := recipe.NewLadesaeulen().Run(context.Background(), fx.env)
	require.Nil(t, err)
	assert.Equal(t, 3, outcome.Rows())

	csvLines := strings.Split(strings.TrimSuffix(fx.readOutput(t, "ladesaeulen-muenster.csv"), "\r\n"), "\r\n")
	require.Len(t, csvLines, 3, "header plus both Münster rows")
	assert.Equal(t, ladesaeulenHeaderLine, csvLines[0])
	assert.True(t, strings.HasPrefix(csvLines[1], "Stadtwerke Münster;"))
	assert.True(t, strings.HasPrefix(csvLines[2], "Falsch GmbH;"))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(fx.readOutput(t, "ladesaeulen-muenster.json")), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 1, "misplaced point is left out")
	feature := doc.Features[0]
	assert.Equal(t, "Point", feature.Geometry.Type)
	assert.Equal(t, [2]float64{7.6363, 51.9548}, feature.Geometry.Coordinates)
	assert.Equal(t, "Stadtwerke Münster", feature.Properties["Betreiber"])
	assert.Equal(t, "01.02.2020", feature.Properties["Inbetriebnahme"])
	assert.Equal(t, "22", feature.Properties["Nennleistung[kW]"])
	assert.Equal(t, "2", feature.Properties["Anzahl Ladepunkte"])
	assert.Equal(t, "11", feature.Properties["Ladeleistung[kW]"])

	assert.Contains(t, fx.sink.warnings, "skipping out of range coordinates")
}

func TestLadesaeulen_SecondRunUsesCache(t *testing.T) {
	srv, hits := newRegisterServer(t, ladesaeulenRegister())
	fx := newFixture(t, func(c *config.Config) {
		c.WithSources(map[string]string{"ladesaeulen.url": srv.URL + "/Ladesaeulenregister.csv"})
	})

	_, err := recipe.NewLadesaeulen().Run(context.Background(), fx.env)
	require.Nil(t, err)
	_, err = recipe.NewLadesaeulen().Run(context.Background(), fx.env)
	require.Nil(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 2, fx.sink.fetches, "one live fetch, one cache hit")
}

func TestLadesaeulen_InvalidCoordinate(t *testing.T) {
	body := strings.Replace(ladesaeulenRegister(), "51,9548", "n/a", 1)
	srv, _ := newRegisterServer(t, body)
	fx := newFixture(t, func(c *config.Config) {
		c.WithSources(map[string]string{"ladesaeulen.url": srv.URL + "/Ladesaeulenregister.csv"})
	})

	_, err := recipe.NewLadesaeulen().Run(context.Background(), fx.env)
	require.NotNil(t, err)

	var recipeErr *recipe.RecipeError
	require.True(t, errors.As(err, &recipeErr))
	assert.Equal(t, recipe.ErrCauseInvalidNumber, recipeErr.Cause)
	assert.Empty(t, fx.outputNames(t))
}
