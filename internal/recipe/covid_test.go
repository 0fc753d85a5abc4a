package recipe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/config"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const covidReportPage = `<html><body>
<p><strong>Stand: 14.07.2020, 10 Uhr</strong></p>
<ul>
<li><strong>Stadt M&uuml;nster:</strong> Aktuell Infizierte 12 (10), Infizierte 745 (741), Verstorbene 7 (7), Genesene 726 (724)</li>
<li><strong>Kreis Borken:</strong>&nbsp;Aktuell Infizierte 5 (7), Infizierte 1.111 (1.110), Verstorbene 38 (38), Genesene 1.068 (1.065)</li>
</ul>
</body></html>`

const covidHeader = "Gebiet,Datum,Infizierte,Genesene,Verstorbene\r\n"

func newCovidFixture(t *testing.T) fixture {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(covidReportPage))
	}))
	t.Cleanup(srv.Close)
	return newFixture(t, func(c *config.Config) {
		c.WithSources(map[string]string{"covid.url": srv.URL + "/index.html"})
	})
}

func TestCovid_PrependsTodayAndYesterday(t *testing.T) {
	fx := newCovidFixture(t)
	fx.writeOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv",
		covidHeader+"Stadt Münster,12.07.2020,741,724,7\r\n")

	outcome, err := recipe.NewCovid().Run(context.Background(), fx.env)
	require.Nil(t, err)

	assert.Equal(t, covidHeader+
		"Stadt Münster,14.07.2020,745,726,7\r\n"+
		"Kreis Borken,14.07.2020,1111,1068,38\r\n"+
		"Stadt Münster,13.07.2020,741,724,7\r\n"+
		"Kreis Borken,13.07.2020,1110,1065,38\r\n"+
		"Stadt Münster,12.07.2020,741,724,7\r\n",
		fx.readOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv"))
	assert.Equal(t, 2, outcome.Rows())
	assert.Equal(t, 2, outcome.Buckets())
}

func TestCovid_OnlyToday(t *testing.T) {
	fx := newCovidFixture(t)
	fx.writeOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv",
		covidHeader+"Stadt Münster,13.07.2020,741,724,7\r\n")

	outcome, err := recipe.NewCovid().Run(context.Background(), fx.env)
	require.Nil(t, err)

	assert.Equal(t, covidHeader+
		"Stadt Münster,14.07.2020,745,726,7\r\n"+
		"Kreis Borken,14.07.2020,1111,1068,38\r\n"+
		"Stadt Münster,13.07.2020,741,724,7\r\n",
		fx.readOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv"))
	assert.Equal(t, 1, outcome.Buckets())
}

func TestCovid_UpToDate(t *testing.T) {
	fx := newCovidFixture(t)
	existing := covidHeader + "Stadt Münster,14.07.2020,745,726,7\r\n"
	fx.writeOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv", existing)

	outcome, err := recipe.NewCovid().Run(context.Background(), fx.env)
	require.Nil(t, err)

	assert.Equal(t, existing, fx.readOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv"))
	assert.Equal(t, 0, outcome.Buckets())
	assert.Contains(t, fx.sink.warnings, "datafile is up to date")
}

func TestCovid_HeaderOnlyDatafile(t *testing.T) {
	fx := newCovidFixture(t)
	fx.writeOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv",
		"Gebiet,Datum,Infizierte,Genesene,Verstorbene")

	_, err := recipe.NewCovid().Run(context.Background(), fx.env)
	require.Nil(t, err)

	assert.Equal(t, covidHeader+
		"Stadt Münster,14.07.2020,745,726,7\r\n"+
		"Kreis Borken,14.07.2020,1111,1068,38\r\n"+
		"Stadt Münster,13.07.2020,741,724,7\r\n"+
		"Kreis Borken,13.07.2020,1110,1065,38\r\n",
		fx.readOutput(t, "coronavirus-fallzahlen-regierungsbezirk-muenster.csv"))
}

func TestCovid_MissingDatafile(t *testing.T) {
	fx := newCovidFixture(t)

	_, err := recipe.NewCovid().Run(context.Background(), fx.env)
	require.NotNil(t, err)

	var recipeErr *recipe.RecipeError
	require.True(t, errors.As(err, &recipeErr))
	assert.Equal(t, recipe.ErrCauseMissingInput, recipeErr.Cause)
	assert.Empty(t, fx.outputNames(t))
}
