package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

//go:embed rules/klimadashboard.yaml
var klimadashboardRules []byte

const (
	klimaInputFile  = "05515000_csv_klimarelevante_daten.csv"
	klimaPVFile     = "pv_anlagen_stadt_muenster.csv"
	klimaSolarFile  = "anlagen_solare_strahlungsenergie.json"
	klimaWindFile   = "anlagen_wind.json"
	klimaHeader     = `"RAUM";"DATENQUELLE";"THEMENBEREICH";"MERKMAL";"ZEIT";"WERT";"WERTEEINHEIT"`
	klimaLeadColumn = "DATEINAME"

	// Marktstammdatenregister totals are filed under their own THEMENBEREICH.
	mastrThemenbereich = "23"
	mastrSource        = "Marktstammdatenregister"
	mastrRegion        = "Münster, Gesamtstadt"
)

// Klimadashboard splits the city's climate export into one bucket per
// topic and writes them as klimadata.csv and klimadata.json.
type Klimadashboard struct {
	ruleSet []byte
}

func NewKlimadashboard() *Klimadashboard {
	return &Klimadashboard{ruleSet: klimadashboardRules}
}

func (k *Klimadashboard) Name() string    { return "klimadashboard" }
func (k *Klimadashboard) Version() string { return "2025.07" }
func (k *Klimadashboard) Description() string {
	return "Split the Klimadashboard export into topic datasets"
}

func (k *Klimadashboard) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	ruleSet, err := reshape.LoadRuleSet(k.ruleSet)
	if err != nil {
		return Outcome{}, err
	}
	rules, err := ruleSet.Compile()
	if err != nil {
		return Outcome{}, err
	}

	input, err := env.readInput(k.Name(), env.source(k.Name(), "file", klimaInputFile))
	if err != nil {
		return Outcome{}, err
	}

	pipeline := reshape.NewPipeline(env.MetadataSink, reshape.PipelineConfig{
		Dialect:        reshape.Semicolon,
		Charset:        reshape.CharsetUTF8BOM,
		ExpectedHeader: klimaHeader,
		HeaderRenames:  map[string]string{"DATENQUELLE": "QUELLE_INSTITUTION"},
		Rules:          rules,
		FixStrings:     ruleSet.Fixes(),
		Strict:         true,
	})
	result, err := pipeline.Run(bytes.NewReader(input))
	if err != nil {
		return Outcome{}, err
	}

	buckets := result.Buckets()
	today := env.Clock.Now().Format("2006-01-02")
	for _, extra := range []struct {
		bucket string
		file   string
		wind   bool
	}{
		{"bestand-pv-anlagen", klimaSolarFile, false},
		{"bestand-windanlagen", klimaWindFile, true},
	} {
		rows, err := k.registerTotals(env, env.source(k.Name(), extra.bucket, extra.file), extra.wind, today)
		if err != nil {
			return Outcome{}, err
		}
		if rows != nil {
			buckets.Replace(extra.bucket, rows)
		}
	}

	pvRows, err := k.pvRows(env)
	if err != nil {
		return Outcome{}, err
	}
	if pvRows != nil {
		buckets.Replace("pv-anlagen", pvRows)
	}

	var csvBuf, jsonBuf bytes.Buffer
	if err := reshape.RenderJSON(&jsonBuf, buckets); err != nil {
		return Outcome{}, err
	}
	if err := reshape.RenderCSV(&csvBuf, buckets, result.Header(), klimaLeadColumn, reshape.Semicolon); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		rows:     result.Rows(),
		buckets:  buckets.Len(),
		unknowns: result.Unknowns(),
	}
	if err := env.writeAll(&outcome,
		storage.NewArtifact("klimadata.json", metadata.ArtifactJSON, jsonBuf.Bytes()),
		storage.NewArtifact("klimadata.csv", metadata.ArtifactCSV, csvBuf.Bytes()),
	); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// pvRows reads the externally generated PV dataset. A missing file keeps the
// classified rows; an undecodable one is skipped with a warning.
func (k *Klimadashboard) pvRows(env Env) ([]reshape.DelimitedRow, failure.ClassifiedError) {
	name := env.source(k.Name(), "pv-anlagen", klimaPVFile)
	data, found, err := env.readOptionalInput(k.Name(), name)
	if err != nil || !found {
		return nil, err
	}
	content, err := reshape.Decode(data, reshape.CharsetUTF8)
	if err != nil {
		if failure.IsFatal(err) {
			return nil, err
		}
		env.warn(k.Name(), "skipping undecodable input", metadata.NewAttr(metadata.AttrPath, name))
		return nil, nil
	}

	reader := reshape.NewRowReader(env.MetadataSink, bytes.NewReader(content), reshape.Semicolon)
	if _, err := reader.ReadHeader(); err != nil {
		return nil, err
	}
	rows := []reshape.DelimitedRow{}
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// registerTotals turns the "Summen" object of a Marktstammdatenregister
// export into rows shaped like the main export. found=false (nil rows)
// when the file is absent.
func (k *Klimadashboard) registerTotals(env Env, name string, wind bool, date string) ([]reshape.DelimitedRow, failure.ClassifiedError) {
	data, found, err := env.readOptionalInput(k.Name(), name)
	if err != nil || !found {
		return nil, err
	}

	var doc struct {
		Summen json.RawMessage `json:"Summen"`
	}
	if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
		return nil, env.fail(k.Name(), "Klimadashboard.registerTotals", &RecipeError{
			Message: fmt.Sprintf("%s: %s", name, jsonErr.Error()),
			Cause:   ErrCauseUnexpectedData,
		})
	}
	totals, jsonErr := orderedNumbers(doc.Summen)
	if jsonErr != nil {
		return nil, env.fail(k.Name(), "Klimadashboard.registerTotals", &RecipeError{
			Message: fmt.Sprintf("%s: Summen: %s", name, jsonErr.Error()),
			Cause:   ErrCauseUnexpectedData,
		})
	}

	rows := make([]reshape.DelimitedRow, 0, len(totals))
	for _, total := range totals {
		if wind && total.name == "AnzahlSolarModule" {
			continue
		}
		unit := "kW"
		if strings.Contains(total.name, "Anzahl") {
			unit = "Anzahl"
		}
		rows = append(rows, reshape.NewDelimitedRow(0,
			mastrRegion, mastrSource, mastrThemenbereich, total.name, date, numberText(total.value), unit,
		).WithNumeric(2, 5))
	}
	return rows, nil
}

// numberText prints integers as given and floats in their shortest form,
// so 345.50 becomes 345.5 and 1e3 becomes 1000.0.
func numberText(n json.Number) string {
	text := n.String()
	if !strings.ContainsAny(text, ".eE") {
		return text
	}
	f, err := n.Float64()
	if err != nil {
		return text
	}
	return formatFloat(f)
}

type namedNumber struct {
	name  string
	value json.Number
}

// orderedNumbers reads a flat JSON object of numbers, keeping key order.
func orderedNumbers(raw json.RawMessage) ([]namedNumber, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out []namedNumber
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var value json.Number
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, namedNumber{name: key, value: value})
	}
	return out, nil
}
