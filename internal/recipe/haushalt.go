package recipe

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

const haushaltInputFile = "2020-haushalt.csv"

// Column positions in the budget plan export.
const (
	hhBereichID      = 2
	hhBereichName    = 3
	hhGruppeID       = 4
	hhGruppeName     = 5
	hhJahr           = 6
	hhSteuern        = 7
	hhGebuehren      = 8
	hhZuwendungenVon = 9
	hhSonstige       = 10
	hhSummeErtraege  = 11
	hhPersonal       = 12
	hhSach           = 13
	hhZuwendungenAn  = 14
	hhSummeAufwand   = 15
	hhMinColumns     = 16
)

var (
	haushaltSummenHeader = []string{"Produktbereich", "Produktgruppe", "Produktbereichsname", "Produktgruppenbezeichnung", "Jahr", "Richtung", "Betrag", "Betrag-Typ"}
	haushaltDetailHeader = []string{"ID-PB", "ID-PG", "Produktbereich", "Produktgruppe", "Jahr", "Betrag-Typ", "Kostenart", "Richtung", "Betrag"}

	// Income is booked negative, expenses positive.
	haushaltDetailColumns = []struct {
		col       int
		kostenart string
		richtung  string
		sign      float64
	}{
		{hhSteuern, "Steuern", "Erträge", -1},
		{hhGebuehren, "Gebühren/Entgelte", "Erträge", -1},
		{hhZuwendungenVon, "Zuwendungen von Dritten", "Erträge", -1},
		{hhSonstige, "Sonstige Erträge", "Erträge", -1},
		{hhPersonal, "Personalaufwendungen", "Aufwendungen", 1},
		{hhSach, "Sachaufwendungen", "Aufwendungen", 1},
		{hhZuwendungenAn, "Zuwendungen an Dritte", "Aufwendungen", 1},
	}

	nonMoneyChars = regexp.MustCompile(`[^-0-9,]`)
)

// Haushalt converts the budget plan into the two offenerhaushalt.de import
// formats: per product group totals and per cost type details.
type Haushalt struct{}

func NewHaushalt() *Haushalt {
	return &Haushalt{}
}

func (h *Haushalt) Name() string        { return "haushalt" }
func (h *Haushalt) Version() string     { return "2020.1" }
func (h *Haushalt) Description() string { return "Budget plan in the offenerhaushalt.de formats" }

func (h *Haushalt) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	name := env.source(h.Name(), "file", haushaltInputFile)
	input, err := env.readInput(h.Name(), name)
	if err != nil {
		return Outcome{}, err
	}
	content, err := reshape.Decode(input, reshape.CharsetUTF8BOM)
	if err != nil {
		return Outcome{}, err
	}

	reader := reshape.NewRowReader(env.MetadataSink, bytes.NewReader(content), reshape.Semicolon)
	header, err := reader.ReadHeader()
	if err != nil {
		return Outcome{}, err
	}
	if header.Len() < hhMinColumns {
		return Outcome{}, env.fail(h.Name(), "Haushalt.Run", &RecipeError{
			Message: fmt.Sprintf("%s has %d columns, want at least %d", name, header.Len(), hhMinColumns),
			Cause:   ErrCauseUnexpectedData,
		})
	}

	var summen, detail [][]string
	total, skipped := 0, 0
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			break
		}
		total++
		// Rows without a product group id are subtotals.
		if row.Field(hhGruppeID) == "" {
			skipped++
			continue
		}

		summenRows, detailRows, err := h.convert(env, row)
		if err != nil {
			return Outcome{}, err
		}
		summen = append(summen, summenRows...)
		detail = append(detail, detailRows...)
	}

	outcome := Outcome{rows: total, buckets: 2, unknowns: skipped}
	if err := env.writeAll(&outcome,
		storage.NewArtifact("2020-muenster-offenerhaushalt-summen.csv", metadata.ArtifactCSV, csvBytes(reshape.Excel, haushaltSummenHeader, summen)),
		storage.NewArtifact("2020-muenster-offenerhaushalt-detail.csv", metadata.ArtifactCSV, csvBytes(reshape.Excel, haushaltDetailHeader, detail)),
	); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

func (h *Haushalt) convert(env Env, row reshape.DelimitedRow) ([][]string, [][]string, failure.ClassifiedError) {
	money := func(col int) (float64, failure.ClassifiedError) {
		v, err := parseMoney(row.Field(col))
		if err != nil {
			return 0, env.fail(h.Name(), "Haushalt.convert", &RecipeError{
				Message: fmt.Sprintf("line %d: column %d: %s", row.Line(), col, err.Error()),
				Cause:   ErrCauseInvalidNumber,
			})
		}
		return v, nil
	}

	aufwand, err := money(hhSummeAufwand)
	if err != nil {
		return nil, nil, err
	}
	ertraege, err := money(hhSummeErtraege)
	if err != nil {
		return nil, nil, err
	}

	group := []string{row.Field(hhBereichID), row.Field(hhGruppeID), row.Field(hhBereichName), row.Field(hhGruppeName), row.Field(hhJahr)}
	summen := [][]string{
		concat(group, "Aufwendungen", formatMoney(aufwand), "Plan"),
		concat(group, "Erträge", formatMoney(0-ertraege), "Plan"),
	}

	var detail [][]string
	for _, c := range haushaltDetailColumns {
		if row.Field(c.col) == "" {
			continue
		}
		v, err := money(c.col)
		if err != nil {
			return nil, nil, err
		}
		if c.sign < 0 {
			v = 0 - v
		}
		detail = append(detail, concat(group, "Plan", c.kostenart, c.richtung, formatMoney(v)))
	}
	return summen, detail, nil
}

func concat(prefix []string, rest ...string) []string {
	out := make([]string, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	return append(out, rest...)
}

// parseMoney reads German formatted amounts such as "1.234,50 €".
// Anything but digits, minus and the decimal comma is dropped; an empty
// result is zero.
func parseMoney(s string) (float64, error) {
	cleaned := strings.ReplaceAll(nonMoneyChars.ReplaceAllString(s, ""), ",", ".")
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
