package recipe

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/extract"
	"github.com/rohmanhakim/opendata-harvester/internal/fetcher"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

const (
	covidURL      = "https://www.bezreg-muenster.de/de/im_fokus/uebergreifende_themen/coronavirus/coronavirus_allgemein/index.html"
	covidDatafile = "coronavirus-fallzahlen-regierungsbezirk-muenster.csv"
	covidDate     = "02.01.2006"
)

var germanDate = regexp.MustCompile(`([0-9]{1,2})\.+([0-9]{1,2})\.+([0-9]{4})`)

// Covid prepends the newest daily figures of the Bezirksregierung page to
// the published case number datafile. Newest rows come first.
type Covid struct{}

func NewCovid() *Covid {
	return &Covid{}
}

func (c *Covid) Name() string        { return "covid" }
func (c *Covid) Version() string     { return "2021.1" }
func (c *Covid) Description() string { return "COVID-19 case numbers of the Regierungsbezirk" }

func (c *Covid) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	datafile := env.source(c.Name(), "datafile", covidDatafile)
	existing, err := env.Storage.ReadExisting(env.Config.OutputDir(), datafile)
	if err != nil {
		return Outcome{}, err
	}
	if existing == nil {
		return Outcome{}, env.fail(c.Name(), "Covid.Run", &RecipeError{
			Message: fmt.Sprintf("%s does not exist in %s", datafile, env.Config.OutputDir()),
			Cause:   ErrCauseMissingInput,
		})
	}

	// The page changes daily; it is always fetched live but still cached.
	page, err := env.Fetcher.Fetch(ctx, fetcher.NewFetchParam(env.source(c.Name(), "url", covidURL), 0))
	if err != nil {
		return Outcome{}, err
	}
	extractor := extract.NewCovidReportExtractor(env.MetadataSink)
	report, err := extractor.Extract(page.Body())
	if err != nil {
		return Outcome{}, err
	}

	header, rest := splitFirstLine(existing)
	newest, _ := newestEntry(rest)
	today := report.ReportDate()
	yesterday := today.AddDate(0, 0, -1)

	var added [][]string
	days := 0
	if newest.Before(today) {
		added = append(added, covidRows(report, today, true)...)
		days++
	}
	if newest.Before(yesterday) {
		added = append(added, covidRows(report, yesterday, false)...)
		days++
	}
	if days == 0 {
		env.warn(c.Name(), "datafile is up to date", metadata.NewAttr(metadata.AttrMessage, today.Format(covidDate)))
	}

	var out bytes.Buffer
	out.Write(header)
	if len(header) > 0 && !bytes.HasSuffix(header, []byte("\n")) {
		out.WriteString(reshape.Excel.LineTerminator)
	}
	out.Write(csvBytes(reshape.Excel, nil, added))
	out.Write(rest)

	outcome := Outcome{rows: len(report.Regions()), buckets: days, unknowns: 0}
	if err := env.writeAll(&outcome, storage.NewArtifact(datafile, metadata.ArtifactCSV, out.Bytes())); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// covidRows renders one row per region: name, date, infected, recovered,
// deceased. current picks today's figures, otherwise the previous day's.
func covidRows(report extract.CovidReport, day time.Time, current bool) [][]string {
	pick := func(f extract.Figure) string {
		if current {
			return strconv.Itoa(f.Current)
		}
		return strconv.Itoa(f.Previous)
	}
	rows := make([][]string, 0, len(report.Regions()))
	for _, r := range report.Regions() {
		rows = append(rows, []string{r.Name, day.Format(covidDate), pick(r.Infected), pick(r.Recovered), pick(r.Deceased)})
	}
	return rows
}

// splitFirstLine returns the first line including its terminator, and the rest.
func splitFirstLine(data []byte) ([]byte, []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data, nil
	}
	return data[:i+1], data[i+1:]
}

// newestEntry reads the date of the first data row. ok is false when there
// is none, which makes every reported day new.
func newestEntry(rows []byte) (time.Time, bool) {
	line, _ := splitFirstLine(rows)
	m := germanDate.FindSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(string(m[1]))
	month, _ := strconv.Atoi(string(m[2]))
	year, _ := strconv.Atoi(string(m[3]))
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
