package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
)

/*
CovidReportExtractor reads the district figures published by the
Bezirksregierung Münster. The page lists one region per <li>:

	<li><strong>Kreis Borken:</strong>&nbsp;Aktuell Infizierte 5 (7), Infizierte 1.111 (1.111),
	    Verstorbene 38 (38), Genesene 1.068 (1.066)</li>

Numbers use "." as thousands separator; values in parentheses are the
previous day's figures. The report date comes from a "Stand: dd.mm.yyyy" label.
*/
type CovidReportExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewCovidReportExtractor(metadataSink metadata.MetadataSink) CovidReportExtractor {
	return CovidReportExtractor{
		metadataSink: metadataSink,
	}
}

var (
	reportDatePattern = regexp.MustCompile(`Stand:[^0-9]*([0-9]{1,2})\.+([0-9]{1,2})\.+([0-9]{4})`)
	numberPair        = `[^(]*\((-?[\d.]+)\)`
	regionPattern     = regexp.MustCompile(
		`[aA]ktuell Infizierte\s*(-?[\d.]+)` + numberPair +
			`.*Infizierte\s*([\d.]+)` + numberPair +
			`[^,]*,\s*Verstorbene\s*([\d.]+)` + numberPair +
			`[^,]*,\s*Genesene\s*([\d.]+)` + numberPair,
	)
)

func (c *CovidReportExtractor) Extract(htmlByte []byte) (CovidReport, failure.ClassifiedError) {
	report, err := c.extract(htmlByte)
	if err != nil {
		recordExtractionError(c.metadataSink, "CovidReportExtractor.Extract", err, nil)
		return CovidReport{}, err
	}
	return report, nil
}

func (c *CovidReportExtractor) extract(htmlByte []byte) (CovidReport, *ExtractionError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlByte))
	if err != nil {
		return CovidReport{}, &ExtractionError{
			Message: err.Error(),
			Cause:   ErrCauseParseFailed,
		}
	}

	reportDate, extractionErr := findReportDate(doc)
	if extractionErr != nil {
		return CovidReport{}, extractionErr
	}

	var regions []RegionFigures
	var rowErr *ExtractionError
	doc.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		strong := li.Find("strong").First()
		if strong.Length() == 0 {
			return true
		}
		name := strings.TrimSuffix(strings.TrimSpace(normalizeSpace(strong.Text())), ":")
		name = strings.TrimSpace(name)
		if !strings.HasPrefix(name, "S") && !strings.HasPrefix(name, "K") {
			return true
		}

		text := normalizeSpace(li.Text())
		match := regionPattern.FindStringSubmatch(text)
		if match == nil {
			return true
		}

		region, err := regionFromMatch(name, match[1:])
		if err != nil {
			rowErr = err
			return false
		}
		regions = append(regions, region)
		return true
	})
	if rowErr != nil {
		return CovidReport{}, rowErr
	}
	if len(regions) == 0 {
		return CovidReport{}, &ExtractionError{
			Message: "no region figures on page",
			Cause:   ErrCauseNoMatch,
		}
	}

	return NewCovidReport(reportDate, regions), nil
}

func findReportDate(doc *goquery.Document) (time.Time, *ExtractionError) {
	var found []string
	doc.Find("strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.HasPrefix(strings.TrimSpace(s.Text()), "Stand:") {
			return true
		}
		found = reportDatePattern.FindStringSubmatch(normalizeSpace(s.Parent().Text()))
		return found == nil
	})
	if found == nil {
		return time.Time{}, &ExtractionError{
			Message: "no \"Stand:\" date on page",
			Cause:   ErrCauseNoMatch,
		}
	}

	day, _ := strconv.Atoi(found[1])
	month, _ := strconv.Atoi(found[2])
	year, _ := strconv.Atoi(found[3])
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, &ExtractionError{
			Message: fmt.Sprintf("%s.%s.%s is not a calendar date", found[1], found[2], found[3]),
			Cause:   ErrCauseInvalidDate,
		}
	}
	return date, nil
}

func regionFromMatch(name string, groups []string) (RegionFigures, *ExtractionError) {
	values := make([]int, len(groups))
	for i, g := range groups {
		v, err := parseGermanInt(g)
		if err != nil {
			return RegionFigures{}, &ExtractionError{
				Message: fmt.Sprintf("%s: %q", name, g),
				Cause:   ErrCauseInvalidNumber,
			}
		}
		values[i] = v
	}
	return RegionFigures{
		Name:      name,
		Active:    Figure{Current: values[0], Previous: values[1]},
		Infected:  Figure{Current: values[2], Previous: values[3]},
		Deceased:  Figure{Current: values[4], Previous: values[5]},
		Recovered: Figure{Current: values[6], Previous: values[7]},
	}, nil
}

// parseGermanInt parses "1.111" as 1111.
func parseGermanInt(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(s, ".", ""))
}

func normalizeSpace(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}
