package extract

import "time"

// Figure is one reported number together with the previous day's value,
// as printed in parentheses next to it.
type Figure struct {
	Current  int
	Previous int
}

type RegionFigures struct {
	Name      string
	Active    Figure
	Infected  Figure
	Deceased  Figure
	Recovered Figure
}

type CovidReport struct {
	reportDate time.Time
	regions    []RegionFigures
}

func NewCovidReport(reportDate time.Time, regions []RegionFigures) CovidReport {
	return CovidReport{
		reportDate: reportDate,
		regions:    regions,
	}
}

// ReportDate is the "Stand:" date of the page, at midnight UTC.
func (c CovidReport) ReportDate() time.Time {
	return c.reportDate
}

func (c CovidReport) Regions() []RegionFigures {
	return c.regions
}
