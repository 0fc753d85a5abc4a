package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/fetcher"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/reshape"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/rohmanhakim/opendata-harvester/pkg/jsonutil"
)

const (
	ecoCounterAPIURL     = "https://apieco.eco-counter-tools.com/api/1.0"
	ecoCounterCredential = "eco_counter"
	ecoCounterDir        = "fahrradzaehlstellen"
	ecoCounterMonth      = "2006-01"
	ecoCounterAPITime    = "2006-01-02T15:04:05"
)

const ecoCounterIndexHead = "# Daten der Fahrradzählstellen in Münster\n\n" +
	"Weitere Informationen zu den Daten in diesem Repository finden Sie auf dem Open-Data-Portal der Stadt Münster (https://opendata.stadt-muenster.de).\n\n" +
	"Die Daten stehen unter der Lizenz 'Datenlizenz Deutschland Namensnennung 2.0' (https://www.govdata.de/dl-de/by-2-0).\n\n" +
	"**Sie finden in den Unterverzeichnissen dieses Repositorys die Ergebnisse der folgenden Fahrradzählstellen in 15-Minuten-Abständen:**\n\n"

type ecoCounterChannel struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type ecoCounterSite struct {
	ID        json.Number         `json:"id"`
	Name      string              `json:"name"`
	FirstData string              `json:"firstData"`
	Channels  []ecoCounterChannel `json:"channels"`
}

// channels lists the site's own total first, then its directional channels.
func (s ecoCounterSite) channels() []ecoCounterChannel {
	return append([]ecoCounterChannel{{ID: s.ID, Name: s.Name}}, s.Channels...)
}

type ecoCounterSiteSummary struct {
	Name      string   `json:"name"`
	Directory string   `json:"directory"`
	Start     string   `json:"start"`
	Channels  [][2]any `json:"channels"`
}

type ecoCounterCount struct {
	Date   string       `json:"date"`
	Counts *json.Number `json:"counts"`
	Status *json.Number `json:"status"`
}

// EcoCounter mirrors the city's bike counting stations: a site index and one
// CSV of 15 minute counts per site and month.
type EcoCounter struct{}

func NewEcoCounter() *EcoCounter {
	return &EcoCounter{}
}

func (e *EcoCounter) Name() string    { return "eco-counter" }
func (e *EcoCounter) Version() string { return "2024.1" }
func (e *EcoCounter) Description() string {
	return "Bike counter sites and 15 minute counts from the Eco-Counter API"
}

// Run needs the eco_counter credential. Without it the recipe fails
// recoverably, so a full run carries on with the other recipes.
func (e *EcoCounter) Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError) {
	token, ok := env.Config.Credential(ecoCounterCredential)
	if !ok || token == "" {
		return Outcome{}, env.fail(e.Name(), "EcoCounter.Run", &RecipeError{
			Message:   fmt.Sprintf("credential %q is not configured", ecoCounterCredential),
			Retryable: true,
			Cause:     ErrCauseMissingSecret,
		})
	}
	base := strings.TrimSuffix(env.source(e.Name(), "url", ecoCounterAPIURL), "/")
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Accept":        "application/json",
	}

	var sites []ecoCounterSite
	siteParam := env.fetchParam(base + "/site").
		WithHeaders(headers).
		WithCacheKeyPrefix(base).
		WithStrictStatus()
	if _, err := env.Fetcher.FetchJSON(ctx, siteParam, &sites); err != nil {
		return Outcome{}, err
	}

	var index strings.Builder
	index.WriteString(ecoCounterIndexHead)
	summaries := make([]ecoCounterSiteSummary, 0, len(sites))
	var artifacts []storage.Artifact
	outcome := Outcome{buckets: len(sites)}

	for _, site := range sites {
		directory := site.ID.String()
		summary := ecoCounterSiteSummary{
			Name:      site.Name,
			Directory: directory,
			Start:     site.FirstData,
		}
		for _, ch := range site.channels() {
			summary.Channels = append(summary.Channels, [2]any{ch.ID, ch.Name})
		}
		summaries = append(summaries, summary)
		fmt.Fprintf(&index, " * [%[1]s](%[1]s) - %[2]s\n", directory, site.Name)

		months, err := e.months(env, site)
		if err != nil {
			return Outcome{}, err
		}
		for _, month := range months {
			name := fmt.Sprintf("%s/%s/%s.csv", ecoCounterDir, directory, month.Format(ecoCounterMonth))
			if !e.isCurrent(env, month) {
				existing, err := env.Storage.ReadExisting(env.Config.OutputDir(), name)
				if err != nil {
					return Outcome{}, err
				}
				if existing != nil {
					continue
				}
			}

			content, rows, err := e.monthCSV(ctx, env, base, headers, site, month)
			if err != nil {
				return Outcome{}, err
			}
			if rows == 0 {
				env.warn(e.Name(), "skipping month without data",
					metadata.NewAttr(metadata.AttrPath, name),
				)
				continue
			}
			outcome.rows += rows
			artifacts = append(artifacts, storage.NewArtifact(name, metadata.ArtifactCSV, content))
		}
	}

	siteMin, jsonErr := jsonutil.MarshalASCIIIndent(summaries, "    ")
	if jsonErr != nil {
		return Outcome{}, env.fail(e.Name(), "EcoCounter.Run", &RecipeError{
			Message: jsonErr.Error(),
			Cause:   ErrCauseRenderFailed,
		})
	}
	artifacts = append([]storage.Artifact{
		storage.NewArtifact(ecoCounterDir+"/site_min.json", metadata.ArtifactJSON, siteMin),
		storage.NewArtifact(ecoCounterDir+"/SITE_INDEX.md", metadata.ArtifactText, []byte(index.String())),
	}, artifacts...)

	if err := env.writeAll(&outcome, artifacts...); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// months runs from the month before the site's first data up to the current
// month.
func (e *EcoCounter) months(env Env, site ecoCounterSite) ([]time.Time, failure.ClassifiedError) {
	if len(site.FirstData) < len(ecoCounterMonth) {
		return nil, e.unexpected(env, site, "firstData "+site.FirstData)
	}
	first, err := time.Parse(ecoCounterMonth, site.FirstData[:len(ecoCounterMonth)])
	if err != nil {
		return nil, e.unexpected(env, site, "firstData "+site.FirstData)
	}

	now := env.Clock.Now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var months []time.Time
	for m := first.AddDate(0, -1, 0); !m.After(current); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months, nil
}

func (e *EcoCounter) isCurrent(env Env, month time.Time) bool {
	return month.Format(ecoCounterMonth) == env.Clock.Now().Format(ecoCounterMonth)
}

// monthCSV merges the counts of every channel into one row per timestamp:
// Datetime, one count column per channel, then one status column per channel.
func (e *EcoCounter) monthCSV(
	ctx context.Context,
	env Env,
	base string,
	headers map[string]string,
	site ecoCounterSite,
	month time.Time,
) ([]byte, int, failure.ClassifiedError) {
	channels := site.channels()
	begin := month.Format(ecoCounterAPITime)
	end := month.AddDate(0, 1, 0).Format(ecoCounterAPITime)

	var dates []string
	byDate := map[string]map[string]ecoCounterCount{}
	for _, ch := range channels {
		url := fmt.Sprintf("%s/data/site/%s?begin=%s&end=%s&step=15m&complete=false", base, ch.ID, begin, end)
		param := fetcher.NewFetchParam(url, 0).
			WithHeaders(headers).
			WithCacheKeyPrefix(base).
			WithStrictStatus()
		var counts []ecoCounterCount
		if _, err := env.Fetcher.FetchJSON(ctx, param, &counts); err != nil {
			return nil, 0, err
		}
		for _, c := range counts {
			if _, seen := byDate[c.Date]; !seen {
				byDate[c.Date] = map[string]ecoCounterCount{}
				dates = append(dates, c.Date)
			}
			byDate[c.Date][ch.ID.String()] = c
		}
	}
	if len(dates) == 0 {
		return nil, 0, nil
	}

	header := []string{"Datetime"}
	for _, ch := range channels {
		header = append(header, fmt.Sprintf("%s (%s)", ch.ID, ch.Name))
	}
	for _, ch := range channels {
		header = append(header, ch.ID.String()+"-status")
	}

	rows := make([][]string, 0, len(dates))
	for _, date := range dates {
		stamp := date
		if len(stamp) > 16 {
			stamp = stamp[:16]
		}
		counts := []string{stamp}
		var statuses []string
		for _, ch := range channels {
			c, ok := byDate[date][ch.ID.String()]
			if !ok {
				counts = append(counts, "")
				statuses = append(statuses, "")
				continue
			}
			counts = append(counts, numberOrEmpty(c.Counts))
			statuses = append(statuses, numberOrEmpty(c.Status))
		}
		rows = append(rows, append(counts, statuses...))
	}
	return csvBytes(reshape.Excel, header, rows), len(rows), nil
}

func (e *EcoCounter) unexpected(env Env, site ecoCounterSite, detail string) *RecipeError {
	return env.fail(e.Name(), "EcoCounter.months", &RecipeError{
		Message: fmt.Sprintf("site %s: %s", site.ID, detail),
		Cause:   ErrCauseUnexpectedData,
	})
}

func numberOrEmpty(n *json.Number) string {
	if n == nil {
		return ""
	}
	return n.String()
}
