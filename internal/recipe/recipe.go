package recipe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/cache"
	"github.com/rohmanhakim/opendata-harvester/internal/config"
	"github.com/rohmanhakim/opendata-harvester/internal/fetcher"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/storage"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/rohmanhakim/opendata-harvester/pkg/timeutil"
)

/*
Responsibilities

- Name, version and describe one data source conversion
- Pull inputs through the cached fetcher or from the input directory
- Shape records and hand finished artifacts to storage

Recipes are independent of each other. Each one carries its own version;
they share plumbing, never configuration.

A recipe renders every artifact in memory and hands the whole set to storage
in one call, so a failure during parsing, shaping or staging leaves the output
directory untouched.
*/

type Recipe interface {
	Name() string
	Version() string
	Description() string
	Run(ctx context.Context, env Env) (Outcome, failure.ClassifiedError)
}

// Env is the shared plumbing handed to a recipe run.
type Env struct {
	Config       config.Config
	Fetcher      *fetcher.CachedFetcher
	Storage      storage.Sink
	MetadataSink metadata.MetadataSink
	Clock        timeutil.Clock
}

// NewEnv wires a file cache, cached fetcher and local storage sink from cfg.
func NewEnv(cfg config.Config, metadataSink metadata.MetadataSink, clock timeutil.Clock) Env {
	fileCache := cache.NewFileCache(cfg.CacheDir())
	cachedFetcher := fetcher.NewCachedFetcher(metadataSink, fileCache, clock, fetcher.Options{
		UserAgent:       cfg.UserAgent(),
		Timeout:         cfg.Timeout(),
		PolitenessDelay: cfg.PolitenessDelay(),
	})
	sink := storage.NewLocalSink(metadataSink, cfg.DryRun())
	return Env{
		Config:       cfg,
		Fetcher:      cachedFetcher,
		Storage:      &sink,
		MetadataSink: metadataSink,
		Clock:        clock,
	}
}

func (e Env) fetchParam(url string) fetcher.FetchParam {
	return fetcher.NewFetchParam(url, e.Config.CacheMaxAge())
}

// year is the configured year, or the clock's current one.
func (e Env) year() int {
	if e.Config.Year() > 0 {
		return e.Config.Year()
	}
	return e.Clock.Now().Year()
}

func (e Env) source(recipeName, key, fallback string) string {
	return e.Config.Source(recipeName+"."+key, fallback)
}

func (e Env) inputPath(name string) string {
	return filepath.Join(e.Config.InputDir(), name)
}

// readInput reads a required datafile from the input directory.
func (e Env) readInput(recipeName, name string) ([]byte, failure.ClassifiedError) {
	data, found, err := e.readOptionalInput(recipeName, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, e.fail(recipeName, "readInput", &RecipeError{
			Message: fmt.Sprintf("%s not found", e.inputPath(name)),
			Cause:   ErrCauseMissingInput,
		})
	}
	return data, nil
}

// readOptionalInput reports found=false without error when the file is absent.
func (e Env) readOptionalInput(recipeName, name string) ([]byte, bool, failure.ClassifiedError) {
	data, err := os.ReadFile(e.inputPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, e.fail(recipeName, "readInput", &RecipeError{
			Message: err.Error(),
			Cause:   ErrCauseMissingInput,
		})
	}
	return data, true, nil
}

// writeAll writes the artifact set as a unit and collects the results into
// outcome.
func (e Env) writeAll(outcome *Outcome, artifacts ...storage.Artifact) failure.ClassifiedError {
	results, err := e.Storage.WriteAll(e.Config.OutputDir(), artifacts...)
	if err != nil {
		return err
	}
	outcome.artifacts = append(outcome.artifacts, results...)
	return nil
}

func (e Env) warn(recipeName, message string, attrs ...metadata.Attribute) {
	e.MetadataSink.RecordWarning("recipe", message, append([]metadata.Attribute{
		metadata.NewAttr(metadata.AttrRecipe, recipeName),
	}, attrs...))
}

// fail records err and returns it tagged with the recipe name.
func (e Env) fail(recipeName, action string, err *RecipeError) *RecipeError {
	err.Recipe = recipeName
	e.MetadataSink.RecordError(
		time.Now(),
		"recipe",
		action,
		mapRecipeErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrRecipe, recipeName),
		},
	)
	return err
}

type Registry struct {
	recipes map[string]Recipe
}

func NewRegistry(recipes ...Recipe) *Registry {
	r := &Registry{recipes: make(map[string]Recipe, len(recipes))}
	for _, rec := range recipes {
		r.recipes[rec.Name()] = rec
	}
	return r
}

// DefaultRegistry holds every recipe this module ships.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewKlimadashboard(),
		NewLadesaeulen(),
		NewHaushalt(),
		NewGremienkalender(),
		NewCovid(),
		NewStadtwerke(),
		NewEcoCounter(),
	)
}

func (r *Registry) Get(name string) (Recipe, failure.ClassifiedError) {
	rec, ok := r.recipes[name]
	if !ok {
		return nil, &RecipeError{
			Message: fmt.Sprintf("no recipe named %q", name),
			Cause:   ErrCauseUnknownRecipe,
			Recipe:  name,
		}
	}
	return rec, nil
}

// All returns the recipes sorted by name.
func (r *Registry) All() []Recipe {
	out := make([]Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.recipes))
	for _, rec := range r.All() {
		names = append(names, rec.Name())
	}
	return names
}
