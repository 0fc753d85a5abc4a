package recipe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecipe struct {
	name string
}

func (s stubRecipe) Name() string        { return s.name }
func (s stubRecipe) Version() string     { return "1" }
func (s stubRecipe) Description() string { return "stub" }
func (s stubRecipe) Run(ctx context.Context, env recipe.Env) (recipe.Outcome, failure.ClassifiedError) {
	return recipe.Outcome{}, nil
}

func TestDefaultRegistry_Names(t *testing.T) {
	names := recipe.DefaultRegistry().Names()
	assert.Equal(t, []string{"covid", "eco-counter", "gremienkalender", "haushalt", "klimadashboard", "ladesaeulen", "stadtwerke"}, names)
}

func TestRegistry_Get(t *testing.T) {
	registry := recipe.NewRegistry(stubRecipe{name: "b"}, stubRecipe{name: "a"})

	rec, err := registry.Get("a")
	require.Nil(t, err)
	assert.Equal(t, "a", rec.Name())

	_, err = registry.Get("zzz")
	require.NotNil(t, err)
	var recipeErr *recipe.RecipeError
	require.True(t, errors.As(err, &recipeErr))
	assert.Equal(t, recipe.ErrCauseUnknownRecipe, recipeErr.Cause)
	assert.Equal(t, "zzz", recipeErr.Recipe)
	assert.True(t, failure.IsFatal(err))
}

func TestRegistry_AllSortedByName(t *testing.T) {
	registry := recipe.NewRegistry(stubRecipe{name: "b"}, stubRecipe{name: "c"}, stubRecipe{name: "a"})

	var names []string
	for _, rec := range registry.All() {
		names = append(names, rec.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestDefaultRegistry_VersionsAndDescriptions(t *testing.T) {
	for _, rec := range recipe.DefaultRegistry().All() {
		assert.NotEmpty(t, rec.Version(), rec.Name())
		assert.NotEmpty(t, rec.Description(), rec.Name())
	}
}
