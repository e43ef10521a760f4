// Copyright 2025 nn-teaching Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package search runs hyperparameter grids in parallel and ranks the trials.
//
// Example usage:
//
//	grid := search.Grid{
//	    LearningRates: []float64{0.1, 0.5},
//	    Momenta:       []float64{0, 0.9},
//	    Seeds:         []int64{1, 2, 3},
//	}
//	results, err := search.Search(ctx, base, ds, grid, search.Options{Workers: 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range search.Summarize(results) {
//	    fmt.Printf("%s: %d/%d perfect\n", s.Setting, s.Perfect, s.Trials)
//	}
package search

import (
	"context"

	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/search"
)

// Base holds the configuration every trial starts from.
type Base = search.Base

// Grid lists the values explored per hyperparameter.
type Grid = search.Grid

// Trial is one point of the grid.
type Trial = search.Trial

// Options controls trial execution.
type Options = search.Options

// TrialResult is the outcome of one trial.
type TrialResult = search.TrialResult

// Summary aggregates trials that differ only by seed.
type Summary = search.Summary

// Search runs every trial of grid on ds and returns the results ranked best
// first.
func Search(ctx context.Context, base Base, ds dataset.Dataset, grid Grid, opts Options) ([]TrialResult, error) {
	return search.Search(ctx, base, ds, grid, opts)
}

// Rank sorts results best first in place.
func Rank(results []TrialResult) {
	search.Rank(results)
}

// Summarize groups results by setting and ranks the groups.
func Summarize(results []TrialResult) []Summary {
	return search.Summarize(results)
}
