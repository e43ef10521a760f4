// Copyright 2025 nn-teaching Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasaro/nn-teaching/dataset"
	"github.com/dasaro/nn-teaching/nn"
	"github.com/dasaro/nn-teaching/train"
)

func TestTrain(t *testing.T) {
	ds := dataset.TwoClusters(2, rand.New(rand.NewSource(1))) //nolint:gosec // test data
	net, err := nn.New(nn.Config{
		Sizes:       []int{2, 1},
		Activations: []nn.Kind{nn.Sigmoid},
		Init:        nn.Xavier(7),
	})
	require.NoError(t, err)

	var epochs int
	tr, err := train.New(func() train.Config {
		cfg := train.DefaultConfig()
		cfg.MaxEpochs = 500
		return cfg
	}(), train.WithObserver(func(train.Epoch, train.Action) { epochs++ }))
	require.NoError(t, err)

	res, err := tr.Train(context.Background(), net, ds)
	require.NoError(t, err)
	assert.Equal(t, train.StatusConverged, res.Status)
	assert.Equal(t, res.Epochs, epochs)

	acc, _, err := train.Evaluate(net, ds)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.75)
}
