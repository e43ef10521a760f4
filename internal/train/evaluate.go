package train

import (
	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/dataset"
	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/nn"
)

// Evaluate returns the accuracy and mean loss of net on ds without changing
// the network.
func Evaluate(net *nn.Network, ds dataset.Dataset) (accuracy, loss float64, err error) {
	if err := ds.Validate(net.InputSize(), net.OutputSize()); err != nil {
		return 0, 0, errors.Wrap(err, "evaluate")
	}

	counter := metrics.NewCounter(net.OutputActivation())
	kind := net.LossKind()
	for _, s := range ds {
		out, err := nn.Predict(net, s.Input)
		if err != nil {
			return 0, 0, errors.Wrap(err, "evaluate")
		}
		counter.Add(out, s.Target, nn.Loss(kind, out, s.Target))
	}
	return counter.Accuracy(), counter.MeanLoss(), nil
}
