package metrics

import (
	"github.com/dasaro/nn-teaching/internal/activation"
)

// Counter accumulates classification and loss results over a pass through a
// dataset.
type Counter struct {
	Kind    activation.Kind // Output activation, selects the decision rule
	Correct int
	Total   int
	LossSum float64
}

// NewCounter creates a counter for networks whose output layer uses kind.
func NewCounter(kind activation.Kind) *Counter {
	return &Counter{Kind: kind}
}

// Add records one prediction and its loss.
func (c *Counter) Add(output, target []float64, loss float64) {
	if Correct(c.Kind, output, target) {
		c.Correct++
	}
	c.Total++
	c.LossSum += loss
}

// Accuracy returns the fraction of correct predictions so far.
func (c *Counter) Accuracy() float64 {
	return Accuracy(c.Correct, c.Total)
}

// MeanLoss returns the mean recorded loss, or 0 before any Add.
func (c *Counter) MeanLoss() float64 {
	if c.Total == 0 {
		return 0
	}
	return c.LossSum / float64(c.Total)
}

// Reset clears the counts.
func (c *Counter) Reset() {
	c.Correct, c.Total, c.LossSum = 0, 0, 0
}
