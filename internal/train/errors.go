package train

import (
	"errors"
	"fmt"
)

// ErrDiverged reports that the loss became non-finite during training.
var ErrDiverged = errors.New("training diverged")

// DivergedError provides the epoch at which training diverged and the last
// epoch whose weights were kept.
type DivergedError struct {
	Epoch           int     // Epoch in which the non-finite value appeared
	LastStableEpoch int     // Last completed finite epoch; 0 means the initial weights
	Loss            float64 // Offending loss value
}

// Error implements the error interface.
func (e *DivergedError) Error() string {
	return fmt.Sprintf("training diverged at epoch %d (loss %v), restored epoch %d", e.Epoch, e.Loss, e.LastStableEpoch)
}

// Is reports whether target is ErrDiverged.
func (e *DivergedError) Is(target error) bool {
	return target == ErrDiverged
}
