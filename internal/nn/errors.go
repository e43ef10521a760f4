package nn

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrShapeMismatch reports that an input, target, trace or state does not
	// match the network architecture. It is always a caller error.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidConfig reports a configuration rejected before any
	// computation runs (bad layer sizes, non-positive learning rate, empty
	// dataset, ...). Other packages wrap it so callers can test with errors.Is.
	ErrInvalidConfig = errors.New("invalid config")
)

// ShapeError provides detailed information about a size disagreement.
type ShapeError struct {
	Op    string // Operation that detected the mismatch (e.g., "forward")
	What  string // Offending value (e.g., "input", "trace layer 2")
	Want  int    // Expected size
	Got   int    // Actual size
	Layer int    // Layer index, -1 when not layer specific
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Layer >= 0 {
		return fmt.Sprintf("%s: %s (layer %d): want %d, got %d", e.Op, e.What, e.Layer, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: %s: want %d, got %d", e.Op, e.What, e.Want, e.Got)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func shapeErr(op, what string, layer, want, got int) error {
	return &ShapeError{Op: op, What: what, Layer: layer, Want: want, Got: got}
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
