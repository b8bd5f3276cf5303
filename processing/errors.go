package processing

import "github.com/pkg/errors"

// ErrInvalidInput is wrapped by every argument validation failure.
var ErrInvalidInput = errors.New("invalid input")
