package ports

import "errors"

// ErrInvalidRequest wraps validation failures so transport layers can tell
// a bad request apart from an internal failure.
var ErrInvalidRequest = errors.New("invalid request")
