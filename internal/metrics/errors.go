package metrics

import "errors"

var (
	ErrWrite = errors.New("failed to write metrics")
)
