package project

import "errors"

var (
	ErrProject         = errors.New("invalid project")
	ErrInvalidBuildArg = errors.New("invalid build argument")
	ErrBuildArgFile    = errors.New("failed to read build argument file")
	ErrConfig          = errors.New("failed to parse configuration file")
)
