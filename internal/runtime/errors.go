package runtime

import "errors"

var (
	ErrRuntime         = errors.New("runtime error")
	ErrToolNotFound    = errors.New("tool not found")
	ErrUnknownEngine   = errors.New("unknown engine")
	ErrEmptyArchive    = errors.New("archive contains no image")
	ErrMultipleImages  = errors.New("archive contains more than one image")
	ErrNoSuchContainer = errors.New("no such container")
)
