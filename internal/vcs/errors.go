package vcs

import "errors"

var (
	ErrDescribe      = errors.New("describe failed")
	ErrNotRepository = errors.New("not a git repository")
	ErrNoCommits     = errors.New("repository has no commits")
)
