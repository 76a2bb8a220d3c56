package extract

import "errors"

var (
	ErrExtract    = errors.New("extraction failed")
	ErrUnsafePath = errors.New("unsafe path in archive")
	ErrArchive    = errors.New("archive failed")
)
