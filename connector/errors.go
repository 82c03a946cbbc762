package connector

import "errors"

var (
	// ErrReaderExhausted is returned by PageReader.FetchNext once the split
	// has no more pages.
	ErrReaderExhausted = errors.New("page reader exhausted")

	// ErrTableNotFound is returned when a handle refers to a table the
	// service no longer describes.
	ErrTableNotFound = errors.New("table not found")
)
