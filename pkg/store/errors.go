package store

import "errors"

var (
	// ErrNotFound is returned for an unknown volume id.
	ErrNotFound = errors.New("volume not found")

	// ErrDatasetMissing is returned when a source file holds none of the
	// recognized dataset names, or the dataset is not three-dimensional.
	ErrDatasetMissing = errors.New("no recognized dataset")

	// ErrReadFailure wraps I/O and decoding errors on a source file.
	ErrReadFailure = errors.New("volume read failed")
)
