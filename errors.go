package goldeneval

import "errors"

var (
	// ErrDatasetNotFound is returned when a named dataset does not exist.
	ErrDatasetNotFound = errors.New("goldeneval: dataset not found")

	// ErrDatasetExists is returned when an import would change the kind of
	// an existing dataset without being forced.
	ErrDatasetExists = errors.New("goldeneval: dataset already exists")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("goldeneval: unsupported file format")

	// ErrParsingFailed is returned when a dataset file cannot be parsed.
	ErrParsingFailed = errors.New("goldeneval: parsing failed")

	// ErrStoreClosed is returned when operating on a closed engine.
	ErrStoreClosed = errors.New("goldeneval: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("goldeneval: invalid configuration")

	// ErrEmptyDataset is returned when importing a dataset with no records.
	ErrEmptyDataset = errors.New("goldeneval: dataset has no records")

	// ErrInvalidKind is returned for dataset kinds other than golden or actual.
	ErrInvalidKind = errors.New("goldeneval: invalid dataset kind")
)
