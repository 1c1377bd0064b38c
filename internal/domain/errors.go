package domain

import "errors"

var (
	// ErrNotFound indicates the requested job or asset does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoForeground indicates segmentation produced an empty mask, so
	// there is no product to protect or composite.
	ErrNoForeground = errors.New("no foreground detected in image")
	// ErrNoJobAvailable indicates the claim query matched nothing.
	ErrNoJobAvailable = errors.New("no job available")
	// ErrUnsupportedFormat indicates the uploaded file could not be decoded
	// as any supported image format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
