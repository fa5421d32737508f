package blend

import "errors"

var (
	// ErrInsufficientData means an hour bucket had zero total contributing
	// weight. No summary is emitted; callers must skip or flag the bucket.
	ErrInsufficientData = errors.New("insufficient data: zero total weight for bucket")

	// ErrSpecificationNotFound means no specification is configured for a
	// plant/line/product key. Never to be treated as "no constraint".
	ErrSpecificationNotFound = errors.New("specification not found")
)
