package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable is returned by a Source that has nothing to offer,
	// such as an embedded source in a binary built without artifacts. The
	// loader moves on to the next source.
	ErrNotAvailable = errors.New("source not available")

	// ErrNoSource means no configured source could provide the index.
	ErrNoSource = errors.New("no index source available")
)

// IndexLoadError reports that the index or catalog could not be loaded.
// Search surfaces it to the caller instead of returning empty results.
type IndexLoadError struct {
	Source string
	Err    error
}

func (e *IndexLoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("search index unavailable: %v", e.Err)
	}
	return fmt.Sprintf("search index unavailable (%s): %v", e.Source, e.Err)
}

func (e *IndexLoadError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a non-2xx response for an artifact.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}
