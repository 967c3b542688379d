package indexing

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus aborts a build in which no source produced a document.
	ErrEmptyCorpus = errors.New("no documents loaded from any source")

	// ErrDuplicateID marks a record whose document id was already taken.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrBuildInProgress is returned when another process holds the build lock.
	ErrBuildInProgress = errors.New("another build is in progress")
)

// SourceLoadError reports a content source that could not be read. The
// build logs it and continues without that source.
type SourceLoadError struct {
	Source DocType
	Path   string
	Err    error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("failed to load %s source %s: %v", e.Source, e.Path, e.Err)
}

func (e *SourceLoadError) Unwrap() error {
	return e.Err
}

// RecordError reports a single record skipped during extraction.
type RecordError struct {
	Source DocType
	Index  int
	ID     string
	Err    error
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s record %d (id %s) skipped: %v", e.Source, e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("%s record %d skipped: %v", e.Source, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
