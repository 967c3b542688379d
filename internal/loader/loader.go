// Package loader makes the serialized search index available at runtime.
// Sources are tried in order (embedded artifacts first, then the network
// or a local directory) and the first one that loads wins for the life of
// the Loader.
package loader

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/oakridge-association/sitesearch/internal/log"
)

// Loader lazily loads one Snapshot. It is safe for concurrent use.
type Loader struct {
	sources []Source
	group   singleflight.Group
	snap    atomic.Pointer[Snapshot]
	log     *log.Logger
}

// New creates a loader trying sources in the given order.
func New(sources ...Source) *Loader {
	return &Loader{
		sources: sources,
		log:     log.ForService("loader"),
	}
}

// Initialize blocks until the index and catalog are loaded. Concurrent
// calls share one load. A successful load is kept; a failed one is not,
// so the next call tries again. Failures are *IndexLoadError.
func (l *Loader) Initialize(ctx context.Context) (*Snapshot, error) {
	if s := l.snap.Load(); s != nil {
		return s, nil
	}

	ch := l.group.DoChan("initialize", func() (interface{}, error) {
		if s := l.snap.Load(); s != nil {
			return s, nil
		}
		// The load outlives any single caller's cancellation.
		s, err := l.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.snap.Store(s)
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (l *Loader) load(ctx context.Context) (*Snapshot, error) {
	for _, src := range l.sources {
		s, err := src.Load(ctx)
		if errors.Is(err, ErrNotAvailable) {
			l.log.Debugf("source %s not available, trying next", src.Name())
			continue
		}
		if err != nil {
			l.log.Warnf("failed to load index from %s: %v", src.Name(), err)
			return nil, &IndexLoadError{Source: src.Name(), Err: err}
		}
		l.log.Infof("✓ Search index loaded from %s (%d documents)", src.Name(), s.Len())
		return s, nil
	}
	return nil, &IndexLoadError{Err: ErrNoSource}
}

// Snapshot returns the loaded snapshot, or nil before a successful
// Initialize. It never triggers a load.
func (l *Loader) Snapshot() *Snapshot {
	return l.snap.Load()
}

// Loaded reports whether Initialize has succeeded.
func (l *Loader) Loaded() bool {
	return l.snap.Load() != nil
}

// Close releases the loaded index, if any.
func (l *Loader) Close() error {
	s := l.snap.Swap(nil)
	if s == nil || s.Index == nil {
		return nil
	}
	return s.Index.Close()
}
