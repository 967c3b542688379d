package loader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakridge-association/sitesearch/internal/indexing"
)

var loaderDocs = []indexing.SearchDocument{
	{ID: "newsletter-1", Type: indexing.TypeNewsletter, Title: "Spring Meeting Review", Content: "Spring Meeting Review meeting", Tags: []string{"meeting"}, Date: "2024-03-01"},
	{ID: "meeting-2", Type: indexing.TypeMeeting, Title: "Budget Review", Content: "Budget Review dues"},
}

func artifacts(t *testing.T) (indexData, catalogData []byte) {
	t.Helper()
	ix, err := indexing.BuildIndex(loaderDocs)
	require.NoError(t, err)
	indexData, err = ix.Marshal()
	require.NoError(t, err)
	catalogData, err = json.Marshal(indexing.BuildCatalog(loaderDocs, indexing.Checksum(indexData), time.Now()))
	require.NoError(t, err)
	return indexData, catalogData
}

// artifactServer serves both artifacts and counts requests per path.
type artifactServer struct {
	*httptest.Server
	hits   sync.Map // path -> *atomic.Int32
	status atomic.Int32
	gate   chan struct{}
}

func newArtifactServer(t *testing.T) *artifactServer {
	t.Helper()
	indexData, catalogData := artifacts(t)
	s := &artifactServer{}
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := s.hits.LoadOrStore(r.URL.Path, &atomic.Int32{})
		v.(*atomic.Int32).Add(1)
		if s.gate != nil {
			<-s.gate
		}
		if code := int(s.status.Load()); code != http.StatusOK {
			http.Error(w, http.StatusText(code), code)
			return
		}
		switch r.URL.Path {
		case "/search/" + indexing.IndexFile:
			w.Write(indexData)
		case "/search/" + indexing.CatalogFile:
			w.Write(catalogData)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *artifactServer) count(path string) int32 {
	v, ok := s.hits.Load(path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int32).Load()
}

func TestInitializeFromHTTP(t *testing.T) {
	srv := newArtifactServer(t)
	l := New(NewEmbeddedSource(), NewHTTPSource(srv.URL+"/search"))

	assert.False(t, l.Loaded())
	assert.Nil(t, l.Snapshot())

	snap, err := l.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, l.Loaded())
	assert.Equal(t, 2, snap.Len())

	entry, ok := snap.Entry("newsletter-1")
	require.True(t, ok)
	assert.Equal(t, "Spring Meeting Review", entry.Title)
	_, ok = snap.Entry("missing")
	assert.False(t, ok)

	again, err := l.Initialize(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, again)
	assert.Equal(t, int32(1), srv.count("/search/"+indexing.IndexFile))
	assert.Equal(t, int32(1), srv.count("/search/"+indexing.CatalogFile))
}

func TestInitializeConcurrentCallsShareOneLoad(t *testing.T) {
	srv := newArtifactServer(t)
	srv.gate = make(chan struct{})
	l := New(NewHTTPSource(srv.URL + "/search/"))

	const callers = 8
	var wg sync.WaitGroup
	snaps := make([]*Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := l.Initialize(context.Background())
			assert.NoError(t, err)
			snaps[i] = s
		}(i)
	}

	// Let every caller reach the latch before the fetches complete.
	time.Sleep(50 * time.Millisecond)
	close(srv.gate)
	wg.Wait()

	for _, s := range snaps {
		assert.Same(t, snaps[0], s)
	}
	assert.Equal(t, int32(1), srv.count("/search/"+indexing.IndexFile))
}

func TestInitialize404IsIndexLoadError(t *testing.T) {
	srv := newArtifactServer(t)
	srv.status.Store(http.StatusNotFound)
	l := New(NewHTTPSource(srv.URL + "/search"))

	_, err := l.Initialize(context.Background())
	require.Error(t, err)

	var loadErr *IndexLoadError
	require.True(t, errors.As(err, &loadErr))
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.False(t, l.Loaded())

	// Not latched: the next call retries and fails the same way.
	_, err = l.Initialize(context.Background())
	assert.True(t, errors.As(err, &loadErr))

	// Once the artifacts appear, a retry succeeds.
	srv.status.Store(http.StatusOK)
	_, err = l.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, l.Loaded())
}

func TestInitializeFailsWhenEitherFetchFails(t *testing.T) {
	indexData, _ := artifacts(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/"+indexing.IndexFile {
			w.Write(indexData)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(NewHTTPSource(srv.URL)).Initialize(context.Background())
	var loadErr *IndexLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestInitializeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(NewHTTPSource(url)).Initialize(context.Background())
	var loadErr *IndexLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestEmbeddedSourceCheckedFirst(t *testing.T) {
	indexData, catalogData := artifacts(t)
	provider := NewMockDataProvider()
	provider.AddFile(indexing.IndexFile, indexData)
	provider.AddFile(indexing.CatalogFile, catalogData)

	srv := newArtifactServer(t)
	l := New(&EmbeddedSource{Provider: provider}, NewHTTPSource(srv.URL+"/search"))

	snap, err := l.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "embedded", snap.Source)
	assert.Equal(t, int32(0), srv.count("/search/"+indexing.IndexFile))
	assert.Equal(t, 1, provider.Reads(indexing.IndexFile))
}

func TestEmbeddedCorruptIndexPropagates(t *testing.T) {
	_, catalogData := artifacts(t)
	provider := NewMockDataProvider()
	provider.AddFile(indexing.IndexFile, []byte(`{"refs": [`))
	provider.AddFile(indexing.CatalogFile, catalogData)

	_, err := New(&EmbeddedSource{Provider: provider}).Initialize(context.Background())
	var loadErr *IndexLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "embedded", loadErr.Source)
}

func TestNoSourceAvailable(t *testing.T) {
	_, err := New(&EmbeddedSource{Provider: NewMockDataProvider()}, NewHTTPSource("")).Initialize(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestInitializeCallerCancellation(t *testing.T) {
	srv := newArtifactServer(t)
	srv.gate = make(chan struct{})
	l := New(NewHTTPSource(srv.URL + "/search"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(srv.gate)
	snap, err := l.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	indexData, catalogData := artifacts(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexing.IndexFile), indexData, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexing.CatalogFile), catalogData, 0644))

	l := New(NewDirSource(dir, EngineJSON))
	snap, err := l.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	require.NoError(t, l.Close())
	assert.False(t, l.Loaded())

	_, err = New(NewDirSource(t.TempDir(), EngineJSON)).Initialize(context.Background())
	var loadErr *IndexLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestDirSourceBleve(t *testing.T) {
	dir := t.TempDir()
	_, catalogData := artifacts(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexing.CatalogFile), catalogData, 0644))
	require.NoError(t, indexing.BuildBleve(filepath.Join(dir, indexing.BleveIndexDir), loaderDocs))

	l := New(NewDirSource(dir, EngineBleve))
	defer l.Close()
	snap, err := l.Initialize(context.Background())
	require.NoError(t, err)

	n, err := snap.Index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestArtifactURL(t *testing.T) {
	u, err := artifactURL("https://oakridge.example/search", indexing.IndexFile)
	require.NoError(t, err)
	assert.Equal(t, "https://oakridge.example/search/search-index.json", u)

	u, err = artifactURL("https://oakridge.example/", indexing.CatalogFile)
	require.NoError(t, err)
	assert.Equal(t, "https://oakridge.example/search-documents.json", u)
}
