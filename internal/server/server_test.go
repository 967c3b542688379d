package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/loader"
	"github.com/oakridge-association/sitesearch/internal/search"
)

var docs = []indexing.SearchDocument{
	{ID: "newsletter-1", Type: indexing.TypeNewsletter, Title: "Spring Meeting Review", Content: "Spring Meeting Review meeting", URL: "/newsletters.html#newsletter-1", Date: "2024-03-01", Quarter: "Q1", Tags: []string{"meeting"}},
	{ID: "meeting-2", Type: indexing.TypeMeeting, Title: "Budget Meeting", Content: "Budget Meeting dues meeting", URL: "/meetings.html#meeting-2", Date: "2022-10-04", Quarter: "Q4"},
}

func setupTestServer(t *testing.T, opts Options) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()

	ix, err := indexing.BuildIndex(docs)
	require.NoError(t, err)
	indexData, err := ix.Marshal()
	require.NoError(t, err)
	catalogData, err := json.Marshal(indexing.BuildCatalog(docs, indexing.Checksum(indexData), time.Now()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexing.IndexFile), indexData, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexing.CatalogFile), catalogData, 0644))

	l := loader.New(loader.NewDirSource(dir, loader.EngineJSON))
	t.Cleanup(func() { l.Close() })
	engine := search.NewEngine(l, search.Config{})

	opts.ArtifactsDir = dir
	srv := httptest.NewServer(New(engine, opts).Handler())
	t.Cleanup(srv.Close)
	return srv, dir
}

func getJSON(t *testing.T, u string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHandleSearch(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	var res search.Result
	resp := getJSON(t, srv.URL+"/api/search?q=meeting&type=newsletter", &res)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "newsletter-1", res.Results[0].ID)
	assert.True(t, res.HasResults)
	assert.Equal(t, 2, res.Metadata.TotalDocuments)

	res = search.Result{}
	getJSON(t, srv.URL+"/api/search?q=xyzzynotfound", &res)
	assert.False(t, res.HasResults)
	assert.Empty(t, res.Error)

	res = search.Result{}
	getJSON(t, srv.URL+"/api/search?q=author:smith", &res)
	assert.NotEmpty(t, res.Error)

	resp = getJSON(t, srv.URL+"/api/search?q=meeting&limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleSuggestAndFilters(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	var opts search.FilterOptions
	resp := getJSON(t, srv.URL+"/api/filters", &opts)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"2024", "2022"}, opts.Years)

	var got []search.Suggestion
	getJSON(t, srv.URL+"/api/suggest?q=bud", &got)
	require.Len(t, got, 1)
	assert.Equal(t, "Budget Meeting", got[0].Text)

	got = nil
	getJSON(t, srv.URL+"/api/suggest?q=b", &got)
	assert.Empty(t, got)
}

func TestSearchUnavailable(t *testing.T) {
	engine := search.NewEngine(loader.New(loader.NewDirSource(t.TempDir(), loader.EngineJSON)), search.Config{})
	srv := httptest.NewServer(New(engine, Options{}).Handler())
	defer srv.Close()

	var res search.Result
	resp := getJSON(t, srv.URL+"/api/search?q=spring", &res)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, res.Error)

	resp = getJSON(t, srv.URL+"/api/filters", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestArtifactsETag(t *testing.T) {
	srv, dir := setupTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/search/" + indexing.IndexFile)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/search/"+indexing.IndexFile, nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	// A rebuilt artifact gets a new tag.
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexing.IndexFile), []byte(`{"version":1}`), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(dir, indexing.IndexFile), later, later))
	resp, err = http.Get(srv.URL + "/search/" + indexing.IndexFile)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))

	resp, err = http.Get(srv.URL + "/search/secrets.txt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	srv, _ := setupTestServer(t, Options{RateLimit: 1})

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		resp := getJSON(t, srv.URL+"/api/filters", nil)
		codes[resp.StatusCode]++
	}
	assert.Equal(t, 1, codes[http.StatusOK])
	assert.Equal(t, 4, codes[http.StatusTooManyRequests])
}

func TestParseFilters(t *testing.T) {
	q, err := url.ParseQuery("type=meeting,resource&type=glossary&year=2024&quarter=Q1&tag=pool&from=2024-01-01")
	require.NoError(t, err)

	f := ParseFilters(q)
	assert.Equal(t, []string{"meeting", "resource", "glossary"}, f.Types)
	assert.Equal(t, []string{"2024"}, f.Years)
	assert.Equal(t, []string{"Q1"}, f.Quarters)
	assert.Equal(t, []string{"pool"}, f.Tags)
	require.NotNil(t, f.DateRange)
	assert.Equal(t, "2024-01-01", f.DateRange.From)
	assert.Empty(t, f.DateRange.To)

	assert.True(t, ParseFilters(url.Values{}).IsEmpty())
}
