package invindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakridge-association/sitesearch/internal/fts"
)

var testFields = []fts.Field{
	{Name: "title", Boost: 10},
	{Name: "content", Boost: 5},
	{Name: "tags", Boost: 2},
}

type testDoc struct {
	ref    string
	values map[string]string
}

var testDocs = []testDoc{
	{ref: "newsletter-1", values: map[string]string{
		"title":   "Spring Meeting Review",
		"content": "Spring Meeting Review. A look back at the spring gathering.",
		"tags":    "meeting",
	}},
	{ref: "meeting-7", values: map[string]string{
		"title":   "Pool Opening",
		"content": "Pool Opening. The community pool opens for the season.",
		"tags":    "pool summer",
	}},
	{ref: "resource-3", values: map[string]string{
		"title":   "Gardening Guide",
		"content": "Gardening Guide. Planting tips for the spring garden and the pool area.",
		"tags":    "garden",
	}},
	{ref: "glossary-hoa", values: map[string]string{
		"title":   "Café Rules",
		"content": "Rules for the clubhouse café.",
	}},
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	b, err := NewBuilder(testFields)
	require.NoError(t, err)
	for _, d := range testDocs {
		require.NoError(t, b.Add(d.ref, d.values))
	}
	return b.Build()
}

func search(t *testing.T, ix *Index, query string) []fts.ScoredRef {
	t.Helper()
	q, err := fts.Parse(query)
	require.NoError(t, err)
	hits, err := ix.Search(context.Background(), q)
	require.NoError(t, err)
	return hits
}

func refs(hits []fts.ScoredRef) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Ref
	}
	return out
}

func TestSearchSingleTerm(t *testing.T) {
	ix := buildTestIndex(t)

	hits := search(t, ix, "Spring")
	require.NotEmpty(t, hits)
	assert.Equal(t, "newsletter-1", hits[0].Ref)
	assert.ElementsMatch(t, []string{"newsletter-1", "resource-3"}, refs(hits))
}

func TestSearchTitleOutranksContent(t *testing.T) {
	ix := buildTestIndex(t)

	hits := search(t, ix, "pool")
	require.Len(t, hits, 2)
	assert.Equal(t, []string{"meeting-7", "resource-3"}, refs(hits))
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchStemming(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Equal(t, []string{"resource-3"}, refs(search(t, ix, "gardens")))
	assert.Contains(t, refs(search(t, ix, "meetings")), "newsletter-1")
}

func TestSearchPrefix(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Equal(t, []string{"resource-3"}, refs(search(t, ix, "gard*")))
	assert.Equal(t, []string{"meeting-7", "resource-3"}, refs(search(t, ix, "po*")))
	assert.Empty(t, search(t, ix, "zz*"))
}

func TestSearchAccentFolding(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Equal(t, []string{"glossary-hoa"}, refs(search(t, ix, "cafe")))
	assert.Equal(t, []string{"glossary-hoa"}, refs(search(t, ix, "CAFÉ")))
}

func TestSearchPresence(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Equal(t, []string{"resource-3"}, refs(search(t, ix, "+spring +garden")))
	assert.Equal(t, []string{"newsletter-1"}, refs(search(t, ix, "spring -garden")))

	onlyProhibited := refs(search(t, ix, "-pool"))
	assert.Equal(t, []string{"newsletter-1", "glossary-hoa"}, onlyProhibited)
}

func TestSearchQuotesAreIgnored(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Equal(t, search(t, ix, "spring garden"), search(t, ix, `"spring garden"`))
}

func TestSearchFieldRestriction(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Equal(t, []string{"meeting-7"}, refs(search(t, ix, "title:pool")))
	assert.Equal(t, []string{"resource-3"}, refs(search(t, ix, "tags:garden")))

	q, err := fts.Parse("author:smith")
	require.NoError(t, err)
	_, err = ix.Search(context.Background(), q)
	assert.True(t, errors.Is(err, fts.ErrUnknownField))
}

func TestSearchBoostChangesOrder(t *testing.T) {
	ix := buildTestIndex(t)

	plain := refs(search(t, ix, "spring pool"))
	require.NotEmpty(t, plain)

	boosted := refs(search(t, ix, "spring pool^20"))
	assert.Equal(t, "meeting-7", boosted[0])
}

func TestSearchNoMatchAndStopWords(t *testing.T) {
	ix := buildTestIndex(t)

	assert.Empty(t, search(t, ix, "xyzzynotfound"))
	assert.Empty(t, search(t, ix, "the"))
}

func TestSearchTieBreakByInsertionOrder(t *testing.T) {
	b, err := NewBuilder(testFields)
	require.NoError(t, err)
	for _, ref := range []string{"c", "a", "b"} {
		require.NoError(t, b.Add(ref, map[string]string{"title": "Annual Picnic"}))
	}
	ix := b.Build()

	assert.Equal(t, []string{"c", "a", "b"}, refs(search(t, ix, "picnic")))
}

func TestScoresNonIncreasing(t *testing.T) {
	ix := buildTestIndex(t)

	hits := search(t, ix, "spring pool garden rules")
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestBuildDeterministic(t *testing.T) {
	first, err := buildTestIndex(t).Marshal()
	require.NoError(t, err)
	second, err := buildTestIndex(t).Marshal()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadRoundTrip(t *testing.T) {
	built := buildTestIndex(t)
	data, err := built.Marshal()
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)

	n, err := loaded.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(testDocs)), n)
	assert.Equal(t, built.Refs(), loaded.Refs())
	assert.Equal(t, testFields, loaded.Fields())

	for _, query := range []string{"spring", "pool", "gard*", "+spring -garden"} {
		assert.Equal(t, search(t, built, query), search(t, loaded, query), query)
	}

	again, err := loaded.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestEveryRefIndexedOnce(t *testing.T) {
	ix := buildTestIndex(t)

	seen := make(map[string]int)
	for _, ref := range ix.Refs() {
		seen[ref]++
	}
	for _, d := range testDocs {
		assert.Equal(t, 1, seen[d.ref], d.ref)
	}
	assert.Len(t, seen, len(testDocs))
}

func TestLoadCorrupt(t *testing.T) {
	_, err := Load([]byte(`{"version": 1, "refs": [`))
	assert.Error(t, err)
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	b, err := NewBuilder(testFields)
	require.NoError(t, err)
	require.NoError(t, b.Add("x", nil))

	err = b.Add("x", nil)
	assert.True(t, errors.Is(err, ErrDuplicateRef))
	assert.Equal(t, 1, b.Len())

	assert.Error(t, b.Add("", nil))
}

func TestNewBuilderValidatesFields(t *testing.T) {
	_, err := NewBuilder(nil)
	assert.Error(t, err)

	_, err = NewBuilder([]fts.Field{{Name: "title"}, {Name: "title"}})
	assert.Error(t, err)
}

func TestClosedIndex(t *testing.T) {
	ix := buildTestIndex(t)
	require.NoError(t, ix.Close())

	_, err := ix.Search(context.Background(), fts.Query{Clauses: []fts.Clause{{Term: "pool", Boost: 1}}})
	assert.ErrorIs(t, err, fts.ErrIndexClosed)
	_, err = ix.DocCount()
	assert.ErrorIs(t, err, fts.ErrIndexClosed)
}

func TestSearchHonorsContext(t *testing.T) {
	ix := buildTestIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.Search(ctx, fts.Query{Clauses: []fts.Clause{{Term: "pool", Boost: 1}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "Cafe creme", Fold("Café crème"))
	assert.Equal(t, "plain", Fold("plain"))
}
