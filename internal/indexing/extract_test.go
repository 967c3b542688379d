package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newslettersJSON = `{"newsletters": [
  {"id": 1, "title": "Spring Meeting Review", "tags": ["meeting"], "date": "2024-03-01"},
  {"id": "2024-summer", "title": "Summer <em>Splash</em>", "quarter": "q3",
   "articles": [{"title": "Pool hours", "content": "<p>Open daily</p><p>until 9pm</p>", "author": "Dana"}],
   "tags": ["pool", "events", "pool"], "category": "Community"}
]}`

const meetingsJSON = `[
  {"id": 7, "topic": "Budget Review", "date": "2023-11-14T19:00:00-05:00",
   "agenda": [{"title": "Dues", "description": "Proposed increase", "presenter": "Treasurer"}],
   "minutes": "Approved.", "category": "Board"},
  {"id": 8, "description": "no title or topic"}
]`

const resourcesJSON = `{"resources": [
  {"id": "gardening", "title": "Gardening Guide", "description": "Planting tips",
   "difficulty": "beginner", "sections": [{"heading": "Soil", "body": "Test first"}], "date": "2022-05-01"},
  {"id": "gardening", "title": "Duplicate Guide"}
]}`

const glossaryJSON = `{"terms": [
  {"term": "HOA", "definition": "Homeowners Association", "examples": ["The HOA meets monthly"], "difficulty": "beginner"},
  {"id": 3, "term": "CC&Rs", "definition": "Covenants, Conditions &amp; Restrictions", "related": ["HOA"]}
]}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"newsletters.json": {Data: []byte(newslettersJSON)},
		"meetings.json":    {Data: []byte(meetingsJSON)},
		"resources.json":   {Data: []byte(resourcesJSON)},
		"glossary.json":    {Data: []byte(glossaryJSON)},
	}
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	ex, err := NewExtractor(ExtractorOptions{})
	require.NoError(t, err)
	return ex
}

func TestExtractAllSources(t *testing.T) {
	ex := newTestExtractor(t)

	out, err := ex.Extract(context.Background(), testFS())
	require.NoError(t, err)

	ids := make([]string, len(out.Documents))
	for i, d := range out.Documents {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{
		"newsletter-1", "newsletter-2024-summer",
		"meeting-7",
		"resource-gardening",
		"glossary-hoa", "glossary-3",
	}, ids)
	assert.Equal(t, TypeCounts{Newsletter: 2, Meeting: 1, Resource: 1, Glossary: 2}, out.Counts)
	assert.Empty(t, out.SourceErrors)
	require.Len(t, out.Skipped, 2)
	assert.Equal(t, TypeMeeting, out.Skipped[0].Source)
	assert.True(t, errors.Is(out.Skipped[1], ErrDuplicateID))
}

func TestExtractNormalizesRecords(t *testing.T) {
	ex := newTestExtractor(t)
	out, err := ex.Extract(context.Background(), testFS())
	require.NoError(t, err)

	byID := make(map[string]SearchDocument)
	for _, d := range out.Documents {
		byID[d.ID] = d
	}

	first := byID["newsletter-1"]
	assert.Equal(t, "Spring Meeting Review", first.Title)
	assert.Equal(t, "newsletters.html#newsletter-1", first.URL)
	assert.Equal(t, "Q1", first.Quarter)
	assert.Equal(t, []string{"meeting"}, first.Tags)
	assert.Contains(t, first.Content, "Spring Meeting Review")
	assert.Contains(t, first.Content, "meeting")

	summer := byID["newsletter-2024-summer"]
	assert.Equal(t, "Summer Splash", summer.Title)
	assert.Equal(t, "Q3", summer.Quarter)
	assert.Equal(t, []string{"events", "pool"}, summer.Tags)
	assert.Equal(t, "Open daily until 9pm", summer.Summary)
	assert.Contains(t, summer.Content, "Dana")

	meeting := byID["meeting-7"]
	assert.Equal(t, "Budget Review", meeting.Title)
	assert.Equal(t, "Dues Proposed increase", meeting.Summary)
	assert.Equal(t, "Q4", meeting.Quarter)
	assert.Contains(t, meeting.Content, "Approved.")

	resource := byID["resource-gardening"]
	assert.Equal(t, "Gardening Guide", resource.Title)
	assert.Equal(t, "beginner", resource.Difficulty)
	assert.Contains(t, resource.Content, "Test first")

	hoa := byID["glossary-hoa"]
	assert.Equal(t, "glossary.html#hoa", hoa.URL)
	assert.Equal(t, "Homeowners Association", hoa.Summary)
	assert.Empty(t, hoa.Date)

	ccrs := byID["glossary-3"]
	assert.Equal(t, "glossary.html#ccrs", ccrs.URL)
	assert.Equal(t, "Covenants, Conditions & Restrictions", ccrs.Summary)
}

func TestExtractMissingAndMalformedSources(t *testing.T) {
	ex := newTestExtractor(t)
	fsys := fstest.MapFS{
		"newsletters.json": {Data: []byte(newslettersJSON)},
		"meetings.json":    {Data: []byte(`{"meetings": [`)},
		"resources.json":   {Data: []byte(`{"items": []}`)},
	}

	out, err := ex.Extract(context.Background(), fsys)
	require.NoError(t, err)

	assert.Len(t, out.Documents, 2)
	require.Len(t, out.SourceErrors, 3)
	assert.Equal(t, TypeMeeting, out.SourceErrors[0].Source)
	assert.Equal(t, TypeResource, out.SourceErrors[1].Source)
	assert.Equal(t, TypeGlossary, out.SourceErrors[2].Source)
}

func TestExtractCustomFilesAndPages(t *testing.T) {
	ex, err := NewExtractor(ExtractorOptions{
		Files:   SourceFiles{Newsletters: "content/news.json"},
		Pages:   Pages{Newsletter: "news/"},
		BaseURL: "https://oakridge.example",
	})
	require.NoError(t, err)

	out, err := ex.Extract(context.Background(), fstest.MapFS{
		"content/news.json": {Data: []byte(`[{"id": 5, "title": "Fall Fair"}]`)},
	})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "https://oakridge.example/news/#newsletter-5", out.Documents[0].URL)
}

func TestExtractHonorsContext(t *testing.T) {
	ex := newTestExtractor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Extract(ctx, testFS())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeRecords(t *testing.T) {
	recs, err := DecodeRecords([]byte(`[{"id":1},{"id":2}]`), "newsletters")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = DecodeRecords([]byte(`{"glossary": [{"term":"HOA"}]}`), "terms", "glossary")
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = DecodeRecords([]byte(`{"terms": {}}`), "terms")
	assert.Error(t, err)
	_, err = DecodeRecords([]byte(`"nope"`), "terms")
	assert.Error(t, err)
	_, err = DecodeRecords(nil, "terms")
	assert.Error(t, err)
}

func TestSchemasRejectInvalidRecords(t *testing.T) {
	s, err := LoadSchemas()
	require.NoError(t, err)

	assert.NoError(t, s.Validate(TypeNewsletter, []byte(`{"id": 1, "title": "ok", "tags": null}`)))
	assert.Error(t, s.Validate(TypeNewsletter, []byte(`{"title": "missing id"}`)))
	assert.Error(t, s.Validate(TypeNewsletter, []byte(`{"id": 1, "title": "   "}`)))
	assert.Error(t, s.Validate(TypeResource, []byte(`{"id": true, "title": "bad id"}`)))
	assert.Error(t, s.Validate(TypeGlossary, []byte(`{"id": 1}`)))
	assert.NoError(t, s.Validate(TypeMeeting, []byte(`{"id": "m1", "topic": "Budget"}`)))
	assert.Error(t, s.Validate(TypeMeeting, []byte(`{"id": "m1"}`)))
}

func TestSourceIDAcceptsNumbersAndStrings(t *testing.T) {
	var n Newsletter
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42}`), &n))
	assert.Equal(t, SourceID("42"), n.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": " spring "}`), &n))
	assert.Equal(t, SourceID("spring"), n.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id": {}}`), &n))
}
