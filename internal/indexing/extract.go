package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/oakridge-association/sitesearch/internal/log"
)

// Extractor turns the four content sources into SearchDocuments.
type Extractor struct {
	schemas *Schemas
	files   SourceFiles
	pages   Pages
	baseURL string
	log     *log.Logger
}

// ExtractorOptions configures an Extractor. Zero values fall back to the
// defaults.
type ExtractorOptions struct {
	Files   SourceFiles
	Pages   Pages
	BaseURL string
}

// Extraction is the outcome of reading every source.
type Extraction struct {
	Documents    []SearchDocument
	Counts       TypeCounts
	SourceErrors []*SourceLoadError
	Skipped      []*RecordError
}

// NewExtractor compiles the record schemas.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	schemas, err := LoadSchemas()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		schemas: schemas,
		files:   opts.Files,
		pages:   opts.Pages,
		baseURL: opts.BaseURL,
		log:     log.ForService("extractor"),
	}, nil
}

// Extract reads the sources from fsys in newsletter, meeting, resource,
// glossary order. Missing or malformed sources and invalid records are
// logged and skipped; only a cancelled context is returned as an error.
func (e *Extractor) Extract(ctx context.Context, fsys fs.FS) (*Extraction, error) {
	out := &Extraction{}
	seen := make(map[string]bool)

	for _, t := range DocTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := e.files.For(t)
		records, err := ReadRecords(fsys, name, t)
		if err != nil {
			var serr *SourceLoadError
			if errors.As(err, &serr) {
				out.SourceErrors = append(out.SourceErrors, serr)
			}
			e.log.Warnf("%v (continuing without %s documents)", err, t)
			continue
		}

		added := 0
		for i, raw := range records {
			doc, err := e.record(t, raw)
			if err == nil && seen[doc.ID] {
				err = fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
			}
			if err != nil {
				rerr := &RecordError{Source: t, Index: i, ID: doc.ID, Err: err}
				out.Skipped = append(out.Skipped, rerr)
				e.log.Warnf("%v", rerr)
				continue
			}
			seen[doc.ID] = true
			out.Documents = append(out.Documents, doc)
			out.Counts.Add(t)
			added++
		}
		e.log.Infof("✓ Loaded %d %s documents from %s", added, t, name)
	}

	return out, nil
}

func (e *Extractor) record(t DocType, raw json.RawMessage) (SearchDocument, error) {
	if err := e.schemas.Validate(t, raw); err != nil {
		return SearchDocument{}, err
	}

	var (
		doc SearchDocument
		err error
	)
	switch t {
	case TypeNewsletter:
		var n Newsletter
		if err = json.Unmarshal(raw, &n); err == nil {
			doc = NewsletterDocument(n)
		}
	case TypeMeeting:
		var m Meeting
		if err = json.Unmarshal(raw, &m); err == nil {
			doc = MeetingDocument(m)
		}
	case TypeResource:
		var r Resource
		if err = json.Unmarshal(raw, &r); err == nil {
			doc = ResourceDocument(r)
		}
	case TypeGlossary:
		var g GlossaryTerm
		if err = json.Unmarshal(raw, &g); err == nil {
			doc = GlossaryDocument(g)
		}
	default:
		return SearchDocument{}, fmt.Errorf("unknown type %q", t)
	}
	if err != nil {
		return SearchDocument{}, err
	}
	if doc.ID == "" || doc.ID == string(t)+"-" {
		return SearchDocument{}, errors.New("record has no usable id")
	}

	doc.URL = DeepLink(e.baseURL, e.pages.For(t), e.anchor(doc))
	return doc, nil
}

func (e *Extractor) anchor(doc SearchDocument) string {
	if doc.Type == TypeGlossary {
		if a := CreateAnchor(doc.Title); a != "" {
			return a
		}
	}
	return doc.ID
}

func documentID(t DocType, id SourceID) string {
	return string(t) + "-" + strings.TrimSpace(string(id))
}

// joinText cleans every part and joins the non-empty ones
func joinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CleanText(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = CleanText(v); v != "" {
			return v
		}
	}
	return ""
}

func summarize(values ...string) string {
	return Truncate(firstNonEmpty(values...), SummaryMaxLength)
}

func quarterFor(explicit, date string) string {
	if q := NormalizeQuarter(explicit); q != "" {
		return q
	}
	return QuarterOf(date)
}

// NewsletterDocument normalizes a newsletter record. The URL is filled in
// by the Extractor.
func NewsletterDocument(n Newsletter) SearchDocument {
	tags := NormalizeTags(n.Tags)
	parts := []string{n.Title, n.Summary, n.Description}
	firstArticle := ""
	for _, a := range n.Articles {
		parts = append(parts, a.Title, a.Content, a.Author)
		if firstArticle == "" {
			firstArticle = firstNonEmpty(a.Content, a.Title)
		}
	}
	parts = append(parts, tags...)

	return SearchDocument{
		ID:       documentID(TypeNewsletter, n.ID),
		Type:     TypeNewsletter,
		Title:    CleanText(n.Title),
		Summary:  summarize(n.Summary, n.Description, firstArticle),
		Content:  joinText(parts...),
		Date:     strings.TrimSpace(n.Date),
		Quarter:  quarterFor(n.Quarter, n.Date),
		Tags:     tags,
		Category: strings.TrimSpace(n.Category),
	}
}

// MeetingDocument normalizes a meeting record. Meetings without a title
// use their topic.
func MeetingDocument(m Meeting) SearchDocument {
	tags := NormalizeTags(m.Tags)
	title := firstNonEmpty(m.Title, m.Topic)

	parts := []string{title}
	if topic := CleanText(m.Topic); topic != "" && topic != title {
		parts = append(parts, topic)
	}
	parts = append(parts, m.Description, m.Location)
	firstItem := ""
	for _, item := range m.Agenda {
		parts = append(parts, item.Title, item.Description, item.Presenter)
		if firstItem == "" {
			firstItem = joinText(item.Title, item.Description)
		}
	}
	parts = append(parts, m.Minutes)
	parts = append(parts, tags...)

	return SearchDocument{
		ID:       documentID(TypeMeeting, m.ID),
		Type:     TypeMeeting,
		Title:    title,
		Summary:  summarize(m.Description, firstItem),
		Content:  joinText(parts...),
		Date:     strings.TrimSpace(m.Date),
		Quarter:  QuarterOf(m.Date),
		Tags:     tags,
		Category: strings.TrimSpace(m.Category),
	}
}

// ResourceDocument normalizes a resource record.
func ResourceDocument(r Resource) SearchDocument {
	tags := NormalizeTags(r.Tags)
	parts := []string{r.Title, r.Description, r.Content}
	for _, s := range r.Sections {
		parts = append(parts, s.Heading, s.Body)
	}
	parts = append(parts, tags...)

	return SearchDocument{
		ID:         documentID(TypeResource, r.ID),
		Type:       TypeResource,
		Title:      CleanText(r.Title),
		Summary:    summarize(r.Description, r.Content),
		Content:    joinText(parts...),
		Date:       strings.TrimSpace(r.Date),
		Quarter:    QuarterOf(r.Date),
		Tags:       tags,
		Category:   strings.TrimSpace(r.Category),
		Difficulty: strings.TrimSpace(r.Difficulty),
	}
}

// GlossaryDocument normalizes a glossary term. Terms without an id are
// identified by their slug.
func GlossaryDocument(g GlossaryTerm) SearchDocument {
	tags := NormalizeTags(g.Tags)
	id := g.ID
	if strings.TrimSpace(string(id)) == "" {
		id = SourceID(CreateAnchor(g.Term))
	}

	parts := []string{g.Term, g.Definition}
	parts = append(parts, g.Examples...)
	parts = append(parts, g.Related...)
	parts = append(parts, tags...)

	return SearchDocument{
		ID:         documentID(TypeGlossary, id),
		Type:       TypeGlossary,
		Title:      CleanText(g.Term),
		Summary:    summarize(g.Definition),
		Content:    joinText(parts...),
		Tags:       tags,
		Category:   strings.TrimSpace(g.Category),
		Difficulty: strings.TrimSpace(g.Difficulty),
	}
}
