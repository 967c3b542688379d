package indexing

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var messagePrinter = message.NewPrinter(language.English)

const schemaBaseURL = "https://oakridge-association.github.io/sitesearch/schemas/"

// Schemas validates source records against the embedded JSON Schemas.
type Schemas struct {
	byType map[DocType]*jsonschema.Schema
}

// LoadSchemas compiles the record schema of every document type.
func LoadSchemas() (*Schemas, error) {
	compiler := jsonschema.NewCompiler()

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("schema %s is invalid JSON: %w", e.Name(), err)
		}
		if err := compiler.AddResource(schemaBaseURL+e.Name(), doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", e.Name(), err)
		}
	}

	s := &Schemas{byType: make(map[DocType]*jsonschema.Schema, len(DocTypes))}
	for _, t := range DocTypes {
		compiled, err := compiler.Compile(schemaBaseURL + string(t) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", t, err)
		}
		s.byType[t] = compiled
	}
	return s, nil
}

// Validate checks one raw record. The returned error lists every
// violation on a single line.
func (s *Schemas) Validate(t DocType, raw []byte) error {
	schema, ok := s.byType[t]
	if !ok {
		return fmt.Errorf("no schema for type %q", t)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("%s", strings.Join(flattenValidationError(verr), "; "))
		}
		return err
	}
	return nil
}

// flattenValidationError collects leaf messages with their JSON path
func flattenValidationError(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		path := "$"
		if len(verr.InstanceLocation) > 0 {
			path = "$." + strings.Join(verr.InstanceLocation, ".")
		}
		return []string{path + ": " + leafMessage(verr)}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, flattenValidationError(cause)...)
	}
	return out
}

func leafMessage(verr *jsonschema.ValidationError) string {
	if verr.ErrorKind == nil {
		return verr.Error()
	}
	return verr.ErrorKind.LocalizedString(messagePrinter)
}
