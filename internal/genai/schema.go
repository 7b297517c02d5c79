package genai

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema. Safe for concurrent use.
type Schema struct {
	name     string
	source   string
	compiled *jsonschema.Schema
}

// CompileSchema compiles a Draft 2020-12 JSON schema document.
func CompileSchema(name, source string) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://opportunity-agent.local/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(source)); err != nil {
		return nil, eris.Wrapf(err, "genai: load schema %s", name)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, eris.Wrapf(err, "genai: compile schema %s", name)
	}
	return &Schema{name: name, source: source, compiled: compiled}, nil
}

// MustCompileSchema is like CompileSchema but panics on error. For
// package-level schema literals.
func MustCompileSchema(name, source string) *Schema {
	s, err := CompileSchema(name, source)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Source returns the schema document, for embedding in prompts.
func (s *Schema) Source() string { return s.source }

// Validate checks a decoded JSON value (as produced by encoding/json into any).
func (s *Schema) Validate(v any) error {
	if err := s.compiled.Validate(v); err != nil {
		return eris.Wrapf(ErrSchemaValidation, "%s: %v", s.name, err)
	}
	return nil
}
