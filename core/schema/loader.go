package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a schema document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the document format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

//go:embed document.schema.json
var documentSchemaJSON []byte

var (
	documentSchemaOnce sync.Once
	documentSchema     *jsonschema.Schema
	documentSchemaErr  error
)

// printer renders jsonschema error kinds in English.
var printer = message.NewPrinter(language.English)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchemaJSON))
		if err != nil {
			documentSchemaErr = fmt.Errorf("parsing document schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("document.schema.json", doc); err != nil {
			documentSchemaErr = fmt.Errorf("adding document schema: %w", err)
			return
		}
		documentSchema, documentSchemaErr = compiler.Compile("document.schema.json")
	})
	return documentSchema, documentSchemaErr
}

// LoadSchemaFile reads a JSON or YAML schema document from disk.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return LoadSchema(data, FormatFromPath(path))
}

// LoadSchema parses a schema document. The document is first checked for
// structure, then decoded into typed field definitions and validated.
func LoadSchema(data []byte, format Format) (*Schema, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	compiled, err := compiledDocumentSchema()
	if err != nil {
		return nil, err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return nil, fmt.Errorf("invalid schema document: %s", strings.Join(documentErrors(err), "; "))
	}

	var s Schema
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("decoding schema document: %w", err)
	}
	s.sortFields()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// toJSON normalises a document to JSON bytes.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return data, nil
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML schema: %w", err)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("converting YAML schema to JSON: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown schema format: %s", format)
}

// documentErrors flattens a jsonschema validation error into sorted
// "location: message" strings.
func documentErrors(err error) []string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}
	seen := make(map[string]struct{})
	collectDocumentErrors(validationErr, seen)

	out := make([]string, 0, len(seen))
	for msg := range seen {
		out = append(out, msg)
	}
	sort.Strings(out)
	return out
}

func collectDocumentErrors(err *jsonschema.ValidationError, seen map[string]struct{}) {
	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		if len(err.InstanceLocation) > 0 {
			msg = "/" + strings.Join(err.InstanceLocation, "/") + ": " + msg
		}
		seen[msg] = struct{}{}
	}
	for _, cause := range err.Causes {
		collectDocumentErrors(cause, seen)
	}
}
