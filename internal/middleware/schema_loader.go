package middleware

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

// Request body schemas shipped with the binary
const (
	SchemaProcessVideoRequest = "ProcessVideoRequest"
	SchemaFeedbackSubmission  = "FeedbackSubmission"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// SchemaLoader holds compiled JSON schemas by name
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader creates an empty schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadEmbeddedSchemas compiles every schema under schemas/, named by file name without extension
func LoadEmbeddedSchemas() (*SchemaLoader, error) {
	loader := NewSchemaLoader()

	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read embedded schemas")
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := schemaFiles.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to read schema %s", entry.Name())
		}
		if err := loader.LoadSchema(strings.TrimSuffix(entry.Name(), ".json"), data); err != nil {
			return nil, err
		}
	}

	return loader, nil
}

// MustLoadEmbeddedSchemas is LoadEmbeddedSchemas for wiring code; a broken embedded schema is a build defect
func MustLoadEmbeddedSchemas() *SchemaLoader {
	loader, err := LoadEmbeddedSchemas()
	if err != nil {
		panic(err)
	}
	return loader
}

// LoadSchema compiles a JSON schema document and registers it under name
func (sl *SchemaLoader) LoadSchema(name string, document []byte) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to compile schema %s", name)
	}
	sl.schemas[name] = schema
	return nil
}

// Has reports whether a schema is registered under name
func (sl *SchemaLoader) Has(name string) bool {
	_, ok := sl.schemas[name]
	return ok
}

// Names lists the registered schema names in sorted order
func (sl *SchemaLoader) Names() []string {
	names := make([]string, 0, len(sl.schemas))
	for name := range sl.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateJSON validates a raw JSON document against a schema.
// Malformed JSON yields ErrInvalidFormat, a missing required property ErrMissingRequired,
// and any other violation ErrValidationFailed.
func (sl *SchemaLoader) ValidateJSON(document []byte, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	if len(bytes.TrimSpace(document)) == 0 {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "request body is empty")
	}
	if !json.Valid(document) {
		return contextutils.WrapError(contextutils.ErrInvalidFormat, "request body is not valid JSON")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return contextutils.WrapAs(contextutils.ErrInvalidFormat, err, "request body could not be validated")
	}
	if result.Valid() {
		return nil
	}

	kind := contextutils.ErrValidationFailed
	validationErrors := make([]string, 0, len(result.Errors()))
	for _, validationErr := range result.Errors() {
		if validationErr.Type() == "required" {
			kind = contextutils.ErrMissingRequired
		}
		validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
	}

	return contextutils.NewAppError(kind.Code, kind.Severity, "Request body does not match schema "+schemaName, strings.Join(validationErrors, "; "))
}

// ValidateData marshals data and validates it against a schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}
	return sl.ValidateJSON(jsonData, schemaName)
}
