// Package contracts validates inbound listing payloads against embedded JSON schemas.
package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	ListingCreate = "listing-create"
	ListingUpdate = "listing-update"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()

	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		log.Fatalf("contracts: glob schemas: %v", err)
	}
	for _, file := range files {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			log.Fatalf("contracts: read %s: %v", file, err)
		}
		if err := compiler.AddResource(path.Base(file), bytes.NewReader(data)); err != nil {
			log.Fatalf("contracts: add schema resource %s: %v", file, err)
		}
	}

	for _, name := range []string{ListingCreate, ListingUpdate} {
		schema, err := compiler.Compile(name + ".json")
		if err != nil {
			log.Fatalf("contracts: compile %s: %v", name, err)
		}
		compiledSchemas[name] = schema
	}
}

// ValidationError carries the first schema violation in a client-presentable form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validate checks body against the named schema. A *ValidationError is
// returned for malformed JSON and schema violations.
func Validate(name string, body []byte) error {
	schema, ok := compiledSchemas[name]
	if !ok {
		return fmt.Errorf("contracts: unknown schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return &ValidationError{Message: "body is not valid JSON"}
	}

	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return &ValidationError{Message: err.Error()}
		}
		ve = leaf(ve)
		return &ValidationError{
			Field:   strings.TrimPrefix(strings.ReplaceAll(ve.InstanceLocation, "/", "."), "."),
			Message: ve.Message,
		}
	}
	return nil
}

// leaf descends to the most specific cause.
func leaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
