/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package validate checks that a candidate schema is itself well-formed
// JSON Schema — the first step of contract publication (spec §4.4.2:
// "the schema is well-formed JSON Schema") and the backing of the
// /schemas/validate endpoint, ahead of any compatibility comparison
// pkg/schemadiff performs against the asset's current contract.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaResourceURL is an arbitrary, never-dereferenced identifier the
// underlying compiler uses to key its in-memory resource, since every
// candidate schema is compiled standalone rather than loaded from a URL.
const schemaResourceURL = "tessera://candidate-schema.json"

// Validator compiles candidate JSON Schema documents to confirm they are
// structurally valid Draft 2020-12 schemas. It holds no state that
// depends on any one schema, so a single instance is safe for concurrent
// reuse across requests.
type Validator struct{}

// New constructs a Validator.
func New() *Validator {
	return &Validator{}
}

// Error describes why a candidate schema failed to compile, wrapping the
// underlying *jsonschema.SchemaError so a caller can still unwrap to it.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid json schema: %s", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Validate reports whether schema is a well-formed JSON Schema document.
// It accepts the same map[string]any shape the rest of the module passes
// schemas around in, marshaling it back to JSON only because the
// compiler's AddResource takes an io.Reader.
func (v *Validator) Validate(schema map[string]any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return &Error{Err: fmt.Errorf("marshal candidate schema: %w", err)}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &Error{Err: err}
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResourceURL, doc); err != nil {
		return &Error{Err: err}
	}
	if _, err := compiler.Compile(schemaResourceURL); err != nil {
		return &Error{Err: err}
	}
	return nil
}

// ValidateJSON validates a candidate schema supplied as a raw JSON
// document rather than an already-decoded map, the shape the
// /schemas/validate endpoint receives over the wire.
func (v *Validator) ValidateJSON(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &Error{Err: err}
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResourceURL, doc); err != nil {
		return &Error{Err: err}
	}
	if _, err := compiler.Compile(schemaResourceURL); err != nil {
		return &Error{Err: err}
	}
	return nil
}
