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

// Package avroconv normalizes Avro schemas to the JSON-Schema-like model
// pkg/schemadiff operates on. The differ never parses Avro itself; every
// contract with schema_format=avro passes through Convert first.
package avroconv

import (
	"fmt"

	"github.com/hamba/avro/v2"
)

// ConversionError wraps a failure to parse or normalize an Avro schema,
// mirroring the distinguishable error type the original service raised so
// callers can tell a malformed Avro document from any other publish
// failure.
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("avroconv: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("avroconv: %s", e.Reason)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Convert parses an Avro schema document (as canonical Avro JSON text) and
// normalizes it into the JSON-Schema-like map the rest of Tessera
// understands: "type":"object" records with "properties"/"required",
// "enum" string arrays, "array" with "items", and scalar types narrowed
// from Avro's primitive and logical types.
func Convert(schemaJSON string) (map[string]any, error) {
	schema, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, &ConversionError{Reason: "invalid avro schema", Err: err}
	}
	node := schemaToMap(schema, false)
	root, ok := node.(map[string]any)
	if !ok {
		return nil, &ConversionError{Reason: "top-level avro schema must be a record"}
	}
	return root, nil
}

// Validate reports whether schemaJSON is a well-formed Avro schema,
// without performing the full normalization — used by the contract
// publish path to fail fast with a clear error before diffing.
func Validate(schemaJSON string) error {
	if _, err := avro.Parse(schemaJSON); err != nil {
		return &ConversionError{Reason: "invalid avro schema", Err: err}
	}
	return nil
}

// schemaToMap recursively lowers an avro.Schema into the JSON-Schema-like
// representation. nullable is true when the schema sits in a union that
// includes "null": unwrapOptional sets it for a record field's two-branch
// ["null", X] shape, and unionToMap for any other union containing "null".
func schemaToMap(s avro.Schema, nullable bool) any {
	switch t := s.(type) {
	case *avro.RecordSchema:
		return recordToMap(t, nullable)
	case *avro.EnumSchema:
		m := map[string]any{"type": "string", "enum": toAnySlice(t.Symbols())}
		applyNullable(m, nullable)
		return m
	case *avro.ArraySchema:
		m := map[string]any{"type": "array", "items": schemaToMap(t.Items(), false)}
		applyNullable(m, nullable)
		return m
	case *avro.MapSchema:
		// Avro maps always key on string; values are normalized but not
		// expressible as JSON Schema "properties" since key names are
		// open-ended, so only the container type survives.
		m := map[string]any{"type": "object"}
		applyNullable(m, nullable)
		return m
	case *avro.FixedSchema:
		m := map[string]any{"type": "string", "maxLength": float64(t.Size())}
		applyNullable(m, nullable)
		return m
	case *avro.UnionSchema:
		return unionToMap(t)
	case *avro.PrimitiveSchema:
		return primitiveToMap(t, nullable)
	default:
		// RefSchema and anything else not modeled explicitly normalizes to
		// an untyped object rather than failing the whole conversion.
		m := map[string]any{}
		applyNullable(m, nullable)
		return m
	}
}

func recordToMap(t *avro.RecordSchema, nullable bool) map[string]any {
	properties := make(map[string]any, len(t.Fields()))
	required := make([]any, 0, len(t.Fields()))
	for _, f := range t.Fields() {
		fieldNullable, fieldType := unwrapOptional(f.Type())
		properties[f.Name()] = schemaToMap(fieldType, fieldNullable)
		if !f.HasDefault() && !fieldNullable {
			required = append(required, f.Name())
		}
	}
	m := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		m["required"] = required
	}
	applyNullable(m, nullable)
	return m
}

// unwrapOptional detects the ["null", X] union shape Avro uses for
// optional fields and returns the inner schema with a nullable flag,
// leaving any other union shape untouched for unionToMap to handle.
func unwrapOptional(s avro.Schema) (bool, avro.Schema) {
	union, ok := s.(*avro.UnionSchema)
	if !ok {
		return false, s
	}
	types := union.Types()
	if len(types) != 2 {
		return false, s
	}
	var null, other avro.Schema
	for _, branch := range types {
		if branch.Type() == avro.Null {
			null = branch
		} else {
			other = branch
		}
	}
	if null == nil || other == nil {
		return false, s
	}
	return true, other
}

// unionToMap handles unions that are not the simple optional-field shape
// (e.g. a genuine multi-type union): the first non-null branch's shape is
// used as the representative type, since JSON Schema has no direct
// equivalent and the differ operates on a single declared type per path.
func unionToMap(t *avro.UnionSchema) any {
	types := t.Types()
	hasNull := false
	var representative avro.Schema
	for _, branch := range types {
		if branch.Type() == avro.Null {
			hasNull = true
			continue
		}
		if representative == nil {
			representative = branch
		}
	}
	if representative == nil {
		return map[string]any{"type": "null"}
	}
	return schemaToMap(representative, hasNull)
}

func primitiveToMap(t *avro.PrimitiveSchema, nullable bool) map[string]any {
	var m map[string]any
	switch t.Type() {
	case avro.Null:
		m = map[string]any{"type": "null"}
	case avro.Boolean:
		m = map[string]any{"type": "boolean"}
	case avro.Int, avro.Long:
		m = map[string]any{"type": "integer"}
	case avro.Float, avro.Double:
		m = map[string]any{"type": "number"}
	case avro.Bytes:
		m = map[string]any{"type": "string"}
	default: // avro.String and anything unrecognized
		m = map[string]any{"type": "string"}
	}
	if logical := t.Logical(); logical != nil {
		applyLogical(m, logical)
	}
	applyNullable(m, nullable)
	return m
}

func applyLogical(m map[string]any, logical *avro.LogicalSchema) {
	switch logical.Type() {
	case avro.UUID:
		m["type"] = "string"
		m["format"] = "uuid"
	case avro.Decimal:
		m["type"] = "number"
	case avro.Date:
		m["type"] = "integer"
		m["format"] = "date"
	case avro.TimestampMillis, avro.TimestampMicros:
		m["type"] = "integer"
		m["format"] = "date-time"
	case avro.TimeMillis, avro.TimeMicros:
		m["type"] = "integer"
		m["format"] = "time"
	}
}

func applyNullable(m map[string]any, nullable bool) {
	if nullable {
		m["nullable"] = true
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
