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

// Package schemadiff implements the structural differ (C1): given two
// JSON-Schema-like documents it produces an ordered list of classified
// Changes plus a coarse patch/minor/major ChangeType. Avro schemas are
// never seen here — pkg/avroconv normalizes them to this model first.
package schemadiff

import (
	"fmt"
	"sort"

	"github.com/ashita-ai/tessera/pkg/models"
)

// ChangeKind enumerates every structural change the differ can detect.
type ChangeKind string

const (
	PropertyAdded       ChangeKind = "property_added"
	PropertyRemoved     ChangeKind = "property_removed"
	RequiredAdded       ChangeKind = "required_added"
	RequiredRemoved     ChangeKind = "required_removed"
	TypeChanged         ChangeKind = "type_changed"
	TypeWidened         ChangeKind = "type_widened"
	TypeNarrowed        ChangeKind = "type_narrowed"
	EnumValuesAdded     ChangeKind = "enum_values_added"
	EnumValuesRemoved   ChangeKind = "enum_values_removed"
	ConstraintTightened ChangeKind = "constraint_tightened"
	ConstraintRelaxed   ChangeKind = "constraint_relaxed"
	DefaultAdded        ChangeKind = "default_added"
	DefaultRemoved      ChangeKind = "default_removed"
	DefaultChanged      ChangeKind = "default_changed"
	NullableAdded       ChangeKind = "nullable_added"
	NullableRemoved     ChangeKind = "nullable_removed"
)

// severity maps a change kind to its patch/minor/major classification,
// per spec §4.1: patch for anything not listed here (no-op/doc-only),
// minor for backward-compatible additions, major for the strongest kinds.
var severity = map[ChangeKind]models.ChangeType{
	PropertyAdded:       models.ChangeMinor,
	PropertyRemoved:     models.ChangeMajor,
	RequiredAdded:       models.ChangeMajor,
	RequiredRemoved:     models.ChangeMinor,
	TypeChanged:         models.ChangeMajor,
	TypeWidened:         models.ChangeMinor,
	TypeNarrowed:        models.ChangeMajor,
	EnumValuesAdded:     models.ChangeMinor,
	EnumValuesRemoved:   models.ChangeMajor,
	ConstraintTightened: models.ChangeMajor,
	ConstraintRelaxed:   models.ChangeMinor,
	DefaultAdded:        models.ChangePatch,
	DefaultRemoved:      models.ChangePatch,
	DefaultChanged:      models.ChangePatch,
	NullableAdded:       models.ChangeMinor,
	NullableRemoved:     models.ChangeMajor,
}

// widenedTypes records the (old, new) scalar type pairs considered a safe
// widening, e.g. an integer can always be read as a number.
var widenedTypes = map[[2]string]bool{
	{"integer", "number"}: true,
}

// Change is a single detected structural difference at a given schema
// path.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Path    string     `json:"path"`
	Old     any        `json:"old,omitempty"`
	New     any        `json:"new,omitempty"`
	Details string     `json:"details,omitempty"`
}

// ToMap renders the change as a plain map, matching the shape webhook
// payloads and proposal records persist.
func (c Change) ToMap() map[string]any {
	m := map[string]any{
		"kind": string(c.Kind),
		"path": c.Path,
	}
	if c.Old != nil {
		m["old"] = c.Old
	}
	if c.New != nil {
		m["new"] = c.New
	}
	if c.Details != "" {
		m["details"] = c.Details
	}
	return m
}

// Result is the full outcome of diffing two schemas.
type Result struct {
	Changes    []Change
	ChangeType models.ChangeType
}

// HasChanges reports whether any structural difference was detected.
func (r Result) HasChanges() bool { return len(r.Changes) > 0 }

// Diff structurally compares old and new JSON-Schema-like documents and
// returns every detected Change along with the coarsest ChangeType
// observed. Identical schemas produce an empty, patch-classified Result.
func Diff(old, new map[string]any) Result {
	d := &differ{}
	d.diffNode("", old, new)
	sort.SliceStable(d.changes, func(i, j int) bool {
		return d.changes[i].Path < d.changes[j].Path
	})

	changeType := models.ChangePatch
	for _, c := range d.changes {
		changeType = changeType.Strongest(severity[c.Kind])
	}
	return Result{Changes: d.changes, ChangeType: changeType}
}

type differ struct {
	changes []Change
}

func (d *differ) emit(kind ChangeKind, path string, old, new any) {
	d.changes = append(d.changes, Change{Kind: kind, Path: path, Old: old, New: new})
}

// diffNode compares a single schema node (old/new may each be nil when a
// node is entirely added or removed higher up the tree).
func (d *differ) diffNode(path string, old, new map[string]any) {
	d.diffType(path, old, new)
	d.diffNullable(path, old, new)
	d.diffProperties(path, old, new)
	d.diffRequired(path, old, new)
	d.diffEnum(path, old, new)
	d.diffConstraints(path, old, new)
	d.diffDefault(path, old, new)
	d.diffItems(path, old, new)
}

func schemaType(node map[string]any) (string, bool) {
	t, ok := node["type"].(string)
	return t, ok
}

func (d *differ) diffType(path string, old, new map[string]any) {
	oldType, oldOK := schemaType(old)
	newType, newOK := schemaType(new)
	if !oldOK || !newOK || oldType == newType {
		return
	}
	if widenedTypes[[2]string{oldType, newType}] {
		d.emit(TypeWidened, joinPath(path, "type"), oldType, newType)
		return
	}
	if widenedTypes[[2]string{newType, oldType}] {
		d.emit(TypeNarrowed, joinPath(path, "type"), oldType, newType)
		return
	}
	d.emit(TypeChanged, joinPath(path, "type"), oldType, newType)
}

func (d *differ) diffNullable(path string, old, new map[string]any) {
	oldNullable, _ := old["nullable"].(bool)
	newNullable, _ := new["nullable"].(bool)
	if oldNullable == newNullable {
		return
	}
	if newNullable {
		d.emit(NullableAdded, joinPath(path, "nullable"), oldNullable, newNullable)
	} else {
		d.emit(NullableRemoved, joinPath(path, "nullable"), oldNullable, newNullable)
	}
}

func propertiesOf(node map[string]any) map[string]map[string]any {
	raw, ok := node["properties"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(raw))
	for name, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out[name] = m
		}
	}
	return out
}

func (d *differ) diffProperties(path string, old, new map[string]any) {
	oldProps := propertiesOf(old)
	newProps := propertiesOf(new)
	if oldProps == nil && newProps == nil {
		return
	}

	names := make(map[string]bool)
	for n := range oldProps {
		names[n] = true
	}
	for n := range newProps {
		names[n] = true
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	propPath := joinPath(path, "properties")
	for _, name := range sorted {
		oldProp, inOld := oldProps[name]
		newProp, inNew := newProps[name]
		childPath := joinPath(propPath, name)
		switch {
		case !inOld && inNew:
			d.emit(PropertyAdded, childPath, nil, newProp)
		case inOld && !inNew:
			d.emit(PropertyRemoved, childPath, oldProp, nil)
		default:
			d.diffNode(childPath, oldProp, newProp)
		}
	}
}

func stringSet(node map[string]any, key string) map[string]bool {
	raw, ok := node[key].([]any)
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}

func (d *differ) diffRequired(path string, old, new map[string]any) {
	oldReq := stringSet(old, "required")
	newReq := stringSet(new, "required")

	for name := range newReq {
		if !oldReq[name] {
			d.emit(RequiredAdded, joinPath(path, "required"), nil, name)
		}
	}
	for name := range oldReq {
		if !newReq[name] {
			d.emit(RequiredRemoved, joinPath(path, "required"), name, nil)
		}
	}
}

func (d *differ) diffEnum(path string, old, new map[string]any) {
	oldEnum, oldOK := old["enum"].([]any)
	newEnum, newOK := new["enum"].([]any)
	if !oldOK && !newOK {
		return
	}
	oldSet := toAnySet(oldEnum)
	newSet := toAnySet(newEnum)

	var added, removed bool
	for v := range newSet {
		if !oldSet[v] {
			added = true
		}
	}
	for v := range oldSet {
		if !newSet[v] {
			removed = true
		}
	}
	enumPath := joinPath(path, "enum")
	if added {
		d.emit(EnumValuesAdded, enumPath, oldEnum, newEnum)
	}
	if removed {
		d.emit(EnumValuesRemoved, enumPath, oldEnum, newEnum)
	}
}

func toAnySet(values []any) map[any]bool {
	out := make(map[any]bool, len(values))
	for _, v := range values {
		out[fmt.Sprintf("%v", v)] = true
	}
	return out
}

// constraintDirection describes whether increasing a constraint's numeric
// value makes the schema more or less permissive.
type constraintDirection int

const (
	// higherIsStricter: minLength, minimum, exclusiveMinimum, minItems.
	higherIsStricter constraintDirection = iota
	// higherIsLooser: maxLength, maximum, exclusiveMaximum, maxItems.
	higherIsLooser
)

var numericConstraints = map[string]constraintDirection{
	"maxLength":        higherIsLooser,
	"minLength":        higherIsStricter,
	"maximum":          higherIsLooser,
	"minimum":          higherIsStricter,
	"exclusiveMaximum": higherIsLooser,
	"exclusiveMinimum": higherIsStricter,
	"maxItems":         higherIsLooser,
	"minItems":         higherIsStricter,
}

func (d *differ) diffConstraints(path string, old, new map[string]any) {
	for key, direction := range numericConstraints {
		oldVal, oldOK := numeric(old[key])
		newVal, newOK := numeric(new[key])
		constraintPath := joinPath(path, key)
		switch {
		case !oldOK && newOK:
			// Adding a constraint is always a tightening: previously
			// unconstrained values are now rejected.
			d.emit(ConstraintTightened, constraintPath, nil, newVal)
		case oldOK && !newOK:
			d.emit(ConstraintRelaxed, constraintPath, oldVal, nil)
		case oldOK && newOK && oldVal != newVal:
			tightened := (direction == higherIsStricter && newVal > oldVal) ||
				(direction == higherIsLooser && newVal < oldVal)
			if tightened {
				d.emit(ConstraintTightened, constraintPath, oldVal, newVal)
			} else {
				d.emit(ConstraintRelaxed, constraintPath, oldVal, newVal)
			}
		}
	}

	oldPattern, oldOK := old["pattern"].(string)
	newPattern, newOK := new["pattern"].(string)
	patternPath := joinPath(path, "pattern")
	switch {
	case !oldOK && newOK:
		d.emit(ConstraintTightened, patternPath, nil, newPattern)
	case oldOK && !newOK:
		d.emit(ConstraintRelaxed, patternPath, oldPattern, nil)
	case oldOK && newOK && oldPattern != newPattern:
		// A regex-narrowing analysis is out of scope; any pattern edit is
		// treated conservatively as a tightening.
		d.emit(ConstraintTightened, patternPath, oldPattern, newPattern)
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func (d *differ) diffDefault(path string, old, new map[string]any) {
	oldDefault, oldOK := old["default"]
	newDefault, newOK := new["default"]
	defaultPath := joinPath(path, "default")
	switch {
	case !oldOK && newOK:
		d.emit(DefaultAdded, defaultPath, nil, newDefault)
	case oldOK && !newOK:
		d.emit(DefaultRemoved, defaultPath, oldDefault, nil)
	case oldOK && newOK && fmt.Sprintf("%v", oldDefault) != fmt.Sprintf("%v", newDefault):
		d.emit(DefaultChanged, defaultPath, oldDefault, newDefault)
	}
}

func (d *differ) diffItems(path string, old, new map[string]any) {
	oldItems, oldOK := old["items"].(map[string]any)
	newItems, newOK := new["items"].(map[string]any)
	if !oldOK || !newOK {
		return
	}
	d.diffNode(joinPath(path, "items"), oldItems, newItems)
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}
