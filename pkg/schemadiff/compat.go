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

package schemadiff

import "github.com/ashita-ai/tessera/pkg/models"

// backwardBreaking and forwardBreaking list, per compatibility mode, the
// change kinds that make a change list incompatible (C2). Nullable and default changes never
// participate — they are informational only in every mode.
var backwardBreaking = map[ChangeKind]bool{
	PropertyRemoved:     true,
	RequiredAdded:       true,
	TypeChanged:         true,
	TypeNarrowed:        true,
	EnumValuesRemoved:   true,
	ConstraintTightened: true,
}

var forwardBreaking = map[ChangeKind]bool{
	PropertyAdded:     true,
	RequiredRemoved:   true,
	TypeWidened:       true,
	EnumValuesAdded:   true,
	ConstraintRelaxed: true,
}

// breakingSetFor returns the set of change kinds that break compatibility
// under mode.
func breakingSetFor(mode models.CompatibilityMode) map[ChangeKind]bool {
	switch mode {
	case models.CompatibilityBackward:
		return backwardBreaking
	case models.CompatibilityForward:
		return forwardBreaking
	case models.CompatibilityFull:
		merged := make(map[ChangeKind]bool, len(backwardBreaking)+len(forwardBreaking))
		for k := range backwardBreaking {
			merged[k] = true
		}
		for k := range forwardBreaking {
			merged[k] = true
		}
		return merged
	default: // models.CompatibilityNone and anything unrecognized
		return nil
	}
}

// Classify is the compatibility classifier (C2): given an already-computed
// change list and a compatibility mode, it reports whether the change set
// is compatible and, if not, which changes are the breaking ones.
func Classify(changes []Change, mode models.CompatibilityMode) (compatible bool, breaking []Change) {
	breakingSet := breakingSetFor(mode)
	if len(breakingSet) == 0 {
		return true, nil
	}
	for _, c := range changes {
		if breakingSet[c.Kind] {
			breaking = append(breaking, c)
		}
	}
	return len(breaking) == 0, breaking
}

// CheckCompatibility diffs old against new and classifies the result under
// mode in one step — the convenience entry point most callers want.
func CheckCompatibility(old, new map[string]any, mode models.CompatibilityMode) (compatible bool, breaking []Change) {
	result := Diff(old, new)
	return Classify(result.Changes, mode)
}
