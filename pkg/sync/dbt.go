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

// Package sync ingests already-parsed output from external schema
// collaborators: dbt manifests, OpenAPI specs, and GraphQL introspection
// results. It never talks to dbt, a dbt Cloud API, or a GraphQL/OpenAPI
// endpoint itself; callers are responsible for producing the manifest or
// spec document and handing it to these entry points.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/schemadiff"
	"github.com/ashita-ai/tessera/pkg/store"
)

// dbtColumnTypeMap maps dbt/warehouse column data types to the JSON Schema
// primitive they compare as. Unrecognized types fall back to "string",
// matching the permissive behavior of the original type mapping.
var dbtColumnTypeMap = map[string]string{
	"string":            "string",
	"text":              "string",
	"varchar":           "string",
	"char":              "string",
	"character varying": "string",

	"integer": "integer",
	"int":     "integer",
	"bigint":  "integer",
	"smallint": "integer",
	"int64":   "integer",
	"int32":   "integer",

	"number":  "number",
	"numeric": "number",
	"decimal": "number",
	"float":   "number",
	"double":  "number",
	"real":    "number",
	"float64": "number",

	"boolean": "boolean",
	"bool":    "boolean",

	"date":          "string",
	"datetime":      "string",
	"timestamp":     "string",
	"timestamp_ntz": "string",
	"timestamp_tz":  "string",
	"time":          "string",

	"json":    "object",
	"jsonb":   "object",
	"array":   "array",
	"variant": "object",
	"object":  "object",
}

// DbtColumn is one entry of a dbt node's "columns" map.
type DbtColumn struct {
	Description string `json:"description"`
	DataType    string `json:"data_type"`
}

// DbtColumnsToJSONSchema converts a dbt node's column map into the
// JSON-Schema-like shape the rest of the module compares contracts in.
// dbt never marks columns required, so the result's required list is
// always empty; nullability is inferred the same way everywhere else
// defers to it, at compatibility-check time.
func DbtColumnsToJSONSchema(columns map[string]DbtColumn) map[string]any {
	properties := make(map[string]any, len(columns))
	for name, col := range columns {
		dataType := col.DataType
		if dataType == "" {
			dataType = "string"
		}
		baseType := strings.ToLower(strings.SplitN(dataType, "(", 2)[0])
		baseType = strings.TrimSpace(baseType)
		jsonType, ok := dbtColumnTypeMap[baseType]
		if !ok {
			jsonType = "string"
		}
		prop := map[string]any{"type": jsonType}
		if col.Description != "" {
			prop["description"] = col.Description
		}
		properties[name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   []any{},
	}
}

// DbtNode is one entry of a dbt manifest's "nodes" or "sources" map,
// trimmed to the fields the sync path reads.
type DbtNode struct {
	ResourceType string               `json:"resource_type"`
	Database     string               `json:"database"`
	Schema       string               `json:"schema"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Tags         []string             `json:"tags"`
	Columns      map[string]DbtColumn `json:"columns"`
	// Meta carries the node's dbt meta block. tessera.owner_team, if
	// present under meta.tessera, names the team UploadDbt should
	// resolve as the asset's owner instead of the request's default.
	Meta map[string]any `json:"meta"`
}

// metaOwnerTeamName extracts meta.tessera.owner_team, if present.
func metaOwnerTeamName(n DbtNode) (string, bool) {
	tessera, ok := n.Meta["tessera"].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := tessera["owner_team"].(string)
	return name, ok && name != ""
}

// dbtSyncableResourceTypes are the dbt node resource_type values treated
// as addressable assets. Tests, analyses, and other dbt artifacts are
// skipped.
var dbtSyncableResourceTypes = map[string]bool{
	"model":    true,
	"seed":     true,
	"snapshot": true,
}

// DbtManifest is a dbt manifest.json, trimmed to the nodes and sources
// maps sync cares about.
type DbtManifest struct {
	Nodes   map[string]DbtNode `json:"nodes"`
	Sources map[string]DbtNode `json:"sources"`
}

func dbtFQN(n DbtNode) string {
	return strings.ToLower(fmt.Sprintf("%s.%s.%s", n.Database, n.Schema, n.Name))
}

func dbtMetadata(nodeID, resourceType string, n DbtNode) models.JSONMap {
	columns := make(map[string]any, len(n.Columns))
	for name, col := range n.Columns {
		columns[name] = map[string]any{
			"description": col.Description,
			"data_type":   col.DataType,
		}
	}
	meta := models.JSONMap{
		"resource_type": resourceType,
		"description":   n.Description,
		"columns":       columns,
	}
	if resourceType == "source" {
		meta["dbt_source_id"] = nodeID
	} else {
		meta["dbt_node_id"] = nodeID
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		meta["tags"] = tags
	}
	return meta
}

// DbtSyncResult reports how many assets a manifest sync created or
// updated.
type DbtSyncResult struct {
	AssetsCreated int `json:"assets_created"`
	AssetsUpdated int `json:"assets_updated"`
}

// Service ingests parsed dbt, OpenAPI, and GraphQL introspection output
// into assets and, where requested, contracts.
type Service struct {
	store store.Store
	log   *zap.Logger
}

// New constructs a Service.
func New(s store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, log: log}
}

// SyncFromDbt upserts one asset per model, seed, snapshot, and source in
// manifest, owned by ownerTeamID. Assets are matched by FQN; an existing
// asset's metadata is replaced with the freshly derived dbt metadata.
func (s *Service) SyncFromDbt(ctx context.Context, manifest DbtManifest, ownerTeamID uuid.UUID) (DbtSyncResult, error) {
	if ownerTeamID == uuid.Nil {
		return DbtSyncResult{}, apperrors.NewValidationError("owner_team_id is required")
	}
	var result DbtSyncResult
	for nodeID, node := range manifest.Nodes {
		if !dbtSyncableResourceTypes[node.ResourceType] {
			continue
		}
		if err := s.upsertDbtAsset(ctx, nodeID, node.ResourceType, node, ownerTeamID, &result); err != nil {
			return result, err
		}
	}
	for sourceID, source := range manifest.Sources {
		if err := s.upsertDbtAsset(ctx, sourceID, "source", source, ownerTeamID, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Service) upsertDbtAsset(ctx context.Context, nodeID, resourceType string, node DbtNode, ownerTeamID uuid.UUID, result *DbtSyncResult) error {
	fqn := dbtFQN(node)
	metadata := dbtMetadata(nodeID, resourceType, node)

	existing, err := s.store.GetAssetByFQN(ctx, fqn, "")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("tessera/sync: lookup asset %q: %w", fqn, err)
	}
	if existing != nil {
		existing.Metadata = metadata
		if err := s.store.UpdateAsset(ctx, existing); err != nil {
			return fmt.Errorf("tessera/sync: update asset %q: %w", fqn, err)
		}
		result.AssetsUpdated++
		return nil
	}
	asset := &models.Asset{
		ID:           uuid.New(),
		FQN:          fqn,
		OwnerTeamID:  ownerTeamID,
		ResourceType: resourceType,
		Metadata:     metadata,
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return fmt.Errorf("tessera/sync: create asset %q: %w", fqn, err)
	}
	result.AssetsCreated++
	return nil
}

// ConflictMode governs how UploadDbt treats a model whose FQN already has
// an asset.
type ConflictMode string

const (
	// ConflictFail rejects the whole upload with a conflict error.
	ConflictFail ConflictMode = "fail"
	// ConflictIgnore leaves the existing asset untouched.
	ConflictIgnore ConflictMode = "ignore"
	// ConflictOverwrite replaces the existing asset's metadata (and,
	// per meta.tessera.owner_team, its owner). This is the default.
	ConflictOverwrite ConflictMode = "overwrite"
)

// DbtUploadResult reports how many assets an UploadDbt call created,
// updated, or left untouched.
type DbtUploadResult struct {
	AssetsCreated int `json:"assets_created"`
	AssetsUpdated int `json:"assets_updated"`
	AssetsSkipped int `json:"assets_skipped"`
}

// UploadDbt is the richer counterpart to SyncFromDbt: it honors per-model
// conflict handling and lets a node's meta.tessera.owner_team override
// the request's default owner. An owner_team name that does not resolve
// to a live team falls back to ownerTeamID for a new asset, and to the
// current owner for an existing one, rather than failing the upload.
func (s *Service) UploadDbt(ctx context.Context, manifest DbtManifest, ownerTeamID uuid.UUID, mode ConflictMode) (DbtUploadResult, error) {
	if ownerTeamID == uuid.Nil {
		return DbtUploadResult{}, apperrors.NewValidationError("owner_team_id is required")
	}
	if mode == "" {
		mode = ConflictOverwrite
	}

	var result DbtUploadResult
	for nodeID, node := range manifest.Nodes {
		if !dbtSyncableResourceTypes[node.ResourceType] {
			continue
		}
		if err := s.uploadDbtNode(ctx, nodeID, node.ResourceType, node, ownerTeamID, mode, &result); err != nil {
			return result, err
		}
	}
	for sourceID, source := range manifest.Sources {
		if err := s.uploadDbtNode(ctx, sourceID, "source", source, ownerTeamID, mode, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Service) resolveOwnerTeam(ctx context.Context, node DbtNode, fallback uuid.UUID) uuid.UUID {
	name, ok := metaOwnerTeamName(node)
	if !ok {
		return fallback
	}
	team, err := s.store.GetTeamByName(ctx, name)
	if err != nil || team == nil {
		s.log.Warn("dbt meta.tessera.owner_team did not resolve to a known team, falling back to the request owner",
			zap.String("owner_team", name))
		return fallback
	}
	return team.ID
}

func (s *Service) uploadDbtNode(ctx context.Context, nodeID, resourceType string, node DbtNode, ownerTeamID uuid.UUID, mode ConflictMode, result *DbtUploadResult) error {
	fqn := dbtFQN(node)
	existing, err := s.store.GetAssetByFQN(ctx, fqn, "")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("tessera/sync: lookup asset %q: %w", fqn, err)
	}

	if existing != nil {
		switch mode {
		case ConflictFail:
			return apperrors.NewConflictError(fmt.Sprintf("asset %q already exists", fqn))
		case ConflictIgnore:
			result.AssetsSkipped++
			return nil
		default:
			existing.Metadata = dbtMetadata(nodeID, resourceType, node)
			existing.OwnerTeamID = s.resolveOwnerTeam(ctx, node, existing.OwnerTeamID)
			if err := s.store.UpdateAsset(ctx, existing); err != nil {
				return fmt.Errorf("tessera/sync: update asset %q: %w", fqn, err)
			}
			result.AssetsUpdated++
			return nil
		}
	}

	asset := &models.Asset{
		ID:           uuid.New(),
		FQN:          fqn,
		OwnerTeamID:  s.resolveOwnerTeam(ctx, node, ownerTeamID),
		ResourceType: resourceType,
		Metadata:     dbtMetadata(nodeID, resourceType, node),
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return fmt.Errorf("tessera/sync: create asset %q: %w", fqn, err)
	}
	result.AssetsCreated++
	return nil
}

// DbtImpactResult is the impact analysis for a single dbt node or source.
type DbtImpactResult struct {
	FQN             string               `json:"fqn"`
	NodeID          string               `json:"node_id"`
	HasContract     bool                 `json:"has_contract"`
	SafeToPublish   bool                 `json:"safe_to_publish"`
	ChangeType      models.ChangeType    `json:"change_type"`
	BreakingChanges []schemadiff.Change  `json:"breaking_changes,omitempty"`
}

// DbtImpactSummary is the aggregate response to a manifest-wide impact
// check: the primary CI/CD integration point, since it never touches the
// filesystem and needs only a manifest already loaded into memory.
type DbtImpactSummary struct {
	TotalModels          int                `json:"total_models"`
	ModelsWithContracts  int                `json:"models_with_contracts"`
	BreakingChangesCount int                `json:"breaking_changes_count"`
	Results              []DbtImpactResult  `json:"results"`
}

// CheckDbtImpact diffs every model, seed, snapshot, and source in
// manifest against its asset's current active contract, if one exists,
// without mutating any state.
func (s *Service) CheckDbtImpact(ctx context.Context, manifest DbtManifest) (DbtImpactSummary, error) {
	var summary DbtImpactSummary
	for nodeID, node := range manifest.Nodes {
		if !dbtSyncableResourceTypes[node.ResourceType] {
			continue
		}
		r, err := s.checkDbtNodeImpact(ctx, nodeID, node)
		if err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, r)
	}
	for sourceID, source := range manifest.Sources {
		r, err := s.checkDbtNodeImpact(ctx, sourceID, source)
		if err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, r)
	}
	summary.TotalModels = len(summary.Results)
	for _, r := range summary.Results {
		if r.HasContract {
			summary.ModelsWithContracts++
		}
		if !r.SafeToPublish {
			summary.BreakingChangesCount++
		}
	}
	return summary, nil
}

func (s *Service) checkDbtNodeImpact(ctx context.Context, nodeID string, node DbtNode) (DbtImpactResult, error) {
	fqn := dbtFQN(node)
	result := DbtImpactResult{FQN: fqn, NodeID: nodeID, SafeToPublish: true}

	asset, err := s.store.GetAssetByFQN(ctx, fqn, "")
	if errors.Is(err, store.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("tessera/sync: lookup asset %q: %w", fqn, err)
	}

	contracts, err := s.store.ListContracts(ctx, asset.ID)
	if err != nil {
		return result, fmt.Errorf("tessera/sync: list contracts for %q: %w", fqn, err)
	}
	var active *models.Contract
	for i := range contracts {
		if contracts[i].Status == models.ContractActive {
			active = &contracts[i]
			break
		}
	}
	if active == nil {
		return result, nil
	}

	proposed := DbtColumnsToJSONSchema(node.Columns)
	diff := schemadiff.Diff(active.SchemaDef, proposed)
	compatible, breaking := schemadiff.CheckCompatibility(active.SchemaDef, proposed, active.CompatibilityMode)

	result.HasContract = true
	result.SafeToPublish = compatible
	result.ChangeType = diff.ChangeType
	result.BreakingChanges = breaking
	return result, nil
}
