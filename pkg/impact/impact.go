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

// Package impact implements the impact engine (C6): bounded
// breadth-first lineage traversal with cycle detection, and consumer
// resolution for the assets a schema change touches.
package impact

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/schemadiff"
	"github.com/ashita-ai/tessera/pkg/store"
)

// DefaultMaxResults bounds a single downstream traversal, per spec §4.6.
const DefaultMaxResults = 500

// DefaultMaxDepth is applied when a caller does not specify one.
const DefaultMaxDepth = 5

// DownstreamHit is one asset discovered by a downstream traversal, along
// with the edge type that led to it and the level at which it was found.
type DownstreamHit struct {
	Asset          models.Asset          `json:"asset"`
	DependencyType models.DependencyType `json:"dependency_type"`
	Depth          int                   `json:"depth"`
}

// DownstreamResult is the outcome of Engine.Downstream.
type DownstreamResult struct {
	Hits      []DownstreamHit `json:"hits"`
	Truncated bool            `json:"truncated"`
}

// Engine implements C6 against a store.Store.
type Engine struct {
	store store.Store
	log   *zap.Logger
}

// New constructs an Engine.
func New(s store.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: s, log: log}
}

// Downstream performs the bounded BFS lineage traversal of spec §4.6:
// level by level, one batched ListDependents query per level, a visited
// set keyed by asset id so cycles (A→B→A, A→B→C→A) terminate safely,
// stopping at maxDepth or maxResults (whichever comes first).
func (e *Engine) Downstream(ctx context.Context, root uuid.UUID, maxDepth, maxResults int) (*DownstreamResult, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	visited := map[uuid.UUID]bool{root: true}
	frontier := []uuid.UUID{root}
	result := &DownstreamResult{}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		deps, err := e.store.ListDependents(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("tessera/impact: list dependents at depth %d: %w", depth, err)
		}

		var next []uuid.UUID
		for _, d := range deps {
			if !d.IsLive() || visited[d.DependentAssetID] {
				continue
			}
			visited[d.DependentAssetID] = true

			asset, err := e.store.GetAsset(ctx, d.DependentAssetID)
			if err != nil {
				if err == store.ErrNotFound {
					continue
				}
				return nil, fmt.Errorf("tessera/impact: load dependent asset %s: %w", d.DependentAssetID, err)
			}
			if !asset.IsLive() {
				continue
			}

			result.Hits = append(result.Hits, DownstreamHit{Asset: *asset, DependencyType: d.DependencyType, Depth: depth})
			if len(result.Hits) >= maxResults {
				result.Truncated = true
				return result, nil
			}
			next = append(next, d.DependentAssetID)
		}

		// Also fold in the secondary discovery path (spec §4.5.5): assets
		// whose metadata.depends_on names an FQN in the current frontier.
		for _, assetID := range frontier {
			asset, err := e.store.GetAsset(ctx, assetID)
			if err != nil {
				continue
			}
			deps, err := e.store.ListAssetsDependingOnFQN(ctx, asset.FQN)
			if err != nil {
				return nil, fmt.Errorf("tessera/impact: list assets depending on fqn %q: %w", asset.FQN, err)
			}
			for _, dep := range deps {
				if !dep.IsLive() || visited[dep.ID] {
					continue
				}
				visited[dep.ID] = true
				result.Hits = append(result.Hits, DownstreamHit{Asset: dep, DependencyType: models.DependencyReferences, Depth: depth})
				if len(result.Hits) >= maxResults {
					result.Truncated = true
					return result, nil
				}
				next = append(next, dep.ID)
			}
		}

		frontier = next
	}

	return result, nil
}

// AffectedParties computes the two hints a proposal stores at creation
// time (spec §4.5.5): every team owning an asset transitively downstream
// of assetID (excluding excludeTeamID, normally the producer team), and
// the same set of assets. Consumer resolution is done by consumersFor,
// de-duplicated at team granularity.
func (e *Engine) AffectedParties(ctx context.Context, assetID uuid.UUID, excludeTeamID uuid.UUID) ([]models.AffectedTeam, []models.AffectedAsset, error) {
	down, err := e.Downstream(ctx, assetID, DefaultMaxDepth, DefaultMaxResults)
	if err != nil {
		return nil, nil, err
	}
	teams, err := e.consumersFor(ctx, down.Hits, excludeTeamID)
	if err != nil {
		return nil, nil, err
	}
	return teams, assetsFromHits(down.Hits), nil
}

// consumersFor resolves, for every hit's asset, the active contract's
// live registered consumer teams, de-duplicated at team granularity. The
// lookups are not batched: it issues one ListContracts call per hit, one
// ListLiveConsumerTeams call per active contract, and one GetTeam call
// per newly seen team.
func (e *Engine) consumersFor(ctx context.Context, hits []DownstreamHit, excludeTeamID uuid.UUID) ([]models.AffectedTeam, error) {
	teamIDs := map[uuid.UUID]bool{}
	teams := make([]models.AffectedTeam, 0)

	for _, hit := range hits {
		contracts, err := e.store.ListContracts(ctx, hit.Asset.ID)
		if err != nil {
			return nil, fmt.Errorf("tessera/impact: list contracts for asset %s: %w", hit.Asset.ID, err)
		}
		for _, c := range contracts {
			if c.Status != models.ContractActive {
				continue
			}
			consumerTeamIDs, err := e.store.ListLiveConsumerTeams(ctx, c.ID)
			if err != nil {
				return nil, fmt.Errorf("tessera/impact: list consumer teams for contract %s: %w", c.ID, err)
			}
			for _, teamID := range consumerTeamIDs {
				if teamID == excludeTeamID || teamIDs[teamID] {
					continue
				}
				team, err := e.store.GetTeam(ctx, teamID)
				if err != nil {
					if err == store.ErrNotFound {
						continue
					}
					return nil, fmt.Errorf("tessera/impact: load team %s: %w", teamID, err)
				}
				teamIDs[teamID] = true
				teams = append(teams, models.AffectedTeam{TeamID: team.ID, TeamName: team.Name})
			}
		}
	}
	return teams, nil
}

func assetsFromHits(hits []DownstreamHit) []models.AffectedAsset {
	out := make([]models.AffectedAsset, 0, len(hits))
	for _, hit := range hits {
		out = append(out, models.AffectedAsset{AssetID: hit.Asset.ID, FQN: hit.Asset.FQN})
	}
	return out
}

// Report is the response shape of POST /assets/{id}/impact.
type Report struct {
	ChangeType        models.ChangeType      `json:"change_type"`
	BreakingChanges   []map[string]any       `json:"breaking_changes"`
	ImpactedAssets    []models.AffectedAsset `json:"impacted_assets"`
	ImpactedConsumers []models.AffectedTeam  `json:"impacted_consumers"`
	SafeToPublish     bool                   `json:"safe_to_publish"`
	TraversalDepth    int                    `json:"traversal_depth"`
	Truncated         bool                   `json:"truncated"`
}

// Analyze computes the full impact report for a proposed schema change on
// assetID: diffs the proposed schema against the current active contract
// (if any) to derive change_type/breaking_changes, then runs the
// downstream traversal to populate impacted_assets/impacted_consumers.
func (e *Engine) Analyze(ctx context.Context, assetID uuid.UUID, proposedSchema map[string]any, mode models.CompatibilityMode, depth int) (*Report, error) {
	if depth <= 0 {
		depth = DefaultMaxDepth
	}

	report := &Report{ChangeType: models.ChangePatch, SafeToPublish: true, TraversalDepth: depth}

	contracts, err := e.store.ListContracts(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("tessera/impact: load contracts: %w", err)
	}
	var active *models.Contract
	for i := range contracts {
		if contracts[i].Status == models.ContractActive {
			active = &contracts[i]
			break
		}
	}
	if active != nil {
		diff := schemadiff.Diff(active.SchemaDef, proposedSchema)
		compatible, breaking := schemadiff.Classify(diff.Changes, mode)
		report.ChangeType = diff.ChangeType
		report.SafeToPublish = compatible
		report.BreakingChanges = make([]map[string]any, 0, len(breaking))
		for _, c := range breaking {
			report.BreakingChanges = append(report.BreakingChanges, c.ToMap())
		}
	}

	down, err := e.Downstream(ctx, assetID, depth, DefaultMaxResults)
	if err != nil {
		return nil, err
	}
	report.Truncated = down.Truncated

	teams, err := e.consumersFor(ctx, down.Hits, uuid.Nil)
	if err != nil {
		return nil, err
	}
	report.ImpactedConsumers = teams
	report.ImpactedAssets = assetsFromHits(down.Hits)

	return report, nil
}
