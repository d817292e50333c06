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

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// GraphQLImportRequest is the body of a GraphQL introspection ingestion
// call. Introspection is the raw __schema result, as returned by a
// standard introspection query.
type GraphQLImportRequest struct {
	Introspection         map[string]any `json:"introspection"`
	OwnerTeamID            uuid.UUID     `json:"owner_team_id"`
	SchemaName             string        `json:"schema_name"`
	DryRun                 bool          `json:"dry_run"`
	AutoPublishContracts   bool          `json:"auto_publish_contracts"`
}

// GraphQLOperationResult reports what happened to one Query or Mutation
// field.
type GraphQLOperationResult struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"` // query, mutation
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

// GraphQLImportResult is the response to a GraphQL introspection
// ingestion call.
type GraphQLImportResult struct {
	OperationsFound     int                       `json:"operations_found"`
	AssetsCreated       int                       `json:"assets_created"`
	Operations          []GraphQLOperationResult  `json:"operations"`
	ContractsPublished  int                       `json:"contracts_published"`
}

type graphqlOperation struct {
	name string
	kind string
}

// collectGraphQLOperations walks introspection.__schema.types, finds the
// OBJECT types named by queryType/mutationType, and returns one entry per
// field those types declare.
func collectGraphQLOperations(introspection map[string]any) []graphqlOperation {
	schema, _ := introspection["__schema"].(map[string]any)
	if schema == nil {
		return nil
	}
	queryTypeName, mutationTypeName := "", ""
	if qt, ok := schema["queryType"].(map[string]any); ok {
		queryTypeName, _ = qt["name"].(string)
	}
	if mt, ok := schema["mutationType"].(map[string]any); ok {
		mutationTypeName, _ = mt["name"].(string)
	}

	types, _ := schema["types"].([]any)
	var ops []graphqlOperation
	for _, rawType := range types {
		t, ok := rawType.(map[string]any)
		if !ok {
			continue
		}
		name, _ := t["name"].(string)
		var kind string
		switch name {
		case queryTypeName:
			kind = "query"
		case mutationTypeName:
			kind = "mutation"
		default:
			continue
		}
		fields, _ := t["fields"].([]any)
		for _, rawField := range fields {
			field, ok := rawField.(map[string]any)
			if !ok {
				continue
			}
			fieldName, _ := field["name"].(string)
			if fieldName == "" {
				continue
			}
			ops = append(ops, graphqlOperation{name: fieldName, kind: kind})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].kind != ops[j].kind {
			return ops[i].kind < ops[j].kind
		}
		return ops[i].name < ops[j].name
	})
	return ops
}

// ImportGraphQL ingests a GraphQL introspection result, creating one
// asset per Query/Mutation field (FQN "graphql.<schema_name>.<name>",
// resource_type "graphql_operation").
func (s *Service) ImportGraphQL(ctx context.Context, in GraphQLImportRequest) (GraphQLImportResult, error) {
	if in.OwnerTeamID == uuid.Nil {
		return GraphQLImportResult{}, apperrors.NewValidationError("owner_team_id is required")
	}
	if in.SchemaName == "" {
		return GraphQLImportResult{}, apperrors.NewValidationError("schema_name is required")
	}

	ops := collectGraphQLOperations(in.Introspection)
	result := GraphQLImportResult{OperationsFound: len(ops)}

	for _, op := range ops {
		fqn := fmt.Sprintf("graphql.%s.%s", in.SchemaName, op.name)
		existing, err := s.store.GetAssetByFQN(ctx, fqn, "")
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			result.Operations = append(result.Operations, GraphQLOperationResult{
				Name: op.name, Kind: op.kind, Action: "error", Error: err.Error(),
			})
			continue
		}
		creating := existing == nil

		if in.DryRun {
			action := "would_update"
			if creating {
				action = "would_create"
			}
			result.Operations = append(result.Operations, GraphQLOperationResult{Name: op.name, Kind: op.kind, Action: action})
			continue
		}

		metadata := models.JSONMap{
			"resource_type": "graphql_operation",
			"schema_name":   in.SchemaName,
			"operation":     op.kind,
		}
		var asset *models.Asset
		if creating {
			asset = &models.Asset{
				ID: uuid.New(), FQN: fqn, OwnerTeamID: in.OwnerTeamID,
				ResourceType: "graphql_operation", Metadata: metadata,
			}
			if err := s.store.CreateAsset(ctx, asset); err != nil {
				result.Operations = append(result.Operations, GraphQLOperationResult{
					Name: op.name, Kind: op.kind, Action: "error", Error: err.Error(),
				})
				continue
			}
			result.AssetsCreated++
		} else {
			asset = existing
			asset.Metadata = metadata
			if err := s.store.UpdateAsset(ctx, asset); err != nil {
				result.Operations = append(result.Operations, GraphQLOperationResult{
					Name: op.name, Kind: op.kind, Action: "error", Error: err.Error(),
				})
				continue
			}
		}

		action := "updated"
		if creating {
			action = "created"
		}
		result.Operations = append(result.Operations, GraphQLOperationResult{Name: op.name, Kind: op.kind, Action: action})

		if in.AutoPublishContracts && creating {
			schema := map[string]any{"type": "object", "properties": map[string]any{}, "required": []any{}}
			if err := s.publishInitialContract(ctx, asset, schema, in.OwnerTeamID); err != nil {
				return result, err
			}
			result.ContractsPublished++
		}
	}

	return result, nil
}
