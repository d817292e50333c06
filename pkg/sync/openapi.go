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
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// openapiHTTPMethods are the path-item keys treated as operations; OpenAPI
// also allows "parameters", "summary", and other non-method keys at the
// same level, which are skipped.
var openapiHTTPMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// OpenAPIImportRequest is the body of an OpenAPI ingestion call.
type OpenAPIImportRequest struct {
	Spec                  map[string]any `json:"spec"`
	OwnerTeamID           uuid.UUID      `json:"owner_team_id"`
	DryRun                bool           `json:"dry_run"`
	AutoPublishContracts  bool           `json:"auto_publish_contracts"`
}

// OpenAPIEndpointResult reports what happened (or would happen, in a dry
// run) to a single operationId.
type OpenAPIEndpointResult struct {
	OperationID string `json:"operation_id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Action      string `json:"action"` // created, updated, would_create, would_update, error
	Error       string `json:"error,omitempty"`
}

// OpenAPIImportResult is the response to an OpenAPI ingestion call.
type OpenAPIImportResult struct {
	APITitle            string                  `json:"api_title"`
	EndpointsFound      int                     `json:"endpoints_found"`
	AssetsCreated       int                     `json:"assets_created"`
	Endpoints           []OpenAPIEndpointResult `json:"endpoints"`
	ContractsPublished  int                     `json:"contracts_published"`
}

type openapiOperation struct {
	path        string
	method      string
	operationID string
	responseSchema map[string]any
}

// collectOpenAPIOperations walks spec.paths and returns one entry per
// HTTP-method operation, ordered by path then method for determinism.
func collectOpenAPIOperations(spec map[string]any) []openapiOperation {
	pathsRaw, _ := spec["paths"].(map[string]any)
	var ops []openapiOperation
	for path, itemRaw := range pathsRaw {
		item, ok := itemRaw.(map[string]any)
		if !ok {
			continue
		}
		for method, opRaw := range item {
			if !openapiHTTPMethods[strings.ToLower(method)] {
				continue
			}
			op, ok := opRaw.(map[string]any)
			if !ok {
				continue
			}
			operationID, _ := op["operationId"].(string)
			if operationID == "" {
				operationID = fmt.Sprintf("%s_%s", strings.ToLower(method), path)
			}
			ops = append(ops, openapiOperation{
				path:           path,
				method:         strings.ToUpper(method),
				operationID:    operationID,
				responseSchema: firstJSONResponseSchema(op),
			})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].path != ops[j].path {
			return ops[i].path < ops[j].path
		}
		return ops[i].method < ops[j].method
	})
	return ops
}

// firstJSONResponseSchema extracts the application/json schema of the
// first 2xx response, if any, for use as a contract's initial schema.
func firstJSONResponseSchema(op map[string]any) map[string]any {
	responses, _ := op["responses"].(map[string]any)
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if len(code) == 0 || code[0] != '2' {
			continue
		}
		response, _ := responses[code].(map[string]any)
		content, _ := response["content"].(map[string]any)
		media, _ := content["application/json"].(map[string]any)
		if schema, ok := media["schema"].(map[string]any); ok {
			return schema
		}
	}
	return nil
}

// ImportOpenAPI ingests an OpenAPI document, creating one asset per
// operationId (FQN "openapi.<operationId>", resource_type "api_endpoint").
// With AutoPublishContracts, a new asset whose first 2xx response carries
// an application/json schema is also given an initial published contract.
func (s *Service) ImportOpenAPI(ctx context.Context, in OpenAPIImportRequest) (OpenAPIImportResult, error) {
	if in.OwnerTeamID == uuid.Nil {
		return OpenAPIImportResult{}, apperrors.NewValidationError("owner_team_id is required")
	}
	info, _ := in.Spec["info"].(map[string]any)
	title, _ := info["title"].(string)

	ops := collectOpenAPIOperations(in.Spec)
	result := OpenAPIImportResult{APITitle: title, EndpointsFound: len(ops)}

	for _, op := range ops {
		fqn := "openapi." + op.operationID
		existing, err := s.store.GetAssetByFQN(ctx, fqn, "")
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			result.Endpoints = append(result.Endpoints, OpenAPIEndpointResult{
				OperationID: op.operationID, Method: op.method, Path: op.path,
				Action: "error", Error: err.Error(),
			})
			continue
		}
		creating := existing == nil

		if in.DryRun {
			action := "would_update"
			if creating {
				action = "would_create"
			}
			result.Endpoints = append(result.Endpoints, OpenAPIEndpointResult{
				OperationID: op.operationID, Method: op.method, Path: op.path, Action: action,
			})
			continue
		}

		metadata := models.JSONMap{
			"resource_type": "api_endpoint",
			"method":        op.method,
			"path":          op.path,
		}
		var asset *models.Asset
		if creating {
			asset = &models.Asset{
				ID: uuid.New(), FQN: fqn, OwnerTeamID: in.OwnerTeamID,
				ResourceType: "api_endpoint", Metadata: metadata,
			}
			if err := s.store.CreateAsset(ctx, asset); err != nil {
				result.Endpoints = append(result.Endpoints, OpenAPIEndpointResult{
					OperationID: op.operationID, Method: op.method, Path: op.path,
					Action: "error", Error: err.Error(),
				})
				continue
			}
			result.AssetsCreated++
		} else {
			asset = existing
			asset.Metadata = metadata
			if err := s.store.UpdateAsset(ctx, asset); err != nil {
				result.Endpoints = append(result.Endpoints, OpenAPIEndpointResult{
					OperationID: op.operationID, Method: op.method, Path: op.path,
					Action: "error", Error: err.Error(),
				})
				continue
			}
		}

		action := "updated"
		if creating {
			action = "created"
		}
		result.Endpoints = append(result.Endpoints, OpenAPIEndpointResult{
			OperationID: op.operationID, Method: op.method, Path: op.path, Action: action,
		})

		if in.AutoPublishContracts && creating && op.responseSchema != nil {
			if err := s.publishInitialContract(ctx, asset, op.responseSchema, in.OwnerTeamID); err != nil {
				return result, err
			}
			result.ContractsPublished++
		}
	}

	return result, nil
}

// publishInitialContract inserts a first, already-active contract for a
// freshly-created asset. It bypasses the full publish workflow (no diff
// against a prior version exists yet) and writes a contract "published"
// audit event, built directly as a models.AuditEvent, in the same
// transaction.
func (s *Service) publishInitialContract(ctx context.Context, asset *models.Asset, schema map[string]any, publishedBy uuid.UUID) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		contract := &models.Contract{
			ID:                uuid.New(),
			AssetID:           asset.ID,
			Version:           "1.0.0",
			SchemaDef:         schema,
			SchemaFormat:      models.SchemaFormatJSONSchema,
			CompatibilityMode: models.CompatibilityBackward,
			Status:            models.ContractActive,
			PublishedBy:       publishedBy,
			PublishedAt:       store.Now().UTC(),
		}
		if err := tx.InsertContract(ctx, contract); err != nil {
			return fmt.Errorf("tessera/sync: publish initial contract for %q: %w", asset.FQN, err)
		}
		return tx.WriteAuditEvent(ctx, &models.AuditEvent{
			ID:         uuid.New(),
			EntityType: "contract",
			EntityID:   contract.ID,
			Action:     "published",
			Payload:    models.JSONMap{"asset_id": asset.ID, "version": contract.Version, "source": "openapi_sync"},
			OccurredAt: store.Now().UTC(),
		})
	})
}
