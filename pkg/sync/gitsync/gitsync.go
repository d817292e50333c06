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

// Package gitsync exports and imports teams, assets, contracts, and
// registrations as a directory of YAML files, the optional
// sync/push and sync/pull workflow left open by spec §9: contracts
// reviewed and merged through a pull request before they reach Tessera.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

type teamYAML struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Metadata models.JSONMap `yaml:"metadata"`
}

type registrationYAML struct {
	ID             string  `yaml:"id"`
	ConsumerTeamID string  `yaml:"consumer_team_id"`
	PinnedVersion  *string `yaml:"pinned_version,omitempty"`
	Status         string  `yaml:"status"`
}

type contractYAML struct {
	ID                string             `yaml:"id"`
	Version           string             `yaml:"version"`
	Schema            models.JSONMap     `yaml:"schema"`
	CompatibilityMode string             `yaml:"compatibility_mode"`
	Guarantees        models.JSONMap     `yaml:"guarantees,omitempty"`
	Status            string             `yaml:"status"`
	Registrations     []registrationYAML `yaml:"registrations"`
}

type assetYAML struct {
	ID          string         `yaml:"id"`
	FQN         string         `yaml:"fqn"`
	OwnerTeamID string         `yaml:"owner_team_id"`
	Metadata    models.JSONMap `yaml:"metadata"`
	Contracts   []contractYAML `yaml:"contracts"`
}

// PushResult counts what Push exported.
type PushResult struct {
	Teams     int `json:"teams"`
	Assets    int `json:"assets"`
	Contracts int `json:"contracts"`
}

// escapeFQN turns an FQN into a filesystem-safe file stem, matching the
// escaping a reader would expect from the directory Push lays out:
// "/" and "." cannot appear unescaped in a single path segment.
func escapeFQN(fqn string) string {
	escaped := strings.ReplaceAll(fqn, "/", "__")
	escaped = strings.ReplaceAll(escaped, ".", "_")
	return escaped
}

// Push exports every team and asset (with its contracts and their
// registrations) under dir as one YAML file each:
//
//	dir/teams/{team_name}.yaml
//	dir/assets/{fqn_escaped}.yaml
func Push(ctx context.Context, s store.Store, dir string) (PushResult, error) {
	var result PushResult

	teamsDir := filepath.Join(dir, "teams")
	assetsDir := filepath.Join(dir, "assets")
	if err := os.MkdirAll(teamsDir, 0o755); err != nil {
		return result, fmt.Errorf("tessera/gitsync: create teams dir: %w", err)
	}
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return result, fmt.Errorf("tessera/gitsync: create assets dir: %w", err)
	}

	teams, err := s.ListTeams(ctx, store.ListFilter{})
	if err != nil {
		return result, fmt.Errorf("tessera/gitsync: list teams: %w", err)
	}
	for _, team := range teams {
		data := teamYAML{ID: team.ID.String(), Name: team.Name, Metadata: team.Metadata}
		raw, err := yaml.Marshal(data)
		if err != nil {
			return result, fmt.Errorf("tessera/gitsync: marshal team %q: %w", team.Name, err)
		}
		path := filepath.Join(teamsDir, team.Name+".yaml")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return result, fmt.Errorf("tessera/gitsync: write team file %q: %w", path, err)
		}
		result.Teams++
	}

	assets, err := s.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return result, fmt.Errorf("tessera/gitsync: list assets: %w", err)
	}
	for _, asset := range assets {
		contracts, err := s.ListContracts(ctx, asset.ID)
		if err != nil {
			return result, fmt.Errorf("tessera/gitsync: list contracts for %q: %w", asset.FQN, err)
		}
		contractsYAML := make([]contractYAML, 0, len(contracts))
		for _, contract := range contracts {
			regs, err := s.ListRegistrations(ctx, store.RegistrationFilter{ContractID: &contract.ID})
			if err != nil {
				return result, fmt.Errorf("tessera/gitsync: list registrations for contract %q: %w", contract.ID, err)
			}
			regsYAML := make([]registrationYAML, 0, len(regs))
			for _, reg := range regs {
				regsYAML = append(regsYAML, registrationYAML{
					ID:             reg.ID.String(),
					ConsumerTeamID: reg.ConsumerTeamID.String(),
					PinnedVersion:  reg.PinnedVersion,
					Status:         string(reg.Status),
				})
			}
			contractsYAML = append(contractsYAML, contractYAML{
				ID:                contract.ID.String(),
				Version:           contract.Version,
				Schema:            contract.SchemaDef,
				CompatibilityMode: string(contract.CompatibilityMode),
				Guarantees:        contract.Guarantees,
				Status:            string(contract.Status),
				Registrations:     regsYAML,
			})
			result.Contracts++
		}

		data := assetYAML{
			ID:          asset.ID.String(),
			FQN:         asset.FQN,
			OwnerTeamID: asset.OwnerTeamID.String(),
			Metadata:    asset.Metadata,
			Contracts:   contractsYAML,
		}
		raw, err := yaml.Marshal(data)
		if err != nil {
			return result, fmt.Errorf("tessera/gitsync: marshal asset %q: %w", asset.FQN, err)
		}
		path := filepath.Join(assetsDir, escapeFQN(asset.FQN)+".yaml")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return result, fmt.Errorf("tessera/gitsync: write asset file %q: %w", path, err)
		}
		result.Assets++
	}

	return result, nil
}

// PullResult counts what Pull imported.
type PullResult struct {
	Teams     int `json:"teams"`
	Assets    int `json:"assets"`
	Contracts int `json:"contracts"`
}

// Pull imports the directory structure Push writes. Teams and assets are
// upserted by id. Contracts are append-only in this store (there is no
// UpdateContract): a contract id already present is left untouched and a
// new one is inserted as-is, matching the immutability the rest of the
// module relies on. Registrations, which do support update, are upserted
// by id.
func Pull(ctx context.Context, s store.Store, dir string) (PullResult, error) {
	var result PullResult

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return result, apperrors.NewNotFoundError(fmt.Sprintf("sync path not found: %s", dir))
	}

	teamsDir := filepath.Join(dir, "teams")
	if entries, err := readYAMLFiles(teamsDir); err == nil {
		for _, raw := range entries {
			var data teamYAML
			if err := yaml.Unmarshal(raw, &data); err != nil {
				return result, fmt.Errorf("tessera/gitsync: parse team file: %w", err)
			}
			id, err := uuid.Parse(data.ID)
			if err != nil {
				return result, fmt.Errorf("tessera/gitsync: team id %q: %w", data.ID, err)
			}
			if existing, err := s.GetTeam(ctx, id); err == nil {
				existing.Name = data.Name
				existing.Metadata = data.Metadata
				if err := s.UpdateTeam(ctx, existing); err != nil {
					return result, fmt.Errorf("tessera/gitsync: update team %q: %w", data.Name, err)
				}
			} else if errors.Is(err, store.ErrNotFound) {
				if err := s.CreateTeam(ctx, &models.Team{ID: id, Name: data.Name, Metadata: data.Metadata}); err != nil {
					return result, fmt.Errorf("tessera/gitsync: create team %q: %w", data.Name, err)
				}
			} else {
				return result, fmt.Errorf("tessera/gitsync: lookup team %q: %w", data.Name, err)
			}
			result.Teams++
		}
	}

	assetsDir := filepath.Join(dir, "assets")
	if entries, err := readYAMLFiles(assetsDir); err == nil {
		for _, raw := range entries {
			var data assetYAML
			if err := yaml.Unmarshal(raw, &data); err != nil {
				return result, fmt.Errorf("tessera/gitsync: parse asset file: %w", err)
			}
			if err := pullAsset(ctx, s, data, &result); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

func pullAsset(ctx context.Context, s store.Store, data assetYAML, result *PullResult) error {
	assetID, err := uuid.Parse(data.ID)
	if err != nil {
		return fmt.Errorf("tessera/gitsync: asset id %q: %w", data.ID, err)
	}
	ownerTeamID, err := uuid.Parse(data.OwnerTeamID)
	if err != nil {
		return fmt.Errorf("tessera/gitsync: asset %q owner_team_id %q: %w", data.FQN, data.OwnerTeamID, err)
	}

	if existing, err := s.GetAsset(ctx, assetID); err == nil {
		existing.FQN = data.FQN
		existing.OwnerTeamID = ownerTeamID
		existing.Metadata = data.Metadata
		if err := s.UpdateAsset(ctx, existing); err != nil {
			return fmt.Errorf("tessera/gitsync: update asset %q: %w", data.FQN, err)
		}
	} else if errors.Is(err, store.ErrNotFound) {
		if err := s.CreateAsset(ctx, &models.Asset{
			ID: assetID, FQN: data.FQN, OwnerTeamID: ownerTeamID, Metadata: data.Metadata,
		}); err != nil {
			return fmt.Errorf("tessera/gitsync: create asset %q: %w", data.FQN, err)
		}
	} else {
		return fmt.Errorf("tessera/gitsync: lookup asset %q: %w", data.FQN, err)
	}
	result.Assets++

	for _, c := range data.Contracts {
		if err := pullContract(ctx, s, assetID, ownerTeamID, c, result); err != nil {
			return err
		}
	}
	return nil
}

func pullContract(ctx context.Context, s store.Store, assetID, ownerTeamID uuid.UUID, c contractYAML, result *PullResult) error {
	contractID, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("tessera/gitsync: contract id %q: %w", c.ID, err)
	}

	if _, err := s.GetContract(ctx, contractID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("tessera/gitsync: lookup contract %q: %w", c.ID, err)
		}
		if err := s.InsertContract(ctx, &models.Contract{
			ID:                contractID,
			AssetID:           assetID,
			Version:           c.Version,
			SchemaDef:         c.Schema,
			SchemaFormat:      models.SchemaFormatJSONSchema,
			CompatibilityMode: models.CompatibilityMode(c.CompatibilityMode),
			Guarantees:        c.Guarantees,
			Status:            models.ContractStatus(c.Status),
			PublishedBy:       ownerTeamID,
			PublishedAt:       store.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("tessera/gitsync: insert contract %q: %w", c.ID, err)
		}
	}
	result.Contracts++

	for _, r := range c.Registrations {
		if err := pullRegistration(ctx, s, contractID, r); err != nil {
			return err
		}
	}
	return nil
}

func pullRegistration(ctx context.Context, s store.Store, contractID uuid.UUID, r registrationYAML) error {
	regID, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("tessera/gitsync: registration id %q: %w", r.ID, err)
	}
	consumerTeamID, err := uuid.Parse(r.ConsumerTeamID)
	if err != nil {
		return fmt.Errorf("tessera/gitsync: registration %q consumer_team_id %q: %w", r.ID, r.ConsumerTeamID, err)
	}

	if existing, err := s.GetRegistration(ctx, regID); err == nil {
		existing.PinnedVersion = r.PinnedVersion
		existing.Status = models.RegistrationStatus(r.Status)
		return s.UpdateRegistration(ctx, existing)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("tessera/gitsync: lookup registration %q: %w", r.ID, err)
	}
	return s.CreateRegistration(ctx, &models.Registration{
		ID:             regID,
		ContractID:     contractID,
		ConsumerTeamID: consumerTeamID,
		PinnedVersion:  r.PinnedVersion,
		Status:         models.RegistrationStatus(r.Status),
		RegisteredAt:   store.Now().UTC(),
	})
}

func readYAMLFiles(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	out := make([][]byte, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}
