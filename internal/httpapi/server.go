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

// Package httpapi assembles the chi router: the middleware chain, the
// /health* liveness surface, and the /api/v1 resource handlers that front
// pkg/contract, pkg/proposal, pkg/impact, pkg/audit, and pkg/sync.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/internal/httpapi/middleware"
	"github.com/ashita-ai/tessera/pkg/audit"
	"github.com/ashita-ai/tessera/pkg/auth"
	"github.com/ashita-ai/tessera/pkg/contract"
	"github.com/ashita-ai/tessera/pkg/impact"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/proposal"
	"github.com/ashita-ai/tessera/pkg/ratelimit"
	"github.com/ashita-ai/tessera/pkg/schemadiff/validate"
	"github.com/ashita-ai/tessera/pkg/store"
	"github.com/ashita-ai/tessera/pkg/sync"
)

// Config bundles the dependencies and settings NewRouter needs to wire
// the full API surface.
type Config struct {
	Store       store.Store
	Contracts   *contract.Workflow
	Proposals   *proposal.Workflow
	Impact      *impact.Engine
	Audit       *audit.Service
	Sync        *sync.Service
	Validator   *validate.Validator
	Resolver    *auth.Resolver
	Limiter     *ratelimit.Limiter
	Log         *zap.Logger
	Environment string
	AuthDisabled bool
	// CORSAllowedOrigins configures go-chi/cors for the /api/v1 surface.
	// A nil slice allows no cross-origin callers.
	CORSAllowedOrigins []string
}

// api holds the resolved dependencies every handler closes over.
type api struct {
	store     store.Store
	contracts *contract.Workflow
	proposals *proposal.Workflow
	impact    *impact.Engine
	audit     *audit.Service
	sync      *sync.Service
	validator *validate.Validator
	log       *zap.Logger
	readyAt   time.Time
}

// NewRouter builds the complete chi.Router: middleware chain, health
// checks, and the versioned resource surface. The middleware order is
// fixed: request id, structured logging, panic recovery and security
// headers on every route, then CORS, rate limiting and authentication on
// /api/v1 only — each layer assumes the ones before it already ran.
func NewRouter(cfg Config) http.Handler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	a := &api{
		store:     cfg.Store,
		contracts: cfg.Contracts,
		proposals: cfg.Proposals,
		impact:    cfg.Impact,
		audit:     cfg.Audit,
		sync:      cfg.Sync,
		validator: cfg.Validator,
		log:       cfg.Log,
		readyAt:   time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(cfg.Log))
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.SecurityHeaders(cfg.Environment))

	r.Get("/health", a.handleHealth)
	r.Get("/health/live", a.handleLive)
	r.Get("/health/ready", a.handleReady)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Total-Count", "X-Request-ID"},
			MaxAge:           300,
		}))
		v1.Use(middleware.RateLimit(cfg.Limiter))
		v1.Use(middleware.Auth(cfg.Resolver, cfg.AuthDisabled))

		v1.Route("/teams", func(rt chi.Router) {
			rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/", a.handleCreateTeam)
			rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleListTeams)
			rt.Route("/{teamID}", func(rt chi.Router) {
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleGetTeam)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Patch("/", a.handleUpdateTeam)
				rt.With(middleware.RequireScope(models.ScopeAdmin)).Delete("/", a.handleDeleteTeam)
			})
		})

		v1.Route("/assets", func(rt chi.Router) {
			rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/", a.handleCreateAsset)
			rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleListAssets)
			rt.Route("/{assetID}", func(rt chi.Router) {
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleGetAsset)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Patch("/", a.handleUpdateAsset)
				rt.With(middleware.RequireScope(models.ScopeAdmin)).Delete("/", a.handleDeleteAsset)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/contracts", a.handlePublishContract)
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/contracts", a.handleListAssetContracts)
				rt.With(middleware.RequireScope(models.ScopeRead)).Post("/impact", a.handleAssetImpact)
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/lineage", a.handleAssetLineage)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/audit-results", a.handleRecordAuditResult)
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/audit-history", a.handleAuditHistory)
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/audit-runs", a.handleAuditRuns)
			})
		})

		v1.Route("/contracts/{contractID}", func(rt chi.Router) {
			rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleGetContract)
			rt.With(middleware.RequireScope(models.ScopeRead)).Get("/registrations", a.handleListContractRegistrations)
		})

		v1.Route("/registrations", func(rt chi.Router) {
			rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/", a.handleCreateRegistration)
			rt.Route("/{registrationID}", func(rt chi.Router) {
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleGetRegistration)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Patch("/", a.handleUpdateRegistration)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Delete("/", a.handleDeleteRegistration)
			})
		})

		v1.Route("/proposals", func(rt chi.Router) {
			rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleListProposals)
			rt.Route("/{proposalID}", func(rt chi.Router) {
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/", a.handleGetProposal)
				rt.With(middleware.RequireScope(models.ScopeRead)).Get("/status", a.handleProposalStatus)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/acknowledge", a.handleAcknowledgeProposal)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/object", a.handleObjectProposal)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/withdraw", a.handleWithdrawProposal)
				rt.With(middleware.RequireScope(models.ScopeAdmin)).Post("/force", a.handleForceProposal)
				rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/publish", a.handlePublishProposal)
			})
		})

		v1.With(middleware.RequireScope(models.ScopeWrite)).Post("/bulk/contracts", a.handleBulkPublishContracts)
		v1.With(middleware.RequireScope(models.ScopeWrite)).Post("/bulk/acknowledgments", a.handleBulkAcknowledgments)

		v1.Route("/sync", func(rt chi.Router) {
			rt.With(middleware.RequireScope(models.ScopeAdmin)).Post("/dbt", a.handleSyncDbt)
			rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/dbt/upload", a.handleSyncDbtUpload)
			rt.With(middleware.RequireScope(models.ScopeRead)).Post("/dbt/impact", a.handleSyncDbtImpact)
			rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/openapi", a.handleSyncOpenAPI)
			rt.With(middleware.RequireScope(models.ScopeWrite)).Post("/graphql", a.handleSyncGraphQL)
			rt.With(middleware.RequireScope(models.ScopeAdmin)).Post("/push", a.handleSyncPush)
			rt.With(middleware.RequireScope(models.ScopeAdmin)).Post("/pull", a.handleSyncPull)
		})

		v1.With(middleware.RequireScope(models.ScopeRead)).Get("/search", a.handleSearch)
		v1.With(middleware.RequireScope(models.ScopeRead)).Post("/schemas/validate", a.handleValidateSchema)
	})

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// handleReady reports the control plane ready only once the database
// connection can answer a trivial query; a readiness probe failing here
// should pull the pod out of a load balancer, not restart it.
func (a *api) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := a.store.ListTeams(r.Context(), store.ListFilter{Limit: 1}); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
