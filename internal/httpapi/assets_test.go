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

package httpapi_test

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ashita-ai/tessera/pkg/models"
)

var _ = Describe("assets", func() {
	var (
		fs      *fakeStore
		router  http.Handler
		ownerID uuid.UUID
	)

	BeforeEach(func() {
		fs = newFakeStore()
		router = newTestRouter(fs)
		ownerID = uuid.New()
	})

	It("creates an asset and rejects a duplicate fqn+environment", func() {
		body := map[string]any{
			"fqn": "warehouse.orders", "environment": "production",
			"owner_team_id": ownerID, "resource_type": "table",
		}
		rec := doRequest(router, http.MethodPost, "/api/v1/assets/", body)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = doRequest(router, http.MethodPost, "/api/v1/assets/", body)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("lists assets filtered by owner", func() {
		other := uuid.New()
		doRequest(router, http.MethodPost, "/api/v1/assets/", map[string]any{
			"fqn": "warehouse.a", "environment": "production", "owner_team_id": ownerID, "resource_type": "table",
		})
		doRequest(router, http.MethodPost, "/api/v1/assets/", map[string]any{
			"fqn": "warehouse.b", "environment": "production", "owner_team_id": other, "resource_type": "table",
		})

		rec := doRequest(router, http.MethodGet, "/api/v1/assets/?owner="+ownerID.String(), nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var page struct {
			Total   int           `json:"total"`
			Results []models.Asset `json:"results"`
		}
		decodeBody(rec, &page)
		Expect(page.Total).To(Equal(1))
		Expect(page.Results[0].FQN).To(Equal("warehouse.a"))
	})

	It("updates and soft-deletes an asset", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/assets/", map[string]any{
			"fqn": "warehouse.c", "environment": "production", "owner_team_id": ownerID, "resource_type": "table",
		})
		var created models.Asset
		decodeBody(rec, &created)
		path := "/api/v1/assets/" + created.ID.String()

		rec = doRequest(router, http.MethodPatch, path, map[string]any{"resource_type": "view"})
		Expect(rec.Code).To(Equal(http.StatusOK))
		var updated models.Asset
		decodeBody(rec, &updated)
		Expect(updated.ResourceType).To(Equal("view"))

		rec = doRequest(router, http.MethodDelete, path, nil)
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = doRequest(router, http.MethodGet, path, nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("analyzes impact without mutating state", func() {
		asset := &models.Asset{ID: uuid.New(), FQN: "warehouse.orders", Environment: "production", OwnerTeamID: ownerID, ResourceType: "table"}
		Expect(fs.CreateAsset(context.Background(), asset)).To(Succeed())

		rec := doRequest(router, http.MethodPost, "/api/v1/assets/"+asset.ID.String()+"/impact", map[string]any{
			"schema": map[string]any{"type": "object", "properties": map[string]any{"id": map[string]any{"type": "string"}}},
		})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(fs.contracts).To(BeEmpty())
	})

	It("treats an unknown asset as having no active contract or downstream consumers", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/assets/"+uuid.New().String()+"/impact", map[string]any{
			"schema": map[string]any{"type": "object"},
		})
		Expect(rec.Code).To(Equal(http.StatusOK))
		var report map[string]any
		decodeBody(rec, &report)
		Expect(report["safe_to_publish"]).To(BeTrue())
	})

	It("records an audit result and surfaces it in history", func() {
		asset := &models.Asset{ID: uuid.New(), FQN: "warehouse.orders", Environment: "production", OwnerTeamID: ownerID, ResourceType: "table"}
		Expect(fs.CreateAsset(context.Background(), asset)).To(Succeed())

		rec := doRequest(router, http.MethodPost, "/api/v1/assets/"+asset.ID.String()+"/audit-results", map[string]any{
			"status": "passed", "triggered_by": "dbt-test",
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = doRequest(router, http.MethodGet, "/api/v1/assets/"+asset.ID.String()+"/audit-history", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var page struct {
			Total int `json:"total"`
		}
		decodeBody(rec, &page)
		Expect(page.Total).To(Equal(1))

		rec = doRequest(router, http.MethodGet, "/api/v1/assets/"+asset.ID.String()+"/audit-runs", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var runsPage struct {
			Total   int `json:"total"`
			Results []struct {
				Status string `json:"status"`
			} `json:"results"`
		}
		decodeBody(rec, &runsPage)
		Expect(runsPage.Total).To(Equal(1))
		Expect(runsPage.Results[0].Status).To(Equal("passed"))
	})
})
