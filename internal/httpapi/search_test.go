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

var _ = Describe("search", func() {
	var (
		fs     *fakeStore
		router http.Handler
		owner  uuid.UUID
	)

	BeforeEach(func() {
		fs = newFakeStore()
		router = newTestRouter(fs)
		owner = uuid.New()

		Expect(fs.CreateAsset(context.Background(), &models.Asset{
			ID: uuid.New(), FQN: "warehouse.orders", Environment: "production", OwnerTeamID: owner, ResourceType: "table",
		})).To(Succeed())
		Expect(fs.CreateAsset(context.Background(), &models.Asset{
			ID: uuid.New(), FQN: "warehouse.customers", Environment: "production", OwnerTeamID: owner, ResourceType: "table",
		})).To(Succeed())
		Expect(fs.CreateAsset(context.Background(), &models.Asset{
			ID: uuid.New(), FQN: "api.orders", Environment: "production", OwnerTeamID: owner, ResourceType: "api_endpoint",
		})).To(Succeed())
	})

	It("matches assets whose fqn contains the query substring", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/search?q=orders", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var result struct {
			Total   int            `json:"total"`
			Results []models.Asset `json:"results"`
		}
		decodeBody(rec, &result)
		Expect(result.Total).To(Equal(2))
	})

	It("applies a types filter in-process", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/search?q=orders&types=api_endpoint", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var result struct {
			Total   int            `json:"total"`
			Results []models.Asset `json:"results"`
		}
		decodeBody(rec, &result)
		Expect(result.Total).To(Equal(1))
		Expect(result.Results[0].FQN).To(Equal("api.orders"))
	})

	It("requires a q parameter", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/search", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects a limit outside the allowed range", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/search?q=orders&limit=0", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
