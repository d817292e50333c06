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

var _ = Describe("registrations", func() {
	var (
		fs         *fakeStore
		router     http.Handler
		contractID uuid.UUID
		consumer   uuid.UUID
	)

	BeforeEach(func() {
		fs = newFakeStore()
		router = newTestRouter(fs)

		owner := uuid.New()
		asset := &models.Asset{ID: uuid.New(), FQN: "warehouse.orders", Environment: "production", OwnerTeamID: owner, ResourceType: "table"}
		Expect(fs.CreateAsset(context.Background(), asset)).To(Succeed())

		contractID = uuid.New()
		Expect(fs.InsertContract(context.Background(), &models.Contract{
			ID: contractID, AssetID: asset.ID, Version: "1.0.0", Status: models.ContractActive,
			SchemaDef: map[string]any{"type": "object"},
		})).To(Succeed())

		consumer = uuid.New()
	})

	It("creates a registration and rejects a duplicate for the same contract and team", func() {
		body := map[string]any{"consumer_team_id": consumer}
		rec := doRequest(router, http.MethodPost, "/api/v1/registrations/?contract_id="+contractID.String(), body)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = doRequest(router, http.MethodPost, "/api/v1/registrations/?contract_id="+contractID.String(), body)
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("requires a contract_id", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/registrations/", map[string]any{"consumer_team_id": consumer})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("gets, updates, and soft-deletes a registration", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/registrations/?contract_id="+contractID.String(), map[string]any{"consumer_team_id": consumer})
		var created models.Registration
		decodeBody(rec, &created)

		path := "/api/v1/registrations/" + created.ID.String()
		rec = doRequest(router, http.MethodGet, path, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = doRequest(router, http.MethodPatch, path, map[string]any{"status": "inactive"})
		Expect(rec.Code).To(Equal(http.StatusOK))
		var updated models.Registration
		decodeBody(rec, &updated)
		Expect(updated.Status).To(Equal(models.RegistrationInactive))

		rec = doRequest(router, http.MethodDelete, path, nil)
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = doRequest(router, http.MethodGet, path, nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("404s on an unknown registration id", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/registrations/"+uuid.New().String(), nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
