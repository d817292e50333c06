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

var _ = Describe("bulk acknowledgments", func() {
	var (
		fs        *fakeStore
		router    http.Handler
		proposalA *models.Proposal
		consumer  uuid.UUID
	)

	BeforeEach(func() {
		fs = newFakeStore()
		router = newTestRouter(fs)

		owner := uuid.New()
		asset := &models.Asset{ID: uuid.New(), FQN: "warehouse.orders", Environment: "production", OwnerTeamID: owner, ResourceType: "table"}
		Expect(fs.CreateAsset(context.Background(), asset)).To(Succeed())

		proposalA = &models.Proposal{
			ID: uuid.New(), AssetID: asset.ID, ProposedSchema: map[string]any{"type": "object"},
			ChangeType: models.ChangeMajor, Status: models.ProposalPending, ProposedBy: owner,
		}
		Expect(fs.CreateProposal(context.Background(), proposalA)).To(Succeed())

		consumer = uuid.New()
	})

	It("processes every item independently and reports per-item outcomes", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/bulk/acknowledgments", map[string]any{
			"acknowledgments": []map[string]any{
				{"proposal_id": proposalA.ID, "consumer_team_id": consumer, "response": "approved"},
				{"proposal_id": uuid.New(), "consumer_team_id": consumer, "response": "approved"},
			},
			"continue_on_error": true,
		})
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp struct {
			Total     int `json:"total"`
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
			Results   []struct {
				ProposalID uuid.UUID `json:"proposal_id"`
				Error      string    `json:"error,omitempty"`
			} `json:"results"`
		}
		decodeBody(rec, &resp)
		Expect(resp.Total).To(Equal(2))
		Expect(resp.Succeeded).To(Equal(1))
		Expect(resp.Failed).To(Equal(1))
		Expect(resp.Results[1].Error).NotTo(BeEmpty())
	})

	It("stops at the first failure when continue_on_error is false", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/bulk/acknowledgments", map[string]any{
			"acknowledgments": []map[string]any{
				{"proposal_id": uuid.New(), "consumer_team_id": consumer, "response": "approved"},
				{"proposal_id": proposalA.ID, "consumer_team_id": consumer, "response": "approved"},
			},
			"continue_on_error": false,
		})
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp struct {
			Total   int `json:"total"`
			Results []struct {
				ProposalID uuid.UUID `json:"proposal_id"`
			} `json:"results"`
		}
		decodeBody(rec, &resp)
		Expect(resp.Total).To(Equal(2))
		Expect(resp.Results).To(HaveLen(1))
	})
})
