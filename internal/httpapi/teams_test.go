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
	"fmt"
	"net/http"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ashita-ai/tessera/pkg/models"
)

var _ = Describe("teams", func() {
	var (
		fs     *fakeStore
		router http.Handler
	)

	BeforeEach(func() {
		fs = newFakeStore()
		router = newTestRouter(fs)
	})

	It("creates a team and rejects a duplicate name", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/teams/", map[string]any{"name": "payments"})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var created models.Team
		decodeBody(rec, &created)
		Expect(created.Name).To(Equal("payments"))
		Expect(created.ID).NotTo(Equal(uuid.Nil))

		rec = doRequest(router, http.MethodPost, "/api/v1/teams/", map[string]any{"name": "payments"})
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("rejects a missing name", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/teams/", map[string]any{})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("lists and paginates teams", func() {
		for i := 0; i < 3; i++ {
			doRequest(router, http.MethodPost, "/api/v1/teams/", map[string]any{"name": fmt.Sprintf("team-%d", i)})
		}
		rec := doRequest(router, http.MethodGet, "/api/v1/teams/", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var page struct {
			Total   int          `json:"total"`
			Results []models.Team `json:"results"`
		}
		decodeBody(rec, &page)
		Expect(page.Total).To(Equal(3))
		Expect(page.Results).To(HaveLen(3))
	})

	It("gets, updates, and soft-deletes a team", func() {
		rec := doRequest(router, http.MethodPost, "/api/v1/teams/", map[string]any{"name": "analytics"})
		var created models.Team
		decodeBody(rec, &created)

		path := "/api/v1/teams/" + created.ID.String()
		rec = doRequest(router, http.MethodGet, path, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = doRequest(router, http.MethodPatch, path, map[string]any{"name": "analytics-team"})
		Expect(rec.Code).To(Equal(http.StatusOK))
		var updated models.Team
		decodeBody(rec, &updated)
		Expect(updated.Name).To(Equal("analytics-team"))

		rec = doRequest(router, http.MethodDelete, path, nil)
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = doRequest(router, http.MethodGet, path, nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("404s on an unknown team id", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/teams/"+uuid.New().String(), nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("400s on a malformed team id", func() {
		rec := doRequest(router, http.MethodGet, "/api/v1/teams/not-a-uuid", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
