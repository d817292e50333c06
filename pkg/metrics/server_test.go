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

package metrics_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ashita-ai/tessera/pkg/metrics"
)

var _ = Describe("Server", func() {
	It("serves /metrics and shuts down cleanly", func() {
		srv := metrics.NewServer("127.0.0.1:0", nil)
		Expect(srv).NotTo(BeNil())

		// StartAsync on an addr with a fixed port so the test can dial it.
		srv2 := metrics.NewServer("127.0.0.1:19091", nil)
		srv2.StartAsync()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(srv2.Stop(ctx)).To(Succeed())
		}()

		var resp *http.Response
		var err error
		Eventually(func() error {
			resp, err = http.Get("http://127.0.0.1:19091/metrics")
			return err
		}, time.Second, 10*time.Millisecond).Should(Succeed())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})
})
