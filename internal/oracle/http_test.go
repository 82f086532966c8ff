package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"difendimi.live/intake/internal/oracle"
)

var _ = Describe("HTTPOracle", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the request contract and decodes the answer", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("latestResponse", "Ho ricevuto una multa"))
			Expect(body).To(HaveKeyWithValue("previousContext", BeEmpty()))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"completeness":{"score":20,"status":"incomplete"},"nextQuestion":{"text":"Quando hai ricevuto la multa?"}}`))
		}

		a, err := oracle.NewHTTPOracle(server.URL, nil).Assess(ctx, oracle.Request{LatestResponse: "Ho ricevuto una multa"})
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Score).To(Equal(20))
		Expect(a.NextQuestion.Text).To(Equal("Quando hai ricevuto la multa?"))
	})

	DescribeTable("classifies failures",
		func(status int, body string, unreachable bool) {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			}

			_, err := oracle.NewHTTPOracle(server.URL, server.Client()).Assess(ctx, oracle.Request{LatestResponse: "x"})
			Expect(err).To(HaveOccurred())
			Expect(oracle.IsUnreachable(err)).To(Equal(unreachable))
			Expect(oracle.IsMalformed(err)).To(Equal(!unreachable))
		},
		Entry("server error", http.StatusInternalServerError, "boom", true),
		Entry("bad gateway", http.StatusBadGateway, "", true),
		Entry("rate limited", http.StatusTooManyRequests, "slow down", true),
		Entry("bad request", http.StatusBadRequest, "invalid", false),
		Entry("ok with garbage", http.StatusOK, "not json", false),
		Entry("ok with out-of-range score", http.StatusOK, `{"completeness":{"score":250,"status":"complete"}}`, false),
	)

	It("is unreachable when the context deadline passes", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := oracle.NewHTTPOracle(server.URL, nil).Assess(ctx, oracle.Request{LatestResponse: "x"})
		Expect(oracle.IsUnreachable(err)).To(BeTrue())
	})

	It("is unreachable when nothing listens", func() {
		url := server.URL
		server.Close()

		_, err := oracle.NewHTTPOracle(url, nil).Assess(ctx, oracle.Request{LatestResponse: "x"})
		Expect(oracle.IsUnreachable(err)).To(BeTrue())
	})
})
