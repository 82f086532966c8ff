package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"difendimi.live/intake/internal/http/handler"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/store"
)

var _ = Describe("CaseHandler", func() {
	var (
		router *gin.Engine
		svc    *mockCaseService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockCaseService{}
		h := handler.NewCaseHandler(svc)
		router.GET("/cases", h.List)
		router.GET("/cases/:case_id", h.Get)
		router.GET("/cases/:case_id/report", h.Report)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("returns the case", func() {
		svc.getFn = func(_ context.Context, id int64) (model.FinalizedCase, error) {
			Expect(id).To(Equal(int64(123)))
			return model.FinalizedCase{
				ID:           123,
				OriginalText: "multa",
				ReportState:  model.ReportStatePending,
				Conversation: []model.ConversationTurn{{Speaker: model.SpeakerUser, Text: "multa"}},
			}, nil
		}

		w := get("/cases/123")
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["original_text"]).To(Equal("multa"))
		Expect(resp["report_state"]).To(Equal("pending"))
		Expect(resp["conversation"]).To(HaveLen(1))
	})

	It("returns 400 for a malformed id", func() {
		Expect(get("/cases/abc").Code).To(Equal(http.StatusBadRequest))
		Expect(get("/cases/0/report").Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 404 for unknown cases and missing reports", func() {
		svc.getFn = func(context.Context, int64) (model.FinalizedCase, error) {
			return model.FinalizedCase{}, store.ErrNotFound
		}
		svc.reportFn = func(context.Context, int64) (model.Report, error) {
			return model.Report{}, store.ErrNotFound
		}

		Expect(get("/cases/9").Code).To(Equal(http.StatusNotFound))
		Expect(get("/cases/9/report").Code).To(Equal(http.StatusNotFound))
	})

	It("returns 500 on store failures", func() {
		svc.reportFn = func(context.Context, int64) (model.Report, error) {
			return model.Report{}, errors.New("pool closed")
		}
		Expect(get("/cases/9/report").Code).To(Equal(http.StatusInternalServerError))
	})

	It("passes the list limit", func() {
		svc.listFn = func(_ context.Context, limit int32) ([]model.FinalizedCase, error) {
			Expect(limit).To(Equal(int32(5)))
			return []model.FinalizedCase{{ID: 1}, {ID: 2}}, nil
		}

		w := get("/cases?limit=5")
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["cases"]).To(HaveLen(2))

		Expect(get("/cases?limit=lots").Code).To(Equal(http.StatusBadRequest))
	})
})
