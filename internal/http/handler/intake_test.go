package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"difendimi.live/intake/internal/http/handler"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

var _ = Describe("IntakeHandler", func() {
	var (
		router *gin.Engine
		svc    *mockIntakeService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockIntakeService{}
		h := handler.NewIntakeHandler(svc)
		router.POST("/sessions", h.Start)
		router.GET("/sessions/:session_id", h.Get)
		router.POST("/sessions/:session_id/statements", h.Submit)
		router.POST("/sessions/:session_id/retry", h.Retry)
		router.POST("/sessions/:session_id/persist", h.Persist)
	})

	do := func(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return w, resp
	}

	It("returns 201 with the new session", func() {
		created := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
		svc.startFn = func(context.Context) (model.IntakeSession, error) {
			return model.IntakeSession{
				ID:           "s-1",
				Conversation: model.NewConversation("s-1"),
				CreatedAt:    created,
				UpdatedAt:    created,
			}, nil
		}

		w, resp := do(http.MethodPost, "/sessions", "")
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(resp["session_id"]).To(Equal("s-1"))
		Expect(resp["status"]).To(Equal("collecting"))
		Expect(resp["turns"]).To(BeEmpty())
		Expect(resp["pending_persistence"]).To(BeFalse())
	})

	It("passes the statement through and returns the next question", func() {
		svc.submitFn = func(_ context.Context, sessionID, text string) (model.LoopOutcome, error) {
			Expect(sessionID).To(Equal("s-1"))
			Expect(text).To(Equal("Ho preso una multa"))
			conv := model.NewConversation("s-1")
			score := 30
			conv.CompletenessScore = &score
			conv.Turns = []model.ConversationTurn{
				{Speaker: model.SpeakerUser, Text: text},
				{Speaker: model.SpeakerAssistant, Text: "Quando?"},
			}
			return model.LoopOutcome{Kind: model.OutcomeContinue, Conversation: conv, QuestionText: "Quando?"}, nil
		}

		w, resp := do(http.MethodPost, "/sessions/s-1/statements", `{"text":"Ho preso una multa"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp["kind"]).To(Equal("continue"))
		Expect(resp["question_text"]).To(Equal("Quando?"))
		Expect(resp["retryable"]).To(BeFalse())

		conv := resp["conversation"].(map[string]any)
		Expect(conv["completeness_score"]).To(BeEquivalentTo(30))
		Expect(conv["turns"]).To(HaveLen(2))
	})

	It("lets an empty string reach the loop", func() {
		svc.submitFn = func(_ context.Context, _ string, text string) (model.LoopOutcome, error) {
			Expect(text).To(BeEmpty())
			return model.LoopOutcome{Kind: model.OutcomeError, Reason: model.ReasonEmptyInput, Conversation: model.NewConversation("s-1")}, nil
		}

		w, resp := do(http.MethodPost, "/sessions/s-1/statements", `{"text":""}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(resp["reason"]).To(Equal("empty_input"))
	})

	It("returns 400 when text is missing", func() {
		w, resp := do(http.MethodPost, "/sessions/s-1/statements", `{}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(resp["retryable"]).To(BeFalse())
	})

	DescribeTable("maps error outcomes",
		func(reason model.ErrorReason, status int, retryable bool) {
			svc.submitFn = func(context.Context, string, string) (model.LoopOutcome, error) {
				return model.LoopOutcome{Kind: model.OutcomeError, Reason: reason, Conversation: model.NewConversation("s-1")}, nil
			}

			w, resp := do(http.MethodPost, "/sessions/s-1/statements", `{"text":"x"}`)
			Expect(w.Code).To(Equal(status))
			Expect(resp["kind"]).To(Equal("error"))
			Expect(resp["reason"]).To(Equal(string(reason)))
			Expect(resp["retryable"]).To(Equal(retryable))
		},
		Entry("empty input", model.ReasonEmptyInput, http.StatusBadRequest, false),
		Entry("closed conversation", model.ReasonConversationClosed, http.StatusConflict, false),
		Entry("oracle unreachable", model.ReasonOracleUnreachable, http.StatusServiceUnavailable, true),
		Entry("oracle malformed", model.ReasonOracleMalformed, http.StatusBadGateway, false),
		Entry("persistence failed", model.ReasonPersistenceFailed, http.StatusInternalServerError, true),
		Entry("nothing to retry", model.ReasonNothingToRetry, http.StatusConflict, false),
	)

	DescribeTable("maps service errors",
		func(err error, status int) {
			svc.submitFn = func(context.Context, string, string) (model.LoopOutcome, error) {
				return model.LoopOutcome{}, err
			}

			w, _ := do(http.MethodPost, "/sessions/s-1/statements", `{"text":"x"}`)
			Expect(w.Code).To(Equal(status))
		},
		Entry("unknown session", store.ErrNotFound, http.StatusNotFound),
		Entry("busy session", service.ErrSessionBusy, http.StatusConflict),
		Entry("anything else", errors.New("redis down"), http.StatusInternalServerError),
	)

	It("returns the finalized case id after a persistence retry", func() {
		svc.retryFn = func(_ context.Context, sessionID string) (model.LoopOutcome, error) {
			conv := model.NewConversation(sessionID)
			conv.Status = model.CaseStatusComplete
			conv.CaseID = 314
			return model.LoopOutcome{Kind: model.OutcomeFinalized, Conversation: conv, CaseID: 314}, nil
		}

		w, resp := do(http.MethodPost, "/sessions/s-1/persist", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp["kind"]).To(Equal("finalized"))
		Expect(resp["case_id"]).To(BeEquivalentTo(314))
	})

	It("retries the assessment and returns the next question", func() {
		svc.assessFn = func(_ context.Context, sessionID string) (model.LoopOutcome, error) {
			Expect(sessionID).To(Equal("s-1"))
			return model.LoopOutcome{Kind: model.OutcomeContinue, Conversation: model.NewConversation(sessionID), QuestionText: "Quando?"}, nil
		}

		w, resp := do(http.MethodPost, "/sessions/s-1/retry", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp["kind"]).To(Equal("continue"))
		Expect(resp["question_text"]).To(Equal("Quando?"))
	})

	It("returns 409 while another request holds the session on retry", func() {
		svc.assessFn = func(context.Context, string) (model.LoopOutcome, error) {
			return model.LoopOutcome{}, service.ErrSessionBusy
		}

		w, _ := do(http.MethodPost, "/sessions/s-1/retry", "")
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("returns 404 for unknown sessions", func() {
		svc.getFn = func(context.Context, string) (model.IntakeSession, error) {
			return model.IntakeSession{}, store.ErrNotFound
		}

		w, _ := do(http.MethodGet, "/sessions/nope", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
