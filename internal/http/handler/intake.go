package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"difendimi.live/intake/internal/http/dto"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

type IntakeHandler struct {
	service service.IntakeService
}

func NewIntakeHandler(service service.IntakeService) *IntakeHandler {
	return &IntakeHandler{service: service}
}

func (h *IntakeHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := h.service.Start(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to start intake session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session", "retryable": true})
		return
	}

	c.JSON(http.StatusCreated, dto.SessionFromModel(sess))
}

func (h *IntakeHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := h.service.Get(ctx, c.Param("session_id"))
	if err != nil {
		h.sessionError(c, err, "failed to load session")
		return
	}

	c.JSON(http.StatusOK, dto.SessionFromModel(sess))
}

func (h *IntakeHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid statement request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required", "retryable": false})
		return
	}

	out, err := h.service.Submit(ctx, c.Param("session_id"), *req.Text)
	if err != nil {
		h.sessionError(c, err, "failed to submit statement")
		return
	}

	c.JSON(OutcomeStatus(out), dto.OutcomeFromModel(out))
}

// Persist retries only the case store write of a finished conversation.
func (h *IntakeHandler) Persist(c *gin.Context) {
	ctx := c.Request.Context()

	out, err := h.service.RetryPersistence(ctx, c.Param("session_id"))
	if err != nil {
		h.sessionError(c, err, "failed to persist case")
		return
	}

	c.JSON(OutcomeStatus(out), dto.OutcomeFromModel(out))
}

// Retry repeats the oracle call for a statement that got no answer.
func (h *IntakeHandler) Retry(c *gin.Context) {
	ctx := c.Request.Context()

	out, err := h.service.RetryAssessment(ctx, c.Param("session_id"))
	if err != nil {
		h.sessionError(c, err, "failed to retry assessment")
		return
	}

	c.JSON(OutcomeStatus(out), dto.OutcomeFromModel(out))
}

func (h *IntakeHandler) sessionError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "retryable": false})
	case errors.Is(err, service.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "session busy", "retryable": true})
	default:
		slog.ErrorContext(c.Request.Context(), msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "retryable": true})
	}
}

// OutcomeStatus maps a loop outcome to its HTTP status.
func OutcomeStatus(o model.LoopOutcome) int {
	if o.Kind != model.OutcomeError {
		return http.StatusOK
	}
	switch o.Reason {
	case model.ReasonEmptyInput:
		return http.StatusBadRequest
	case model.ReasonConversationClosed, model.ReasonNothingToPersist, model.ReasonNothingToRetry:
		return http.StatusConflict
	case model.ReasonOracleUnreachable:
		return http.StatusServiceUnavailable
	case model.ReasonOracleMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
