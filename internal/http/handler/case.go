package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/internal/http/dto"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

type CaseHandler struct {
	service service.CaseService
}

func NewCaseHandler(service service.CaseService) *CaseHandler {
	return &CaseHandler{service: service}
}

func (h *CaseHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var limit int32
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = int32(n)
	}

	cases, err := h.service.List(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list cases", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cases"})
		return
	}

	resp := dto.CaseListResponse{Cases: make([]dto.CaseResponse, len(cases))}
	for i, fc := range cases {
		resp.Cases[i] = dto.CaseFromModel(fc)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CaseHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	caseID, err := id.Parse(c.Param("case_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	fc, err := h.service.Get(ctx, caseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get case", "error", err, "case_id", caseID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get case"})
		return
	}

	c.JSON(http.StatusOK, dto.CaseFromModel(fc))
}

func (h *CaseHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()

	caseID, err := id.Parse(c.Param("case_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	r, err := h.service.Report(ctx, caseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get report", "error", err, "case_id", caseID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}

	c.JSON(http.StatusOK, dto.ReportFromModel(r))
}
