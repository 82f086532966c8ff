package router

import (
	"github.com/gin-gonic/gin"

	"difendimi.live/intake/internal/http/handler"
)

func CaseRouter(rg *gin.RouterGroup, h *handler.CaseHandler) {
	rg.GET("", h.List)
	rg.GET("/:case_id", h.Get)
	rg.GET("/:case_id/report", h.Report)
}
