package router

import (
	"github.com/gin-gonic/gin"

	"difendimi.live/intake/internal/http/handler"
)

func IntakeRouter(rg *gin.RouterGroup, h *handler.IntakeHandler) {
	rg.POST("", h.Start)
	rg.GET("/:session_id", h.Get)
	rg.POST("/:session_id/statements", h.Submit)
	rg.POST("/:session_id/retry", h.Retry)
	rg.POST("/:session_id/persist", h.Persist)
}
