package router

import (
	"github.com/gin-gonic/gin"

	"difendimi.live/intake/internal/http/handler"
	"difendimi.live/intake/internal/metrics"
	"difendimi.live/intake/internal/service"
)

type RouterConfig struct {
	MetricsEnabled bool
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		intakeHandler := handler.NewIntakeHandler(services.Intake())
		IntakeRouter(v1.Group("/intake/sessions"), intakeHandler)

		caseHandler := handler.NewCaseHandler(services.Cases())
		CaseRouter(v1.Group("/cases"), caseHandler)
	}
}
