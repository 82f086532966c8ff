package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/http/middleware"
)

var _ = Describe("middleware", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		engine.Use(middleware.Recovery())
		engine.Use(middleware.Logger())
	})

	It("turns a panic into a 500", func() {
		engine.GET("/boom", func(*gin.Context) { panic("boom") })

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(ContainSubstring(`"retryable":false`))
	})

	It("puts the session id into the log fields", func() {
		var seen *string
		engine.GET("/sessions/:session_id", func(c *gin.Context) {
			seen = logger.GetLogFields(c.Request.Context()).SessionID
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(seen).NotTo(BeNil())
		Expect(*seen).To(Equal("abc"))
	})
})
