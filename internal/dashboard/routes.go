package dashboard

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handlers holds the dependencies shared by every route.
type handlers struct {
	opts RouterOpts
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	router.GET("/", h.index)
	router.GET("/healthz", h.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhooks authenticate by their own means.
	hooks := router.Group("/api/webhooks")
	hooks.GET("/messenger", h.verifyMessenger)
	hooks.POST("/messenger", h.receiveMessenger)
	hooks.POST("/gorgias", h.receiveGorgias)

	api := router.Group("/api")
	if h.opts.APIToken != "" {
		api.Use(requireToken(h.opts.APIToken))
	}
	api.GET("/events", h.events)
	api.GET("/stats", h.stats)

	api.POST("/chat/messages", h.appendMessage)

	api.GET("/sessions", h.listSessions)
	api.POST("/sessions/sync", h.syncSessions)
	api.GET("/sessions/:id", h.getSession)
	api.DELETE("/sessions/:id", h.deleteSession)
	api.POST("/sessions/:id/archive", h.archiveSession)
	api.POST("/sessions/:id/unarchive", h.unarchiveSession)
	api.PUT("/sessions/:id/qa", h.updateQA)

	api.GET("/leads/:session_id", h.getLead)
	api.PUT("/leads/:session_id", h.upsertLead)
	api.POST("/leads/:session_id/extract", h.extractLead)

	api.GET("/inquiries", h.listInquiries)
	api.POST("/inquiries", h.createInquiry)
	api.GET("/inquiries/stats", h.inquiryStats)
	api.GET("/inquiries/:id", h.getInquiry)
	api.PUT("/inquiries/:id", h.updateInquiry)
	api.DELETE("/inquiries/:id", h.deleteInquiry)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Status: "error", Message: "endpoint not found"})
	})
}

func (h *handlers) index(c *gin.Context) {
	c.HTML(http.StatusOK, "layout.html", overviewData(c.Request.Context(), h.opts.Services))
}

func (h *handlers) healthz(c *gin.Context) {
	sqlDB, err := h.opts.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, envelope{Status: "error", Message: "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Message: "ok"})
}
