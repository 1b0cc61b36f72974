// Package dashboard serves Switchboard's HTTP surface: the JSON API used by
// the AI agent and operators, inbound webhooks, the overview page, the QA
// event stream and Prometheus metrics.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/inquiry"
	"github.com/zulandar/switchboard/internal/lead"
	"github.com/zulandar/switchboard/internal/qa"
	"github.com/zulandar/switchboard/internal/session"
	"gorm.io/gorm"
)

// Services bundles the operations the handlers call.
type Services struct {
	DB         *gorm.DB
	Sessions   *session.Service
	QA         *qa.Service
	Leads      *lead.Service
	Inquiries  *inquiry.Service
	Reconciler *completion.Reconciler
	Events     *Broker
}

func (s Services) validate() error {
	switch {
	case s.DB == nil:
		return fmt.Errorf("dashboard: db is required")
	case s.Sessions == nil, s.QA == nil, s.Leads == nil, s.Inquiries == nil, s.Reconciler == nil:
		return fmt.Errorf("dashboard: sessions, qa, leads, inquiries and reconciler services are required")
	}
	return nil
}

// RouterOpts configures NewRouter.
type RouterOpts struct {
	Services
	APIToken    string // bearer token for /api/*; empty disables auth
	VerifyToken string // Messenger webhook verification token
	Clock       func() time.Time
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	RouterOpts
	Port int
	Out  io.Writer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts RouterOpts) (*gin.Engine, error) {
	if err := opts.Services.validate(); err != nil {
		return nil, err
	}
	if opts.Events == nil {
		opts.Events = NewBroker()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, &handlers{opts: opts})
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts.RouterOpts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("dashboard: shutdown")
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Switchboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"timeAgo": TimeAgo,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// requestLogger logs one line per request at debug level, and at warn for
// server errors.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
