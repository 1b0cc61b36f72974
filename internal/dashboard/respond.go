package dashboard

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/errdefs"
)

// envelope is the response body shape for every JSON endpoint.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, code int, data any) {
	c.JSON(code, envelope{Status: "success", Data: data})
}

func okMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, envelope{Status: "success", Message: message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errdefs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errdefs.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, errdefs.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errdefs.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes an error envelope. Internal errors are logged and their
// detail withheld from the client.
func fail(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.WithField("path", c.FullPath()).WithError(err).Error("request failed")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(code, envelope{Status: "error", Message: msg})
}

// bindJSON decodes the request body into dst, reporting malformed input as
// a validation error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errdefs.Validationf("invalid request body: %v", err)
	}
	return nil
}

// requireToken rejects requests without "Authorization: Bearer <token>".
func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Status: "error", Message: "missing or invalid API token"})
			return
		}
		c.Next()
	}
}
