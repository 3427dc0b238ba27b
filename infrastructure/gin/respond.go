package gin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	infraerrors "github.com/jonesrussell/civic-triage/infrastructure/errors"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// OK writes a successful envelope.
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope.
func Fail(c *gin.Context, status int, message string, details ...string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, Errors: details})
}

// Error maps err to a failure envelope. HTTPErrors keep their status and
// message; anything else is logged and reported as a generic 500.
func Error(c *gin.Context, err error) {
	var httpErr *infraerrors.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("Request failed",
				logger.String("path", c.Request.URL.Path),
				logger.Error(err),
			)
		}
		Fail(c, httpErr.StatusCode, httpErr.Message, httpErr.Details...)
		return
	}

	logger.FromContext(c.Request.Context()).Error("Request failed",
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	Fail(c, infraerrors.StatusCode(err), "Internal server error")
}
