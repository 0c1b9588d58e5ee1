package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps an error from the services layer onto its carried
// status. Internal failures do not leak their message.
func RespondServiceError(c *gin.Context, err error) {
	status, code := apierr.StatusOf(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		RespondError(c, status, code, errInternal)
		return
	}
	RespondError(c, status, code, err)
}

type internalError struct{}

func (internalError) Error() string { return "internal error" }

var errInternal error = internalError{}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
