package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Status  string   `json:"status"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// StatusResponse acknowledges lifecycle operations.
type StatusResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// RespondError renders err with the status from the error-code table.
// Errors without an AppError in their chain are masked as internal.
func RespondError(c *gin.Context, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		ae = errors.New(errors.ErrCodeInternal, errors.DefaultMessageForCode(errors.ErrCodeInternal))
	}
	resp := ErrorResponse{
		Status:  "error",
		Code:    string(ae.Code),
		Message: ae.Message,
	}
	if ae.Detail != "" {
		resp.Details = []string{ae.Detail}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(ae.Code), resp)
}

func respondValidation(c *gin.Context, message string, details []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Status:  "error",
		Code:    string(errors.ErrCodeValidation),
		Message: message,
		Details: details,
	})
}

// readBody returns the raw request body, or renders the failure.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Status:  "error",
				Code:    string(errors.ErrCodeValidation),
				Message: "request body too large",
			})
			return nil, false
		}
		RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read request body"))
		return nil, false
	}
	return body, true
}
