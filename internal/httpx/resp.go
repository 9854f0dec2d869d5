package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response represents the standard API response structure
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// OK sends a successful response with default message "success"
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// OKMsg sends a successful response with custom message
func OKMsg(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Fail sends an error response with specified HTTP status, business code, and message
func Fail(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// FailErr sends an error response from an AppError.
// If AppError.Err is not nil, it is logged but never returned to the client.
func FailErr(c *gin.Context, err *AppError) {
	if err.Err != nil {
		logrus.WithFields(logrus.Fields{
			"code": err.Code,
			"path": c.FullPath(),
		}).WithError(err.Err).Error(err.Message)
	}

	c.JSON(err.HTTPStatus, Response{
		Code:    err.Code,
		Message: err.Message,
		Data:    err.Data,
	})
}
