package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseData is the envelope of every JSON response
type ResponseData struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse writes 200 with data
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Code:    ErrCodeSuccess,
		Message: Message(ErrCodeSuccess),
		Data:    data,
	})
}

// ErrorResponse aborts with httpStatus. An empty message uses the default for code.
func ErrorResponse(c *gin.Context, httpStatus, code int, message string) {
	if message == "" {
		message = Message(code)
	}
	c.AbortWithStatusJSON(httpStatus, ResponseData{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}
