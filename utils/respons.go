package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, JSONResponse{
		Status:  status >= 200 && status < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError writes a failure envelope. code is the stable identifier clients branch on.
func RespondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Code:    code,
	})
}

// AbortWithError is RespondError for middlewares that must stop the chain.
func AbortWithError(c *gin.Context, status int, code string, err error) {
	RespondError(c, status, code, err)
	c.Abort()
}
