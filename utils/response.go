package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeOK is the envelope code of every successful response. Failures carry a
// five digit code whose first three digits repeat the HTTP status.
const CodeOK = 0

// JSONResponse is the envelope every API response is wrapped in.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Respond writes an envelope with an explicit status, code and payload.
// Statuses of 400 and above also abort the remaining handlers.
func Respond(ctx *gin.Context, status, code int, message string, data any) {
	body := JSONResponse{Code: code, Message: message, Data: data}
	if status >= http.StatusBadRequest {
		ctx.AbortWithStatusJSON(status, body)
		return
	}
	ctx.JSON(status, body)
}

// Success writes data with code 0.
func Success(ctx *gin.Context, data any) {
	Respond(ctx, http.StatusOK, CodeOK, "success", data)
}

// Error writes a failure envelope without data.
func Error(ctx *gin.Context, status, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
