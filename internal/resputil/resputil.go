package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the uniform envelope for every endpoint. Data is generic so the
// swagger annotations can name the concrete payload type.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, msg string, data any, code ErrorCode) {
	c.JSON(httpCode, gin.H{
		"code": code,
		"data": data,
		"msg":  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, "", data, OK)
}

// SuccessWithMessage is for idempotent no-op results ("already assigned",
// "nothing to mark") that must read as success, not failure.
func SuccessWithMessage(c *gin.Context, msg string, data any) {
	wrapResponse(c, http.StatusOK, msg, data, OK)
}

func Error(c *gin.Context, msg string, errorCode ErrorCode) {
	wrapResponse(c, http.StatusInternalServerError, msg, nil, errorCode)
}

func HTTPError(c *gin.Context, httpCode int, msg string, errorCode ErrorCode) {
	wrapResponse(c, httpCode, msg, nil, errorCode)
}

func BadRequestError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusBadRequest, msg, nil, InvalidRequest)
}

// ForbiddenError: authenticated but lacking the required capability.
// Never use this for a missing resource; that must be NotFoundError so the
// response does not leak existence.
func ForbiddenError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusForbidden, msg, nil, UserNotAllowed)
}

func NotFoundError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusNotFound, msg, nil, ResourceNotFound)
}
