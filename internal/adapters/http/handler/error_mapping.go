package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	"github.com/rs/zerolog"
)

const internalErrorMessage = "internal server error"

// ErrorDetails はエラー時のレスポンスボディです。
type ErrorDetails struct {
	Timestamp          string `json:"timestamp"`
	Message            string `json:"message"`
	RequestDescription string `json:"requestDescription"`
	StatusCode         int    `json:"statusCode"`
}

// NewErrorDetails は指定パスに対するエラーボディを生成します。
func NewErrorDetails(now time.Time, status int, message, path string) ErrorDetails {
	return ErrorDetails{
		Timestamp:          now.UTC().Format(time.RFC3339Nano),
		Message:            message,
		RequestDescription: "uri=" + path,
		StatusCode:         status,
	}
}

// toErrorResponse はドメインエラーを HTTP ステータスとクライアント向けメッセージへ変換します。
func toErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, employee.ErrEmployeeAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, employee.ErrInvalidFirstName),
		errors.Is(err, employee.ErrInvalidLastName),
		errors.Is(err, employee.ErrInvalidEmail),
		errors.Is(err, employee.ErrInvalidAge):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

// AbortWithError はエラーボディを書き込んで後続の処理を中断します。
func AbortWithError(c *gin.Context, now time.Time, status int, message string) {
	c.AbortWithStatusJSON(status, NewErrorDetails(now, status, message, c.Request.URL.Path))
}

func (h *EmployeeHandler) writeError(c *gin.Context, err error) {
	status, message := toErrorResponse(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	AbortWithError(c, h.now(), status, message)
}

func (h *EmployeeHandler) badRequest(c *gin.Context, message string) {
	AbortWithError(c, h.now(), http.StatusBadRequest, message)
}
