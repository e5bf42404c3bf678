package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID はリクエスト ID を受け渡すヘッダです。
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"

	maxRequestIDLength = 128
)

// RequestID はリクエスト ID を採番し、レスポンスヘッダとリクエストのロガーに付与します。
// クライアントが送った X-Request-ID は、128 文字以内の印字可能な ASCII であれば引き継ぎます。
func RequestID(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)

		reqLog := log.With().Str(requestIDKey, id).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()
	}
}

// validRequestID は長さ上限以内で印字可能な ASCII のみからなる ID を受け付けます。
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDFrom はコンテキストに保存されたリクエスト ID を返します。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
