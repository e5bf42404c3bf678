package middleware

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/handler"
	"github.com/rs/zerolog"
)

// Recovery は panic を捕捉して 500 のエラーボディを返します。
func Recovery(now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		zerolog.Ctx(c.Request.Context()).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("recovered from panic")
		handler.AbortWithError(c, now(), http.StatusInternalServerError, "internal server error")
	})
}
