package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// RequestObserver は 1 リクエスト分の計測値を受け取ります。
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, seconds float64)
}

// Metrics はルート単位でリクエスト数とレイテンシを記録します。
// route ラベルには実パスではなく登録済みルートのパターンを使います。
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		obs.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}
