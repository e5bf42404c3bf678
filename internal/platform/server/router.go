package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/handler"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/middleware"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
	"github.com/rs/zerolog"
)

// RouterConfig は HTTP ルーターの構成要素です。Metrics が nil の場合は計測と /metrics を無効にします。
type RouterConfig struct {
	Logger      zerolog.Logger
	Employees   *handler.EmployeeHandler
	Probe       *HealthProbe
	Metrics     *metrics.Registry
	MetricsPath string
	Now         func() time.Time
}

// NewRouter はミドルウェアとルートを登録した gin エンジンを構築します。
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID(cfg.Logger), middleware.AccessLog())
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.Recovery(cfg.Now))

	if cfg.Probe != nil {
		r.GET("/healthz", cfg.Probe.Handler)
	}
	if cfg.Metrics != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.Metrics.Handler(cfg.Logger)))
	}

	cfg.Employees.Register(r)

	return r
}
