package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	pg "github.com/ogurasousui/codex-employee-api/internal/platform/db/postgres"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// EmployeeServiceName はヘルスチェックで公開するサービス名です。
const EmployeeServiceName = "employee.v1.EmployeeService"

// HealthProbe はデータベースへの疎通を定期的に確認し、gRPC ヘルスサービスへ反映します。
type HealthProbe struct {
	pinger   pg.Pinger
	interval time.Duration
	health   *health.Server
	log      zerolog.Logger
	healthy  atomic.Bool
}

// NewHealthProbe は HealthProbe を生成します。初回の Check までは NOT_SERVING です。
func NewHealthProbe(pinger pg.Pinger, interval time.Duration, log zerolog.Logger) *HealthProbe {
	p := &HealthProbe{
		pinger:   pinger,
		interval: interval,
		health:   health.NewServer(),
		log:      log,
	}
	p.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return p
}

// HealthServer は gRPC に登録するヘルスサービスを返します。
func (p *HealthProbe) HealthServer() *health.Server {
	return p.health
}

// Healthy は直近の疎通確認が成功したかを返します。
func (p *HealthProbe) Healthy() bool {
	return p.healthy.Load()
}

// Check は 1 回だけ疎通確認を行い、結果をステータスへ反映します。
func (p *HealthProbe) Check(ctx context.Context) bool {
	err := pg.Ping(ctx, p.pinger)
	ok := err == nil

	if prev := p.healthy.Swap(ok); prev != ok {
		if ok {
			p.log.Info().Msg("database reachable, serving")
		} else {
			p.log.Error().Err(err).Msg("database unreachable, not serving")
		}
	}

	if ok {
		p.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		p.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return ok
}

// Run はコンテキストがキャンセルされるまで interval ごとに Check を繰り返します。
// 終了時にはヘルスサービスを停止状態にします。
func (p *HealthProbe) Run(ctx context.Context) {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.healthy.Store(false)
			p.health.Shutdown()
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Handler は直近の結果を返す /healthz 用ハンドラです。
// ボディは gRPC の HealthCheckResponse を protojson で表現したものです。
func (p *HealthProbe) Handler(c *gin.Context) {
	code, status := http.StatusServiceUnavailable, healthpb.HealthCheckResponse_NOT_SERVING
	if p.Healthy() {
		code, status = http.StatusOK, healthpb.HealthCheckResponse_SERVING
	}

	body, err := protojson.Marshal(&healthpb.HealthCheckResponse{Status: status})
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(code, "application/json", body)
}

func (p *HealthProbe) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	p.health.SetServingStatus("", status)
	p.health.SetServingStatus(EmployeeServiceName, status)
}
