package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "employee_api"

// Registry はアプリケーション専用の Prometheus レジストリと HTTP メトリクスをまとめます。
type Registry struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRegistry は Go ランタイム・プロセスのコレクタと HTTP メトリクスを登録したレジストリを生成します。
func NewRegistry() (*Registry, error) {
	reg := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Number of HTTP requests partitioned by method, route and status code.",
	}, []string{"method", "route", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency partitioned by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestsTotal,
		requestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}

	return &Registry{
		registry:        reg,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}, nil
}

// Gatherer は収集用のレジストリを返します。
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveHTTPRequest は 1 リクエスト分の件数とレイテンシを記録します。
func (r *Registry) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	r.requestsTotal.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler は /metrics 用の HTTP ハンドラを返します。収集エラーはログに出力して処理を継続します。
func (r *Registry) Handler(log zerolog.Logger) http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog:      errorLogger{log: log},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// errorLogger は promhttp.Logger を zerolog へ橋渡しします。
type errorLogger struct {
	log zerolog.Logger
}

func (l errorLogger) Println(v ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(v...))
}
