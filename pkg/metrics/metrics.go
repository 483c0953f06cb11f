// Package metrics はエッジ層のPrometheusメトリクスを提供する。
//
// グローバルレジストリは使用せず、プロセスごとに Registry を生成して
// 各コンポーネントに注入する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry はメトリクスのコレクタを保持する。
type Registry struct {
	reg *prometheus.Registry
	// brokerOutcomes は認証ブローカーの操作結果の件数。
	brokerOutcomes *prometheus.CounterVec
	// upstreamRequests はゲートウェイの上流呼び出し件数。
	upstreamRequests *prometheus.CounterVec
	// upstreamDuration はゲートウェイの上流呼び出し所要時間。
	upstreamDuration *prometheus.HistogramVec
}

// NewRegistry は新しいメトリクスレジストリを生成する。
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg: reg,
		brokerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopgate",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth broker operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopgate",
			Subsystem: "gateway",
			Name:      "upstream_requests_total",
			Help:      "Proxied requests by backend service and upstream status.",
		}, []string{"service", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopgate",
			Subsystem: "gateway",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of proxied requests by backend service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
	}
	reg.MustRegister(r.brokerOutcomes, r.upstreamRequests, r.upstreamDuration)
	return r
}

// ObserveBrokerOutcome は認証ブローカーの操作結果を記録する。
// outcome には成功時 "OK"、失敗時はエラー種別を渡す。
func (r *Registry) ObserveBrokerOutcome(operation, outcome string) {
	r.brokerOutcomes.WithLabelValues(operation, outcome).Inc()
}

// ObserveUpstream はゲートウェイの上流呼び出し結果を記録する。
// status が0の場合は到達不能として "unavailable" を記録する。
func (r *Registry) ObserveUpstream(service string, status int, elapsed time.Duration) {
	label := "unavailable"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.upstreamRequests.WithLabelValues(service, label).Inc()
	r.upstreamDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// Handler は /metrics 用のHTTPハンドラを返す。
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer はテストや外部エクスポート用に内部レジストリを返す。
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
