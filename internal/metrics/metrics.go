package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MaterializeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocoin_materialize_total",
		Help: "Total number of board materializations (redraws)",
	})
	CachesSpawnedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocoin_caches_spawned_total",
		Help: "Total caches populated by the deterministic generator",
	})
	CachesRestoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocoin_caches_restored_total",
		Help: "Total caches restored from a saved momento",
	})
	MomentoMalformedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocoin_momento_malformed_total",
		Help: "Total momentos that failed to parse and left the cache empty",
	})
	TokenTransfersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocoin_token_transfers_total",
		Help: "Total token transfers between player inventory and caches",
	}, []string{"direction"})
	StoreOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocoin_store_ops_total",
		Help: "Persistence operations by op and status",
	}, []string{"op", "status"})
	StoreDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocoin_store_duration_ms",
		Help:    "Persistence operation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"op"})
	ActiveCaches = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geocoin_active_caches",
		Help: "Caches currently active on the board",
	})
	RegistryCells = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geocoin_registry_cells",
		Help: "Canonical cells interned in the registry",
	})
)

func init() {
	prometheus.MustRegister(MaterializeTotal)
	prometheus.MustRegister(CachesSpawnedTotal)
	prometheus.MustRegister(CachesRestoredTotal)
	prometheus.MustRegister(MomentoMalformedTotal)
	prometheus.MustRegister(TokenTransfersTotal)
	prometheus.MustRegister(StoreOpsTotal)
	prometheus.MustRegister(StoreDurationMs)
	prometheus.MustRegister(ActiveCaches)
	prometheus.MustRegister(RegistryCells)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
