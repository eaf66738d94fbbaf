package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及剥离流程的预定义指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	StripTotal      *prometheus.CounterVec   // 剥离次数 (维度: result=ok|error|cached)
	StripDuration   prometheus.Histogram     // 单次剥离耗时
	SolverIters     *prometheus.HistogramVec // 隐含波动率反解迭代次数 (维度: model)
	CapletsStripped *prometheus.CounterVec   // 剥离出的 caplet 数量 (维度: model)
	CacheRequests   *prometheus.CounterVec   // 结果缓存访问 (维度: result=hit|miss)
	BuildInfo       *prometheus.GaugeVec
}

// Strip 结果标签取值。
const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultCached = "cached"
	ResultHit    = "hit"
	ResultMiss   = "miss"
)

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.StripTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "capvol_strip_total",
		Help: "Total number of vol curve strips by result",
	}, []string{"result"})

	m.StripDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "capvol_strip_duration_seconds",
		Help:    "Vol curve strip latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	reg.MustRegister(m.StripDuration)

	m.SolverIters = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capvol_solver_iterations",
		Help:    "Root finder iterations per implied vol inversion",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30, 50, 100},
	}, []string{"model"})

	m.CapletsStripped = m.NewCounterVec(prometheus.CounterOpts{
		Name: "capvol_caplets_stripped_total",
		Help: "Total number of caplet vols stripped",
	}, []string{"model"})

	m.CacheRequests = m.NewCounterVec(prometheus.CounterOpts{
		Name: "capvol_cache_requests_total",
		Help: "Strip result cache lookups by result",
	}, []string{"result"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// Registry 返回内部注册中心，便于测试采集。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// ObserveStrip 记录一次剥离的结果与耗时，命中缓存时不记录耗时。
func (m *Metrics) ObserveStrip(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StripTotal.WithLabelValues(result).Inc()
	if result != ResultCached {
		m.StripDuration.Observe(elapsed.Seconds())
	}
}

// ObserveSolve 记录一次隐含波动率反解的迭代次数。
func (m *Metrics) ObserveSolve(model string, iterations int) {
	if m == nil {
		return
	}
	m.SolverIters.WithLabelValues(model).Observe(float64(iterations))
}

// AddCaplets 累加某模型剥离出的 caplet 数量。
func (m *Metrics) AddCaplets(model string, n int) {
	if m == nil {
		return
	}
	m.CapletsStripped.WithLabelValues(model).Add(float64(n))
}

// ObserveCache 记录一次缓存访问。
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheRequests.WithLabelValues(ResultHit).Inc()
		return
	}
	m.CacheRequests.WithLabelValues(ResultMiss).Inc()
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHttp 在指定地址启动一个独立的 HTTP 服务器用于暴露指标数据。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHttp(addr, path string) func() {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
