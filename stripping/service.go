// Package stripping 将行情快照、剥离算法与日志、指标、缓存、追踪组装成可直接调用的服务。
package stripping

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/capvol/algorithm/finance"
	"github.com/wyfcoding/capvol/algorithm/rootfind"
	"github.com/wyfcoding/capvol/cache"
	"github.com/wyfcoding/capvol/config"
	"github.com/wyfcoding/capvol/logging"
	"github.com/wyfcoding/capvol/marketdata"
	"github.com/wyfcoding/capvol/metrics"
	"github.com/wyfcoding/capvol/tracing"
	"github.com/wyfcoding/capvol/volcurve"
	"github.com/wyfcoding/capvol/xerrors"
)

// Result 一次剥离的输出。
type Result struct {
	SnapshotID  string    `json:"snapshot_id"`
	AsOf        time.Time `json:"as_of"`
	Fingerprint string    `json:"fingerprint"`
	// Tenors 快照期限，比各波动率序列多一个元素；caplet i 在 Tenors[i] 重置、Tenors[i+1] 支付。
	Tenors           []float64 `json:"tenors"`
	CapletBlackVols  []float64 `json:"caplet_black_vols"`
	CapletNormalVols []float64 `json:"caplet_normal_vols"`
	CapBlackVols     []float64 `json:"cap_black_vols"`
	FitErrorBlack    float64   `json:"fit_error_black"`
	FitErrorNormal   float64   `json:"fit_error_normal"`
	TraceID          string    `json:"trace_id,omitempty"`
	Cached           bool      `json:"cached"`
}

// settings 一次剥离使用的数值参数快照，配置热更新时整体替换。
type settings struct {
	black, normal finance.CapletPricer
	stripper      config.StripperConfig
	ttl           time.Duration
	// hash 参与缓存键，数值参数变化后旧结果不会被命中。
	hash uint64
}

// Service 剥离服务，可被多个 goroutine 并发使用。
type Service struct {
	mu      sync.RWMutex
	current *settings

	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Option 定义配置选项。
type Option func(*Service)

// WithCache 启用结果缓存。
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics 启用 Prometheus 指标。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger 设置日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService 按配置创建剥离服务，cfg 为 nil 时使用 config.Default()。
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{logger: logging.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.current = s.buildSettings(cfg)
	return s, nil
}

func (s *Service) buildSettings(cfg *config.Config) *settings {
	hook := func(model finance.Model, res rootfind.Result) {
		s.metrics.ObserveSolve(string(model), res.Iterations)
	}
	black := finance.NewBlackPricer(cfg.Pricer.Epsilon, cfg.Solver)
	black.Hook = hook
	normal := finance.NewNormalPricer(cfg.Pricer.Epsilon, cfg.Solver)
	normal.Hook = hook

	st := cfg.Stripper
	h := xxhash.Sum64String(fmt.Sprintf("%g|%+v|%g|%g|%g|%g|%g",
		cfg.Pricer.Epsilon, cfg.Solver, st.Tau, st.Notional, st.BlackGuess, st.NormalGuess, st.GridStep))

	return &settings{
		black:    black,
		normal:   normal,
		stripper: st,
		ttl:      cfg.Cache.TTL,
		hash:     h,
	}
}

// Apply 以新配置替换数值参数并清空缓存，配合 config.Loader 的热更新回调使用。
// 配置校验失败时保留旧参数并返回错误；正在进行的剥离继续使用旧参数完成。
func (s *Service) Apply(cfg *config.Config) error {
	if cfg == nil {
		return xerrors.InvalidArg("nil config")
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Error("reject stripping settings", "error", err)
		return err
	}
	next := s.buildSettings(cfg)

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Reset(); err != nil {
			s.logger.Warn("reset strip cache failed", "error", err)
		}
	}
	s.logger.Info("stripping settings reloaded", "solver", string(cfg.Solver.Method), "tau", cfg.Stripper.Tau)
	return nil
}

func (s *Service) load() *settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (st *settings) volCurveOptions(logger *logging.Logger) []volcurve.Option {
	return []volcurve.Option{
		volcurve.WithLogger(logger.Logger),
		volcurve.WithPricers(st.black, st.normal),
		volcurve.WithInitialGuesses(st.stripper.BlackGuess, st.stripper.NormalGuess),
		volcurve.WithTau(st.stripper.Tau),
		volcurve.WithNotional(st.stripper.Notional),
		volcurve.WithGridStep(st.stripper.GridStep),
	}
}

func cacheKey(st *settings, snap *marketdata.Snapshot) string {
	return fmt.Sprintf("strip:%016x:%016x", st.hash, snap.Fingerprint())
}

// Curve 剥离快照并返回 VolCurve，用于后续按期限插值；不经过缓存。
func (s *Service) Curve(ctx context.Context, snap *marketdata.Snapshot) (*volcurve.VolCurve, error) {
	ctx, span := tracing.StartSpan(ctx, "stripping.Curve")
	defer span.End()
	tracing.AddTag(ctx, "snapshot_id", snap.ID)

	c, err := s.strip(ctx, s.load(), snap)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}
	return c, nil
}

func (s *Service) strip(ctx context.Context, st *settings, snap *marketdata.Snapshot) (*volcurve.VolCurve, error) {
	c, err := snap.NewVolCurve(st.volCurveOptions(s.logger)...)
	if err != nil {
		return nil, err
	}
	if err := c.Strip(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Strip 剥离单个快照。相同报价与数值参数的结果从缓存返回。
func (s *Service) Strip(ctx context.Context, snap *marketdata.Snapshot) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "stripping.Strip")
	defer span.End()
	tracing.AddTag(ctx, "snapshot_id", snap.ID)

	start := time.Now()
	st := s.load()

	if err := snap.Validate(); err != nil {
		return nil, s.fail(ctx, snap, err, start)
	}

	key := cacheKey(st, snap)
	if res, ok := s.lookup(ctx, key); ok {
		res.SnapshotID = snap.ID
		res.AsOf = snap.AsOf
		res.TraceID = tracing.GetTraceID(ctx)
		res.Cached = true
		tracing.AddTag(ctx, "cached", true)
		s.metrics.ObserveStrip(metrics.ResultCached, time.Since(start))
		s.logger.DebugContext(ctx, "strip result served from cache", "snapshot_id", snap.ID, "key", key)
		return res, nil
	}

	c, err := s.strip(ctx, st, snap)
	if err != nil {
		return nil, s.fail(ctx, snap, err, start)
	}

	res, err := buildResult(c, snap)
	if err != nil {
		return nil, s.fail(ctx, snap, err, start)
	}
	res.TraceID = tracing.GetTraceID(ctx)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res, st.ttl); err != nil {
			s.logger.WarnContext(ctx, "cache strip result failed", "snapshot_id", snap.ID, "error", err)
		}
	}

	elapsed := time.Since(start)
	n := len(res.CapletBlackVols)
	s.metrics.ObserveStrip(metrics.ResultOK, elapsed)
	s.metrics.AddCaplets(string(finance.ModelBlack), n)
	s.metrics.AddCaplets(string(finance.ModelNormal), n)
	tracing.AddTag(ctx, "caplets", n)
	tracing.AddTag(ctx, "fit_error_black", res.FitErrorBlack)

	s.logger.InfoContext(ctx, "vol curve stripped",
		"snapshot_id", snap.ID,
		"caplets", n,
		"fit_error_black", res.FitErrorBlack,
		"fit_error_normal", res.FitErrorNormal,
		"duration", elapsed)
	return res, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	var res Result
	err := s.cache.Get(ctx, key, &res)
	if err == nil {
		s.metrics.ObserveCache(true)
		return &res, true
	}
	s.metrics.ObserveCache(false)
	if !errors.Is(err, xerrors.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "read strip cache failed", "key", key, "error", err)
	}
	return nil, false
}

func (s *Service) fail(ctx context.Context, snap *marketdata.Snapshot, err error, start time.Time) error {
	tracing.SetError(ctx, err)
	s.metrics.ObserveStrip(metrics.ResultError, time.Since(start))

	attrs := []any{"snapshot_id", snap.ID, "error", err}
	if xe, ok := xerrors.FromError(err); ok {
		attrs = append(attrs, "code", xe.Code, "context", xe.Context)
	}
	s.logger.ErrorContext(ctx, "vol curve strip failed", attrs...)
	return err
}

func buildResult(c *volcurve.VolCurve, snap *marketdata.Snapshot) (*Result, error) {
	res := &Result{
		SnapshotID:  snap.ID,
		AsOf:        snap.AsOf,
		Fingerprint: fmt.Sprintf("%016x", snap.Fingerprint()),
		Tenors:      c.Tenors(),
	}

	var err error
	if res.CapletBlackVols, err = c.CapletBlackVols(); err != nil {
		return nil, err
	}
	if res.CapletNormalVols, err = c.CapletNormalVols(); err != nil {
		return nil, err
	}
	if res.CapBlackVols, err = c.CapBlackVols(); err != nil {
		return nil, err
	}
	if res.FitErrorBlack, err = c.FitError(volcurve.VolBlack); err != nil {
		return nil, err
	}
	if res.FitErrorNormal, err = c.FitError(volcurve.VolNormal); err != nil {
		return nil, err
	}
	return res, nil
}

// StripAll 并发剥离多个互不相关的快照，并发度由 Stripper.Concurrency 限制。
// 结果与输入按下标对齐；任一快照失败即取消其余剥离并返回该错误。
func (s *Service) StripAll(ctx context.Context, snaps []*marketdata.Snapshot) ([]*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "stripping.StripAll")
	defer span.End()
	tracing.AddTag(ctx, "snapshots", len(snaps))

	results := make([]*Result, len(snaps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.load().stripper.Concurrency)
	for i, snap := range snaps {
		g.Go(func() error {
			res, err := s.Strip(gctx, snap)
			if err != nil {
				return fmt.Errorf("snapshot %d (%s): %w", i, snap.ID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}
	return results, nil
}
