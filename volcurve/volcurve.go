// Package volcurve 从 cap 价格期限结构剥离 caplet 隐含波动率期限结构（Black 与 Normal），
// 并提供按期限查询的分段常数插值。
package volcurve

import (
	"log/slog"
	"sync"

	"github.com/wyfcoding/capvol/algorithm/finance"
	"github.com/wyfcoding/capvol/algorithm/rootfind"
	"github.com/wyfcoding/capvol/curve"
	"github.com/wyfcoding/capvol/validator"
	"github.com/wyfcoding/capvol/xerrors"
)

const (
	// DefaultTau caplet 计息期长度（季度重置惯例），不由期限间距推导。
	DefaultTau = 0.25
	// DefaultNotional 名义本金。
	DefaultNotional = 1.0
	// DefaultGridStep 插值网格步长（年）。
	DefaultGridStep = 0.001
)

type options struct {
	logger      *slog.Logger
	black       finance.CapletPricer
	normal      finance.CapletPricer
	blackGuess  float64
	normalGuess float64
	tau         float64
	notional    float64
	gridStep    float64
}

// Option 定义配置选项。
type Option func(*options)

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPricers 替换 Black 与 Normal 定价器（例如自定义求根参数）。
func WithPricers(black, normal finance.CapletPricer) Option {
	return func(o *options) {
		if black != nil {
			o.black = black
		}
		if normal != nil {
			o.normal = normal
		}
	}
}

// WithInitialGuesses 设置隐含波动率反解的初始猜测，非正值表示沿用定价器的 DefaultGuess。
func WithInitialGuesses(black, normal float64) Option {
	return func(o *options) {
		o.blackGuess = black
		o.normalGuess = normal
	}
}

// WithTau 设置 caplet 计息期长度。
func WithTau(tau float64) Option {
	return func(o *options) {
		if tau > 0 {
			o.tau = tau
		}
	}
}

// WithNotional 设置名义本金。
func WithNotional(notional float64) Option {
	return func(o *options) {
		if notional > 0 {
			o.notional = notional
		}
	}
}

// WithGridStep 设置插值网格步长。
func WithGridStep(dt float64) Option {
	return func(o *options) {
		if dt > 0 {
			o.gridStep = dt
		}
	}
}

type stripState int

const (
	stateNotStripped stripState = iota
	stateStripped
)

// VolCurve 持有一份行情快照（cap 价格、ZCB、期限）及剥离结果。
// 剥离只执行一次；插值网格在首次查询时构建并缓存，之后不再重建。
// 单个实例不做并发保护，不同实例之间没有共享可变状态。
type VolCurve struct {
	capPrices   []float64
	zcb         []float64
	tenors      []float64
	forward     []float64
	forwardSwap []float64
	opts        options

	state            stripState
	capletBlackVols  []float64
	capletNormalVols []float64
	capBlackVols     []float64

	gridOnce sync.Once
	grid     *volGrid
}

// New 创建 VolCurve。要求 len(tenors)>=2，len(zcb)==len(tenors)，len(capPrices)==len(tenors)-1，
// 期限为正且严格递增，ZCB 为正。远期与远期互换曲线在此一次性由 ZCB 曲线导出。
func New(capPrices, zcb, tenors []float64, opts ...Option) (*VolCurve, error) {
	if len(tenors) < 2 || len(capPrices) != len(tenors)-1 || len(zcb) != len(tenors) {
		return nil, xerrors.ErrInputMismatch.Clone().
			WithDetail("len(cap_prices)=%d must = len(tenors)-1, len(zcb)=%d must = len(tenors)=%d (>=2)",
				len(capPrices), len(zcb), len(tenors)).
			WithContext("len_cap_prices", len(capPrices)).
			WithContext("len_zcb", len(zcb)).
			WithContext("len_tenors", len(tenors))
	}

	if err := checkCurve(zcb, tenors); err != nil {
		return nil, err
	}

	o := options{
		logger:   slog.Default(),
		tau:      DefaultTau,
		notional: DefaultNotional,
		gridStep: DefaultGridStep,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.black == nil {
		o.black = finance.NewBlackPricer(finance.DefaultEpsilon, rootfind.DefaultConfig())
	}
	if o.normal == nil {
		o.normal = finance.NewNormalPricer(finance.DefaultEpsilon, rootfind.DefaultConfig())
	}
	if !validator.IsPositive(o.blackGuess) {
		o.blackGuess = o.black.DefaultGuess()
	}
	if !validator.IsPositive(o.normalGuess) {
		o.normalGuess = o.normal.DefaultGuess()
	}

	forward, err := curve.ZCBToForward(zcb, tenors)
	if err != nil {
		return nil, err
	}
	forwardSwap, err := curve.ZCBToForwardSwap(zcb, tenors)
	if err != nil {
		return nil, err
	}

	return &VolCurve{
		capPrices:   append([]float64(nil), capPrices...),
		zcb:         append([]float64(nil), zcb...),
		tenors:      append([]float64(nil), tenors...),
		forward:     forward,
		forwardSwap: forwardSwap,
		opts:        o,
	}, nil
}

func checkCurve(zcb, tenors []float64) error {
	if !validator.IsStrictlyIncreasing(tenors) {
		return xerrors.ErrInvalidCurve.Clone().
			WithDetail("tenors not strictly increasing: %v", tenors)
	}
	for i := range tenors {
		if !validator.IsPositive(tenors[i]) || !validator.IsPositive(zcb[i]) {
			return xerrors.ErrInvalidCurve.Clone().
				WithDetail("tenor=%g, zcb=%g at %d", tenors[i], zcb[i], i).
				WithContext("index", i)
		}
	}
	return nil
}

// Stripped 报告是否已完成剥离。
func (c *VolCurve) Stripped() bool { return c.state == stateStripped }

// Tenors 返回期限副本。
func (c *VolCurve) Tenors() []float64 { return append([]float64(nil), c.tenors...) }

// CapPrices 返回 cap 价格副本。
func (c *VolCurve) CapPrices() []float64 { return append([]float64(nil), c.capPrices...) }

// Forward 返回远期曲线副本（含 NaN 哨兵）。
func (c *VolCurve) Forward() []float64 { return append([]float64(nil), c.forward...) }

// ForwardSwap 返回远期互换曲线副本（首尾 NaN 哨兵）。
func (c *VolCurve) ForwardSwap() []float64 { return append([]float64(nil), c.forwardSwap...) }

// CapletBlackVols 返回剥离出的 caplet Black 波动率。
func (c *VolCurve) CapletBlackVols() ([]float64, error) {
	return c.strippedCopy(c.capletBlackVols)
}

// CapletNormalVols 返回剥离出的 caplet Normal 波动率。
func (c *VolCurve) CapletNormalVols() ([]float64, error) {
	return c.strippedCopy(c.capletNormalVols)
}

// CapBlackVols 返回每个 cap 到期的 flat Black 隐含波动率。
func (c *VolCurve) CapBlackVols() ([]float64, error) {
	return c.strippedCopy(c.capBlackVols)
}

func (c *VolCurve) strippedCopy(vols []float64) ([]float64, error) {
	if c.state != stateStripped {
		return nil, xerrors.ErrNotStripped.Clone()
	}
	return append([]float64(nil), vols...), nil
}

func (c *VolCurve) pricer(vt VolType) (finance.CapletPricer, float64, error) {
	switch vt {
	case VolBlack:
		return c.opts.black, c.opts.blackGuess, nil
	case VolNormal:
		return c.opts.normal, c.opts.normalGuess, nil
	default:
		return nil, 0, xerrors.ErrUnsupportedVolType.Clone().WithContext("vol_type", string(vt))
	}
}
