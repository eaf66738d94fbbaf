package curve

import (
	"gonum.org/v1/gonum/interp"

	"github.com/wyfcoding/capvol/xerrors"
)

// InterpMethod ZCB 曲线插值方法。
type InterpMethod string

const (
	InterpLinear      InterpMethod = "linear"
	InterpCubicSpline InterpMethod = "cubic spline"
)

// ZCBCurve 不可变的折现因子曲线，构造时拟合插值器。
type ZCBCurve struct {
	zcb          []float64
	tenors       []float64
	method       InterpMethod
	interpolator interp.FittablePredictor
}

// NewZCBCurve 创建 ZCB 曲线。tenors 须严格递增。
// cubic spline 使用 not-a-knot 边界条件。
func NewZCBCurve(zcb, tenors []float64, method InterpMethod) (*ZCBCurve, error) {
	if err := checkLengths("NewZCBCurve", "zcb", zcb, tenors); err != nil {
		return nil, err
	}

	var fp interp.FittablePredictor
	switch method {
	case InterpLinear, "":
		method = InterpLinear
		fp = &interp.PiecewiseLinear{}
	case InterpCubicSpline:
		fp = &interp.NotAKnotCubic{}
	default:
		return nil, xerrors.ErrUnsupportedInterp.Clone().WithContext("method", string(method))
	}

	c := &ZCBCurve{
		zcb:    append([]float64(nil), zcb...),
		tenors: append([]float64(nil), tenors...),
		method: method,
	}
	if err := fp.Fit(c.tenors, c.zcb); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "fit zcb interpolator").
			WithContext("method", string(method))
	}
	c.interpolator = fp
	return c, nil
}

// Interp 返回期限 T（年）处的插值折现因子；超出期限范围时取端点值。
func (c *ZCBCurve) Interp(T float64) float64 {
	return c.interpolator.Predict(T)
}

// Method 返回插值方法。
func (c *ZCBCurve) Method() InterpMethod { return c.method }

// Len 返回节点数。
func (c *ZCBCurve) Len() int { return len(c.zcb) }

// Values 返回折现因子的副本。
func (c *ZCBCurve) Values() []float64 { return append([]float64(nil), c.zcb...) }

// Tenors 返回期限的副本。
func (c *ZCBCurve) Tenors() []float64 { return append([]float64(nil), c.tenors...) }

// Spot 返回对应的单利即期曲线。
func (c *ZCBCurve) Spot() []float64 {
	s, _ := ZCBToSpot(c.zcb, c.tenors)
	return s
}

// Forward 返回远期曲线（含 NaN 哨兵）。
func (c *ZCBCurve) Forward() []float64 {
	f, _ := ZCBToForward(c.zcb, c.tenors)
	return f
}

// ForwardSwap 返回远期互换利率曲线（首尾 NaN 哨兵）。
func (c *ZCBCurve) ForwardSwap() []float64 {
	s, _ := ZCBToForwardSwap(c.zcb, c.tenors)
	return s
}
