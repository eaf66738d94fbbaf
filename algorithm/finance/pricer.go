// Package finance - 利率期权（caplet/cap）定价与隐含波动率反解。
package finance

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wyfcoding/capvol/algorithm/rootfind"
	"github.com/wyfcoding/capvol/xerrors"
)

// Model 定价模型（同时也是波动率类型）。
type Model string

const (
	ModelBlack  Model = "black"
	ModelNormal Model = "normal"
)

// DefaultEpsilon 分母中加在 sigma 上的正数下限，避免 sigma=0 时除零。
const DefaultEpsilon = 1e-7

// SolveHook 每次隐含波动率反解成功后回调，用于记录迭代次数等指标，须并发安全。
type SolveHook func(model Model, res rootfind.Result)

// CapletPricer 是各定价模型共同实现的能力集合。
type CapletPricer interface {
	Model() Model
	DefaultGuess() float64
	CapletPrice(f, k, sigma, df, t, tau, notional float64) float64
	CapletImpliedVol(price, f, k, df, t, tau, notional, guess float64) (float64, error)
	CapPrice(forwards []float64, k, sigma float64, zcbs, resets, taus []float64, notional float64) (float64, error)
	CapImpliedVol(price float64, forwards []float64, k float64, zcbs, resets, taus []float64, notional, guess float64) (float64, error)
}

// New 按模型名创建定价器。
func New(model Model, epsilon float64, solver rootfind.Config) (CapletPricer, error) {
	switch model {
	case ModelBlack:
		return NewBlackPricer(epsilon, solver), nil
	case ModelNormal:
		return NewNormalPricer(epsilon, solver), nil
	default:
		return nil, xerrors.ErrUnsupportedVolType.Clone().WithContext("model", string(model))
	}
}

func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// capletFunc 以单个 caplet 的远期、折现、重置时间、计息期长度计价。
type capletFunc func(f, df, t, tau float64) float64

// sumCaplets 对齐四个序列逐一计价并求和。
func sumCaplets(price capletFunc, forwards, zcbs, resets, taus []float64) (float64, error) {
	if len(forwards) != len(zcbs) || len(zcbs) != len(resets) || len(resets) != len(taus) {
		return 0, xerrors.ErrInputMismatch.Clone().
			WithDetail("len(forwards)=%d, len(zcbs)=%d, len(resets)=%d, len(taus)=%d",
				len(forwards), len(zcbs), len(resets), len(taus)).
			WithContext("len_forwards", len(forwards)).
			WithContext("len_zcbs", len(zcbs)).
			WithContext("len_resets", len(resets)).
			WithContext("len_taus", len(taus))
	}

	total := 0.0
	for i := range zcbs {
		total += price(forwards[i], zcbs[i], resets[i], taus[i])
	}
	return total, nil
}

// impliedVol 反解 target - price(sigma) = 0。
func impliedVol(model Model, solver rootfind.Config, hook SolveHook, target float64, price func(sigma float64) float64, guess float64) (float64, error) {
	res, err := rootfind.Solve(func(sigma float64) float64 {
		return target - price(sigma)
	}, guess, solver)
	if err != nil {
		return math.NaN(), xerrors.Wrap(err, xerrors.ErrInternal, string(model)+" implied vol inversion failed").
			WithContext("model", string(model)).
			WithContext("price", target).
			WithContext("initial_guess", guess)
	}
	if hook != nil {
		hook(model, res)
	}
	return res.Root, nil
}
