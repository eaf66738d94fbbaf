package finance

import (
	"math"

	"github.com/wyfcoding/capvol/algorithm/rootfind"
)

// DefaultBlackGuess Black 隐含波动率（对数正态，无量纲）的默认初始猜测。
const DefaultBlackGuess = 0.3

// BlackPricer Black-76 对数正态模型下的 caplet/cap 定价器。
type BlackPricer struct {
	// Epsilon 加在 d1 分母 sigma 上的下限。
	// 这是已知近似：sigma 接近 0 时价格会有微小偏差，结果与参考值保持一致，不做修正。
	Epsilon float64
	Solver  rootfind.Config
	Hook    SolveHook
}

// NewBlackPricer 创建 Black 定价器，epsilon<=0 时使用 DefaultEpsilon。
func NewBlackPricer(epsilon float64, solver rootfind.Config) *BlackPricer {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &BlackPricer{Epsilon: epsilon, Solver: solver}
}

// Model 返回 ModelBlack。
func (p *BlackPricer) Model() Model { return ModelBlack }

// DefaultGuess 返回 DefaultBlackGuess。
func (p *BlackPricer) DefaultGuess() float64 { return DefaultBlackGuess }

// CapletPrice 计算 caplet 价格。
// f 远期利率, k 执行利率, sigma Black 波动率, df 支付日折现因子,
// t 重置时间（年）, tau 计息期长度（年）, notional 名义本金。
func (p *BlackPricer) CapletPrice(f, k, sigma, df, t, tau, notional float64) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(f/k) + sigma*sigma*t*0.5) / ((sigma + p.Epsilon) * sqrtT)
	d2 := d1 - sigma*sqrtT
	return df * notional * tau * (f*normCDF(d1) - k*normCDF(d2))
}

// CapletImpliedVol 反解 caplet 的 Black 隐含波动率，不限制结果非负。
func (p *BlackPricer) CapletImpliedVol(price, f, k, df, t, tau, notional, guess float64) (float64, error) {
	return impliedVol(ModelBlack, p.Solver, p.Hook, price, func(sigma float64) float64 {
		return p.CapletPrice(f, k, sigma, df, t, tau, notional)
	}, guess)
}

// CapPrice 以同一执行利率与波动率对一串 caplet 计价求和。
// zcbs 为各 caplet 支付日（而非重置日）的折现因子。
func (p *BlackPricer) CapPrice(forwards []float64, k, sigma float64, zcbs, resets, taus []float64, notional float64) (float64, error) {
	return sumCaplets(func(f, df, t, tau float64) float64 {
		return p.CapletPrice(f, k, sigma, df, t, tau, notional)
	}, forwards, zcbs, resets, taus)
}

// CapImpliedVol 反解 cap 的单一（flat）Black 隐含波动率。
func (p *BlackPricer) CapImpliedVol(price float64, forwards []float64, k float64, zcbs, resets, taus []float64, notional, guess float64) (float64, error) {
	if _, err := p.CapPrice(forwards, k, guess, zcbs, resets, taus, notional); err != nil {
		return math.NaN(), err
	}
	return impliedVol(ModelBlack, p.Solver, p.Hook, price, func(sigma float64) float64 {
		v, _ := p.CapPrice(forwards, k, sigma, zcbs, resets, taus, notional)
		return v
	}, guess)
}
