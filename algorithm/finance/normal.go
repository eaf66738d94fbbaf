package finance

import (
	"math"

	"github.com/wyfcoding/capvol/algorithm/rootfind"
)

// DefaultNormalGuess Normal 波动率以利率单位报价，初始猜测远小于 Black。
const DefaultNormalGuess = 0.01

// NormalPricer Bachelier（正态）模型下的 caplet/cap 定价器。
type NormalPricer struct {
	Epsilon float64
	Solver  rootfind.Config
	Hook    SolveHook
}

// NewNormalPricer 创建 Normal 定价器，epsilon<=0 时使用 DefaultEpsilon。
func NewNormalPricer(epsilon float64, solver rootfind.Config) *NormalPricer {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &NormalPricer{Epsilon: epsilon, Solver: solver}
}

func (p *NormalPricer) Model() Model { return ModelNormal }

func (p *NormalPricer) DefaultGuess() float64 { return DefaultNormalGuess }

// CapletPrice Bachelier caplet 价格：df*N*tau*((f-k)Φ(d) + σ√t φ(d))，d=(f-k)/((σ+ε)√t)。
func (p *NormalPricer) CapletPrice(f, k, sigma, df, t, tau, notional float64) float64 {
	sqrtT := math.Sqrt(t)
	d := (f - k) / ((sigma + p.Epsilon) * sqrtT)
	return df * notional * tau * ((f-k)*normCDF(d) + sigma*sqrtT*normPDF(d))
}

func (p *NormalPricer) CapletImpliedVol(price, f, k, df, t, tau, notional, guess float64) (float64, error) {
	return impliedVol(ModelNormal, p.Solver, p.Hook, price, func(sigma float64) float64 {
		return p.CapletPrice(f, k, sigma, df, t, tau, notional)
	}, guess)
}

func (p *NormalPricer) CapPrice(forwards []float64, k, sigma float64, zcbs, resets, taus []float64, notional float64) (float64, error) {
	return sumCaplets(func(f, df, t, tau float64) float64 {
		return p.CapletPrice(f, k, sigma, df, t, tau, notional)
	}, forwards, zcbs, resets, taus)
}

func (p *NormalPricer) CapImpliedVol(price float64, forwards []float64, k float64, zcbs, resets, taus []float64, notional, guess float64) (float64, error) {
	if _, err := p.CapPrice(forwards, k, guess, zcbs, resets, taus, notional); err != nil {
		return math.NaN(), err
	}
	return impliedVol(ModelNormal, p.Solver, p.Hook, price, func(sigma float64) float64 {
		v, _ := p.CapPrice(forwards, k, sigma, zcbs, resets, taus, notional)
		return v
	}, guess)
}
