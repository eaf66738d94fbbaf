package volcurve

import (
	"context"

	"github.com/wyfcoding/capvol/algorithm/finance"
	"github.com/wyfcoding/capvol/xerrors"
)

// Strip 顺序自举剥离 caplet 波动率期限结构。
//
// cap i 由 caplet 0..i 组成，所有 caplet 共用执行利率 K_i = forwardSwap[i+1]。
// i=0 时直接反解 C[0]；i>0 时先用已剥离的波动率在 K_i 下重新为 caplet 0..i-1 计价，
// 从 C[i] 中扣除得到最新 caplet 的残差价格，再反解出其波动率。
// K_i 随 cap 变化，因此每一步都必须以新的执行利率重新计价全部旧 caplet，不能跨步缓存。
//
// Strip 只能调用一次；ctx 仅在相邻 cap 之间检查。
func (c *VolCurve) Strip(ctx context.Context) error {
	if c.state == stateStripped {
		return xerrors.ErrAlreadyStripped.Clone()
	}

	n := len(c.capPrices)
	black := make([]float64, 0, n)
	normal := make([]float64, 0, n)
	capVols := make([]float64, 0, n)

	taus := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		strike := c.forwardSwap[i+1]
		taus = append(taus, c.opts.tau)

		bv, err := c.stripCaplet(i, strike, VolBlack, black)
		if err != nil {
			return err
		}
		nv, err := c.stripCaplet(i, strike, VolNormal, normal)
		if err != nil {
			return err
		}
		black = append(black, bv)
		normal = append(normal, nv)

		capVol, err := c.opts.black.CapImpliedVol(c.capPrices[i], c.forward[1:i+2], strike,
			c.zcb[1:i+2], c.tenors[:i+1], taus, c.opts.notional, c.opts.blackGuess)
		if err != nil {
			return c.stripError(err, i, VolBlack, "cap implied vol")
		}
		capVols = append(capVols, capVol)

		c.opts.logger.DebugContext(ctx, "caplet stripped",
			"index", i, "tenor", c.tenors[i], "strike", strike,
			"cap_black_vol", capVol, "black_vol", bv, "normal_vol", nv)
	}

	c.capletBlackVols = black
	c.capletNormalVols = normal
	c.capBlackVols = capVols
	c.state = stateStripped
	return nil
}

// stripCaplet 求解 cap i 中最新 caplet（下标 i）的波动率，solved 为已剥离的 caplet 0..i-1。
func (c *VolCurve) stripCaplet(i int, strike float64, vt VolType, solved []float64) (float64, error) {
	p, guess, err := c.pricer(vt)
	if err != nil {
		return 0, err
	}
	tau, notional := c.opts.tau, c.opts.notional

	residual := c.capPrices[i]
	for j, vol := range solved {
		residual -= p.CapletPrice(c.forward[j+1], strike, vol, c.zcb[j+1], c.tenors[j], tau, notional)
	}

	if !(residual > 0) {
		return 0, xerrors.ErrArbitrageViolation.Clone().
			WithDetail("%s residual caplet price %g at cap %d (tenor %g) is not positive", vt, residual, i, c.tenors[i]).
			WithContext("index", i).
			WithContext("vol_type", string(vt)).
			WithContext("residual", residual).
			WithContext("cap_price", c.capPrices[i])
	}

	// 最新 caplet 由 cap 自身下标 i 定位，不依赖上面循环变量的残值。
	vol, err := p.CapletImpliedVol(residual, c.forward[i+1], strike, c.zcb[i+1], c.tenors[i], tau, notional, guess)
	if err != nil {
		return 0, c.stripError(err, i, vt, "caplet implied vol")
	}
	return vol, nil
}

func (c *VolCurve) stripError(err error, i int, vt VolType, what string) error {
	return xerrors.Wrap(err, xerrors.ErrInternal, string(vt)+" "+what+" failed").
		WithContext("index", i).
		WithContext("tenor", c.tenors[i]).
		WithContext("vol_type", string(vt))
}

// FitError 用剥离出的 caplet 波动率在各自 K_i 下重新为每个 cap 计价，返回相对市场 cap 价格的 RMSE。
func (c *VolCurve) FitError(vt VolType) (float64, error) {
	p, _, err := c.pricer(vt)
	if err != nil {
		return 0, err
	}
	if c.state != stateStripped {
		return 0, xerrors.ErrNotStripped.Clone()
	}

	vols := c.capletBlackVols
	if vt == VolNormal {
		vols = c.capletNormalVols
	}

	model, err := c.RepriceCaps(p, vols)
	if err != nil {
		return 0, err
	}
	return finance.FitError(c.capPrices, model)
}

// RepriceCaps 以给定的逐 caplet 波动率为每个 cap 到期计价：cap i = Σ_{j<=i} caplet(forward[j+1], K_i, vols[j])。
func (c *VolCurve) RepriceCaps(p finance.CapletPricer, vols []float64) ([]float64, error) {
	if len(vols) != len(c.capPrices) {
		return nil, xerrors.ErrInputMismatch.Clone().
			WithDetail("len(vols)=%d, len(cap_prices)=%d", len(vols), len(c.capPrices))
	}

	out := make([]float64, len(c.capPrices))
	for i := range c.capPrices {
		strike := c.forwardSwap[i+1]
		for j := 0; j <= i; j++ {
			out[i] += p.CapletPrice(c.forward[j+1], strike, vols[j], c.zcb[j+1], c.tenors[j], c.opts.tau, c.opts.notional)
		}
	}
	return out, nil
}
