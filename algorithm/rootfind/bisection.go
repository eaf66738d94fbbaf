package rootfind

import (
	"math"

	"github.com/wyfcoding/capvol/xerrors"
)

// Bisection 在 [lo, hi] 上二分求根，要求端点函数值异号。
func Bisection(f Func, lo, hi float64, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	if lo > hi {
		lo, hi = hi, lo
	}

	flo := f(lo)
	fhi := f(hi)
	if flo == 0 {
		return Result{Root: lo, Method: MethodBisection}, nil
	}
	if fhi == 0 {
		return Result{Root: hi, Method: MethodBisection}, nil
	}
	if !isFinite(flo) || !isFinite(fhi) || math.Signbit(flo) == math.Signbit(fhi) {
		return Result{}, xerrors.ErrInvalidBracket.Clone().
			WithContext("lo", lo).WithContext("hi", hi).
			WithContext("f_lo", flo).WithContext("f_hi", fhi)
	}

	// 二分每步区间减半，迭代预算放宽到能把 [lo, hi] 收缩到 Tol 的次数。
	maxIter := cfg.MaxIter
	if cfg.Tol > 0 {
		if need := int(math.Ceil(math.Log2((hi-lo)/cfg.Tol))) + 1; need > maxIter {
			maxIter = need
		}
	}

	for itr := 1; itr <= maxIter; itr++ {
		mid := lo + (hi-lo)/2
		fmid := f(mid)
		if fmid == 0 || (hi-lo)/2 <= cfg.Tol+cfg.RTol*math.Abs(mid) {
			return Result{Root: mid, Iterations: itr, Method: MethodBisection}, nil
		}
		if math.Signbit(fmid) == math.Signbit(flo) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}

	return Result{}, xerrors.ErrNonConvergence.Clone().
		WithDetail("bisection did not reach tolerance after %d iterations", maxIter).
		WithContext("lo", lo).WithContext("hi", hi)
}
