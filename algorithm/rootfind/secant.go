package rootfind

import (
	"math"

	"github.com/wyfcoding/capvol/xerrors"
)

// secantStep 第二个起点相对 x0 的扰动。
const secantStep = 1e-4

// Secant 割线法求根，x0 为初始猜测。
// 第二个起点取 x0*(1+1e-4) 再向远离零的方向偏移 1e-4；
// 当 |f(x1)| < |f(x0)| 时先交换两点，迭代至 |p-p1| <= Tol+RTol*|p1|。
// 结果不做符号约束，负根按原样返回。
func Secant(f Func, x0 float64, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()

	p0 := x0
	p1 := x0 * (1 + secantStep)
	if p1 >= 0 {
		p1 += secantStep
	} else {
		p1 -= secantStep
	}

	q0 := f(p0)
	q1 := f(p1)
	if math.Abs(q1) < math.Abs(q0) {
		p0, p1 = p1, p0
		q0, q1 = q1, q0
	}

	for itr := 0; itr < cfg.MaxIter; itr++ {
		if q1 == 0 {
			return Result{Root: p1, Iterations: itr, Method: MethodSecant}, nil
		}

		var p float64
		if q1 == q0 {
			if p1 != p0 {
				return Result{}, xerrors.ErrNonConvergence.Clone().
					WithDetail("flat function between %g and %g", p0, p1).
					WithContext("iterations", itr+1)
			}
			return Result{Root: (p1 + p0) / 2, Iterations: itr + 1, Method: MethodSecant}, nil
		}

		if math.Abs(q1) > math.Abs(q0) {
			p = (-q0/q1*p1 + p0) / (1 - q0/q1)
		} else {
			p = (-q1/q0*p0 + p1) / (1 - q1/q0)
		}

		if !isFinite(p) {
			return Result{}, xerrors.ErrNonConvergence.Clone().
				WithDetail("non-finite iterate after %d iterations", itr+1).
				WithContext("last", p1)
		}

		if math.Abs(p-p1) <= cfg.Tol+cfg.RTol*math.Abs(p1) {
			return Result{Root: p, Iterations: itr + 1, Method: MethodSecant}, nil
		}

		p0, q0 = p1, q1
		p1 = p
		q1 = f(p1)
	}

	return Result{}, xerrors.ErrNonConvergence.Clone().
		WithDetail("failed to converge after %d iterations, value is %g", cfg.MaxIter, p1).
		WithContext("iterations", cfg.MaxIter).
		WithContext("last", p1)
}
