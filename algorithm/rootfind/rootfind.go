// Package rootfind 提供一维标量方程求根算法（割线法、二分法及其组合）。
package rootfind

import (
	"math"

	"github.com/wyfcoding/capvol/xerrors"
)

// Method 求根方法。
type Method string

const (
	// MethodSecant 开放式割线法，默认方法。
	MethodSecant Method = "secant"
	// MethodBisection 区间二分法，需要 BracketLo/BracketHi 包含异号端点。
	MethodBisection Method = "bisection"
	// MethodSecantBisection 先割线法，失败后回退到二分法。
	MethodSecantBisection Method = "secant_bisection"
)

const (
	DefaultTol     = 1.48e-8
	DefaultMaxIter = 50
)

// Func 待求根的标量函数。
type Func func(x float64) float64

// Config 求根参数。
type Config struct {
	Method    Method  `mapstructure:"method"     toml:"method"     json:"method"     validate:"omitempty,oneof=secant bisection secant_bisection"`
	Tol       float64 `mapstructure:"tol"        toml:"tol"        json:"tol"        validate:"gte=0"`
	RTol      float64 `mapstructure:"rtol"       toml:"rtol"       json:"rtol"       validate:"gte=0"`
	MaxIter   int     `mapstructure:"max_iter"   toml:"max_iter"   json:"max_iter"   validate:"gte=0"`
	BracketLo float64 `mapstructure:"bracket_lo" toml:"bracket_lo" json:"bracket_lo"`
	BracketHi float64 `mapstructure:"bracket_hi" toml:"bracket_hi" json:"bracket_hi"`
}

// DefaultConfig 返回默认求根参数。
func DefaultConfig() Config {
	return Config{
		Method:    MethodSecant,
		Tol:       DefaultTol,
		MaxIter:   DefaultMaxIter,
		BracketLo: 1e-6,
		BracketHi: 5.0,
	}
}

func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = MethodSecant
	}
	if c.Tol == 0 && c.RTol == 0 {
		c.Tol = DefaultTol
	}
	if c.MaxIter <= 0 {
		c.MaxIter = DefaultMaxIter
	}
	return c
}

// Result 求根结果。
type Result struct {
	Root       float64
	Iterations int
	Method     Method
}

// Solve 按 cfg.Method 分派求根，x0 为开放式方法的初始猜测。
func Solve(f Func, x0 float64, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	switch cfg.Method {
	case MethodBisection:
		return Bisection(f, cfg.BracketLo, cfg.BracketHi, cfg)
	case MethodSecantBisection:
		res, err := Secant(f, x0, cfg)
		if err == nil {
			return res, nil
		}
		fallback, ferr := Bisection(f, cfg.BracketLo, cfg.BracketHi, cfg)
		if ferr != nil {
			return Result{}, xerrors.ErrNonConvergence.Clone().
				WithDetail("secant failed (%v); bisection fallback failed (%v)", err, ferr)
		}
		fallback.Iterations += res.Iterations
		fallback.Method = MethodSecantBisection
		return fallback, nil
	default:
		return Secant(f, x0, cfg)
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
