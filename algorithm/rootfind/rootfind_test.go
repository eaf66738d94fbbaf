package rootfind

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/capvol/xerrors"
)

func TestSecant(t *testing.T) {
	tests := []struct {
		name string
		f    Func
		x0   float64
		want float64
	}{
		{"sqrt2", func(x float64) float64 { return x*x - 2 }, 1.0, math.Sqrt2},
		{"negative root kept", func(x float64) float64 { return x + 0.25 }, 0.3, -0.25},
		{"cubic", func(x float64) float64 { return x*x*x - x - 1 }, 1.5, 1.324717957244746},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Secant(tt.f, tt.x0, DefaultConfig())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(res.Root-tt.want) > 1e-8 {
				t.Errorf("root %.12f, want %.12f", res.Root, tt.want)
			}
			if res.Method != MethodSecant || res.Iterations == 0 {
				t.Errorf("unexpected result metadata: %+v", res)
			}
		})
	}
}

func TestSecantNonConvergence(t *testing.T) {
	_, err := Secant(func(x float64) float64 { return x*x + 1 }, 0.3, Config{MaxIter: 20})
	if !errors.Is(err, xerrors.ErrNonConvergence) {
		t.Fatalf("expected ErrNonConvergence, got %v", err)
	}
}

// step 在 x>=2 时恒为 1，割线法从平坦区出发必然失败。
func step(x float64) float64 {
	if x < 2 {
		return x - 1
	}
	return 1
}

func TestSolveFallsBackToBisection(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := Solve(step, 5, cfg); !errors.Is(err, xerrors.ErrNonConvergence) {
		t.Fatalf("secant should fail on the flat region, got %v", err)
	}

	cfg.Method = MethodSecantBisection
	cfg.BracketLo, cfg.BracketHi = 0, 3
	res, err := Solve(step, 5, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Root-1) > 1e-7 {
		t.Errorf("root %.10f, want 1", res.Root)
	}
	if res.Method != MethodSecantBisection {
		t.Errorf("method %s, want %s", res.Method, MethodSecantBisection)
	}
}

func TestBisection(t *testing.T) {
	res, err := Bisection(func(x float64) float64 { return math.Cos(x) - x }, 0, 1, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Root-0.7390851332151607) > 1e-7 {
		t.Errorf("root %.12f", res.Root)
	}

	_, err = Bisection(func(x float64) float64 { return x*x + 1 }, -1, 1, DefaultConfig())
	if !errors.Is(err, xerrors.ErrInvalidBracket) {
		t.Errorf("expected ErrInvalidBracket, got %v", err)
	}
}
