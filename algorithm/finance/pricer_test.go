package finance

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/capvol/algorithm/rootfind"
	"github.com/wyfcoding/capvol/xerrors"
)

func roundTo(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}

// 19 个季度 caplet 的参考数据（重置 0.25..4.75 年）。
var (
	capForwards = []float64{
		0.039161, 0.032940089, 0.031880044, 0.030052244, 0.029661,
		0.029965422, 0.029944978, 0.030298956, 0.029997, 0.0306636,
		0.0306636, 0.030875289, 0.030913711, 0.031253422, 0.031253422,
		0.031572956, 0.031264, 0.031958756, 0.031958756,
	}
	capZCBs = []float64{
		0.978829041, 0.9708342, 0.963157821, 0.955975519, 0.9489389,
		0.94188292, 0.934884149, 0.927855883, 0.920949452, 0.913943255,
		0.906990357, 0.900043085, 0.893140513, 0.886216191, 0.879345551,
		0.872459024, 0.865692769, 0.858830977, 0.852023574,
	}
	capResets = []float64{
		0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.25, 2.5,
		2.75, 3.0, 3.25, 3.5, 3.75, 4.0, 4.25, 4.5, 4.75,
	}
	capStrike = 0.0314042141880721
)

func quarterlyTaus(n int) []float64 {
	taus := make([]float64, n)
	for i := range taus {
		taus[i] = 0.25
	}
	return taus
}

func TestBlackCapletPrice(t *testing.T) {
	p := NewBlackPricer(0, rootfind.DefaultConfig())
	got := p.CapletPrice(0.0300522, 0.03353653, 0.301687537, 0.955975519, 1.0, 0.25, 1.0)
	if roundTo(got, 7) != roundTo(0.000553777, 7) {
		t.Errorf("caplet price %.10f, want 0.000553777", got)
	}
}

func TestBlackCapletImpliedVol(t *testing.T) {
	p := NewBlackPricer(0, rootfind.DefaultConfig())
	got, err := p.CapletImpliedVol(0.000553777, 0.0300522, 0.03353653, 0.955975519, 1.0, 0.25, 1.0, DefaultBlackGuess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roundTo(got, 5) != roundTo(0.301687537, 5) {
		t.Errorf("implied vol %.8f, want 0.301687537", got)
	}
}

func TestBlackCapPrice(t *testing.T) {
	p := NewBlackPricer(0, rootfind.DefaultConfig())
	got, err := p.CapPrice(capForwards, capStrike, 0.3364, capZCBs, capResets, quarterlyTaus(len(capResets)), 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roundTo(got, 7) != roundTo(0.027202241, 7) {
		t.Errorf("cap price %.10f, want 0.027202241", got)
	}
}

func TestBlackCapImpliedVol(t *testing.T) {
	p := NewBlackPricer(0, rootfind.DefaultConfig())
	got, err := p.CapImpliedVol(0.027202241, capForwards, capStrike, capZCBs, capResets, quarterlyTaus(len(capResets)), 1.0, DefaultBlackGuess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roundTo(got, 4) != 0.3364 {
		t.Errorf("cap implied vol %.8f, want 0.3364", got)
	}
}

func TestCapPriceInputMismatch(t *testing.T) {
	for _, p := range []CapletPricer{
		NewBlackPricer(0, rootfind.DefaultConfig()),
		NewNormalPricer(0, rootfind.DefaultConfig()),
	} {
		_, err := p.CapPrice(capForwards[:3], capStrike, 0.2, capZCBs[:3], capResets[:2], quarterlyTaus(3), 1.0)
		if !errors.Is(err, xerrors.ErrInputMismatch) {
			t.Errorf("%s: expected ErrInputMismatch, got %v", p.Model(), err)
		}
		_, err = p.CapImpliedVol(0.01, capForwards, capStrike, capZCBs, capResets, quarterlyTaus(2), 1.0, p.DefaultGuess())
		if !errors.Is(err, xerrors.ErrInputMismatch) {
			t.Errorf("%s: expected ErrInputMismatch from inversion, got %v", p.Model(), err)
		}
	}
}

func TestNormalRoundTrip(t *testing.T) {
	p := NewNormalPricer(0, rootfind.DefaultConfig())
	tests := []struct {
		f, k, sigma, df, t float64
	}{
		{0.0300522, 0.03353653, 0.0085, 0.955975519, 1.0},
		{0.039161, 0.039161, 0.0091, 0.978829041, 0.25},
		{0.031958756, 0.0314042141880721, 0.0102, 0.852023574, 4.75},
	}

	for _, tt := range tests {
		price := p.CapletPrice(tt.f, tt.k, tt.sigma, tt.df, tt.t, 0.25, 1.0)
		if price <= 0 {
			t.Fatalf("expected positive price, got %g", price)
		}
		got, err := p.CapletImpliedVol(price, tt.f, tt.k, tt.df, tt.t, 0.25, 1.0, DefaultNormalGuess)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-tt.sigma) > 1e-6 {
			t.Errorf("normal vol %.8f, want %.8f", got, tt.sigma)
		}
	}
}

func TestNormalATMPrice(t *testing.T) {
	// 平值时 Bachelier 价格退化为 df*N*tau*σ√t/√(2π)。
	p := NewNormalPricer(0, rootfind.DefaultConfig())
	got := p.CapletPrice(0.03, 0.03, 0.01, 0.95, 2.0, 0.25, 1.0)
	want := 0.95 * 0.25 * 0.01 * math.Sqrt(2.0) / math.Sqrt(2*math.Pi)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("atm price %.15f, want %.15f", got, want)
	}
}

func TestSolveHookObservesIterations(t *testing.T) {
	p := NewBlackPricer(0, rootfind.DefaultConfig())
	var calls int
	p.Hook = func(model Model, res rootfind.Result) {
		calls++
		if model != ModelBlack || res.Iterations == 0 {
			t.Errorf("unexpected hook args: %s %+v", model, res)
		}
	}
	if _, err := p.CapletImpliedVol(0.000553777, 0.0300522, 0.03353653, 0.955975519, 1.0, 0.25, 1.0, DefaultBlackGuess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("hook called %d times, want 1", calls)
	}
}

func TestNewUnsupportedModel(t *testing.T) {
	if _, err := New("sabr", DefaultEpsilon, rootfind.DefaultConfig()); !errors.Is(err, xerrors.ErrUnsupportedVolType) {
		t.Errorf("expected ErrUnsupportedVolType, got %v", err)
	}
	p, err := New(ModelNormal, DefaultEpsilon, rootfind.DefaultConfig())
	if err != nil || p.Model() != ModelNormal {
		t.Errorf("expected normal pricer, got %v, %v", p, err)
	}
}

func TestFitError(t *testing.T) {
	got, err := FitError([]float64{1, 2, 3}, []float64{1, 2, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-math.Sqrt(4.0/3.0)) > 1e-15 {
		t.Errorf("rmse %g", got)
	}
	if _, err := FitError([]float64{1}, nil); !errors.Is(err, xerrors.ErrInputMismatch) {
		t.Errorf("expected ErrInputMismatch, got %v", err)
	}
}
