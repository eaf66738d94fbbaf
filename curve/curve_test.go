package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/capvol/xerrors"
)

func round(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}

var (
	shortSpot   = []float64{0.0534157, 0.0510155, 0.0478062, 0.0428661}
	shortZCB    = []float64{0.995421375, 0.987130489, 0.976148514, 0.958348761}
	shortTenors = []float64{0.0861111111, 0.2555555556, 0.5111111111, 1.0138888889}

	quarterlyZCB = []float64{
		0.988412022, 0.978829041, 0.9708342, 0.963157821, 0.955975519,
		0.9489389, 0.94188292, 0.934884149, 0.927855883, 0.920949452,
		0.913943255, 0.906990357, 0.900043085, 0.893140513, 0.886216191,
		0.879345551, 0.872459024, 0.865692769, 0.858830977, 0.852023574,
	}
	quarterlyTenors = []float64{
		0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.25, 2.5,
		2.75, 3.0, 3.25, 3.5, 3.75, 4.0, 4.25, 4.5, 4.75, 5.0,
	}
)

func TestSpotToZCB(t *testing.T) {
	got, err := SpotToZCB(shortSpot, shortTenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range shortZCB {
		if round(got[i], 7) != round(want, 7) {
			t.Errorf("zcb[%d] = %.9f, want %.9f", i, got[i], want)
		}
	}
}

func TestZCBToSpot(t *testing.T) {
	got, err := ZCBToSpot(shortZCB, shortTenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range shortSpot {
		if round(got[i], 7) != round(want, 7) {
			t.Errorf("spot[%d] = %.9f, want %.9f", i, got[i], want)
		}
	}
}

func TestSpotZCBRoundTrip(t *testing.T) {
	spot := []float64{0.001, 0.02, 0.05, 0.11, -0.004}
	tenors := []float64{0.1, 0.75, 2, 10, 30}

	zcb, err := SpotToZCB(spot, tenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := ZCBToSpot(zcb, tenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range spot {
		if math.Abs(back[i]-spot[i]) > 1e-12 {
			t.Errorf("round trip spot[%d] = %.15f, want %.15f", i, back[i], spot[i])
		}
	}
}

func TestZCBToForward(t *testing.T) {
	got, err := ZCBToForward(shortZCB, shortTenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.0534157, 0.0495677, 0.0440230, 0.0369415}
	if len(got) != len(shortZCB)+1 {
		t.Fatalf("len = %d, want %d", len(got), len(shortZCB)+1)
	}
	for i := range want {
		if round(got[i], 7) != round(want[i], 7) {
			t.Errorf("forward[%d] = %.9f, want %.9f", i, got[i], want[i])
		}
	}
	if !math.IsNaN(got[len(got)-1]) {
		t.Errorf("expected trailing NaN sentinel, got %v", got[len(got)-1])
	}
}

func TestForwardConsistency(t *testing.T) {
	fwd, err := ZCBToForward(quarterlyZCB, quarterlyTenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 逐段复利远期应还原最后一个折现因子。
	growth := 1.0
	prev := 0.0
	for i, tenor := range quarterlyTenors {
		growth *= 1 + fwd[i]*(tenor-prev)
		prev = tenor
	}
	if math.Abs(1/growth-quarterlyZCB[len(quarterlyZCB)-1]) > 1e-12 {
		t.Errorf("terminal zcb %.12f, want %.12f", 1/growth, quarterlyZCB[len(quarterlyZCB)-1])
	}
}

func TestZCBToForwardSwap(t *testing.T) {
	got, err := ZCBToForwardSwap(quarterlyZCB, quarterlyTenors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{
		math.NaN(), 0.039161, 0.036063299, 0.034680058, 0.03353653, 0.032773175,
		0.032314017, 0.031983182, 0.031778164, 0.031586159, 0.031497003,
		0.031424071, 0.031380222, 0.03134595, 0.031339663, 0.031334216,
		0.031348294, 0.031343635, 0.031375614, 0.031404214, math.NaN(),
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("swap[%d] = %v, want NaN", i, got[i])
			}
			continue
		}
		if round(got[i], 6) != round(want[i], 6) {
			t.Errorf("swap[%d] = %.9f, want %.9f", i, got[i], want[i])
		}
	}
}

func TestConversionsInputMismatch(t *testing.T) {
	conversions := map[string]func(a, b []float64) ([]float64, error){
		"SpotToZCB":        SpotToZCB,
		"ZCBToSpot":        ZCBToSpot,
		"ZCBToForward":     ZCBToForward,
		"ZCBToForwardSwap": ZCBToForwardSwap,
	}
	for name, fn := range conversions {
		_, err := fn(shortZCB, shortTenors[:3])
		if !errors.Is(err, xerrors.ErrInputMismatch) {
			t.Errorf("%s: expected ErrInputMismatch, got %v", name, err)
			continue
		}
		xe, _ := xerrors.FromError(err)
		if xe.Context["len_tenors"] != 3 {
			t.Errorf("%s: expected len_tenors context, got %v", name, xe.Context)
		}
	}
}

func TestZCBCurveInterp(t *testing.T) {
	for _, method := range []InterpMethod{InterpLinear, InterpCubicSpline} {
		c, err := NewZCBCurve(quarterlyZCB, quarterlyTenors, method)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		for i, tenor := range quarterlyTenors {
			if math.Abs(c.Interp(tenor)-quarterlyZCB[i]) > 1e-12 {
				t.Errorf("%s: node %d interp %.12f, want %.12f", method, i, c.Interp(tenor), quarterlyZCB[i])
			}
		}
		mid := c.Interp(1.125)
		if mid > quarterlyZCB[3] || mid < quarterlyZCB[4] {
			t.Errorf("%s: interp(1.125) = %.9f outside neighbouring nodes", method, mid)
		}
		if got := c.Interp(10); got != quarterlyZCB[len(quarterlyZCB)-1] {
			t.Errorf("%s: expected flat extrapolation, got %.9f", method, got)
		}
	}

	lin, _ := NewZCBCurve(quarterlyZCB, quarterlyTenors, InterpLinear)
	if want := (quarterlyZCB[3] + quarterlyZCB[4]) / 2; math.Abs(lin.Interp(1.125)-want) > 1e-12 {
		t.Errorf("linear midpoint %.12f, want %.12f", lin.Interp(1.125), want)
	}
}

func TestZCBCurveValidation(t *testing.T) {
	if _, err := NewZCBCurve(quarterlyZCB, quarterlyTenors[:5], InterpLinear); !errors.Is(err, xerrors.ErrInputMismatch) {
		t.Errorf("expected ErrInputMismatch, got %v", err)
	}
	if _, err := NewZCBCurve(quarterlyZCB, quarterlyTenors, "nearest"); !errors.Is(err, xerrors.ErrUnsupportedInterp) {
		t.Errorf("expected ErrUnsupportedInterp, got %v", err)
	}
}

func TestZCBCurveDerivedCurves(t *testing.T) {
	c, err := NewZCBCurve(shortZCB, shortTenors, InterpLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vals := c.Values()
	vals[0] = 0
	if c.Values()[0] != shortZCB[0] {
		t.Errorf("Values must return a copy")
	}
	if len(c.Forward()) != c.Len()+1 || len(c.ForwardSwap()) != c.Len()+1 {
		t.Errorf("derived curve lengths wrong")
	}
	if round(c.Spot()[0], 7) != round(shortSpot[0], 7) {
		t.Errorf("spot[0] = %.9f", c.Spot()[0])
	}
}
