// Package curve 提供即期、零息债券（ZCB）、远期与远期互换利率曲线之间的相互转换。
// 所有转换均为纯函数，不修改输入。
package curve

import (
	"math"

	"github.com/wyfcoding/capvol/xerrors"
)

func checkLengths(op, name string, values, tenors []float64) error {
	if len(values) == len(tenors) {
		return nil
	}
	return xerrors.ErrInputMismatch.Clone().
		WithDetail("%s: len(%s) [%d] != len(tenors) [%d]", op, name, len(values), len(tenors)).
		WithContext("op", op).
		WithContext("len_"+name, len(values)).
		WithContext("len_tenors", len(tenors))
}

// SpotToZCB 单利即期利率转折现因子：zcb[i] = 1/(1+spot[i]*tenors[i])。
func SpotToZCB(spot, tenors []float64) ([]float64, error) {
	if err := checkLengths("SpotToZCB", "spot", spot, tenors); err != nil {
		return nil, err
	}
	zcb := make([]float64, len(spot))
	for i := range spot {
		zcb[i] = 1.0 / (1.0 + spot[i]*tenors[i])
	}
	return zcb, nil
}

// ZCBToSpot 折现因子转单利即期利率：spot[i] = (1/zcb[i]-1)/tenors[i]。
func ZCBToSpot(zcb, tenors []float64) ([]float64, error) {
	if err := checkLengths("ZCBToSpot", "zcb", zcb, tenors); err != nil {
		return nil, err
	}
	spot := make([]float64, len(zcb))
	for i := range zcb {
		spot[i] = (1.0/zcb[i] - 1.0) / tenors[i]
	}
	return spot, nil
}

// padOrigin 在曲线前补上 (0, 1) 原点。
func padOrigin(zcb, tenors []float64) ([]float64, []float64) {
	z := make([]float64, 0, len(zcb)+1)
	z = append(z, 1.0)
	z = append(z, zcb...)
	ts := make([]float64, 0, len(tenors)+1)
	ts = append(ts, 0.0)
	ts = append(ts, tenors...)
	return z, ts
}

// ZCBToForward 折现因子转单期单利远期利率。
// 返回长度为 len(zcb)+1：下标 0 为 (0, tenors[0]] 区间，下标 i (1<=i<n) 为 (tenors[i-1], tenors[i]]，
// 末尾为 NaN 哨兵（最后一个期限之后没有区间）。
func ZCBToForward(zcb, tenors []float64) ([]float64, error) {
	if err := checkLengths("ZCBToForward", "zcb", zcb, tenors); err != nil {
		return nil, err
	}
	z, ts := padOrigin(zcb, tenors)

	fwd := make([]float64, 0, len(z))
	for i := 0; i < len(z)-1; i++ {
		dt := ts[i+1] - ts[i]
		fwd = append(fwd, (z[i]/z[i+1]-1.0)/dt)
	}
	return append(fwd, math.NaN()), nil
}

// ZCBToForwardSwap 折现因子转从第一个期限起始的远期互换利率。
// S[k] = (zcb[0]-zcb[k]) / Σ_{j=1..k} (tenors[j]-tenors[j-1])*zcb[j]，k=1..n-1。
// 返回长度为 len(zcb)+1，首尾为 NaN 哨兵。
func ZCBToForwardSwap(zcb, tenors []float64) ([]float64, error) {
	if err := checkLengths("ZCBToForwardSwap", "zcb", zcb, tenors); err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(zcb)+1)
	out = append(out, math.NaN())
	if len(zcb) == 0 {
		return out, nil
	}

	annuity := 0.0
	for k := 1; k < len(zcb); k++ {
		annuity += (tenors[k] - tenors[k-1]) * zcb[k]
		out = append(out, (zcb[0]-zcb[k])/annuity)
	}
	return append(out, math.NaN()), nil
}
