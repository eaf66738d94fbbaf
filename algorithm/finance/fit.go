package finance

import (
	"math"

	"github.com/wyfcoding/capvol/xerrors"
)

// FitError 计算模型价格相对市场价格的均方根误差（RMSE）。
func FitError(market, model []float64) (float64, error) {
	if len(market) != len(model) {
		return math.NaN(), xerrors.ErrInputMismatch.Clone().
			WithDetail("len(market)=%d, len(model)=%d", len(market), len(model))
	}
	if len(market) == 0 {
		return 0, nil
	}

	var sum float64
	for i := range market {
		d := model[i] - market[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(market))), nil
}
