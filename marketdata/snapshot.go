// Package marketdata 定义 cap 波动率剥离所需的行情快照：期限、ZCB 折现因子与 cap 价格。
// 报价以 decimal 保存，进入数值计算前统一转换为 float64。
package marketdata

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/capvol/validator"
	"github.com/wyfcoding/capvol/volcurve"
	"github.com/wyfcoding/capvol/xerrors"
)

// Snapshot 某一时点的一组 cap 行情。
type Snapshot struct {
	AsOf      time.Time         `json:"as_of"`
	ID        string            `json:"id"         validate:"required"`
	Tenors    []decimal.Decimal `json:"tenors"     validate:"min=2,dive,gt=0"`
	ZCB       []decimal.Decimal `json:"zcb"        validate:"min=2,dive,gt=0"`
	CapPrices []decimal.Decimal `json:"cap_prices" validate:"min=1,dive,gt=0"`
}

// Validate 校验字段约束、序列长度关系以及期限严格递增。
func (s *Snapshot) Validate() error {
	if err := validator.Struct(s); err != nil {
		return xerrors.ErrInvalidSnapshot.Clone().WithCause(err).
			WithContext("snapshot_id", s.ID)
	}

	if len(s.ZCB) != len(s.Tenors) || len(s.CapPrices) != len(s.Tenors)-1 {
		return xerrors.ErrInvalidSnapshot.Clone().
			WithDetail("len(zcb)=%d, len(cap_prices)=%d, len(tenors)=%d", len(s.ZCB), len(s.CapPrices), len(s.Tenors)).
			WithContext("snapshot_id", s.ID)
	}

	if !validator.IsStrictlyIncreasing(toFloats(s.Tenors)) {
		return xerrors.ErrInvalidSnapshot.Clone().
			WithDetail("tenors not strictly increasing: %v", s.Tenors).
			WithContext("snapshot_id", s.ID)
	}
	return nil
}

// Floats 将报价转换为 float64 序列：cap 价格、ZCB、期限。
func (s *Snapshot) Floats() (capPrices, zcb, tenors []float64) {
	return toFloats(s.CapPrices), toFloats(s.ZCB), toFloats(s.Tenors)
}

func toFloats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.InexactFloat64()
	}
	return out
}

// Fingerprint 对报价内容计算稳定哈希，与 ID 和 AsOf 无关。
// 数值相同但写法不同的报价（如 0.25 与 0.250）得到相同指纹。
func (s *Snapshot) Fingerprint() uint64 {
	d := xxhash.New()
	write := func(tag string, ds []decimal.Decimal) {
		_, _ = d.WriteString(tag)
		for _, v := range ds {
			_, _ = d.WriteString(v.String())
			_, _ = d.WriteString(",")
		}
		_, _ = d.WriteString(";")
	}
	write("t", s.Tenors)
	write("z", s.ZCB)
	write("c", s.CapPrices)
	return d.Sum64()
}

// NewVolCurve 校验快照并据此创建尚未剥离的 VolCurve。
func (s *Snapshot) NewVolCurve(opts ...volcurve.Option) (*volcurve.VolCurve, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	capPrices, zcb, tenors := s.Floats()
	return volcurve.New(capPrices, zcb, tenors, opts...)
}

// Load 从 JSON 文件读取快照并校验。
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 JSON 快照并校验。
func Parse(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, xerrors.ErrInvalidSnapshot.Clone().WithCause(err).WithDetail("decode snapshot failed")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
