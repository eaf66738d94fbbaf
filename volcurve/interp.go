package volcurve

import (
	"math"
	"sort"

	"github.com/wyfcoding/capvol/algorithm/finance"
	"github.com/wyfcoding/capvol/xerrors"
)

// VolType 波动率类型，与定价模型一一对应。
type VolType = finance.Model

const (
	VolBlack  = finance.ModelBlack
	VolNormal = finance.ModelNormal
)

// ParseVolType 解析波动率类型字符串。
func ParseVolType(s string) (VolType, error) {
	switch VolType(s) {
	case VolBlack, VolNormal:
		return VolType(s), nil
	default:
		return "", xerrors.ErrUnsupportedVolType.Clone().WithContext("vol_type", s)
	}
}

// volGrid 固定步长网格上的分段常数波动率表。
type volGrid struct {
	ts     []float64
	mids   []float64 // 相邻网格点中点，用于最近邻查找
	black  []float64
	normal []float64
	// 超出网格范围时的取值
	blackLo, blackHi   float64
	normalLo, normalHi float64
}

// buildGrid 从 0 开始以步长 dt 走网格，网格点到达当前 caplet 的期限边界时切换到下一个 caplet，
// 越过最后一个 caplet 即停止。
func buildGrid(tenors, black, normal []float64, dt float64) *volGrid {
	g := &volGrid{
		blackLo:  black[0],
		blackHi:  black[len(black)-1],
		normalLo: normal[0],
		normalHi: normal[len(normal)-1],
	}

	bucket := 0
	for k := 0; bucket < len(black); k++ {
		t := float64(k) * dt
		if t >= tenors[bucket] {
			bucket++
			if bucket >= len(black) {
				break
			}
		}
		g.ts = append(g.ts, t)
		g.black = append(g.black, black[bucket])
		g.normal = append(g.normal, normal[bucket])
	}

	if len(g.ts) > 1 {
		g.mids = make([]float64, len(g.ts)-1)
		for i := range g.mids {
			g.mids[i] = (g.ts[i] + g.ts[i+1]) / 2
		}
	}
	return g
}

// lookup 最近邻查找，恰在中点时取较低的网格点；低于首个网格点取 lo，高于末个网格点取 hi，T 为 NaN 时返回 NaN。
func (g *volGrid) lookup(values []float64, lo, hi, T float64) float64 {
	if math.IsNaN(T) {
		return math.NaN()
	}
	if len(g.ts) == 0 || T < g.ts[0] {
		return lo
	}
	if T > g.ts[len(g.ts)-1] {
		return hi
	}
	return values[sort.SearchFloat64s(g.mids, T)]
}

// Interp 查询期限 T（年）处的 caplet 波动率。
// 首次成功查询时构建插值网格，之后复用；未剥离时返回 ErrNotStripped。
func (c *VolCurve) Interp(T float64, vt VolType) (float64, error) {
	if vt != VolBlack && vt != VolNormal {
		return 0, xerrors.ErrUnsupportedVolType.Clone().WithContext("vol_type", string(vt))
	}
	if c.state != stateStripped {
		return 0, xerrors.ErrNotStripped.Clone()
	}

	c.gridOnce.Do(func() {
		c.grid = buildGrid(c.tenors, c.capletBlackVols, c.capletNormalVols, c.opts.gridStep)
	})

	if vt == VolBlack {
		return c.grid.lookup(c.grid.black, c.grid.blackLo, c.grid.blackHi, T), nil
	}
	return c.grid.lookup(c.grid.normal, c.grid.normalLo, c.grid.normalHi, T), nil
}

// GridSize 返回已构建网格的点数，尚未构建时为 0。
func (c *VolCurve) GridSize() int {
	if c.grid == nil {
		return 0
	}
	return len(c.grid.ts)
}
