package service

import (
	"sort"

	"bookpulse/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 压力区启发式参数，数值沿用既有行为，不做重新标定
const (
	ZonePricePrecision   = 2
	SpikeThresholdFactor = 1.5
	NeighborFactor       = 1.3
	IntensityScale       = 3.0
	MinIntensity         = 0.3
	MergeDistance        = 0.001
)

var mergeDistance = decimal.NewFromFloat(MergeDistance)

// AnalyzePressureZones 从聚合后的快照序列中找出支撑/阻力区，按强度降序
// 输入为空时返回空切片，从不报错
func AnalyzePressureZones(snapshots []model.Snapshot) []model.PressureZone {
	zones := []model.PressureZone{}
	if len(snapshots) == 0 {
		return zones
	}

	bids, asks := AggregateLevels(snapshots)
	zones = append(zones, MergeNearby(FindSpikes(bids, model.SideSupport))...)
	zones = append(zones, MergeNearby(FindSpikes(asks, model.SideResistance))...)

	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Intensity > zones[j].Intensity
	})
	return zones
}

// AggregateLevels 按两位小数取整后的价格分组并累加数量
// bids 价格降序，asks 价格升序，累计数量重新计算
func AggregateLevels(snapshots []model.Snapshot) (bids, asks []model.PriceLevel) {
	bidSide := newLevelGroup(true)
	askSide := newLevelGroup(true)
	for _, s := range snapshots {
		for _, l := range s.Bids {
			bidSide.add(l)
		}
		for _, l := range s.Asks {
			askSide.add(l)
		}
	}
	return bidSide.levels(true), askSide.levels(false)
}

type levelGroup struct {
	round bool
	order []string
	byKey map[string]*model.PriceLevel
}

// round 为 false 时按原始价格分组
func newLevelGroup(round bool) *levelGroup {
	return &levelGroup{round: round, byKey: make(map[string]*model.PriceLevel)}
}

func (g *levelGroup) add(l model.PriceLevel) {
	price := l.Price
	key := price.String()
	if g.round {
		price = price.Round(ZonePricePrecision)
		key = price.StringFixed(ZonePricePrecision)
	}
	if cur, ok := g.byKey[key]; ok {
		cur.Quantity = cur.Quantity.Add(l.Quantity)
		if l.ObservedAt.After(cur.ObservedAt) {
			cur.ObservedAt = l.ObservedAt
		}
		return
	}
	g.order = append(g.order, key)
	g.byKey[key] = &model.PriceLevel{
		Price:      price,
		Quantity:   l.Quantity,
		ObservedAt: l.ObservedAt,
	}
}

func (g *levelGroup) levels(desc bool) []model.PriceLevel {
	out := make([]model.PriceLevel, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	cum := decimal.Zero
	for i := range out {
		cum = cum.Add(out[i].Quantity)
		out[i].CumulativeQuantity = cum
	}
	return out
}

// FindSpikes 找出数量明显高于均值且高于左右相邻价位的内部价位
func FindSpikes(levels []model.PriceLevel, side model.Side) []model.PressureZone {
	zones := []model.PressureZone{}
	if len(levels) < 3 {
		return zones
	}

	qty := make([]float64, len(levels))
	var total float64
	for i, l := range levels {
		qty[i] = l.Quantity.InexactFloat64()
		total += qty[i]
	}
	avg := total / float64(len(levels))
	if avg <= 0 {
		return zones
	}
	threshold := avg * SpikeThresholdFactor

	for i := 1; i < len(levels)-1; i++ {
		q := qty[i]
		if q <= threshold || q <= NeighborFactor*qty[i-1] || q <= NeighborFactor*qty[i+1] {
			continue
		}
		intensity := q / (avg * IntensityScale)
		if intensity > 1 {
			intensity = 1
		}
		if intensity < MinIntensity {
			continue
		}
		zones = append(zones, model.PressureZone{
			Price:     levels[i].Price,
			Intensity: intensity,
			Side:      side,
			Volume:    levels[i].Quantity,
		})
	}
	return zones
}

// MergeNearby 单次从左到右贪心合并相距不超过 0.1% 的同侧压力区
// 价格按成交量加权，强度取最大值
func MergeNearby(zones []model.PressureZone) []model.PressureZone {
	merged := []model.PressureZone{}
	if len(zones) == 0 {
		return merged
	}

	sorted := make([]model.PressureZone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.LessThan(sorted[j].Price)
	})

	running := sorted[0]
	for _, next := range sorted[1:] {
		if next.Side == running.Side && near(running.Price, next.Price) {
			running = mergeZones(running, next)
			continue
		}
		merged = append(merged, running)
		running = next
	}
	return append(merged, running)
}

func near(p1, p2 decimal.Decimal) bool {
	if !p1.IsPositive() {
		return false
	}
	return p2.Sub(p1).Abs().Div(p1).LessThanOrEqual(mergeDistance)
}

func mergeZones(a, b model.PressureZone) model.PressureZone {
	volume := a.Volume.Add(b.Volume)
	price := a.Price
	if volume.IsPositive() {
		price = a.Price.Mul(a.Volume).Add(b.Price.Mul(b.Volume)).Div(volume)
	}
	intensity := a.Intensity
	if b.Intensity > intensity {
		intensity = b.Intensity
	}
	return model.PressureZone{
		Price:     price,
		Intensity: intensity,
		Side:      a.Side,
		Volume:    volume,
	}
}
