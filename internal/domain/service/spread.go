package service

import (
	"bookpulse/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 价差分级阈值 (百分比)
const (
	TightSpreadPercent = 0.05
	WideSpreadPercent  = 0.2
)

// SpreadAnalysis 计算最优价差、中间价和松紧分级
// 任一侧为空时返回零值 + Normal
func SpreadAnalysis(s model.Snapshot) model.SpreadSummary {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return model.SpreadSummary{Tightness: model.TightnessNormal}
	}

	spread := ask.Sub(bid)
	mid := ask.Add(bid).Div(decimal.NewFromInt(2))
	out := model.SpreadSummary{
		Spread:    spread.InexactFloat64(),
		MidPrice:  mid.InexactFloat64(),
		Tightness: model.TightnessNormal,
	}
	if mid.IsPositive() {
		out.SpreadPercent = spread.Div(mid).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	switch {
	case out.SpreadPercent < TightSpreadPercent:
		out.Tightness = model.TightnessTight
	case out.SpreadPercent > WideSpreadPercent:
		out.Tightness = model.TightnessWide
	}
	return out
}

// CalculateImbalance (买量-卖量)/(买量+卖量)，总量为 0 时返回 0
func CalculateImbalance(s model.Snapshot) float64 {
	bidVol := decimal.Zero
	for _, l := range s.Bids {
		bidVol = bidVol.Add(l.Quantity)
	}
	askVol := decimal.Zero
	for _, l := range s.Asks {
		askVol = askVol.Add(l.Quantity)
	}
	total := bidVol.Add(askVol)
	if total.IsZero() {
		return 0
	}
	v := bidVol.Sub(askVol).Div(total).InexactFloat64()
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Summarize 价差 + 失衡
func Summarize(s model.Snapshot) model.MarketSummary {
	return model.MarketSummary{
		SpreadSummary: SpreadAnalysis(s),
		Imbalance:     CalculateImbalance(s),
	}
}

// ConsolidatedBook 合并多个交易所的盘口，保留原始价格精度，相同价格数量相加
func ConsolidatedBook(snapshots []model.Snapshot) model.Snapshot {
	bidSide := newLevelGroup(false)
	askSide := newLevelGroup(false)
	var out model.Snapshot
	for _, s := range snapshots {
		for _, l := range s.Bids {
			bidSide.add(l)
		}
		for _, l := range s.Asks {
			askSide.add(l)
		}
		if out.Symbol == "" {
			out.Symbol = s.Symbol
		}
		if s.ObservedAt.After(out.ObservedAt) {
			out.ObservedAt = s.ObservedAt
		}
	}
	out.Bids = bidSide.levels(true)
	out.Asks = askSide.levels(false)
	return out
}

// SummarizeVenues 各交易所最新快照合并后的概览
// 买价高于卖价时标记 Crossed，价差和价差百分比记为 0
func SummarizeVenues(snapshots []model.Snapshot) model.MarketSummary {
	book := ConsolidatedBook(snapshots)
	out := Summarize(book)

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if okBid && okAsk && bid.GreaterThan(ask) {
		out.Crossed = true
		out.Spread = 0
		out.SpreadPercent = 0
		out.Tightness = model.TightnessTight
	}
	return out
}

// ImbalanceColor -1 red, 0 yellow, +1 green (pure decision)
func ImbalanceColor(imbalance, threshold float64) int {
	if imbalance >= threshold {
		return +1
	}
	if imbalance <= -threshold {
		return -1
	}
	return 0
}
