package model

import "github.com/shopspring/decimal"

// ========== Signal Models ==========

// Side 压力区方向
type Side string

const (
	SideSupport    Side = "support"    // 买盘堆积
	SideResistance Side = "resistance" // 卖盘堆积
)

// PressureZone 成交量显著高于邻近价位的价格区域，仅由分析器产生
type PressureZone struct {
	Price     decimal.Decimal `json:"price"`
	Intensity float64         `json:"intensity"` // [0,1]
	Side      Side            `json:"side"`
	Volume    decimal.Decimal `json:"volume"`
}

// Tightness 价差松紧分级
type Tightness string

const (
	TightnessTight  Tightness = "tight"
	TightnessNormal Tightness = "normal"
	TightnessWide   Tightness = "wide"
)

// SpreadSummary 价差分析结果
type SpreadSummary struct {
	Spread        float64   `json:"spread"`
	SpreadPercent float64   `json:"spread_percent"`
	MidPrice      float64   `json:"mid_price"`
	Tightness     Tightness `json:"tightness"`
}

// MarketSummary 市场概览 = 价差 + 买卖失衡
type MarketSummary struct {
	SpreadSummary
	Imbalance float64 `json:"imbalance"` // [-1,1]
	// Crossed 跨交易所合并后最优买价高于最优卖价，价差按 0 计
	Crossed bool `json:"crossed"`
}
