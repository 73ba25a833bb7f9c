package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ========== Order Book Models ==========

// PriceLevel 订单簿单个价位
type PriceLevel struct {
	Price              decimal.Decimal `json:"price"`
	Quantity           decimal.Decimal `json:"quantity"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"` // 从最优价向外的累计数量
	ObservedAt         time.Time       `json:"observed_at"`
}

// Snapshot 某一时刻某交易所的标准化订单簿
// Bids 价格严格递减，Asks 价格严格递增；创建后不再修改
type Snapshot struct {
	Venue      string       `json:"venue"`
	Symbol     string       `json:"symbol"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	ObservedAt time.Time    `json:"observed_at"`
	Synthetic  bool         `json:"synthetic"` // 降级模式下生成的模拟数据
}

// Label 返回展示用的交易所标签，模拟数据会带上 (synthetic)
func (s Snapshot) Label() string {
	if s.Synthetic {
		return s.Venue + " (synthetic)"
	}
	return s.Venue
}

// Key 返回该快照所属的通道
func (s Snapshot) Key() ChannelKey {
	return NewChannelKey(s.Venue, s.Symbol)
}

// BestBid 最优买价，买盘为空时 ok=false
func (s Snapshot) BestBid() (decimal.Decimal, bool) {
	if len(s.Bids) == 0 {
		return decimal.Zero, false
	}
	return s.Bids[0].Price, true
}

// BestAsk 最优卖价，卖盘为空时 ok=false
func (s Snapshot) BestAsk() (decimal.Decimal, bool) {
	if len(s.Asks) == 0 {
		return decimal.Zero, false
	}
	return s.Asks[0].Price, true
}

var (
	ErrNonPositiveLevel = errors.New("price level must have positive price and quantity")
	ErrBidsNotDesc      = errors.New("bids not strictly descending")
	ErrAsksNotAsc       = errors.New("asks not strictly ascending")
)

// Validate 检查价位为正以及两侧排序不变量
func (s Snapshot) Validate() error {
	for i, l := range s.Bids {
		if !l.Price.IsPositive() || !l.Quantity.IsPositive() {
			return fmt.Errorf("bid %d: %w", i, ErrNonPositiveLevel)
		}
		if i > 0 && !l.Price.LessThan(s.Bids[i-1].Price) {
			return fmt.Errorf("bid %d: %w", i, ErrBidsNotDesc)
		}
	}
	for i, l := range s.Asks {
		if !l.Price.IsPositive() || !l.Quantity.IsPositive() {
			return fmt.Errorf("ask %d: %w", i, ErrNonPositiveLevel)
		}
		if i > 0 && !l.Price.GreaterThan(s.Asks[i-1].Price) {
			return fmt.Errorf("ask %d: %w", i, ErrAsksNotAsc)
		}
	}
	return nil
}

// ChannelKey 标识一个逻辑数据源 (venue, symbol)
type ChannelKey struct {
	Venue  string `json:"venue"`
	Symbol string `json:"symbol"`
}

// NewChannelKey 规范化 venue 为小写、symbol 为大写
func NewChannelKey(venue, symbol string) ChannelKey {
	return ChannelKey{
		Venue:  strings.ToLower(strings.TrimSpace(venue)),
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
	}
}

func (k ChannelKey) Valid() bool { return k.Venue != "" && k.Symbol != "" }

func (k ChannelKey) String() string { return k.Venue + ":" + k.Symbol }

// ChannelState 通道连接状态
type ChannelState int

const (
	StateIdle ChannelState = iota
	StateConnecting
	StateLive
	StateReconnecting
	StateDegraded
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateLive:
		return "LIVE"
	case StateReconnecting:
		return "RECONNECTING"
	case StateDegraded:
		return "DEGRADED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
