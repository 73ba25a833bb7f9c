package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookpulse/internal/application"
	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/exchange"
)

// BookAdapter Binance 部分深度流 <symbol>@depth20@100ms
type BookAdapter struct {
	converter exchange.SymbolConverter
}

// NewBookAdapter 使用自定义quote创建 Binance 订单簿适配器
func NewBookAdapter(quote string) *BookAdapter {
	return &BookAdapter{converter: exchange.NewCommonSymbolConverter(quote)}
}

func (a *BookAdapter) Name() string { return application.ExchangeBinance }

func (a *BookAdapter) stream(symbol string) string {
	return strings.ToLower(exchange.VenueSymbol(a.converter, symbol)) + "@depth20@100ms"
}

// StreamURL e.g. wss://stream.binance.com:9443/ws/btcusdt@depth20@100ms
func (a *BookAdapter) StreamURL(base, symbol string) (string, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", errors.New("binance symbol empty")
	}
	return exchange.BuildQueryURL(base, "/ws/"+a.stream(symbol), "")
}

// SubscribeMessage 订阅已编码在地址中
func (a *BookAdapter) SubscribeMessage(string) ([]byte, error) { return nil, nil }

// 现货部分深度使用 bids/asks，合约深度使用 b/a
type depthMsg struct {
	Bids [][]json.RawMessage `json:"bids"`
	Asks [][]json.RawMessage `json:"asks"`
	B    [][]json.RawMessage `json:"b"`
	A    [][]json.RawMessage `json:"a"`

	ID     *int64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (a *BookAdapter) Decode(raw []byte, symbol string, observedAt time.Time) (model.Snapshot, error) {
	if exchange.IsPong(raw) {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	var msg depthMsg
	if err := exchange.ParseJSON(raw, &msg); err != nil {
		return model.Snapshot{}, fmt.Errorf("binance: %w", err)
	}
	if msg.ID != nil {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	bids, asks := msg.Bids, msg.Asks
	if bids == nil && asks == nil {
		bids, asks = msg.B, msg.A
	}
	return exchange.Normalize(exchange.NewRawBook(bids, asks), symbol, a.Name(), observedAt)
}
