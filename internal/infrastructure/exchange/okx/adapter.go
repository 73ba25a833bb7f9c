package okx

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

const channel = "books5"

// BookAdapter OKX v5 公共频道 books5
type BookAdapter struct {
	converter exchange.SymbolConverter // 符号转换器
}

// NewBookAdapter 例: BTCUSDT -> BTC-USDT
func NewBookAdapter(quote string) *BookAdapter {
	return &BookAdapter{converter: exchange.NewDashSymbolConverter(quote)}
}

func (a *BookAdapter) Name() string { return application.ExchangeOKX }

// StreamURL e.g. wss://ws.okx.com:8443/ws/v5/public
func (a *BookAdapter) StreamURL(base, symbol string) (string, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", errors.New("okx symbol empty")
	}
	return exchange.TrimURL(base)
}

type subReq struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

func (a *BookAdapter) SubscribeMessage(symbol string) ([]byte, error) {
	return json.Marshal(subReq{
		Op:   "subscribe",
		Args: []subArg{{Channel: channel, InstID: exchange.VenueSymbol(a.converter, symbol)}},
	})
}

type bookData struct {
	Asks [][]json.RawMessage `json:"asks"`
	Bids [][]json.RawMessage `json:"bids"`
	Ts   string              `json:"ts"`
}

type bookMsg struct {
	Event string     `json:"event,omitempty"`
	Arg   subArg     `json:"arg"`
	Data  []bookData `json:"data"`
}

func (a *BookAdapter) Decode(raw []byte, symbol string, observedAt time.Time) (model.Snapshot, error) {
	if exchange.IsPong(raw) {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	var msg bookMsg
	if err := exchange.ParseJSON(raw, &msg); err != nil {
		return model.Snapshot{}, fmt.Errorf("okx: %w", err)
	}
	if msg.Event != "" {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	if len(msg.Data) == 0 {
		return exchange.Normalize(exchange.RawBook{}, symbol, a.Name(), observedAt)
	}
	// books5 每条消息只含一个完整快照
	d := msg.Data[len(msg.Data)-1]
	return exchange.Normalize(exchange.NewRawBook(d.Bids, d.Asks), symbol, a.Name(), observedAt)
}
