package bybit

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

const depth = 50

// BookAdapter Bybit v5 orderbook.50.<SYMBOL>，只使用 snapshot 消息
type BookAdapter struct {
	converter exchange.SymbolConverter
}

func NewBookAdapter(quote string) *BookAdapter {
	return &BookAdapter{converter: exchange.NewCommonSymbolConverter(quote)}
}

func (a *BookAdapter) Name() string { return application.ExchangeBybit }

func (a *BookAdapter) topic(symbol string) string {
	return fmt.Sprintf("orderbook.%d.%s", depth, exchange.VenueSymbol(a.converter, symbol))
}

// StreamURL e.g. wss://stream.bybit.com/v5/public/spot
func (a *BookAdapter) StreamURL(base, symbol string) (string, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", errors.New("bybit symbol empty")
	}
	return exchange.TrimURL(base)
}

type subReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

func (a *BookAdapter) SubscribeMessage(symbol string) ([]byte, error) {
	return json.Marshal(subReq{Op: "subscribe", Args: []string{a.topic(symbol)}})
}

type bookData struct {
	Symbol string              `json:"s"`
	Bids   [][]json.RawMessage `json:"b"`
	Asks   [][]json.RawMessage `json:"a"`
}

type bookMsg struct {
	Topic string   `json:"topic"`
	Type  string   `json:"type"`
	Ts    int64    `json:"ts"`
	Data  bookData `json:"data"`

	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
	Op      string `json:"op,omitempty"`
}

func (a *BookAdapter) Decode(raw []byte, symbol string, observedAt time.Time) (model.Snapshot, error) {
	var msg bookMsg
	if err := exchange.ParseJSON(raw, &msg); err != nil {
		return model.Snapshot{}, fmt.Errorf("bybit: %w", err)
	}
	// 订阅回执、pong 以及增量消息都不产生快照
	if msg.Op != "" || msg.Success != nil || msg.Type != "snapshot" {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	return exchange.Normalize(exchange.NewRawBook(msg.Data.Bids, msg.Data.Asks), symbol, a.Name(), observedAt)
}
