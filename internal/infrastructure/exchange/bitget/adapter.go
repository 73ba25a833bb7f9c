package bitget

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

// BookAdapter Bitget v2 现货 books15
type BookAdapter struct {
	converter exchange.SymbolConverter
	instType  string
}

func NewBookAdapter(quote string) *BookAdapter {
	return &BookAdapter{converter: exchange.NewCommonSymbolConverter(quote), instType: "SPOT"}
}

func (a *BookAdapter) Name() string { return application.ExchangeBitget }

// StreamURL e.g. wss://ws.bitget.com/v2/ws/public
func (a *BookAdapter) StreamURL(base, symbol string) (string, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", errors.New("bitget symbol empty")
	}
	return exchange.TrimURL(base)
}

type subArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

type subReq struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

func (a *BookAdapter) SubscribeMessage(symbol string) ([]byte, error) {
	return json.Marshal(subReq{
		Op: "subscribe",
		Args: []subArg{{
			InstType: a.instType,
			Channel:  "books15",
			InstID:   exchange.VenueSymbol(a.converter, symbol),
		}},
	})
}

type bookData struct {
	Asks [][]json.RawMessage `json:"asks"`
	Bids [][]json.RawMessage `json:"bids"`
	Ts   string              `json:"ts"`
}

type bookMsg struct {
	Event  string     `json:"event,omitempty"`
	Action string     `json:"action,omitempty"`
	Arg    subArg     `json:"arg"`
	Data   []bookData `json:"data"`
}

func (a *BookAdapter) Decode(raw []byte, symbol string, observedAt time.Time) (model.Snapshot, error) {
	if exchange.IsPong(raw) {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	var msg bookMsg
	if err := exchange.ParseJSON(raw, &msg); err != nil {
		return model.Snapshot{}, fmt.Errorf("bitget: %w", err)
	}
	if msg.Event != "" {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	if len(msg.Data) == 0 {
		return exchange.Normalize(exchange.RawBook{}, symbol, a.Name(), observedAt)
	}
	d := msg.Data[len(msg.Data)-1]
	return exchange.Normalize(exchange.NewRawBook(d.Bids, d.Asks), symbol, a.Name(), observedAt)
}
