package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func pl(price, qty int64) PriceLevel {
	return PriceLevel{Price: decimal.NewFromInt(price), Quantity: decimal.NewFromInt(qty)}
}

func TestSnapshotValidate(t *testing.T) {
	ok := Snapshot{
		Bids: []PriceLevel{pl(100, 1), pl(99, 2)},
		Asks: []PriceLevel{pl(101, 1), pl(102, 2)},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	badBids := Snapshot{Bids: []PriceLevel{pl(99, 1), pl(100, 1)}}
	if err := badBids.Validate(); !errors.Is(err, ErrBidsNotDesc) {
		t.Errorf("expected ErrBidsNotDesc, got %v", err)
	}

	badAsks := Snapshot{Asks: []PriceLevel{pl(101, 1), pl(101, 1)}}
	if err := badAsks.Validate(); !errors.Is(err, ErrAsksNotAsc) {
		t.Errorf("expected ErrAsksNotAsc, got %v", err)
	}

	zero := Snapshot{Asks: []PriceLevel{pl(101, 0)}}
	if err := zero.Validate(); !errors.Is(err, ErrNonPositiveLevel) {
		t.Errorf("expected ErrNonPositiveLevel, got %v", err)
	}
}

func TestSnapshotLabel(t *testing.T) {
	s := Snapshot{Venue: "okx"}
	if s.Label() != "okx" {
		t.Errorf("unexpected label %q", s.Label())
	}
	s.Synthetic = true
	if s.Label() != "okx (synthetic)" {
		t.Errorf("unexpected label %q", s.Label())
	}
}

func TestChannelKey(t *testing.T) {
	k := NewChannelKey(" Binance ", "btcusdt")
	if k.String() != "binance:BTCUSDT" {
		t.Errorf("unexpected key %q", k.String())
	}
	if !k.Valid() {
		t.Errorf("expected valid key")
	}
	if NewChannelKey("", "BTC").Valid() {
		t.Errorf("expected invalid key")
	}
}

func TestBestPrices(t *testing.T) {
	var s Snapshot
	if _, ok := s.BestBid(); ok {
		t.Errorf("expected no best bid")
	}
	s.Asks = []PriceLevel{pl(101, 1)}
	if p, ok := s.BestAsk(); !ok || !p.Equal(decimal.NewFromInt(101)) {
		t.Errorf("unexpected best ask %v %v", p, ok)
	}
}
