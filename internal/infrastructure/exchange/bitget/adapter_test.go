package bitget

import (
	"errors"
	"testing"
	"time"

	"bookpulse/internal/infrastructure/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeMessage(t *testing.T) {
	a := NewBookAdapter("USDT")
	msg, err := a.SubscribeMessage("eth")
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"subscribe","args":[{"instType":"SPOT","channel":"books15","instId":"ETHUSDT"}]}`, string(msg))
}

func TestDecodeBooks15(t *testing.T) {
	a := NewBookAdapter("USDT")
	raw := []byte(`{"action":"snapshot","arg":{"instType":"SPOT","channel":"books15","instId":"ETHUSDT"},"data":[{"asks":[["3201.5","2.1"]],"bids":[["3200.1","1.2"],["3200.9","0.5"]],"ts":"1695716059516"}]}`)

	snap, err := a.Decode(raw, "ETHUSDT", time.Now())

	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	assert.Equal(t, "3200.9", snap.Bids[0].Price.String())
}

func TestDecodeEmptyBook(t *testing.T) {
	a := NewBookAdapter("USDT")
	raw := []byte(`{"action":"snapshot","arg":{"channel":"books15"},"data":[{"asks":[],"bids":[]}]}`)
	_, err := a.Decode(raw, "ETHUSDT", time.Now())
	assert.True(t, errors.Is(err, exchange.ErrEmptyPayload))
}

func TestDecodeEvent(t *testing.T) {
	a := NewBookAdapter("USDT")
	_, err := a.Decode([]byte(`{"event":"subscribe","arg":{"instType":"SPOT","channel":"books15","instId":"ETHUSDT"}}`), "ETHUSDT", time.Now())
	assert.True(t, errors.Is(err, exchange.ErrIgnored))
}
