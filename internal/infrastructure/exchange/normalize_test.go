package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"bookpulse/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairs(t *testing.T, s string) [][]json.RawMessage {
	t.Helper()
	var out [][]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestNormalizeSortsAndAccumulates(t *testing.T) {
	now := time.Unix(1700000000, 0)
	raw := NewRawBook(
		pairs(t, `[["99","2"],["100","1"],[98.5,"3"]]`),
		pairs(t, `[["102","1"],["101","4"]]`),
	)

	snap, err := Normalize(raw, "BTCUSDT", "binance", now)

	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	require.Len(t, snap.Bids, 3)
	assert.Equal(t, "100", snap.Bids[0].Price.String())
	assert.Equal(t, "3", snap.Bids[1].CumulativeQuantity.String())
	assert.Equal(t, "6", snap.Bids[2].CumulativeQuantity.String())
	assert.Equal(t, "101", snap.Asks[0].Price.String())
	assert.Equal(t, "5", snap.Asks[1].CumulativeQuantity.String())
	assert.Equal(t, now, snap.ObservedAt)
	assert.Equal(t, "binance", snap.Venue)
	assert.False(t, snap.Synthetic)
}

func TestNormalizeSkipsInvalidLevels(t *testing.T) {
	raw := NewRawBook(
		pairs(t, `[["abc","1"],["100","0"],["-1","2"],["99"],["98","1"],[null,"1"]]`),
		pairs(t, `[["101","1"],["102","x"]]`),
	)

	snap, err := Normalize(raw, "BTCUSDT", "okx", time.Now())

	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, "98", snap.Bids[0].Price.String())
	require.Len(t, snap.Asks, 1)
}

func TestNormalizeDuplicatePriceLastWins(t *testing.T) {
	raw := NewRawBook(pairs(t, `[["100","1"],["100.0","7"]]`), pairs(t, `[]`))

	snap, err := Normalize(raw, "BTCUSDT", "bybit", time.Now())

	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, "7", snap.Bids[0].Quantity.String())
	assert.Empty(t, snap.Asks)
}

func TestNormalizeEmptyPayload(t *testing.T) {
	raw := NewRawBook(pairs(t, `[["0","1"]]`), pairs(t, `[]`))

	_, err := Normalize(raw, "BTCUSDT", "bitget", time.Now())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyPayload))
	assert.False(t, errors.Is(err, ErrMalformedPayload))
	var ne *NormalizationError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "bitget", ne.Venue)
}

func TestNormalizeMalformedPayload(t *testing.T) {
	_, err := Normalize(RawBook{}, "BTCUSDT", "binance", time.Now())
	assert.True(t, errors.Is(err, ErrMalformedPayload))

	_, err = Normalize(NewRawBook(pairs(t, `[["1","1"]]`), nil), "BTCUSDT", "binance", time.Now())
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestSymbolConverters(t *testing.T) {
	common := NewCommonSymbolConverter("usdt")
	assert.Equal(t, "BTCUSDT", VenueSymbol(common, "btc"))
	assert.Equal(t, "BTCUSDT", VenueSymbol(common, "BTCUSDT"))
	assert.Equal(t, "ETH", common.Symbol2Coin("ETHUSDT"))

	dash := NewDashSymbolConverter("USDT")
	assert.Equal(t, "BTC-USDT", VenueSymbol(dash, "BTCUSDT"))
	assert.Equal(t, "BTC-USDT", VenueSymbol(dash, "BTC-USDT"))
	assert.Equal(t, "SOL", dash.Symbol2Coin("SOL-USDT"))
}

func TestBuildQueryURL(t *testing.T) {
	u, err := BuildQueryURL("wss://stream.binance.com:9443/", "/ws/btcusdt@depth20@100ms", "")
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.binance.com:9443/ws/btcusdt@depth20@100ms", u)

	_, err = BuildQueryURL(" ", "/ws", "")
	assert.Error(t, err)
}

// randomPair 生成一个价位，price 取自小网格以制造重复，约一半为非法值
func randomPair(r *rand.Rand, base int) ([]json.RawMessage, string, string, bool) {
	tick := r.Intn(12)
	price := fmt.Sprintf("%d.%d", base+tick/4, (tick%4)*25)
	qty := fmt.Sprintf("%d.%d", r.Intn(5), r.Intn(10))

	encode := func(v string) json.RawMessage {
		if r.Intn(2) == 0 {
			return json.RawMessage(v)
		}
		return json.RawMessage(`"` + v + `"`)
	}

	switch r.Intn(8) {
	case 0:
		return []json.RawMessage{encode(price)}, "", "", false
	case 1:
		return []json.RawMessage{json.RawMessage(`"n/a"`), encode(qty)}, "", "", false
	case 2:
		return []json.RawMessage{encode("-" + price), encode(qty)}, "", "", false
	case 3:
		return []json.RawMessage{encode(price), encode("0")}, "", "", false
	}
	if r.Intn(3) == 0 {
		price += "0"
	}
	d := decimal.RequireFromString(qty)
	return []json.RawMessage{encode(price), encode(qty)}, decimal.RequireFromString(price).String(), qty, d.IsPositive()
}

type genPair struct {
	raw   []json.RawMessage
	price string
	qty   string
	valid bool
}

// randomSide 打乱顺序后按出现顺序计算期望值，重复价位以最后一次为准
func randomSide(r *rand.Rand, base int, anchor string) ([][]json.RawMessage, map[string]string) {
	gen := []genPair{{raw: []json.RawMessage{json.RawMessage(`"` + anchor + `"`), json.RawMessage(`1`)}, price: anchor, qty: "1", valid: true}}
	for i := 0; i < 30; i++ {
		raw, price, qty, ok := randomPair(r, base)
		gen = append(gen, genPair{raw: raw, price: price, qty: qty, valid: ok})
	}
	r.Shuffle(len(gen), func(i, j int) { gen[i], gen[j] = gen[j], gen[i] })

	pairs := make([][]json.RawMessage, 0, len(gen))
	want := make(map[string]string)
	for _, g := range gen {
		pairs = append(pairs, g.raw)
		if g.valid {
			want[g.price] = g.qty
		}
	}
	return pairs, want
}

func TestNormalizeRandomBooksKeepOrdering(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for round := 0; round < 200; round++ {
		bids, wantBids := randomSide(r, 95, "90")
		asks, wantAsks := randomSide(r, 101, "110")

		snap, err := Normalize(NewRawBook(bids, asks), "BTCUSDT", "binance", time.Now())
		require.NoError(t, err, "round %d", round)
		require.NoError(t, snap.Validate(), "round %d", round)

		for side, got := range map[string][]model.PriceLevel{"bids": snap.Bids, "asks": snap.Asks} {
			want := wantBids
			if side == "asks" {
				want = wantAsks
			}
			require.Len(t, got, len(want), "round %d %s", round, side)
			cum := decimal.Zero
			for _, l := range got {
				q, ok := want[l.Price.String()]
				require.True(t, ok, "round %d unexpected %s price %s", round, side, l.Price)
				assert.True(t, l.Quantity.Equal(decimal.RequireFromString(q)), "round %d %s %s", round, side, l.Price)
				cum = cum.Add(l.Quantity)
				assert.True(t, l.CumulativeQuantity.Equal(cum), "round %d %s cumulative", round, side)
			}
		}
	}
}

func TestParseJSON(t *testing.T) {
	var v map[string]any
	assert.ErrorIs(t, ParseJSON([]byte("  \n"), &v), ErrIgnored)

	err := ParseJSON([]byte("{bad"), &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIgnored)

	require.NoError(t, ParseJSON([]byte(` {"a":1} `), &v))
	assert.Equal(t, float64(1), v["a"])
}
