package feed

import (
	"testing"
	"time"

	"bookpulse/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapAt(venue string, ts time.Time) model.Snapshot {
	return model.Snapshot{Venue: venue, Symbol: "BTCUSDT", ObservedAt: ts}
}

func TestRingEvictsOldest(t *testing.T) {
	r := newRing(3)
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		r.push(snapAt("a", base.Add(time.Duration(i)*time.Second)))
	}
	got := r.snapshots()
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(2*time.Second), got[0].ObservedAt)
	assert.Equal(t, base.Add(4*time.Second), got[2].ObservedAt)
}

func TestRingCopyIsStable(t *testing.T) {
	r := newRing(2)
	r.push(snapAt("a", time.Unix(1, 0)))
	got := r.snapshots()
	r.push(snapAt("a", time.Unix(2, 0)))
	r.push(snapAt("a", time.Unix(3, 0)))
	require.Len(t, got, 1)
	assert.Equal(t, time.Unix(1, 0), got[0].ObservedAt)
}

func TestCombineSortsAndTruncates(t *testing.T) {
	h := NewHistory(4)
	ka := model.NewChannelKey("a", "BTCUSDT")
	kb := model.NewChannelKey("b", "BTCUSDT")
	base := time.Unix(100, 0)

	h.ring(ka).push(snapAt("a", base.Add(1*time.Second)))
	h.ring(ka).push(snapAt("a", base.Add(3*time.Second)))
	h.ring(ka).push(snapAt("a", base.Add(5*time.Second)))
	h.ring(kb).push(snapAt("b", base.Add(2*time.Second)))
	h.ring(kb).push(snapAt("b", base.Add(4*time.Second)))
	h.ring(kb).push(snapAt("b", base.Add(6*time.Second)))

	got := h.Combine(ka, kb)

	require.Len(t, got, 4)
	for i, want := range []int{3, 4, 5, 6} {
		assert.Equal(t, base.Add(time.Duration(want)*time.Second), got[i].ObservedAt)
	}
	assert.Equal(t, "a", got[0].Venue)
	assert.Equal(t, "b", got[1].Venue)

	assert.Len(t, h.Combine(ka), 3)
	assert.Len(t, h.Combine(), 4)
}

func TestCombineStableOnEqualTimes(t *testing.T) {
	h := NewHistory(10)
	ka := model.NewChannelKey("a", "X")
	kb := model.NewChannelKey("b", "X")
	ts := time.Unix(5, 0)
	h.ring(ka).push(snapAt("a", ts))
	h.ring(kb).push(snapAt("b", ts))

	got := h.Combine(ka, kb)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Venue)
	assert.Equal(t, "b", got[1].Venue)
}

func TestCombineUnknownKey(t *testing.T) {
	h := NewHistory(5)
	got := h.Combine(model.NewChannelKey("none", "X"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
