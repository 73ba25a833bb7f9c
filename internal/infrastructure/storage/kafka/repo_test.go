package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bookpulse/internal/application/port"
	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/storage"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter implements the same methods as *kafka.Writer
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, m ...kafka.Message) error {
	f.msgs = append(f.msgs, m...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func rec() port.SignalRecord {
	return port.SignalRecord{
		RunID:  "abc",
		Symbol: "BTCUSDT",
		Ts:     1700000000000,
		Zones: []model.PressureZone{
			{Price: decimal.NewFromInt(65000), Volume: decimal.NewFromInt(2), Intensity: 0.9, Side: model.SideSupport},
		},
	}
}

func TestPublishSummaryAndZones(t *testing.T) {
	w := &fakeWriter{}
	r := NewWithWriter(w)
	ctx := context.Background()

	require.NoError(t, r.UpsertLatestSummary(ctx, rec()))
	require.NoError(t, r.InsertZones(ctx, rec()))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "BTCUSDT", string(w.msgs[0].Key))
	assert.Equal(t, "summary", string(w.msgs[0].Headers[0].Value))

	var zones []storage.ZoneRow
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, "65000", zones[0].Price)

	require.NoError(t, r.Close())
	assert.True(t, w.closed)
}

func TestSkipEmptyZones(t *testing.T) {
	w := &fakeWriter{}
	r := NewWithWriter(w)
	empty := rec()
	empty.Zones = nil
	require.NoError(t, r.InsertZones(context.Background(), empty))
	assert.Empty(t, w.msgs)
}

func TestWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	r := NewWithWriter(w)
	assert.Error(t, r.UpsertLatestSummary(context.Background(), rec()))
}
