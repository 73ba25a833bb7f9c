package monitor

import (
	"context"
	"testing"
	"time"

	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRunRecordsSignals(t *testing.T) {
	market := newFakeMarket()
	sink := &fakeSink{}
	repo := storage.NewMemory(100)

	svc := NewService(ServiceDeps{
		Market:        market,
		Venues:        []string{"binance", "okx"},
		Symbol:        "BTCUSDT",
		AnalysisEvery: 10 * time.Millisecond,
		SnapshotEvery: time.Hour,
		Sink:          sink,
		Repo:          repo,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return market.active() == 2 }, time.Second, 5*time.Millisecond)
	market.push(book("binance", "99", "101", false))
	market.push(book("okx", "99.5", "100.5", true))

	require.Eventually(t, func() bool {
		_, ok := repo.Latest("BTCUSDT")
		return ok && len(repo.Zones()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	latest, _ := repo.Latest("BTCUSDT")
	assert.Equal(t, svc.RunID(), latest.RunID)
	assert.Equal(t, []string{"binance", "okx"}, latest.Venues)
	assert.InDelta(t, 100.0, latest.MidPrice, 1e-9)

	zones := repo.Zones()
	assert.Equal(t, string(model.SideSupport), zones[0].Side)
	assert.True(t, decimal.RequireFromString(zones[0].Price).Equal(decimal.NewFromInt(98)), zones[0].Price)

	assert.Eventually(t, func() bool { return sink.contains("okx(S)") }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 0, market.active(), "subscriptions released on exit")
}

func TestRecordThrottled(t *testing.T) {
	repo := storage.NewMemory(100)
	svc := NewService(ServiceDeps{
		Market:  newFakeMarket(),
		Venues:  []string{"binance"},
		Symbol:  "BTCUSDT",
		Sink:    &fakeSink{},
		Repo:    repo,
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	})
	svc.State().Apply(book("binance", "99", "101", false))

	ctx := context.Background()
	svc.record(ctx, Analysis{Zones: []model.PressureZone{{Side: model.SideSupport}}})
	svc.record(ctx, Analysis{Zones: []model.PressureZone{{Side: model.SideSupport}}})

	assert.Len(t, repo.Zones(), 1)
}

func TestRecordSkipsWithoutData(t *testing.T) {
	repo := storage.NewMemory(100)
	svc := NewService(ServiceDeps{Market: newFakeMarket(), Venues: []string{"binance"}, Symbol: "BTCUSDT", Sink: &fakeSink{}, Repo: repo})
	svc.record(context.Background(), Analysis{})
	_, ok := repo.Latest("BTCUSDT")
	assert.False(t, ok)
}

func TestRunWithoutVenues(t *testing.T) {
	svc := NewService(ServiceDeps{Market: newFakeMarket(), Sink: &fakeSink{}})
	assert.ErrorIs(t, svc.Run(context.Background()), ErrNoVenues)
}

func TestAnalyzeSubDollarSummary(t *testing.T) {
	svc := NewService(ServiceDeps{Market: newFakeMarket(), Venues: []string{"binance"}, Symbol: "XRPUSDT", Sink: &fakeSink{}})
	svc.State().Apply(model.Snapshot{
		Venue:  "binance",
		Symbol: "XRPUSDT",
		Bids:   []model.PriceLevel{lv("0.601", "1000"), lv("0.600", "500")},
		Asks:   []model.PriceLevel{lv("0.604", "800"), lv("0.605", "200")},
	})

	a := svc.analyze(nil)

	assert.InDelta(t, 0.003, a.Summary.Spread, 1e-12)
	assert.InDelta(t, 0.4979, a.Summary.SpreadPercent, 1e-3)
	assert.Equal(t, model.TightnessWide, a.Summary.Tightness)
	assert.False(t, a.Summary.Crossed)
}

func TestAnalyzeCrossedVenues(t *testing.T) {
	svc := NewService(ServiceDeps{Market: newFakeMarket(), Venues: []string{"binance", "okx"}, Symbol: "BTCUSDT", Sink: &fakeSink{}})
	svc.State().Apply(model.Snapshot{Venue: "binance", Bids: []model.PriceLevel{lv("100.30", "1")}, Asks: []model.PriceLevel{lv("100.40", "1")}})
	svc.State().Apply(model.Snapshot{Venue: "okx", Bids: []model.PriceLevel{lv("100.00", "1")}, Asks: []model.PriceLevel{lv("100.10", "1")}})

	a := svc.analyze(nil)

	assert.True(t, a.Summary.Crossed)
	assert.Equal(t, 0.0, a.Summary.Spread)
	assert.Contains(t, NewFormatter("BTCUSDT", DefaultImbalanceThreshold).Render(svc.State(), a, RenderSnapshot), "crossed")
}
