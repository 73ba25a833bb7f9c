package monitor

import (
	"strings"
	"sync"
	"time"

	"bookpulse/internal/application/port"
	"bookpulse/internal/domain/model"

	"github.com/shopspring/decimal"
)

type fakeSub struct {
	key  model.ChannelKey
	q    chan model.Snapshot
	once sync.Once
	m    *fakeMarket
}

func (s *fakeSub) Key() model.ChannelKey     { return s.key }
func (s *fakeSub) C() <-chan model.Snapshot { return s.q }
func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() {
		s.m.mu.Lock()
		defer s.m.mu.Unlock()
		delete(s.m.subs, s.key)
		close(s.q)
	})
}

type fakeMarket struct {
	mu      sync.Mutex
	subs    map[model.ChannelKey]*fakeSub
	history []model.Snapshot
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{subs: make(map[model.ChannelKey]*fakeSub)}
}

func (m *fakeMarket) Subscribe(venue, symbol string) (port.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model.NewChannelKey(venue, symbol)
	s := &fakeSub{key: key, q: make(chan model.Snapshot, 16), m: m}
	m.subs[key] = s
	return s, nil
}

func (m *fakeMarket) push(s model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, s)
	if sub, ok := m.subs[model.NewChannelKey(s.Venue, s.Symbol)]; ok {
		sub.q <- s
	}
}

func (m *fakeMarket) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *fakeMarket) AggregatedHistory(keys ...model.ChannelKey) []model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Snapshot(nil), m.history...)
}

func (m *fakeMarket) States() map[model.ChannelKey]model.ChannelState { return nil }
func (m *fakeMarket) DisconnectAll()                                  {}

type fakeSink struct {
	mu    sync.Mutex
	live  []string
	snaps []string
}

func (s *fakeSink) WriteLive(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, line)
	return nil
}

func (s *fakeSink) WriteSnapshot(_ time.Time, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, line)
	return nil
}

func (s *fakeSink) NewLine() error { return nil }

func (s *fakeSink) lastLive() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.live) == 0 {
		return ""
	}
	return s.live[len(s.live)-1]
}

func (s *fakeSink) contains(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.live {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func lv(price, qty string) model.PriceLevel {
	return model.PriceLevel{Price: decimal.RequireFromString(price), Quantity: decimal.RequireFromString(qty)}
}

func book(venue string, bid, ask string, synthetic bool) model.Snapshot {
	return model.Snapshot{
		Venue:      venue,
		Symbol:     "BTCUSDT",
		Bids:       []model.PriceLevel{lv(bid, "1"), lv("98", "6"), lv("97", "1"), lv("96", "1")},
		Asks:       []model.PriceLevel{lv(ask, "1"), lv("102", "1"), lv("103", "1")},
		ObservedAt: time.Now(),
		Synthetic:  synthetic,
	}
}
