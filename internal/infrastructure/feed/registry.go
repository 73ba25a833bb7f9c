package feed

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"bookpulse/internal/application/port"
	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/websocket"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidKey   = errors.New("feed: venue and symbol are required")
	ErrUnknownVenue = errors.New("feed: unknown venue")
)

// Venue 一个可用的交易所数据源
type Venue struct {
	Adapter port.BookAdapter
	BaseURL string
}

// Registry 管理所有通道，是唯一可以创建和销毁通道的地方
// 由应用上下文持有并显式传递
type Registry struct {
	opts    Options
	dialer  websocket.Dialer
	gen     *Generator
	history *History
	venues  map[string]Venue

	mu       sync.Mutex
	channels map[model.ChannelKey]*Channel
}

var _ port.MarketData = (*Registry)(nil)

func NewRegistry(opts Options, dialer websocket.Dialer, gen *Generator, venues ...Venue) *Registry {
	opts = opts.withDefaults()
	if gen == nil {
		gen = NewGenerator(nil, opts.Now)
	}
	r := &Registry{
		opts:     opts,
		dialer:   dialer,
		gen:      gen,
		history:  NewHistory(opts.HistoryLength),
		venues:   make(map[string]Venue, len(venues)),
		channels: make(map[model.ChannelKey]*Channel),
	}
	for _, v := range venues {
		if v.Adapter == nil {
			continue
		}
		r.venues[strings.ToLower(strings.TrimSpace(v.Adapter.Name()))] = v
	}
	return r
}

// Subscribe 订阅 (venue, symbol)，第一个订阅者会启动通道
func (r *Registry) Subscribe(venue, symbol string) (port.Subscription, error) {
	key := model.NewChannelKey(venue, symbol)
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.venues[key.Venue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, key.Venue)
	}

	ch, ok := r.channels[key]
	if !ok {
		ch = newChannel(key, v, r.dialer, r.opts, r.gen, r.history.ring(key))
		r.channels[key] = ch
	}

	id, q, n := ch.attach()
	if n == 1 {
		ch.Start()
		log.Info().Str("key", key.String()).Msg("channel started")
	}
	return &Subscription{key: key, id: id, ch: ch, reg: r, q: q}, nil
}

func (r *Registry) release(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[s.key]
	if !ok || ch != s.ch {
		// 通道已被 DisconnectAll 关闭
		return
	}
	if ch.detach(s.id) > 0 {
		return
	}
	delete(r.channels, s.key)
	ch.Close()
	r.history.remove(s.key)
}

// DisconnectAll 关闭所有通道并清空注册表，进程退出时调用
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, ch := range r.channels {
		ch.Close()
		ch.detachAll()
		r.history.remove(key)
		delete(r.channels, key)
	}
	log.Info().Msg("all channels disconnected")
}

// AggregatedHistory 合并指定通道的历史，按时间升序
func (r *Registry) AggregatedHistory(keys ...model.ChannelKey) []model.Snapshot {
	norm := make([]model.ChannelKey, len(keys))
	for i, k := range keys {
		norm[i] = model.NewChannelKey(k.Venue, k.Symbol)
	}
	return r.history.Combine(norm...)
}

// States 各通道当前状态
func (r *Registry) States() map[model.ChannelKey]model.ChannelState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.ChannelKey]model.ChannelState, len(r.channels))
	for k, ch := range r.channels {
		out[k] = ch.State()
	}
	return out
}

// Venues 已配置的交易所
func (r *Registry) Venues() []string {
	names := make([]string, 0, len(r.venues))
	for n := range r.venues {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) channel(key model.ChannelKey) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[key]
}

// Subscription 单个订阅句柄
type Subscription struct {
	key  model.ChannelKey
	id   uint64
	ch   *Channel
	reg  *Registry
	q    chan model.Snapshot
	once sync.Once
}

func (s *Subscription) Key() model.ChannelKey { return s.key }

// C 快照队列，取消订阅后关闭
func (s *Subscription) C() <-chan model.Snapshot { return s.q }

// Unsubscribe 幂等
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.reg.release(s) })
}
