package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookpulse/internal/application/port"
	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/exchange"
	"bookpulse/internal/infrastructure/metrics"
	"bookpulse/internal/infrastructure/websocket"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Channel 单个 (venue, symbol) 的数据源
// 连接、重连、降级都在 run goroutine 中完成，快照按接收顺序写入历史并分发
type Channel struct {
	key     model.ChannelKey
	adapter port.BookAdapter
	baseURL string
	dialer  websocket.Dialer
	opts    Options
	gen     *Generator
	ring    *ring
	log     zerolog.Logger

	mu       sync.Mutex
	subs     map[uint64]chan model.Snapshot
	nextID   uint64
	state    model.ChannelState
	attempts int

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newChannel(key model.ChannelKey, v Venue, dialer websocket.Dialer, opts Options, gen *Generator, r *ring) *Channel {
	c := &Channel{
		key:     key,
		adapter: v.Adapter,
		baseURL: v.BaseURL,
		dialer:  dialer,
		opts:    opts,
		gen:     gen,
		ring:    r,
		subs:    make(map[uint64]chan model.Snapshot),
		log:     log.With().Str("venue", key.Venue).Str("symbol", key.Symbol).Logger(),
	}
	c.publishState(model.StateIdle)
	return c
}

func (c *Channel) Key() model.ChannelKey { return c.key }

func (c *Channel) State() model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts 当前连续重连次数，连接成功后归零
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Channel) setState(s model.ChannelState) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("channel state")
	}
	c.publishState(s)
}

func (c *Channel) publishState(s model.ChannelState) {
	metrics.ChannelState.WithLabelValues(c.key.Venue, c.key.Symbol).Set(float64(s))
}

// attach 增加一个订阅队列
func (c *Channel) attach() (uint64, chan model.Snapshot, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	q := make(chan model.Snapshot, c.opts.SubscriberBuffer)
	c.subs[id] = q
	n := len(c.subs)
	metrics.ActiveSubscribers.WithLabelValues(c.key.Venue, c.key.Symbol).Set(float64(n))
	return id, q, n
}

// detach 移除并关闭订阅队列，返回剩余订阅数
// 释放一个未挂载的句柄属于调用方缺陷，直接 panic
func (c *Channel) detach(id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.subs[id]
	if !ok {
		panic(fmt.Sprintf("feed: subscriber count underflow on %s", c.key))
	}
	delete(c.subs, id)
	close(q)
	n := len(c.subs)
	metrics.ActiveSubscribers.WithLabelValues(c.key.Venue, c.key.Symbol).Set(float64(n))
	return n
}

// detachAll 关闭全部订阅队列
func (c *Channel) detachAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, q := range c.subs {
		delete(c.subs, id)
		close(q)
	}
	metrics.ActiveSubscribers.WithLabelValues(c.key.Venue, c.key.Symbol).Set(0)
}

// Start Idle -> Connecting
func (c *Channel) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil || c.state == model.StateClosed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Close 停止连接和所有定时器，返回时不会再有快照写入或分发
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cancel, done := c.cancel, c.done
		c.mu.Unlock()
		if cancel != nil {
			cancel()
			<-done
		}
		c.setState(model.StateClosed)
		c.log.Info().Msg("channel closed")
	})
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	for {
		if ctx.Err() != nil {
			return
		}
		c.setState(model.StateConnecting)
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Int("attempt", c.Attempts()).Msg("ws connect failed")
			if !c.backoff(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.attempts = 0
		c.mu.Unlock()
		c.setState(model.StateLive)
		c.log.Info().Msg("ws connected")

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		if websocket.IsAbnormalClose(err) {
			c.log.Warn().Err(err).Msg("ws disconnected, reconnecting")
		} else {
			c.log.Info().Msg("ws closed by venue, reconnecting")
		}
		if !c.backoff(ctx) {
			return
		}
	}
}

func (c *Channel) connect(ctx context.Context) (websocket.Conn, error) {
	url, err := c.adapter.StreamURL(c.baseURL, c.key.Symbol)
	if err != nil {
		return nil, fmt.Errorf("stream url: %w", err)
	}
	c.log.Debug().Str("url", url).Msg("ws connecting")

	dctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()
	conn, err := c.dialer.Dial(dctx, url)
	if err != nil {
		return nil, err
	}

	sub, err := c.adapter.SubscribeMessage(c.key.Symbol)
	if err == nil && sub != nil {
		err = conn.WriteMessage(sub)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return conn, nil
}

// backoff 进入 Reconnecting 并等待退避；达到上限时转入降级模式
// 返回 false 表示 run 应退出
func (c *Channel) backoff(ctx context.Context) bool {
	c.mu.Lock()
	attempt := c.attempts
	exhausted := attempt >= c.opts.MaxAttempts
	if !exhausted {
		c.attempts++
	}
	c.mu.Unlock()

	if exhausted {
		c.degrade(ctx)
		return false
	}

	c.setState(model.StateReconnecting)
	metrics.ReconnectAttempts.WithLabelValues(c.key.Venue, c.key.Symbol).Inc()
	delay := c.opts.Backoff(attempt)
	c.log.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("reconnect scheduled")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// degrade 定时生成模拟数据，直到通道关闭
func (c *Channel) degrade(ctx context.Context) {
	c.setState(model.StateDegraded)
	metrics.Degradations.WithLabelValues(c.key.Venue, c.key.Symbol).Inc()
	c.log.Warn().Int("attempts", c.Attempts()).Msg("reconnect ceiling reached, switching to synthetic data")

	ticker := time.NewTicker(c.opts.SyntheticInterval)
	defer ticker.Stop()

	c.emitSynthetic()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.emitSynthetic()
		}
	}
}

func (c *Channel) emitSynthetic() {
	s := c.gen.Generate(c.key.Symbol)
	s.Venue = c.key.Venue
	s.Symbol = c.key.Symbol
	c.emit(s)
}

// consume 读取线程只负责转发原始帧，解码和分发都在 run 中完成
func (c *Channel) consume(ctx context.Context, conn websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- websocket.ReadLoop(connCtx, conn, c.opts.PingInterval, func(b []byte) {
			select {
			case frames <- b:
			case <-connCtx.Done():
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			_ = conn.Close()
			<-errCh
			return ctx.Err()
		case b := <-frames:
			c.handle(b)
		case err := <-errCh:
			for {
				select {
				case b := <-frames:
					c.handle(b)
				default:
					return err
				}
			}
		}
	}
}

func (c *Channel) handle(raw []byte) {
	s, err := c.adapter.Decode(raw, c.key.Symbol, c.opts.Now())
	if err != nil {
		if errors.Is(err, exchange.ErrIgnored) {
			return
		}
		metrics.NormalizationDrops.WithLabelValues(c.key.Venue, "message").Inc()
		c.log.Debug().Err(err).Msg("message dropped")
		return
	}
	s.Venue = c.key.Venue
	s.Symbol = c.key.Symbol
	c.emit(s)
}

// emit 先写历史再分发；队列满时丢弃该订阅者的这条快照
func (c *Channel) emit(s model.Snapshot) {
	c.ring.push(s)

	kind := "real"
	if s.Synthetic {
		kind = "synthetic"
	}
	metrics.SnapshotsEmitted.WithLabelValues(c.key.Venue, c.key.Symbol, kind).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, q := range c.subs {
		select {
		case q <- s:
		default:
			metrics.SubscriberDrops.WithLabelValues(c.key.Venue, c.key.Symbol).Inc()
			c.log.Debug().Uint64("subscriber", id).Msg("subscriber queue full, snapshot dropped")
		}
	}
}
