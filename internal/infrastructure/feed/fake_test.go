package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/exchange"
	"bookpulse/internal/infrastructure/websocket"
)

var errDialRefused = errors.New("connection refused")

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 256), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case b, ok := <-c.frames:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return b, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, b)
	return nil
}

func (c *fakeConn) Ping() error { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// drop 模拟远端断开
func (c *fakeConn) drop() { close(c.frames) }

// fakeDialer fail(n) 决定第 n 次 (从 0 开始) 拨号是否失败
type fakeDialer struct {
	fail func(n int) bool
	hang bool

	mu    sync.Mutex
	dials int
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (websocket.Conn, error) {
	d.mu.Lock()
	n := d.dials
	d.dials++
	d.mu.Unlock()

	if d.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.fail != nil && d.fail(n) {
		return nil, errDialRefused
	}
	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// fakeAdapter 消息格式 {"bids":[...],"asks":[...]}，"ack" 为控制帧
type fakeAdapter struct{}

func (fakeAdapter) Name() string { return "fake" }

func (fakeAdapter) StreamURL(base, symbol string) (string, error) { return base + "/" + symbol, nil }

func (fakeAdapter) SubscribeMessage(symbol string) ([]byte, error) { return []byte("sub " + symbol), nil }

func (fakeAdapter) Decode(raw []byte, symbol string, observedAt time.Time) (model.Snapshot, error) {
	if string(raw) == "ack" {
		return model.Snapshot{}, exchange.ErrIgnored
	}
	var msg struct {
		Bids [][]json.RawMessage `json:"bids"`
		Asks [][]json.RawMessage `json:"asks"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return model.Snapshot{}, err
	}
	return exchange.Normalize(exchange.NewRawBook(msg.Bids, msg.Asks), symbol, "fake", observedAt)
}

func testOptions() Options {
	return Options{
		HistoryLength:     20,
		ConnectTimeout:    50 * time.Millisecond,
		BaseDelay:         time.Millisecond,
		MaxDelay:          4 * time.Millisecond,
		MaxAttempts:       5,
		SyntheticInterval: 10 * time.Millisecond,
		SubscriberBuffer:  64,
		PingInterval:      time.Second,
	}
}

func newTestRegistry(opts Options, d *fakeDialer) *Registry {
	return NewRegistry(opts, d, nil, Venue{Adapter: fakeAdapter{}, BaseURL: "ws://fake"})
}
