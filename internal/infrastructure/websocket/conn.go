package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn 单个 ws 连接的最小能力，便于在测试中替换
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Ping() error
	Close() error
}

// Dialer 建立连接，ctx 超时即视为连接超时
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

const (
	DefaultReadTimeout  = 60 * time.Second
	DefaultPingInterval = 25 * time.Second
	writeTimeout        = 5 * time.Second
)

// GorillaDialer 基于 gorilla/websocket 的 Dialer
type GorillaDialer struct {
	ReadTimeout time.Duration
	Header      http.Header
}

func NewGorillaDialer(readTimeout time.Duration) *GorillaDialer {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &GorillaDialer{ReadTimeout: readTimeout}
}

func (d *GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	c := &gorillaConn{conn: conn, readTimeout: d.ReadTimeout}
	_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		return nil
	})
	return c, nil
}

type gorillaConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	wmu         sync.Mutex
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	_, b, err := c.conn.ReadMessage()
	if err == nil {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return b, err
}

func (c *gorillaConn) WriteMessage(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *gorillaConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
}

func (c *gorillaConn) Close() error {
	return c.conn.Close()
}

// ErrClosed 读循环因 ctx 取消而退出
var ErrClosed = errors.New("websocket read loop closed")

// ReadLoop 在独立 goroutine 中读取消息并定时 ping
// 返回读错误，或 ctx 结束时返回 ErrClosed；调用方负责关闭连接
func ReadLoop(ctx context.Context, conn Conn, pingEvery time.Duration, onMsg func([]byte)) error {
	if pingEvery <= 0 {
		pingEvery = DefaultPingInterval
	}
	pingTicker := time.NewTicker(pingEvery)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ErrClosed
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.Ping()
		}
	}
}

// IsAbnormalClose 正常关闭 (1000/1001) 以外的错误都视为需要重连
func IsAbnormalClose(err error) bool {
	if err == nil {
		return false
	}
	return !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
