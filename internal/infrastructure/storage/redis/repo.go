package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/storage"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	maxLen     int64
	keyLatest  string // prefix + ":summary:latest"
	zoneStream string
	signalChan string
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, maxLen int64) *Repo {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "bookpulse"
	}
	return &Repo{
		rdb:        rdb,
		prefix:     prefix,
		ttl:        ttl,
		maxLen:     maxLen,
		keyLatest:  prefix + ":summary:latest",
		zoneStream: prefix + ":zones",
		signalChan: prefix + ":signals:pub",
	}
}

// Ping 启动时检查连接
func (r *Repo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Repo) UpsertLatestSummary(ctx context.Context, rec port.SignalRecord) error {
	b, err := json.Marshal(storage.Summary(rec))
	if err != nil {
		return err
	}

	// Hash: field = "BTCUSDT" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, rec.Symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertZones(ctx context.Context, rec port.SignalRecord) error {
	// 1) Stream: XADD <stream> MAXLEN ~ n * ...
	pipe := r.rdb.Pipeline()
	for _, z := range storage.ZoneRows(rec) {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.zoneStream,
			MaxLen: r.maxLen,
			Approx: true,
			Values: map[string]any{
				"run_id":    z.RunID,
				"ts_ms":     z.Ts,
				"symbol":    z.Symbol,
				"side":      z.Side,
				"price":     z.Price,
				"volume":    z.Volume,
				"intensity": z.Intensity,
			},
		})
	}

	// 2) PubSub: PUBLISH <channel> json，消费者拿到完整信号
	msg, err := storage.EncodeMessage(rec)
	if err != nil {
		return err
	}
	pipe.Publish(ctx, r.signalChan, string(msg))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)
