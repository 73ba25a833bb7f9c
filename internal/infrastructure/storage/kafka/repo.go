package kafka

import (
	"context"
	"encoding/json"
	"time"

	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/storage"

	"github.com/segmentio/kafka-go"
)

// Writer *kafka.Writer 的子集，测试时可替换
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Repo 把信号发布到 Kafka topic，key 为交易对
type Repo struct {
	writer Writer
}

func New(brokers []string, topic string) *Repo {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewWithWriter(w)
}

func NewWithWriter(w Writer) *Repo {
	return &Repo{writer: w}
}

func (r *Repo) UpsertLatestSummary(ctx context.Context, rec port.SignalRecord) error {
	b, err := json.Marshal(storage.Summary(rec))
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(rec.Symbol),
		Value:   b,
		Headers: []kafka.Header{{Key: "kind", Value: []byte("summary")}},
		Time:    time.UnixMilli(rec.Ts),
	})
}

func (r *Repo) InsertZones(ctx context.Context, rec port.SignalRecord) error {
	if len(rec.Zones) == 0 {
		return nil
	}
	b, err := json.Marshal(storage.ZoneRows(rec))
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(rec.Symbol),
		Value:   b,
		Headers: []kafka.Header{{Key: "kind", Value: []byte("zones")}},
		Time:    time.UnixMilli(rec.Ts),
	})
}

func (r *Repo) Close() error { return r.writer.Close() }

var _ port.Repository = (*Repo)(nil)
