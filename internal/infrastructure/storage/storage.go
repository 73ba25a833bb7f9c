package storage

import (
	"context"
	"encoding/json"
	"sync"

	"bookpulse/internal/application/port"
)

// ZoneRow 压力区的一行，价格和数量用字符串保存以保留精度
type ZoneRow struct {
	RunID     string  `json:"run_id"`
	Ts        int64   `json:"ts_ms"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Price     string  `json:"price"`
	Volume    string  `json:"volume"`
	Intensity float64 `json:"intensity"`
}

// SummaryRow 最新市场概览
type SummaryRow struct {
	RunID         string   `json:"run_id"`
	Ts            int64    `json:"ts_ms"`
	Symbol        string   `json:"symbol"`
	Venues        []string `json:"venues"`
	Spread        float64  `json:"spread"`
	SpreadPercent float64  `json:"spread_percent"`
	MidPrice      float64  `json:"mid_price"`
	Tightness     string   `json:"tightness"`
	Imbalance     float64  `json:"imbalance"`
	Crossed       bool     `json:"crossed"`
}

func ZoneRows(rec port.SignalRecord) []ZoneRow {
	rows := make([]ZoneRow, 0, len(rec.Zones))
	for _, z := range rec.Zones {
		rows = append(rows, ZoneRow{
			RunID:     rec.RunID,
			Ts:        rec.Ts,
			Symbol:    rec.Symbol,
			Side:      string(z.Side),
			Price:     z.Price.String(),
			Volume:    z.Volume.String(),
			Intensity: z.Intensity,
		})
	}
	return rows
}

func Summary(rec port.SignalRecord) SummaryRow {
	return SummaryRow{
		RunID:         rec.RunID,
		Ts:            rec.Ts,
		Symbol:        rec.Symbol,
		Venues:        rec.Venues,
		Spread:        rec.Summary.Spread,
		SpreadPercent: rec.Summary.SpreadPercent,
		MidPrice:      rec.Summary.MidPrice,
		Tightness:     string(rec.Summary.Tightness),
		Imbalance:     rec.Summary.Imbalance,
		Crossed:       rec.Summary.Crossed,
	}
}

// Message 发布到 Redis/Kafka 的完整信号
type Message struct {
	Summary SummaryRow `json:"summary"`
	Zones   []ZoneRow  `json:"zones"`
}

func EncodeMessage(rec port.SignalRecord) ([]byte, error) {
	return json.Marshal(Message{Summary: Summary(rec), Zones: ZoneRows(rec)})
}

// Memory 进程内的信号仓储，保留每个交易对的最新概览和最近的压力区
type Memory struct {
	mu       sync.RWMutex
	maxZones int
	latest   map[string]SummaryRow
	zones    []ZoneRow
}

func NewMemory(maxZones int) *Memory {
	if maxZones <= 0 {
		maxZones = 1000
	}
	return &Memory{maxZones: maxZones, latest: make(map[string]SummaryRow)}
}

func (m *Memory) UpsertLatestSummary(_ context.Context, rec port.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[rec.Symbol] = Summary(rec)
	return nil
}

func (m *Memory) InsertZones(_ context.Context, rec port.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones = append(m.zones, ZoneRows(rec)...)
	if over := len(m.zones) - m.maxZones; over > 0 {
		m.zones = append([]ZoneRow(nil), m.zones[over:]...)
	}
	return nil
}

func (m *Memory) Latest(symbol string) (SummaryRow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.latest[symbol]
	return s, ok
}

func (m *Memory) Zones() []ZoneRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ZoneRow(nil), m.zones...)
}

func (m *Memory) Close() error { return nil }

var _ port.Repository = (*Memory)(nil)
