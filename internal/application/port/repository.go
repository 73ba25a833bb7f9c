package port

import (
	"context"

	"bookpulse/internal/domain/model"
)

// SignalRecord 一次分析的结果，写入各类存储
type SignalRecord struct {
	RunID   string
	Symbol  string
	Ts      int64 // unix ms
	Venues  []string
	Summary model.MarketSummary
	Zones   []model.PressureZone
}

// Repository 只记录分析得到的信号，不保存原始快照
type Repository interface {
	// Summary operations
	UpsertLatestSummary(ctx context.Context, rec SignalRecord) error

	// Zone operations
	InsertZones(ctx context.Context, rec SignalRecord) error

	// Connection management
	Close() error
}
