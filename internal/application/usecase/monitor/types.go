package monitor

import (
	"time"

	"bookpulse/internal/application/port"

	"golang.org/x/time/rate"
)

type Repository = port.Repository

type ServiceDeps struct {
	Market        port.MarketData
	Venues        []string
	Symbol        string
	AnalysisEvery time.Duration
	SnapshotEvery time.Duration
	Sink          port.Sink
	Repo          port.Repository
	// Limiter 限制信号写入频率，nil 表示不限制
	Limiter *rate.Limiter
	Now     func() time.Time
}
