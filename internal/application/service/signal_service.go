package service

import (
	"context"
	"errors"

	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/metrics"

	"golang.org/x/time/rate"
)

// ErrThrottled 超出写入频率，本次信号被跳过
var ErrThrottled = errors.New("signal recording throttled")

type SignalService struct {
	repo    port.Repository
	limiter *rate.Limiter
}

// NewSignalService limiter 为 nil 时不限流
func NewSignalService(repo port.Repository, limiter *rate.Limiter) *SignalService {
	return &SignalService{repo: repo, limiter: limiter}
}

// Record 先更新最新概览，再写入压力区；两步都会尝试，返回第一个错误
func (s *SignalService) Record(ctx context.Context, rec port.SignalRecord) error {
	if s.limiter != nil && !s.limiter.Allow() {
		metrics.SignalsRecorded.WithLabelValues("throttled").Inc()
		return ErrThrottled
	}

	err := s.repo.UpsertLatestSummary(ctx, rec)
	if zerr := s.repo.InsertZones(ctx, rec); err == nil {
		err = zerr
	}
	if err != nil {
		metrics.SignalsRecorded.WithLabelValues("error").Inc()
		return err
	}
	metrics.SignalsRecorded.WithLabelValues("ok").Inc()
	return nil
}
