package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookpulse/internal/application/port"
	appsvc "bookpulse/internal/application/service"
	"bookpulse/internal/domain/model"
	dsvc "bookpulse/internal/domain/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultImbalanceThreshold 买卖失衡超过该值时着色
const DefaultImbalanceThreshold = 0.2

var ErrNoVenues = errors.New("monitor: no venues")

type Service struct {
	deps    ServiceDeps
	st      *State
	fmt     *Formatter
	signals *appsvc.SignalService
	runID   string
}

func NewService(deps ServiceDeps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AnalysisEvery <= 0 {
		deps.AnalysisEvery = time.Second
	}
	if deps.SnapshotEvery <= 0 {
		deps.SnapshotEvery = time.Minute
	}
	if deps.Repo == nil {
		deps.Repo = NewNoopRepo()
	}
	return &Service{
		deps:    deps,
		st:      NewState(deps.Venues),
		fmt:     NewFormatter(deps.Symbol, DefaultImbalanceThreshold),
		signals: appsvc.NewSignalService(deps.Repo, deps.Limiter),
		runID:   uuid.NewString(),
	}
}

func (s *Service) RunID() string { return s.runID }

func (s *Service) State() *State { return s.st }

func (s *Service) Run(ctx context.Context) error {
	venues := s.st.Venues()
	if len(venues) == 0 {
		return ErrNoVenues
	}

	merged := make(chan model.Snapshot, 256)
	keys := make([]model.ChannelKey, 0, len(venues))

	// start subscriptions
	for _, venue := range venues {
		sub, err := s.deps.Market.Subscribe(venue, s.deps.Symbol)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", venue, err)
		}
		defer sub.Unsubscribe()
		keys = append(keys, sub.Key())

		go func(in <-chan model.Snapshot) {
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-in:
					if !ok {
						return
					}
					select {
					case merged <- snap:
					case <-ctx.Done():
						return
					}
				}
			}
		}(sub.C())

		log.Info().Str("venue", venue).Str("symbol", s.deps.Symbol).Msg("subscribed")
	}

	analysisTicker := time.NewTicker(s.deps.AnalysisEvery)
	defer analysisTicker.Stop()
	snapTicker := time.NewTicker(s.deps.SnapshotEvery)
	defer snapTicker.Stop()

	var last Analysis
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, last, RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case snap := <-merged:
			if s.st.Apply(snap) {
				_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, last, RenderLive))
			}

		case <-analysisTicker.C:
			last = s.analyze(keys)
			_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, last, RenderLive))
			s.record(ctx, last)

		case now := <-snapTicker.C:
			_ = s.deps.Sink.WriteSnapshot(now, s.fmt.Render(s.st, last, RenderSnapshot))
		}
	}
}

// analyze 压力区来自合并后的历史，价差和失衡来自各交易所最新快照的原始价格盘口
func (s *Service) analyze(keys []model.ChannelKey) Analysis {
	history := s.deps.Market.AggregatedHistory(keys...)
	zones := dsvc.AnalyzePressureZones(history)

	return Analysis{Summary: dsvc.SummarizeVenues(s.st.Latest()), Zones: zones}
}

func (s *Service) record(ctx context.Context, a Analysis) {
	if len(s.st.Latest()) == 0 {
		return
	}

	rec := port.SignalRecord{
		RunID:   s.runID,
		Symbol:  s.deps.Symbol,
		Ts:      s.deps.Now().UnixMilli(),
		Venues:  s.st.Venues(),
		Summary: a.Summary,
		Zones:   a.Zones,
	}

	if err := s.signals.Record(ctx, rec); err != nil {
		if !errors.Is(err, appsvc.ErrThrottled) {
			log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("record signal failed")
		}
		return
	}
	log.Debug().Str("symbol", rec.Symbol).Int("zones", len(rec.Zones)).Msg("signal recorded")
}
