package monitor

import (
	"context"

	"bookpulse/internal/application/port"
)

type noopRepo struct{}

func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) UpsertLatestSummary(ctx context.Context, rec port.SignalRecord) error {
	return nil
}
func (n *noopRepo) InsertZones(ctx context.Context, rec port.SignalRecord) error {
	return nil
}
func (n *noopRepo) Close() error { return nil }
