package composite

import (
	"context"
	"errors"

	"bookpulse/internal/application/port"
)

type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) UpsertLatestSummary(ctx context.Context, rec port.SignalRecord) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.UpsertLatestSummary(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) InsertZones(ctx context.Context, rec port.SignalRecord) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertZones(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close 关闭全部仓储，返回合并后的错误
func (r *Repo) Close() error {
	var errs []error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ port.Repository = (*Repo)(nil)
