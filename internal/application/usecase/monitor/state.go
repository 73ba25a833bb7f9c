package monitor

import (
	"sort"
	"strings"
	"sync"
	"time"

	"bookpulse/internal/domain/model"

	"github.com/shopspring/decimal"
)

var twoDec = decimal.NewFromInt(2)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type venueState struct {
	last      model.Snapshot
	mid       float64
	has       bool
	dir       Dir
	synthetic bool
	updatedAt time.Time
	count     int
}

// State 每个交易所最近一次快照及其变化方向
type State struct {
	mu sync.Mutex

	order  []string
	venues map[string]*venueState
}

func NewState(venues []string) *State {
	order := make([]string, 0, len(venues))
	m := make(map[string]*venueState, len(venues))
	for _, v := range venues {
		n := strings.ToLower(strings.TrimSpace(v))
		if n == "" {
			continue
		}
		if _, ok := m[n]; ok {
			continue
		}
		order = append(order, n)
		m[n] = &venueState{}
	}
	sort.Strings(order)
	return &State{order: order, venues: m}
}

func (s *State) Venues() []string {
	return s.order
}

// Apply 记录一条快照，返回中间价或数据来源是否变化
func (s *State) Apply(snap model.Snapshot) bool {
	venue := strings.ToLower(strings.TrimSpace(snap.Venue))

	s.mu.Lock()
	defer s.mu.Unlock()

	vs := s.venues[venue]
	if vs == nil {
		return false
	}

	vs.last = snap
	vs.updatedAt = snap.ObservedAt
	vs.count++

	sourceChanged := vs.synthetic != snap.Synthetic
	vs.synthetic = snap.Synthetic

	bid, okBid := snap.BestBid()
	ask, okAsk := snap.BestAsk()
	if !okBid || !okAsk {
		return sourceChanged
	}
	mid, _ := bid.Add(ask).Div(twoDec).Float64()

	if !vs.has {
		vs.has = true
		vs.mid = mid
		vs.dir = DirSame
		return true
	}

	prev := vs.mid
	switch {
	case mid > prev:
		vs.dir = DirUp
	case mid < prev:
		vs.dir = DirDown
	default:
		vs.dir = DirSame
	}
	vs.mid = mid
	return mid != prev || sourceChanged
}

// Snapshot 返回各交易所状态的副本
func (s *State) Snapshot() map[string]venueState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]venueState, len(s.venues))
	for k, v := range s.venues {
		out[k] = *v
	}
	return out
}

// Latest 各交易所最近一次快照，按交易所名称排序
func (s *State) Latest() []model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Snapshot, 0, len(s.order))
	for _, v := range s.order {
		if vs := s.venues[v]; vs.count > 0 {
			out = append(out, vs.last)
		}
	}
	return out
}

// SyntheticVenues 当前使用模拟数据的交易所
func (s *State) SyntheticVenues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, v := range s.order {
		if s.venues[v].synthetic {
			out = append(out, v)
		}
	}
	return out
}
