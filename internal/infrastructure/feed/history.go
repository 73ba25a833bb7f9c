package feed

import (
	"sort"
	"sync"

	"bookpulse/internal/domain/model"
)

// ring 固定容量的快照环，只追加，满了淘汰最旧的
type ring struct {
	mu    sync.RWMutex
	buf   []model.Snapshot
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]model.Snapshot, capacity)}
}

func (r *ring) push(s model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// snapshots 按写入顺序复制一份
func (r *ring) snapshots() []model.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Snapshot, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// History 所有通道的滚动历史
// 每个 key 只有所属通道写入，合并时只读
type History struct {
	mu       sync.RWMutex
	capacity int
	rings    map[model.ChannelKey]*ring
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultOptions().HistoryLength
	}
	return &History{capacity: capacity, rings: make(map[model.ChannelKey]*ring)}
}

// ring 返回 key 对应的环，不存在则创建
func (h *History) ring(key model.ChannelKey) *ring {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rings[key]
	if !ok {
		r = newRing(h.capacity)
		h.rings[key] = r
	}
	return r
}

// Snapshots 返回 key 的历史副本
func (h *History) Snapshots(key model.ChannelKey) []model.Snapshot {
	h.mu.RLock()
	r, ok := h.rings[key]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.snapshots()
}

func (h *History) remove(key model.ChannelKey) {
	h.mu.Lock()
	delete(h.rings, key)
	h.mu.Unlock()
}

// Keys 当前有历史的通道
func (h *History) Keys() []model.ChannelKey {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]model.ChannelKey, 0, len(h.rings))
	for k := range h.rings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Combine 合并多个通道的历史，按 ObservedAt 升序，保留最后 capacity 条
// 不传 key 时合并全部通道
func (h *History) Combine(keys ...model.ChannelKey) []model.Snapshot {
	if len(keys) == 0 {
		keys = h.Keys()
	}
	var all []model.Snapshot
	for _, k := range keys {
		all = append(all, h.Snapshots(k)...)
	}
	return combine(all, h.capacity)
}

func combine(all []model.Snapshot, limit int) []model.Snapshot {
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ObservedAt.Before(all[j].ObservedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	if all == nil {
		return []model.Snapshot{}
	}
	return all
}
