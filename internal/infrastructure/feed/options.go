package feed

import (
	"time"
)

// Options 通道的连接与重连策略
type Options struct {
	HistoryLength     int           // 每个通道保留的快照数
	ConnectTimeout    time.Duration // 单次连接超时
	BaseDelay         time.Duration // 退避基数
	MaxDelay          time.Duration // 退避上限
	MaxAttempts       int           // 连续重连次数上限，达到后切换到模拟数据
	SyntheticInterval time.Duration // 模拟数据生成间隔
	SubscriberBuffer  int           // 每个订阅者的队列长度
	PingInterval      time.Duration

	Now func() time.Time
}

// DefaultOptions 默认策略
func DefaultOptions() Options {
	return Options{
		HistoryLength:     20,
		ConnectTimeout:    10 * time.Second,
		BaseDelay:         1 * time.Second,
		MaxDelay:          30 * time.Second,
		MaxAttempts:       5,
		SyntheticInterval: 3 * time.Second,
		SubscriberBuffer:  64,
		PingInterval:      25 * time.Second,
		Now:               time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HistoryLength <= 0 {
		o.HistoryLength = d.HistoryLength
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = d.MaxDelay
		if o.MaxDelay < o.BaseDelay {
			o.MaxDelay = o.BaseDelay
		}
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.SyntheticInterval <= 0 {
		o.SyntheticInterval = d.SyntheticInterval
	}
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = d.SubscriberBuffer
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Backoff 第 attempt 次重连前的等待时间 min(base*2^attempt, max)
func (o Options) Backoff(attempt int) time.Duration {
	delay := o.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= o.MaxDelay {
			return o.MaxDelay
		}
	}
	if delay > o.MaxDelay {
		return o.MaxDelay
	}
	return delay
}
