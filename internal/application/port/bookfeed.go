package port

import (
	"time"

	"bookpulse/internal/domain/model"
)

// BookAdapter 交易所订单簿适配器
// 负责拼接订阅地址、订阅消息，以及把原始消息解码成标准快照
type BookAdapter interface {
	Name() string
	// StreamURL 根据基础地址和交易对生成 ws 地址
	StreamURL(base, symbol string) (string, error)
	// SubscribeMessage 连接成功后需要发送的订阅消息，nil 表示地址本身即订阅
	SubscribeMessage(symbol string) ([]byte, error)
	// Decode 解码一条原始消息；控制帧返回 exchange.ErrIgnored
	Decode(raw []byte, symbol string, observedAt time.Time) (model.Snapshot, error)
}

// Subscription 单个订阅者的句柄
type Subscription interface {
	Key() model.ChannelKey
	C() <-chan model.Snapshot
	// Unsubscribe 幂等
	Unsubscribe()
}

// MarketData 行情核心对外的只读接口
type MarketData interface {
	Subscribe(venue, symbol string) (Subscription, error)
	AggregatedHistory(keys ...model.ChannelKey) []model.Snapshot
	States() map[model.ChannelKey]model.ChannelState
	DisconnectAll()
}
