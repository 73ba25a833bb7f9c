package bookfeed

import (
	"sort"
	"strings"
	"sync"

	"bookpulse/internal/application/port"

	"github.com/rs/zerolog/log"
)

// factory函数类型
// quote: 计价币种，例如 USDT
type Factory func(quote string) port.BookAdapter

// registry maps exchange names to their respective order book adapter factories
var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register 注册一个订单簿适配器 factory
// 这是由各个交易所包的init()函数调用来自注册的
func Register(exchangeName string, factory Factory) {
	name := strings.ToLower(strings.TrimSpace(exchangeName))
	if factory == nil || name == "" {
		log.Warn().Str("exchange", exchangeName).Msg("invalid book adapter factory")
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		log.Warn().Str("exchange", name).Msg("book adapter factory already registered, overwriting")
	}
	registry[name] = factory
	log.Debug().Str("exchange", name).Msg("book adapter factory registered")
}

// Get 获取已注册的 factory
func Get(exchangeName string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := registry[strings.ToLower(strings.TrimSpace(exchangeName))]
	return factory, ok
}

// Names 已注册的交易所，按字母排序
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
