package exchange

import (
	"strings"
)

// SymbolConverter 符号转换接口
// 各交易所可以实现此接口来提供符号转换功能
type SymbolConverter interface {
	// Symbol2Coin 将交易对转换为币种
	// 例: BTCUSDT -> BTC, BTC-USDT -> BTC
	Symbol2Coin(symbol string) string

	// Coin2Symbol 将币种转换为交易对
	// 例: BTC -> BTCUSDT
	Coin2Symbol(coin string) string

	// SymbolSuffix 返回符号后缀
	// 例: USDT, -USDT 等
	SymbolSuffix() string
}

// VenueSymbol 把统一交易对 (BTCUSDT 或 BTC) 转成交易所格式
func VenueSymbol(c SymbolConverter, symbol string) string {
	return c.Coin2Symbol(c.Symbol2Coin(symbol))
}

// CommonSymbolConverter 通用符号转换器，币种后直接拼接计价币
type CommonSymbolConverter struct {
	suffix string
}

// NewCommonSymbolConverter 创建通用符号转换器
func NewCommonSymbolConverter(suffix string) *CommonSymbolConverter {
	return &CommonSymbolConverter{suffix: strings.ToUpper(strings.TrimSpace(suffix))}
}

// SymbolSuffix 返回符号后缀
func (c *CommonSymbolConverter) SymbolSuffix() string {
	return c.suffix
}

// Symbol2Coin 将交易对转换为币种
// 例: BTCUSDT -> BTC, BTCUSDC -> BTC (suffix=USDC)
func (c *CommonSymbolConverter) Symbol2Coin(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || c.suffix == "" {
		return sym
	}
	if trimmed := strings.TrimSuffix(sym, c.suffix); trimmed != "" {
		return trimmed
	}
	return sym
}

// Coin2Symbol 将币种转换为交易对
// 例: BTC -> BTCUSDT, BTCUSDT -> BTCUSDT
func (c *CommonSymbolConverter) Coin2Symbol(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return ""
	}

	// 如果已经包含后缀，直接返回
	if strings.HasSuffix(coin, c.suffix) {
		return coin
	}
	// 否则添加后缀
	return coin + c.suffix
}

// DashSymbolConverter 币种和计价币之间用 - 连接 (OKX 现货)
type DashSymbolConverter struct {
	quote string
}

func NewDashSymbolConverter(quote string) *DashSymbolConverter {
	return &DashSymbolConverter{quote: strings.ToUpper(strings.TrimSpace(quote))}
}

func (c *DashSymbolConverter) SymbolSuffix() string { return "-" + c.quote }

// Symbol2Coin 例: BTC-USDT -> BTC, BTCUSDT -> BTC
func (c *DashSymbolConverter) Symbol2Coin(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	sym = strings.TrimSuffix(sym, c.SymbolSuffix())
	if trimmed := strings.TrimSuffix(sym, c.quote); trimmed != "" {
		sym = trimmed
	}
	return strings.Trim(sym, "-")
}

// Coin2Symbol 例: BTC -> BTC-USDT
func (c *DashSymbolConverter) Coin2Symbol(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return ""
	}
	if strings.HasSuffix(coin, c.SymbolSuffix()) {
		return coin
	}
	return coin + c.SymbolSuffix()
}
