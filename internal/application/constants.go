package application

// 支持的交易所名称，和配置文件 [exchanges.<name>] 一致
const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"
	ExchangeOKX     = "okx"
	ExchangeBitget  = "bitget"
)
