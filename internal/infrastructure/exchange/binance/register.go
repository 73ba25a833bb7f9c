package binance

import (
	"bookpulse/internal/application"
	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/bookfeed"
)

// init() automatically registers the Binance order book adapter factory
func init() {
	bookfeed.Register(application.ExchangeBinance, func(quote string) port.BookAdapter {
		return NewBookAdapter(quote)
	})
}
