package bybit

import (
	"bookpulse/internal/application"
	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/bookfeed"
)

// init() automatically registers the Bybit order book adapter factory
func init() {
	bookfeed.Register(application.ExchangeBybit, func(quote string) port.BookAdapter {
		return NewBookAdapter(quote)
	})
}
