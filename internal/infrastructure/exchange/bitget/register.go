package bitget

import (
	"bookpulse/internal/application"
	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/bookfeed"
)

// init() automatically registers the Bitget order book adapter factory
func init() {
	bookfeed.Register(application.ExchangeBitget, func(quote string) port.BookAdapter {
		return NewBookAdapter(quote)
	})
}
