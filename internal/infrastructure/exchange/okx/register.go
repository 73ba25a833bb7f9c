package okx

import (
	"bookpulse/internal/application"
	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/bookfeed"
)

// init() automatically registers the OKX order book adapter factory
func init() {
	bookfeed.Register(application.ExchangeOKX, func(quote string) port.BookAdapter {
		return NewBookAdapter(quote)
	})
}
