package exchange

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"bookpulse/internal/domain/model"
	"bookpulse/internal/infrastructure/metrics"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// NormalizationErrorKind 标准化失败原因
type NormalizationErrorKind string

const (
	KindEmptyPayload     NormalizationErrorKind = "EmptyPayload"
	KindMalformedPayload NormalizationErrorKind = "MalformedPayload"
)

var (
	ErrEmptyPayload     = &NormalizationError{Kind: KindEmptyPayload}
	ErrMalformedPayload = &NormalizationError{Kind: KindMalformedPayload}
)

// NormalizationError 消息无法转成快照，调用方丢弃该消息即可
type NormalizationError struct {
	Kind  NormalizationErrorKind
	Venue string
}

func (e *NormalizationError) Error() string {
	if e.Venue == "" {
		return "normalize: " + string(e.Kind)
	}
	return "normalize " + e.Venue + ": " + string(e.Kind)
}

// Is 按 Kind 比较，便于 errors.Is(err, ErrEmptyPayload)
func (e *NormalizationError) Is(target error) bool {
	var t *NormalizationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// RawBook 适配器从原始消息中抽出的两侧价位
// 每个价位是 [price, qty, ...]，元素可以是字符串或数字
type RawBook struct {
	Bids    [][]json.RawMessage
	Asks    [][]json.RawMessage
	HasBids bool
	HasAsks bool
}

// NewRawBook 以切片是否为 nil 判断该侧是否存在
func NewRawBook(bids, asks [][]json.RawMessage) RawBook {
	return RawBook{Bids: bids, Asks: asks, HasBids: bids != nil, HasAsks: asks != nil}
}

// Normalize 把原始价位转成标准快照
// 非法价位直接跳过；两侧都为空返回 EmptyPayload，缺少任一侧返回 MalformedPayload
func Normalize(raw RawBook, symbol, venue string, observedAt time.Time) (model.Snapshot, error) {
	if !raw.HasBids || !raw.HasAsks {
		return model.Snapshot{}, &NormalizationError{Kind: KindMalformedPayload, Venue: venue}
	}

	bids, bidSkips := parseSide(raw.Bids, observedAt, true)
	asks, askSkips := parseSide(raw.Asks, observedAt, false)
	if skipped := bidSkips + askSkips; skipped > 0 {
		metrics.NormalizationDrops.WithLabelValues(venue, "level").Add(float64(skipped))
		log.Debug().Str("venue", venue).Str("symbol", symbol).Int("skipped", skipped).Msg("invalid levels skipped")
	}
	if len(bids) == 0 && len(asks) == 0 {
		return model.Snapshot{}, &NormalizationError{Kind: KindEmptyPayload, Venue: venue}
	}

	return model.Snapshot{
		Venue:      venue,
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		ObservedAt: observedAt,
	}, nil
}

func parseSide(pairs [][]json.RawMessage, ts time.Time, desc bool) ([]model.PriceLevel, int) {
	byPrice := make(map[string]int, len(pairs))
	levels := make([]model.PriceLevel, 0, len(pairs))
	skipped := 0
	for _, pair := range pairs {
		if len(pair) < 2 {
			skipped++
			continue
		}
		price, ok1 := parseNumber(pair[0])
		qty, ok2 := parseNumber(pair[1])
		if !ok1 || !ok2 || !price.IsPositive() || !qty.IsPositive() {
			skipped++
			continue
		}
		key := price.String()
		if i, dup := byPrice[key]; dup {
			levels[i].Quantity = qty // 重复价位以最后一次为准
			continue
		}
		byPrice[key] = len(levels)
		levels = append(levels, model.PriceLevel{Price: price, Quantity: qty, ObservedAt: ts})
	}

	sort.SliceStable(levels, func(i, j int) bool {
		if desc {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
	cum := decimal.Zero
	for i := range levels {
		cum = cum.Add(levels[i].Quantity)
		levels[i].CumulativeQuantity = cum
	}
	return levels, skipped
}

func parseNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, false
		}
		s = strings.TrimSpace(str)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
