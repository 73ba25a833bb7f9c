package feed

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"bookpulse/internal/domain/model"

	"github.com/shopspring/decimal"
)

const (
	syntheticLevels = 20
	jitterRatio     = 0.005
	tickRatio       = 0.0001
	qtyDecay        = 0.15
)

// 按币种给出一个大致的基准价
var basePrices = []struct {
	coin  string
	price float64
}{
	{"BTC", 65000},
	{"ETH", 3200},
	{"SOL", 150},
	{"BNB", 600},
	{"XRP", 0.6},
	{"DOGE", 0.15},
}

// Generator 降级模式下生成模拟订单簿
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator rnd 为 nil 时使用当前时间作为种子
func NewGenerator(rnd *rand.Rand, now func() time.Time) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rnd: rnd, now: now}
}

func basePrice(symbol string) float64 {
	sym := strings.ToUpper(symbol)
	for _, b := range basePrices {
		if strings.HasPrefix(sym, b.coin) {
			return b.price
		}
	}
	return 100
}

// pricePlaces 价格越低保留的小数位越多
func pricePlaces(price float64) int32 {
	switch {
	case price >= 1000:
		return 2
	case price >= 1:
		return 4
	default:
		return 6
	}
}

// Generate 生成一个满足排序约束的模拟快照，Venue 由调用方填写
func (g *Generator) Generate(symbol string) model.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	base := basePrice(symbol)
	places := pricePlaces(base)

	mid := decimal.NewFromFloat(base * (1 + (g.rnd.Float64()*2-1)*jitterRatio)).Round(places)
	tick := decimal.NewFromFloat(base * tickRatio).Round(places)
	if minTick := decimal.New(1, -places); tick.LessThan(minTick) {
		tick = minTick
	}
	baseQty := math.Min(math.Max(50000/base, 0.5), 50000)

	bids := make([]model.PriceLevel, syntheticLevels)
	asks := make([]model.PriceLevel, syntheticLevels)
	bidCum, askCum := decimal.Zero, decimal.Zero
	for i := 0; i < syntheticLevels; i++ {
		step := tick.Mul(decimal.NewFromInt(int64(i + 1)))

		bq := g.quantity(baseQty, i)
		bidCum = bidCum.Add(bq)
		bids[i] = model.PriceLevel{Price: mid.Sub(step), Quantity: bq, CumulativeQuantity: bidCum, ObservedAt: now}

		aq := g.quantity(baseQty, i)
		askCum = askCum.Add(aq)
		asks[i] = model.PriceLevel{Price: mid.Add(step), Quantity: aq, CumulativeQuantity: askCum, ObservedAt: now}
	}

	return model.Snapshot{
		Symbol:     strings.ToUpper(symbol),
		Bids:       bids,
		Asks:       asks,
		ObservedAt: now,
		Synthetic:  true,
	}
}

// quantity 指数衰减 + 噪声，偶尔出现大单墙
func (g *Generator) quantity(baseQty float64, level int) decimal.Decimal {
	q := baseQty * math.Exp(-qtyDecay*float64(level)) * (0.5 + g.rnd.Float64())
	if g.rnd.Float64() < 0.1 {
		q *= 3
	}
	d := decimal.NewFromFloat(q).Round(4)
	if !d.IsPositive() {
		d = decimal.New(1, -4)
	}
	return d
}
