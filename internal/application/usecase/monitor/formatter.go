package monitor

import (
	"fmt"
	"strings"

	"bookpulse/internal/domain/model"
	dsvc "bookpulse/internal/domain/service"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiMagenta  = "\033[35m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

// 每侧最多显示的压力区数量
const maxZonesShown = 2

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	Symbol             string
	ImbalanceThreshold float64
}

func NewFormatter(symbol string, threshold float64) *Formatter {
	return &Formatter{Symbol: symbol, ImbalanceThreshold: threshold}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

// Analysis 一次分析的结果
type Analysis struct {
	Summary model.MarketSummary
	Zones   []model.PressureZone
}

func (f *Formatter) Render(st *State, a Analysis, mode RenderMode) string {
	snap := st.Snapshot()

	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[BOOKPULSE] ", ansiDim))
	sb.WriteString(f.Symbol)

	for _, venue := range st.Venues() {
		vs := snap[venue]
		px := "--"
		col := ansiYellow
		if vs.has {
			px = fmt.Sprintf("%.2f", vs.mid)
			switch vs.dir {
			case DirUp:
				col = ansiGreen
			case DirDown:
				col = ansiRed
			}
		}
		label := venue
		if vs.synthetic {
			label = venue + "(S)"
			col = ansiMagenta
		}
		sb.WriteString(" ")
		sb.WriteString(colorize(label+":"+px, col))
	}

	sb.WriteString(colorize("  ||  ", ansiDim))
	sb.WriteString(fmt.Sprintf("spread=%.4f(%.4f%%) %s", a.Summary.Spread, a.Summary.SpreadPercent, a.Summary.Tightness))
	if a.Summary.Crossed {
		sb.WriteString(" ")
		sb.WriteString(colorize("crossed", ansiRed))
	}

	imb := fmt.Sprintf("imb=%+.2f", a.Summary.Imbalance)
	switch dsvc.ImbalanceColor(a.Summary.Imbalance, f.ImbalanceThreshold) {
	case +1:
		imb = colorize(imb, ansiGreen)
	case -1:
		imb = colorize(imb, ansiRed)
	default:
		imb = colorize(imb, ansiYellow)
	}
	sb.WriteString(" ")
	sb.WriteString(imb)

	sb.WriteString(renderZones(a.Zones, model.SideSupport, "S", ansiGreen))
	sb.WriteString(renderZones(a.Zones, model.SideResistance, "R", ansiRed))

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// zones 已按强度降序
func renderZones(zones []model.PressureZone, side model.Side, tag, col string) string {
	var sb strings.Builder
	shown := 0
	for _, z := range zones {
		if z.Side != side {
			continue
		}
		if shown == maxZonesShown {
			break
		}
		sb.WriteString(" ")
		sb.WriteString(colorize(fmt.Sprintf("%s:%s@%.2f", tag, z.Price.StringFixed(2), z.Intensity), col))
		shown++
	}
	return sb.String()
}
