// Package export renders observations and fitted curves as an SVG chart.
package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/frapfit/internal/dataset"
)

// Palette cycles per group.
var Palette = []string{"#00ccff", "#ff00ff", "#00ff88", "#ffaa00", "#ff4444", "#8888ff", "#ffff00", "#88ffff"}

// Curve is one fitted line.
type Curve struct {
	Label  string
	Times  []float64
	Values []float64
}

type Options struct {
	Width      int
	Height     int
	Title      string
	Background string
}

func DefaultOptions() Options {
	return Options{Width: 800, Height: 500, Title: "FRAP recovery", Background: "#0a0a0a"}
}

// Plot is a rendered chart. It carries everything Save needs.
type Plot struct {
	opts   Options
	table  *dataset.Table
	curves []Curve
}

// NewPlot draws table's observations as points and each curve as a line.
// Curves are matched to groups by label for colouring.
func NewPlot(table *dataset.Table, curves []Curve, opts Options) *Plot {
	d := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = d.Width
	}
	if opts.Height <= 0 {
		opts.Height = d.Height
	}
	if opts.Background == "" {
		opts.Background = d.Background
	}
	return &Plot{opts: opts, table: table, curves: curves}
}

func (p *Plot) Curves() []Curve { return p.curves }

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(x, y float64) {
	b.minX = math.Min(b.minX, x)
	b.maxX = math.Max(b.maxX, x)
	b.minY = math.Min(b.minY, y)
	b.maxY = math.Max(b.maxY, y)
}

func (p *Plot) bounds() bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	if p.table != nil {
		for _, col := range p.table.Values {
			for i, v := range col {
				b.add(p.table.Times[i], v)
			}
		}
	}
	for _, c := range p.curves {
		for i, v := range c.Values {
			b.add(c.Times[i], v)
		}
	}
	if math.IsInf(b.minX, 1) {
		return bounds{0, 1, 0, 1}
	}

	if b.maxX == b.minX {
		b.maxX = b.minX + 1
	}
	rangeY := b.maxY - b.minY
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.05
	b.maxY += rangeY * 0.05
	return b
}

func (p *Plot) colorOf(label string) string {
	if p.table != nil {
		for i, l := range p.table.Labels {
			if l == label {
				return Palette[i%len(Palette)]
			}
		}
	}
	for i, c := range p.curves {
		if c.Label == label {
			return Palette[i%len(Palette)]
		}
	}
	return Palette[0]
}

const (
	marginLeft   = 60.0
	marginRight  = 90.0
	marginTop    = 40.0
	marginBottom = 50.0
	numTicks     = 5
)

// SVG renders the chart.
func (p *Plot) SVG() string {
	w, h := float64(p.opts.Width), float64(p.opts.Height)
	plotW := w - marginLeft - marginRight
	plotH := h - marginTop - marginBottom
	b := p.bounds()

	px := func(x float64) float64 { return marginLeft + (x-b.minX)/(b.maxX-b.minX)*plotW }
	py := func(y float64) float64 { return marginTop + plotH - (y-b.minY)/(b.maxY-b.minY)*plotH }

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace" font-size="12">
<rect width="100%%" height="100%%" fill="%s"/>
`, p.opts.Width, p.opts.Height, p.opts.Width, p.opts.Height, p.opts.Background))

	if p.opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#ffffff" text-anchor="middle" font-size="16">%s</text>
`, marginLeft+plotW/2, marginTop/2+6, escape(p.opts.Title)))
	}

	// axes
	sb.WriteString(fmt.Sprintf(`<g stroke="#888899" stroke-width="1">
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
</g>
`, marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH, marginLeft, marginTop, marginLeft, marginTop+plotH))

	sb.WriteString(`<g fill="#888899">` + "\n")
	for i := 0; i <= numTicks; i++ {
		fx := b.minX + (b.maxX-b.minX)*float64(i)/numTicks
		fy := b.minY + (b.maxY-b.minY)*float64(i)/numTicks
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="middle">%.4g</text>
`, px(fx), marginTop+plotH+18, fx))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="end">%.3g</text>
`, marginLeft-6, py(fy)+4, fy))
	}
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="middle">time</text>
`, marginLeft+plotW/2, h-10))
	sb.WriteString(fmt.Sprintf(`<text x="14" y="%.1f" text-anchor="middle" transform="rotate(-90 14 %.1f)">fluorescence</text>
`, marginTop+plotH/2, marginTop+plotH/2))
	sb.WriteString("</g>\n")

	// observations
	if p.table != nil {
		for g, col := range p.table.Values {
			label := p.table.Labels[g]
			sb.WriteString(fmt.Sprintf(`<g class="obs" data-group="%s" fill="%s">
`, escape(label), p.colorOf(label)))
			for i, v := range col {
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="2.5"/>
`, px(p.table.Times[i]), py(v)))
			}
			sb.WriteString("</g>\n")
		}
	}

	// fitted curves
	for _, c := range p.curves {
		if len(c.Times) < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path class="fit" data-group="%s" fill="none" stroke="%s" stroke-width="1.5" d="M`,
			escape(c.Label), p.colorOf(c.Label)))
		for i := range c.Times {
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(c.Times[i]), py(c.Values[i])))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(c.Times[i]), py(c.Values[i])))
			}
		}
		sb.WriteString(`"/>` + "\n")
	}

	// legend
	for i, c := range p.curves {
		y := marginTop + 16*float64(i)
		x := marginLeft + plotW + 12
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>
<text x="%.1f" y="%.1f" fill="#ffffff">%s</text>
`, x, y, x+18, y, p.colorOf(c.Label), x+24, y+4, escape(c.Label)))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// Save writes the chart to path.
func (p *Plot) Save(path string) error {
	return os.WriteFile(path, []byte(p.SVG()), 0644)
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
