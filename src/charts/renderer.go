package charts

import (
	"BookingInsight/src/processor"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

var (
	// 分面配色, 超出后循环使用
	palette = []drawing.Color{
		drawing.ColorFromHex("636EFA"),
		drawing.ColorFromHex("EF553B"),
		drawing.ColorFromHex("00CC96"),
		drawing.ColorFromHex("AB63FA"),
		drawing.ColorFromHex("FFA15A"),
		drawing.ColorFromHex("19D3F3"),
		drawing.ColorFromHex("FF6692"),
		drawing.ColorFromHex("B6E880"),
		drawing.ColorFromHex("FF97FF"),
		drawing.ColorFromHex("FECB52"),
	}
	defaultColor = palette[0]
	customColor  = drawing.ColorFromHex("FFA500") // orange
)

// Renderer 把投影结果渲染为PNG
//
// 没有数据或 go-chart 拒绝渲染时输出同尺寸的空白图, 只有写出失败才返回错误。
type Renderer struct {
	Width  int
	Height int
}

func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{Width: width, Height: height}
}

// LeadTimeHistogram lead_time 分布, 累计模式标题不同
func (r *Renderer) LeadTimeHistogram(w io.Writer, h processor.Histogram) error {
	title := "Distribution of Booking Lead Time"
	if h.Cumulative {
		title += " (cumulative)"
	}
	return r.Histogram(w, title, h)
}

// LeadTimeVsADR 自定义颜色时使用橙色
func (r *Renderer) LeadTimeVsADR(w io.Writer, s processor.Scatter, custom bool) error {
	col := defaultColor
	if custom {
		col = customColor
	}
	return r.Scatter(w, "Lead Time vs. ADR", "Lead Time", "ADR", s, col)
}

func (r *Renderer) GuestsVsWeekNights(w io.Writer, s processor.Scatter) error {
	return r.Scatter(w, "Total Guests vs. Stays in Week Nights", "Total Guests", "Stays in Week Nights", s, defaultColor)
}

// Histogram 单列直方图
func (r *Renderer) Histogram(w io.Writer, title string, h processor.Histogram) error {
	if h.Total == 0 || len(h.Counts) == 0 {
		return r.Blank(w)
	}

	step := int(math.Ceil(float64(len(h.Counts)) / 10))
	bars := make([]chart.Value, len(h.Counts))
	for i, c := range h.Counts {
		label := ""
		if i%step == 0 {
			label = formatEdge(h.Edges[i])
		}
		bars[i] = chart.Value{
			Value: c,
			Label: label,
			Style: chart.Style{FillColor: defaultColor, StrokeColor: defaultColor, StrokeWidth: 1},
		}
	}

	barWidth := (r.Width - 120) / len(bars)
	if barWidth < 1 {
		barWidth = 1
	}
	bc := chart.BarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   barWidth,
		BarSpacing: 1,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  "count",
			Range: &chart.ContinuousRange{Min: 0, Max: maxOrOne(h.Counts)},
		},
		Bars: bars,
	}
	return r.render(w, bc)
}

// FacetHistogram 每个分面一条折线, 共用分箱
func (r *Renderer) FacetHistogram(w io.Writer, title string, fh processor.FacetHistogram) error {
	if len(fh.Facets) == 0 || len(fh.Edges) < 2 {
		return r.Blank(w)
	}

	centers := make([]float64, len(fh.Edges)-1)
	for i := range centers {
		centers[i] = (fh.Edges[i] + fh.Edges[i+1]) / 2
	}

	var series []chart.Series
	top := 1.0
	for i, f := range fh.Facets {
		col := palette[i%len(palette)]
		series = append(series, chart.ContinuousSeries{
			Name:    f.Key,
			XValues: centers,
			YValues: f.Counts,
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 2},
		})
		top = math.Max(top, maxOrOne(f.Counts))
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  fh.Column,
			Range: &chart.ContinuousRange{Min: fh.Edges[0], Max: fh.Edges[len(fh.Edges)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "count",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return r.render(w, ch)
}

// Scatter 只画点不连线
func (r *Renderer) Scatter(w io.Writer, title, xName, yName string, s processor.Scatter, col drawing.Color) error {
	if len(s.X) == 0 {
		return r.Blank(w)
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, Range: paddedRange(s.X)},
		YAxis:      chart.YAxis{Name: yName, Range: paddedRange(s.Y)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("%s vs %s", s.XColumn, s.YColumn),
				XValues: s.X,
				YValues: s.Y,
				Style:   pointStyle(col),
			},
		},
	}
	return r.render(w, ch)
}

// Blank 输出空白图
func (r *Renderer) Blank(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("写出空白图失败: %w", err)
	}
	return nil
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func (r *Renderer) render(w io.Writer, c renderable) error {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return r.Blank(w)
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return fmt.Errorf("写出图表失败: %w", err)
	}
	return nil
}

// pointStyle returns a style that renders points only
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

// paddedRange 数据范围两端各留5%, 单一取值时上下各扩1
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func maxOrOne(values []float64) float64 {
	top := 0.0
	for _, v := range values {
		top = math.Max(top, v)
	}
	if top <= 0 {
		return 1
	}
	return top
}

func formatEdge(v float64) string {
	if math.Abs(v) >= 100 || v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
