package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/user/thermaldash/internal/analysis"
	"github.com/user/thermaldash/internal/parser"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// FigureOptions sizes the rendered PNG.
type FigureOptions struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// DefaultFigureOptions matches the 16x10 inch figure of the operator dashboard.
func DefaultFigureOptions() FigureOptions {
	return FigureOptions{Width: 16 * vg.Inch, Height: 10 * vg.Inch, DPI: 96}
}

func (o FigureOptions) withDefaults() FigureOptions {
	d := DefaultFigureOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	return o
}

// panelSpec describes one of the four charts.
type panelSpec struct {
	Field  string
	Title  string
	YLabel string
	Color  color.Color
}

var panels = [2][2]panelSpec{
	{
		{Field: parser.FieldServoTrack, Title: "FTC Servo Track vs Spiral Count", YLabel: parser.FieldServoTrack, Color: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}},
		{Field: parser.FieldFTCTime, Title: "mS FTC Time vs Spiral Count", YLabel: parser.FieldFTCTime, Color: color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255}},
	},
	{
		{Field: parser.FieldBackDiff, Title: "Backdiff vs Spiral Count", YLabel: parser.FieldBackDiff, Color: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}},
		{Field: parser.FieldPWUpdate, Title: "PWupdate vs Spiral Count", YLabel: parser.FieldPWUpdate, Color: color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 255}},
	},
}

var markerColor = color.RGBA{R: 255, A: 255}

// lineSegments splits a column into runs of valid points; missing cells leave gaps.
func lineSegments(table *analysis.NormalizedTable, field string) []plotter.XYs {
	var segs []plotter.XYs
	var cur plotter.XYs
	for i, v := range table.Column(field) {
		if !v.Valid || math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(table.Rows[i].SpiralCount), Y: v.Float})
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

// createPanel builds a single line chart with the marker line at x = marker.
func createPanel(table *analysis.NormalizedTable, spec panelSpec, marker int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = spec.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = parser.FieldSpiralCount
	p.Y.Label.Text = spec.YLabel

	grid := plotter.NewGrid()
	grid.Vertical.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	grid.Vertical.Color = color.Gray{Y: 200}
	grid.Horizontal.Color = color.Gray{Y: 200}
	p.Add(grid)

	for _, seg := range lineSegments(table, spec.Field) {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for %s: %w", spec.Field, err)
		}
		line.Color = spec.Color
		line.Width = vg.Points(1)
		p.Add(line)
	}

	// The marker spans whatever Y range the data produced.
	if p.Y.Min > p.Y.Max {
		p.Y.Min, p.Y.Max = 0, 1
	}
	if p.Y.Min == p.Y.Max {
		p.Y.Min--
		p.Y.Max++
	}
	x := float64(marker)
	markerLine, err := plotter.NewLine(plotter.XYs{{X: x, Y: p.Y.Min}, {X: x, Y: p.Y.Max}})
	if err != nil {
		return nil, fmt.Errorf("failed to create marker line: %w", err)
	}
	markerLine.Color = markerColor
	markerLine.Width = vg.Points(1)
	markerLine.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(markerLine)

	return p, nil
}

// RenderFigure draws the four thermal panels in a 2x2 grid and returns PNG bytes.
func RenderFigure(table *analysis.NormalizedTable, marker int, label string, opts FigureOptions) ([]byte, error) {
	if table == nil {
		return nil, fmt.Errorf("no table to plot")
	}
	opts = opts.withDefaults()

	plots := make([][]*plot.Plot, len(panels))
	for r, row := range panels {
		plots[r] = make([]*plot.Plot, len(row))
		for c, spec := range row {
			p, err := createPanel(table, spec, marker)
			if err != nil {
				return nil, err
			}
			plots[r][c] = p
		}
	}

	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(img)

	titleHeight := vg.Points(40)
	title := plot.New().Title.TextStyle
	title.Font.Size = vg.Points(20)
	title.XAlign = draw.XCenter
	title.YAlign = draw.YTop
	dc.FillText(title, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - vg.Points(8)}, "Thermal Analysis: "+label)

	body := draw.Crop(dc, 0, 0, 0, -titleHeight)
	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      len(panels[0]),
		PadX:      vg.Points(20),
		PadY:      vg.Points(20),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(12),
		PadLeft:   vg.Points(12),
		PadRight:  vg.Points(12),
	}
	canvases := plot.Align(plots, tiles, body)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}

	buf := new(bytes.Buffer)
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write figure to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
