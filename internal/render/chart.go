package render

import (
	"fmt"
	"html/template"
	"strconv"
	"sync"
	"sync/atomic"

	"statementlens/internal/format"
	"statementlens/internal/models"
	"statementlens/internal/templates"
)

// Palette is cycled through for chart segments
var Palette = []string{
	"#3b82f6",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#ec4899",
	"#6366f1",
}

// ChartSpec describes a doughnut chart. Labels, Values and Colors line up.
type ChartSpec struct {
	Labels []string
	Values []float64
	Colors []string
}

// Chart is a live chart instance
type Chart interface {
	HTML() template.HTML
	Destroy()
}

// ChartRenderer creates chart instances
type ChartRenderer interface {
	Create(spec ChartSpec) (Chart, error)
}

// ChartSlot holds the one live chart of a page
type ChartSlot struct {
	mu      sync.Mutex
	current Chart
}

// Replace destroys the current chart, if any, and installs c
func (s *ChartSlot) Replace(c Chart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Destroy()
	}
	s.current = c
}

// Release destroys the current chart and leaves the slot empty
func (s *ChartSlot) Release() {
	s.Replace(nil)
}

// Current returns the live chart or nil
func (s *ChartSlot) Current() Chart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CategoryChartSpec builds the category doughnut: capitalized labels and
// palette colors in payload order
func CategoryChartSpec(categories models.CategoryTotals) ChartSpec {
	spec := ChartSpec{
		Labels: make([]string, len(categories)),
		Values: make([]float64, len(categories)),
		Colors: make([]string, len(categories)),
	}
	for i, c := range categories {
		spec.Labels[i] = format.Capitalize(c.Name)
		spec.Values[i] = c.Amount
		spec.Colors[i] = Palette[i%len(Palette)]
	}
	return spec
}

// CreateCharts releases the slot's previous chart, then creates and installs
// the category chart for payload
func CreateCharts(slot *ChartSlot, renderer ChartRenderer, payload *models.AnalysisPayload) (Chart, error) {
	slot.Release()
	chart, err := renderer.Create(CategoryChartSpec(payload.Categories))
	if err != nil {
		return nil, fmt.Errorf("create category chart: %w", err)
	}
	slot.Replace(chart)
	return chart, nil
}

// DonutRenderer draws doughnut charts as inline SVG with the legend on the
// right
type DonutRenderer struct {
	tmpl   *templates.Renderer
	active atomic.Int64
}

// NewDonutRenderer creates a renderer using the "donut-chart" template
func NewDonutRenderer(tmpl *templates.Renderer) *DonutRenderer {
	return &DonutRenderer{tmpl: tmpl}
}

// Active returns the number of charts created and not yet destroyed
func (d *DonutRenderer) Active() int {
	return int(d.active.Load())
}

type donutSegment struct {
	Label  string
	Value  string
	Color  string
	Dash   string
	Offset string
}

// Create lays out one segment per positive value. The ring has a
// circumference of 100 so dash lengths are percentages.
func (d *DonutRenderer) Create(spec ChartSpec) (Chart, error) {
	var total float64
	for _, v := range spec.Values {
		if v > 0 {
			total += v
		}
	}

	var segments []donutSegment
	// Segments start at 12 o'clock
	offset := 25.0
	for i, v := range spec.Values {
		if v <= 0 || total == 0 {
			continue
		}
		pct := v / total * 100
		segments = append(segments, donutSegment{
			Label:  spec.Labels[i],
			Value:  format.Currency(v),
			Color:  spec.Colors[i],
			Dash:   fmtFloat(pct) + " " + fmtFloat(100-pct),
			Offset: fmtFloat(offset),
		})
		offset -= pct
	}

	html, err := d.tmpl.RenderHTML("donut-chart", map[string]any{"Segments": segments})
	if err != nil {
		return nil, err
	}

	d.active.Add(1)
	return &donutChart{html: html, owner: d}, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

type donutChart struct {
	html      template.HTML
	owner     *DonutRenderer
	destroyed atomic.Bool
}

func (c *donutChart) HTML() template.HTML {
	return c.html
}

// Destroy is safe to call more than once
func (c *donutChart) Destroy() {
	if c.destroyed.CompareAndSwap(false, true) {
		c.owner.active.Add(-1)
	}
}
