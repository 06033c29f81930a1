package render

import (
	"context"
	"fmt"

	applog "statementlens/internal/log"
	"statementlens/internal/models"
	"statementlens/internal/templates"
	"statementlens/internal/upload"
)

var _ upload.ResultRenderer = (*Renderer)(nil)

// Renderer writes a payload into a Page through the section renderers
type Renderer struct {
	tmpl   *templates.Renderer
	charts ChartRenderer
	slot   *ChartSlot
	page   *Page
	log    *applog.Logger
}

// New creates a renderer for page. Each page gets its own renderer and
// chart slot.
func New(tmpl *templates.Renderer, charts ChartRenderer, page *Page, logger *applog.Logger) *Renderer {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Renderer{
		tmpl:   tmpl,
		charts: charts,
		slot:   &ChartSlot{},
		page:   page,
		log:    logger.WithComponent(applog.ComponentRender),
	}
}

// Page returns the page being rendered into
func (r *Renderer) Page() *Page {
	return r.page
}

// Slot returns the chart slot owned by this renderer
func (r *Renderer) Slot() *ChartSlot {
	return r.slot
}

// Close releases the live chart
func (r *Renderer) Close() {
	r.slot.Release()
}

// Display runs every section renderer against payload, in page order
func (r *Renderer) Display(ctx context.Context, payload *models.AnalysisPayload) error {
	groups := payload.Groups()
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.render(r, payload, groups); err != nil {
			return fmt.Errorf("render %s: %w", s.name, err)
		}
	}
	r.log.Debug("results rendered", "sections", len(sections))
	return nil
}

// fill renders a template into a region
func (r *Renderer) fill(region, name string, data any) error {
	html, err := r.tmpl.RenderHTML(name, data)
	if err != nil {
		return err
	}
	r.page.Replace(region, html)
	return nil
}
