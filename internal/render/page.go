// Package render paints an analysis payload into the named regions of the
// results page.
package render

import (
	"html/template"
	"maps"
	"sync"

	"statementlens/internal/upload"
)

// Region ids on the results page
const (
	RegionTotalSpent      = "totalSpent"
	RegionTotalReceived   = "totalReceived"
	RegionNetBalance      = "netBalance"
	RegionCategories      = "categoryBreakdown"
	RegionTopCategories   = "topCategories"
	RegionCategoryAlerts  = "categoryAlerts"
	RegionWeeklyTrends    = "weeklyTrends"
	RegionDailyPatterns   = "dailyPatterns"
	RegionFrequentPlaces  = "frequentPlaces"
	RegionLargeExpenses   = "largeExpenses"
	RegionRecommendations = "recommendationsList"
	RegionCategoryChart   = "categoryChart"
)

var _ upload.View = (*Page)(nil)

// Page is one results page: named HTML regions plus the form and status
// state the upload controller drives
type Page struct {
	mu      sync.RWMutex
	regions map[string]template.HTML

	FileName       string
	Busy           bool
	TriggerEnabled bool
	Error          string
	ResultsVisible bool
}

// NewPage returns an empty page in its initial state
func NewPage() *Page {
	return &Page{
		regions:        make(map[string]template.HTML),
		FileName:       upload.ChooseFileLabel,
		TriggerEnabled: true,
	}
}

// Replace sets the full contents of a region
func (p *Page) Replace(id string, html template.HTML) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regions[id] = html
}

// Region returns a region's contents, empty if never written
func (p *Page) Region(id string) template.HTML {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.regions[id]
}

// Regions returns a copy of every written region
func (p *Page) Regions() map[string]template.HTML {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.regions)
}

func (p *Page) SetFileName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FileName = name
}

func (p *Page) SetBusy(busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Busy = busy
}

func (p *Page) SetTriggerEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TriggerEnabled = enabled
}

func (p *Page) ShowError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Error = msg
}

func (p *Page) ClearError() {
	p.ShowError("")
}

func (p *Page) SetResultsVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ResultsVisible = visible
}
