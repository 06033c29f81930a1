package models

import "strings"

// Insight markers. The analysis service writes them and GroupInsights reads
// them back. Each group also accepts the Portuguese wording used by older
// analysis servers.
var (
	TopCategoriesMarkers   = []string{"Top spending categories", "Principais categorias de gastos"}
	HighSpendAlertMarkers  = []string{"High spending alert", "Alerta de gasto alto"}
	FrequentPlacesMarkers  = []string{"Most frequent places:", "Lugares mais frequentes:"}
	LargestExpensesMarkers = []string{"Largest expenses:", "Maiores despesas:"}
	TrendingMarkers        = []string{"trending"}
	SpendingDayMarkers     = []string{"spending day"}
)

// ListItemPrefix starts every detail line that belongs to the header above it
const ListItemPrefix = "- "

// InsightGroups carries the grouped insight lines as structured lists.
// Items never include the list prefix or the group header. The top
// categories header is kept separately as its panel title line.
type InsightGroups struct {
	TopCategoriesTitle string `json:"top_categories_title,omitempty"`

	TopCategories   []string `json:"top_categories"`
	CategoryAlerts  []string `json:"category_alerts"`
	WeeklyTrends    []string `json:"weekly_trends"`
	DailyPatterns   []string `json:"daily_patterns"`
	FrequentPlaces  []string `json:"frequent_places"`
	LargestExpenses []string `json:"largest_expenses"`
}

// Groups returns the structured groups when the payload carries them and
// otherwise reconstructs them from the insight lines.
func (p *AnalysisPayload) Groups() InsightGroups {
	if p.InsightGroups != nil {
		return *p.InsightGroups
	}
	return GroupInsights(p.Insights)
}

// GroupInsights rebuilds insight groups from the ordered lines in a single
// pass. A header opens a run that captures the following "- " lines and
// closes at the first line without the prefix. Lines outside a run go to the
// first group whose marker they contain. No line lands in two groups.
func GroupInsights(insights []string) InsightGroups {
	var g InsightGroups
	var run *[]string

	for _, line := range insights {
		switch {
		case containsAny(line, FrequentPlacesMarkers):
			run = &g.FrequentPlaces
			continue
		case containsAny(line, LargestExpensesMarkers):
			run = &g.LargestExpenses
			continue
		case containsAny(line, TopCategoriesMarkers):
			g.TopCategoriesTitle = line
			run = &g.TopCategories
			continue
		}

		if run != nil && strings.HasPrefix(line, ListItemPrefix) {
			*run = append(*run, strings.TrimPrefix(line, ListItemPrefix))
			continue
		}
		run = nil

		switch {
		case containsAny(line, HighSpendAlertMarkers):
			g.CategoryAlerts = append(g.CategoryAlerts, line)
		case strings.Contains(line, ListItemPrefix) && strings.Contains(line, "%"):
			g.TopCategories = append(g.TopCategories, strings.TrimPrefix(line, ListItemPrefix))
		case containsAny(line, TrendingMarkers):
			g.WeeklyTrends = append(g.WeeklyTrends, line)
		case containsAny(line, SpendingDayMarkers):
			g.DailyPatterns = append(g.DailyPatterns, line)
		}
	}

	return g
}

// TopCategoryLines is the top categories panel content: the header line,
// when there was one, followed by the items
func (g InsightGroups) TopCategoryLines() []string {
	if g.TopCategoriesTitle == "" {
		return g.TopCategories
	}
	return append([]string{g.TopCategoriesTitle}, g.TopCategories...)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
