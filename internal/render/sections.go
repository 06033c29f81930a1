package render

import (
	"statementlens/internal/format"
	"statementlens/internal/models"
)

// Placeholders shown when a panel has nothing to list
const (
	NoCategoryData       = "No category data available"
	NoAlerts             = "No alerts at the moment"
	NoFrequentPlacesData = "No frequent places data available"
	NoLargeExpensesData  = "No large expenses data available"
)

// Summary card classes
const (
	ClassPositive = "positive"
	ClassNegative = "negative"
)

// section is one independent renderer. Sections read the payload and write
// only their own regions.
type section struct {
	name   string
	render func(r *Renderer, p *models.AnalysisPayload, groups models.InsightGroups) error
}

var sections = []section{
	{"summary", renderSummary},
	{"categories", renderCategories},
	{"category analysis", renderCategoryAnalysis},
	{"spending patterns", renderSpendingPatterns},
	{"transaction analysis", renderTransactionAnalysis},
	{"recommendations", renderRecommendations},
	{"chart", renderChart},
}

type summaryCard struct {
	Label string
	Icon  string
	Class string
	Value string
}

type categoryRow struct {
	Name   string
	Amount string
}

type panel struct {
	Title       string
	Items       []string
	ItemClass   string
	Placeholder string
}

func renderSummary(r *Renderer, p *models.AnalysisPayload, _ models.InsightGroups) error {
	balanceClass := ClassPositive
	if p.NetBalance < 0 {
		balanceClass = ClassNegative
	}

	cards := []struct {
		region string
		card   summaryCard
	}{
		{RegionTotalSpent, summaryCard{"Total Spent", "icon-minus", ClassNegative, format.Currency(p.TotalSpent)}},
		{RegionTotalReceived, summaryCard{"Total Received", "icon-plus", ClassPositive, format.Currency(p.TotalReceived)}},
		{RegionNetBalance, summaryCard{"Balance", "icon-balance", balanceClass, format.Currency(p.NetBalance)}},
	}
	for _, c := range cards {
		if err := r.fill(c.region, "summary-card", c.card); err != nil {
			return err
		}
	}
	return nil
}

func renderCategories(r *Renderer, p *models.AnalysisPayload, _ models.InsightGroups) error {
	sorted := p.Categories.SortedByAmount()
	rows := make([]categoryRow, len(sorted))
	for i, c := range sorted {
		rows[i] = categoryRow{Name: format.Capitalize(c.Name), Amount: format.Currency(c.Amount)}
	}
	return r.fill(RegionCategories, "category-breakdown", rows)
}

func renderCategoryAnalysis(r *Renderer, _ *models.AnalysisPayload, g models.InsightGroups) error {
	err := r.fill(RegionTopCategories, "insight-panel", panel{
		Title:       "Top Spending Categories",
		Items:       g.TopCategoryLines(),
		Placeholder: NoCategoryData,
	})
	if err != nil {
		return err
	}
	return r.fill(RegionCategoryAlerts, "alert-panel", panel{
		Title:       "Category Alerts",
		Items:       g.CategoryAlerts,
		Placeholder: NoAlerts,
	})
}

func renderSpendingPatterns(r *Renderer, _ *models.AnalysisPayload, g models.InsightGroups) error {
	if err := r.fill(RegionWeeklyTrends, "insight-panel", panel{Title: "Weekly Trends", Items: g.WeeklyTrends}); err != nil {
		return err
	}
	return r.fill(RegionDailyPatterns, "insight-panel", panel{Title: "Daily Patterns", Items: g.DailyPatterns})
}

func renderTransactionAnalysis(r *Renderer, _ *models.AnalysisPayload, g models.InsightGroups) error {
	err := r.fill(RegionFrequentPlaces, "insight-panel", panel{
		Title:       "Most Frequent Places",
		Items:       g.FrequentPlaces,
		ItemClass:   "place-item",
		Placeholder: NoFrequentPlacesData,
	})
	if err != nil {
		return err
	}
	return r.fill(RegionLargeExpenses, "insight-panel", panel{
		Title:       "Largest Expenses",
		Items:       g.LargestExpenses,
		ItemClass:   "expense-item",
		Placeholder: NoLargeExpensesData,
	})
}

func renderRecommendations(r *Renderer, p *models.AnalysisPayload, _ models.InsightGroups) error {
	return r.fill(RegionRecommendations, "recommendation-list", p.Recommendations)
}

func renderChart(r *Renderer, p *models.AnalysisPayload, _ models.InsightGroups) error {
	chart, err := CreateCharts(r.slot, r.charts, p)
	if err != nil {
		return err
	}
	r.page.Replace(RegionCategoryChart, chart.HTML())
	return nil
}
