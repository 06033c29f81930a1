// Package analysis computes the totals, category breakdown, insights and
// recommendations returned for an uploaded statement.
package analysis

import (
	applog "statementlens/internal/log"
	"statementlens/internal/models"
)

// Thresholds used by insights and recommendations
const (
	// HighSpendShare is the share of total spend (percent) above which a
	// category raises an alert
	HighSpendShare = 30.0

	// LargeExpenseThreshold is the minimum outflow listed as a large expense
	LargeExpenseThreshold = 100

	// RestaurantBudget is the restaurant spend above which a recommendation is made
	RestaurantBudget = 500

	// IrregularityFactor flags daily spending whose standard deviation
	// exceeds this fraction of the mean
	IrregularityFactor = 0.5

	TopCategoryCount    = 3
	FrequentPlaceCount  = 5
	LargestExpenseCount = 3
)

// Service provides statement analysis
type Service struct {
	log *applog.Logger
}

// New creates a new analysis service
func New(logger *applog.Logger) *Service {
	return &Service{log: logger.WithComponent(applog.ComponentAnalysis)}
}

// Analyze builds the payload for a parsed statement
func (s *Service) Analyze(ts *models.TransactionSet) *models.AnalysisPayload {
	outflows := ts.FilterByType(models.Outflow)
	inflows := ts.FilterByType(models.Inflow)

	spent := outflows.SumAbsAmount()
	received := inflows.SumAmount()
	balance := received.Sub(spent)

	t := totals{
		spent:    spent.InexactFloat64(),
		received: received.InexactFloat64(),
		balance:  balance.InexactFloat64(),
	}
	categories := outflows.CategoryTotals()

	insights := s.generateInsights(ts, outflows, t, categories)
	recommendations := s.generateRecommendations(outflows, t, categories)

	s.log.Info("statement analyzed",
		applog.FieldCount, ts.Len(),
		"categories", len(categories),
		"insights", len(insights.lines),
		"recommendations", len(recommendations),
	)

	groups := insights.groups
	return &models.AnalysisPayload{
		TotalSpent:      t.spent,
		TotalReceived:   t.received,
		NetBalance:      t.balance,
		Categories:      categories,
		Insights:        insights.lines,
		InsightGroups:   &groups,
		Recommendations: recommendations,
	}
}

// totals are the headline amounts; spent is positive
type totals struct {
	spent    float64
	received float64
	balance  float64
}
