package analysis

import (
	"fmt"
	"math"
	"sort"

	"statementlens/internal/format"
	"statementlens/internal/models"
	"statementlens/internal/services/classifier"
)

// Recommendation priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

func (s *Service) generateRecommendations(outflows *models.TransactionSet, t totals, categories models.CategoryTotals) []models.Recommendation {
	var recs []models.Recommendation

	if t.balance < 0 {
		recs = append(recs, models.Recommendation{
			Priority:    PriorityHigh,
			Category:    "budget",
			Title:       "🚨 Urgent: Negative Balance",
			Description: "Your spending exceeded your income. Consider immediate budget adjustments.",
			Actions: []string{
				"Review all subscriptions and cancel the non-essential ones",
				"Freeze non-essential spending",
				"Look for additional sources of income",
			},
		})
	}

	if amount, ok := categories.Get(classifier.Restaurants); ok && amount > RestaurantBudget {
		recs = append(recs, models.Recommendation{
			Priority:    PriorityMedium,
			Category:    "food",
			Title:       "🍽️ High Restaurant Spending",
			Description: fmt.Sprintf("You spent %s on restaurants this period.", format.Currency(amount)),
			Actions: []string{
				"Cook more meals at home",
				"Plan meals ahead to reduce waste",
				"Look for deals and daily specials",
			},
		})
	}

	if irregularDailySpending(outflows) {
		recs = append(recs, models.Recommendation{
			Priority:    PriorityMedium,
			Category:    "habits",
			Title:       "📊 Irregular Spending Pattern",
			Description: "Your daily spending varies significantly.",
			Actions: []string{
				"Set a daily budget",
				"Track expenses as they happen",
				"Plan larger purchases in advance",
			},
		})
	}

	recs = append(recs, models.Recommendation{
		Priority:    PriorityLow,
		Category:    "savings",
		Title:       "💰 Building Financial Security",
		Description: "Recommendations for long-term financial health",
		Actions: []string{
			"Set up automatic savings of 20% of income",
			"Build an emergency fund",
			"Review and adjust your budget monthly",
		},
	})

	return recs
}

// irregularDailySpending reports whether the sample standard deviation of
// per-day spend exceeds IrregularityFactor times its mean. Fewer than two
// days with spending is never irregular.
func irregularDailySpending(outflows *models.TransactionSet) bool {
	byDate := outflows.GroupByDate()
	if len(byDate) < 2 {
		return false
	}

	days := make([]string, 0, len(byDate))
	for d := range byDate {
		days = append(days, d)
	}
	sort.Strings(days)

	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = byDate[d].SumAbsAmount().InexactFloat64()
	}

	mean, std := meanStdDev(values)
	return std > mean*IrregularityFactor
}

// meanStdDev returns the mean and sample (n-1) standard deviation
func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}
