package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"statementlens/internal/format"
	"statementlens/internal/models"
	"statementlens/internal/services/classifier"
)

// insightWriter records insight lines and the structured group each one
// belongs to, so both views of the insights always agree
type insightWriter struct {
	lines  []string
	groups models.InsightGroups
}

func (w *insightWriter) line(layout string, args ...any) {
	w.lines = append(w.lines, fmt.Sprintf(layout, args...))
}

// grouped writes a standalone line that also belongs to group
func (w *insightWriter) grouped(group *[]string, layout string, args ...any) {
	text := fmt.Sprintf(layout, args...)
	w.lines = append(w.lines, text)
	*group = append(*group, text)
}

// item writes a "- " detail line under the last header
func (w *insightWriter) item(group *[]string, layout string, args ...any) {
	text := fmt.Sprintf(layout, args...)
	w.lines = append(w.lines, models.ListItemPrefix+text)
	*group = append(*group, text)
}

func (s *Service) generateInsights(all, outflows *models.TransactionSet, t totals, categories models.CategoryTotals) *insightWriter {
	w := &insightWriter{}

	if t.balance < 0 {
		w.line("🚨 ALERT: your spending exceeded your income for this period! 🚨")
	}

	w.line("💰 Total spent: %s", format.Currency(t.spent))
	w.line("📈 Total received: %s", format.Currency(t.received))
	w.line("🏦 Balance: %s", format.Currency(t.balance))

	if len(categories) > 0 {
		writeCategoryInsights(w, t, categories)
	}

	purchases := outflows.Filter(func(tx models.Transaction) bool {
		return tx.Place != "" && !classifier.IsTransfer(tx.Description)
	})
	writeFrequentPlaces(w, purchases)
	writeLargestExpenses(w, purchases)
	writeWeekdayPattern(w, outflows)
	writeWeeklyTrend(w, outflows)

	return w
}

func writeCategoryInsights(w *insightWriter, t totals, categories models.CategoryTotals) {
	w.groups.TopCategoriesTitle = fmt.Sprintf("📊 %s:", models.TopCategoriesMarkers[0])
	w.line("%s", w.groups.TopCategoriesTitle)
	sorted := categories.SortedByAmount()
	for i, c := range sorted {
		if i == TopCategoryCount {
			break
		}
		w.item(&w.groups.TopCategories, "%s: %s (%s)",
			c.Name, format.Currency(c.Amount), format.Percent(share(c.Amount, t.spent)))
	}

	total := categories.Total()
	for _, c := range categories {
		pct := share(c.Amount, total)
		if pct > HighSpendShare {
			w.grouped(&w.groups.CategoryAlerts, "⚠️ %s: %s represents %s of your expenses",
				models.HighSpendAlertMarkers[0], c.Name, format.Percent(pct))
		}
	}
}

type placeCount struct {
	place string
	count int
	first int
}

func writeFrequentPlaces(w *insightWriter, purchases *models.TransactionSet) {
	if purchases.Len() == 0 {
		return
	}

	byPlace := make(map[string]*placeCount)
	var places []*placeCount
	for i, tx := range purchases.Transactions {
		pc, ok := byPlace[tx.Place]
		if !ok {
			pc = &placeCount{place: tx.Place, first: i}
			byPlace[tx.Place] = pc
			places = append(places, pc)
		}
		pc.count++
	}
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].count > places[j].count
	})

	w.line("🏪 %s", models.FrequentPlacesMarkers[0])
	for i, pc := range places {
		if i == FrequentPlaceCount {
			break
		}
		unit := "times"
		if pc.count == 1 {
			unit = "time"
		}
		w.item(&w.groups.FrequentPlaces, "%s: %d %s", pc.place, pc.count, unit)
	}
}

func writeLargestExpenses(w *insightWriter, purchases *models.TransactionSet) {
	limit := decimal.NewFromInt(-LargeExpenseThreshold)
	large := purchases.Filter(func(tx models.Transaction) bool {
		return tx.Amount.LessThan(limit)
	}).SortByAmount()
	if large.Len() == 0 {
		return
	}

	w.line("💸 %s", models.LargestExpensesMarkers[0])
	for i, tx := range large.Transactions {
		if i == LargestExpenseCount {
			break
		}
		w.item(&w.groups.LargestExpenses, "%s at %s", format.CurrencyDecimal(tx.Amount), tx.Place)
	}
}

// writeWeekdayPattern reports the weekdays with the highest and lowest spend.
// Ties go to the earlier weekday (Sunday first).
func writeWeekdayPattern(w *insightWriter, outflows *models.TransactionSet) {
	byDay := outflows.GroupByWeekday()
	if len(byDay) == 0 {
		return
	}

	var maxDay, minDay time.Weekday
	var maxAmt, minAmt decimal.Decimal
	first := true
	for d := time.Sunday; d <= time.Saturday; d++ {
		set, ok := byDay[d.String()]
		if !ok {
			continue
		}
		amt := set.SumAbsAmount()
		if first || amt.GreaterThan(maxAmt) {
			maxDay, maxAmt = d, amt
		}
		if first || amt.LessThan(minAmt) {
			minDay, minAmt = d, amt
		}
		first = false
	}

	w.grouped(&w.groups.DailyPatterns, "📅 Highest %s: %s", models.SpendingDayMarkers[0], maxDay)
	w.grouped(&w.groups.DailyPatterns, "📅 Lowest %s: %s", models.SpendingDayMarkers[0], minDay)
}

// writeWeeklyTrend compares the latest ISO week with the previous week that
// had spending
func writeWeeklyTrend(w *insightWriter, outflows *models.TransactionSet) {
	byWeek := outflows.GroupByISOWeek()
	if len(byWeek) < 2 {
		return
	}

	weeks := make([]string, 0, len(byWeek))
	for wk := range byWeek {
		weeks = append(weeks, wk)
	}
	sort.Strings(weeks)

	lastWeek, prevWeek := weeks[len(weeks)-1], weeks[len(weeks)-2]
	last := byWeek[lastWeek].SumAbsAmount().InexactFloat64()
	prev := byWeek[prevWeek].SumAbsAmount().InexactFloat64()

	change := (last - prev) / prev * 100
	direction := "stable"
	switch {
	case change >= 5:
		direction = "up"
	case change <= -5:
		direction = "down"
	}

	w.grouped(&w.groups.WeeklyTrends, "📈 Weekly spending %s %s: %s in %s vs %s in %s (%s)",
		models.TrendingMarkers[0], direction,
		format.Currency(last), lastWeek, format.Currency(prev), prevWeek,
		format.SignedPercent(change))
}

// share returns part as a percentage of whole
func share(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
