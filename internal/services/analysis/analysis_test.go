package analysis

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	applog "statementlens/internal/log"
	"statementlens/internal/models"
)

func tx(date, amount, category, place, description string) models.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return models.Transaction{
		Date:        d,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Place:       place,
		Description: description,
	}
}

func sampleStatement() *models.TransactionSet {
	return models.NewTransactionSet([]models.Transaction{
		tx("2024-01-01", "-50", "restaurants", "Padaria Real", "Compra no débito - Padaria Real"),
		tx("2024-01-02", "-50", "restaurants", "Padaria Real", "Compra no débito - Padaria Real"),
		tx("2024-01-05", "-450", "restaurants", "Churrascaria Boi", "Churrascaria Boi"),
		tx("2024-01-08", "-120", "transport", "Posto Shell", "Posto Shell"),
		tx("2024-01-09", "-30", "groceries", "Mercado Central", "Mercado Central"),
		tx("2024-01-09", "-200", "transfers", "Maria", "Transferência enviada pelo Pix - Maria"),
		tx("2024-01-10", "300", "transfers", "Empresa", "Transferência recebida"),
	})
}

func TestAnalyzeTotalsAndCategories(t *testing.T) {
	p := New(applog.Discard()).Analyze(sampleStatement())

	if p.TotalSpent != 900 || p.TotalReceived != 300 || p.NetBalance != -600 {
		t.Errorf("Totals = %v/%v/%v, want 900/300/-600", p.TotalSpent, p.TotalReceived, p.NetBalance)
	}

	want := models.CategoryTotals{
		{Name: "groceries", Amount: 30},
		{Name: "restaurants", Amount: 550},
		{Name: "transfers", Amount: 200},
		{Name: "transport", Amount: 120},
	}
	if !reflect.DeepEqual(p.Categories, want) {
		t.Errorf("Categories = %v, want %v", p.Categories, want)
	}
	if p.Error != "" {
		t.Errorf("Unexpected error field %q", p.Error)
	}
}

func TestAnalyzeInsightGroups(t *testing.T) {
	p := New(applog.Discard()).Analyze(sampleStatement())

	if p.InsightGroups == nil {
		t.Fatal("Expected structured insight groups")
	}
	g := *p.InsightGroups

	wantTop := []string{
		"restaurants: R$ 550,00 (61.1%)",
		"transfers: R$ 200,00 (22.2%)",
		"transport: R$ 120,00 (13.3%)",
	}
	if !reflect.DeepEqual(g.TopCategories, wantTop) {
		t.Errorf("TopCategories = %q, want %q", g.TopCategories, wantTop)
	}
	if g.TopCategoriesTitle != "📊 Top spending categories:" {
		t.Errorf("TopCategoriesTitle = %q", g.TopCategoriesTitle)
	}

	if len(g.CategoryAlerts) != 1 || !strings.Contains(g.CategoryAlerts[0], "restaurants represents 61.1%") {
		t.Errorf("CategoryAlerts = %q", g.CategoryAlerts)
	}

	wantPlaces := []string{
		"Padaria Real: 2 times",
		"Churrascaria Boi: 1 time",
		"Posto Shell: 1 time",
		"Mercado Central: 1 time",
	}
	if !reflect.DeepEqual(g.FrequentPlaces, wantPlaces) {
		t.Errorf("FrequentPlaces = %q, want %q", g.FrequentPlaces, wantPlaces)
	}

	wantLarge := []string{"R$ 450,00 at Churrascaria Boi", "R$ 120,00 at Posto Shell"}
	if !reflect.DeepEqual(g.LargestExpenses, wantLarge) {
		t.Errorf("LargestExpenses = %q, want %q", g.LargestExpenses, wantLarge)
	}

	wantDaily := []string{"📅 Highest spending day: Friday", "📅 Lowest spending day: Monday"}
	if !reflect.DeepEqual(g.DailyPatterns, wantDaily) {
		t.Errorf("DailyPatterns = %q, want %q", g.DailyPatterns, wantDaily)
	}

	wantWeekly := []string{"📈 Weekly spending trending down: R$ 350,00 in 2024-W02 vs R$ 550,00 in 2024-W01 (-36.4%)"}
	if !reflect.DeepEqual(g.WeeklyTrends, wantWeekly) {
		t.Errorf("WeeklyTrends = %q, want %q", g.WeeklyTrends, wantWeekly)
	}
}

func TestInsightLinesRegroupToSameGroups(t *testing.T) {
	p := New(applog.Discard()).Analyze(sampleStatement())

	regrouped := models.GroupInsights(p.Insights)
	if !reflect.DeepEqual(regrouped, *p.InsightGroups) {
		t.Errorf("GroupInsights(lines) =\n%+v\nstructured groups =\n%+v", regrouped, *p.InsightGroups)
	}
	if !strings.HasPrefix(p.Insights[0], "🚨 ALERT") {
		t.Errorf("Expected deficit alert first, got %q", p.Insights[0])
	}
}

func TestAnalyzeRecommendations(t *testing.T) {
	p := New(applog.Discard()).Analyze(sampleStatement())

	var priorities []string
	for _, r := range p.Recommendations {
		priorities = append(priorities, r.Priority)
		if len(r.Actions) == 0 {
			t.Errorf("Recommendation %q has no actions", r.Title)
		}
	}
	want := []string{PriorityHigh, PriorityMedium, PriorityMedium, PriorityLow}
	if !reflect.DeepEqual(priorities, want) {
		t.Errorf("Priorities = %v, want %v", priorities, want)
	}
	if !strings.Contains(p.Recommendations[1].Description, "R$ 550,00") {
		t.Errorf("Restaurant recommendation = %q", p.Recommendations[1].Description)
	}
}

func TestAnalyzeHealthyStatement(t *testing.T) {
	ts := models.NewTransactionSet([]models.Transaction{
		tx("2024-02-01", "5000", "other", "Empresa", "Salario"),
		tx("2024-02-01", "-80", "groceries", "Mercado", "Mercado"),
	})
	p := New(applog.Discard()).Analyze(ts)

	if p.NetBalance != 4920 {
		t.Errorf("NetBalance = %v, want 4920", p.NetBalance)
	}
	if strings.HasPrefix(p.Insights[0], "🚨") {
		t.Error("Did not expect a deficit alert")
	}
	if len(p.Recommendations) != 1 || p.Recommendations[0].Priority != PriorityLow {
		t.Errorf("Expected only the general recommendation, got %+v", p.Recommendations)
	}
	if len(p.InsightGroups.WeeklyTrends) != 0 {
		t.Errorf("Expected no weekly trend with a single week, got %q", p.InsightGroups.WeeklyTrends)
	}
	if len(p.InsightGroups.LargestExpenses) != 0 {
		t.Errorf("Expected no large expenses, got %q", p.InsightGroups.LargestExpenses)
	}
}

func TestMeanStdDev(t *testing.T) {
	mean, std := meanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Errorf("mean = %v, want 5", mean)
	}
	if std < 2.138 || std > 2.139 {
		t.Errorf("std = %v, want ~2.138", std)
	}
}
