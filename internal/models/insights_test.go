package models

import (
	"reflect"
	"testing"
)

func TestGroupInsightsFrequentPlacesStopsAtPlainLine(t *testing.T) {
	g := GroupInsights([]string{"Most frequent places:", "- Market (5x)", "- Cafe (3x)", "Other text"})

	want := []string{"Market (5x)", "Cafe (3x)"}
	if !reflect.DeepEqual(g.FrequentPlaces, want) {
		t.Errorf("FrequentPlaces = %q, want %q", g.FrequentPlaces, want)
	}
	if len(g.LargestExpenses) != 0 || len(g.TopCategories) != 0 {
		t.Errorf("Unexpected groups: %+v", g)
	}
}

func TestGroupInsightsRunsAreIndependent(t *testing.T) {
	g := GroupInsights([]string{
		"💰 Total spent: R$ 1.000,00",
		"📊 Top spending categories:",
		"- food: R$ 600,00 (60.0%)",
		"- transport: R$ 400,00 (40.0%)",
		"⚠️ High spending alert: food represents 60.0% of your expenses",
		"🏪 Most frequent places:",
		"- Market: 5 times",
		"💸 Largest expenses:",
		"- R$ 250,00 at Market",
		"- R$ 120,00 at 50% off store",
		"📈 Weekly spending trending up: R$ 500,00 vs R$ 400,00 (+25.0%)",
		"📅 Highest spending day: Friday",
		"- stray line",
	})

	want := InsightGroups{
		TopCategoriesTitle: "📊 Top spending categories:",

		TopCategories:   []string{"food: R$ 600,00 (60.0%)", "transport: R$ 400,00 (40.0%)"},
		CategoryAlerts:  []string{"⚠️ High spending alert: food represents 60.0% of your expenses"},
		WeeklyTrends:    []string{"📈 Weekly spending trending up: R$ 500,00 vs R$ 400,00 (+25.0%)"},
		DailyPatterns:   []string{"📅 Highest spending day: Friday"},
		FrequentPlaces:  []string{"Market: 5 times"},
		LargestExpenses: []string{"R$ 250,00 at Market", "R$ 120,00 at 50% off store"},
	}
	if !reflect.DeepEqual(g, want) {
		t.Errorf("GroupInsights =\n%+v\nwant\n%+v", g, want)
	}
}

func TestGroupInsightsDetailPatternOutsideRun(t *testing.T) {
	g := GroupInsights([]string{"summary", "- rent: 45.0%"})
	if !reflect.DeepEqual(g.TopCategories, []string{"rent: 45.0%"}) {
		t.Errorf("TopCategories = %q", g.TopCategories)
	}
}

func TestGroupInsightsPortugueseMarkers(t *testing.T) {
	g := GroupInsights([]string{
		"📊 Principais categorias de gastos:",
		"- mercado: R$ 600,00 (60.0%)",
		"⚠️ Alerta de gasto alto: mercado representa 60.0% de suas despesas",
		"🏪 Lugares mais frequentes:",
		"- Padaria: 3 vezes",
		"💸 Maiores despesas:",
		"- R$ 300,00 em Loja",
	})

	if len(g.TopCategories) != 1 || len(g.CategoryAlerts) != 1 ||
		len(g.FrequentPlaces) != 1 || len(g.LargestExpenses) != 1 {
		t.Errorf("Unexpected grouping: %+v", g)
	}
}

func TestGroupInsightsTopCategoriesHeaderOnly(t *testing.T) {
	g := GroupInsights([]string{"📊 Top spending categories:"})

	if len(g.TopCategories) != 0 {
		t.Errorf("TopCategories = %q, want none", g.TopCategories)
	}
	want := []string{"📊 Top spending categories:"}
	if got := g.TopCategoryLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("TopCategoryLines = %q, want %q", got, want)
	}
}

func TestTopCategoryLinesWithoutHeader(t *testing.T) {
	g := GroupInsights([]string{"summary", "- rent: 45.0%"})
	if got := g.TopCategoryLines(); !reflect.DeepEqual(got, []string{"rent: 45.0%"}) {
		t.Errorf("TopCategoryLines = %q", got)
	}
}

func TestGroupInsightsEmpty(t *testing.T) {
	if g := GroupInsights(nil); !reflect.DeepEqual(g, InsightGroups{}) {
		t.Errorf("Expected empty groups, got %+v", g)
	}
}

func TestPayloadGroupsPrefersStructured(t *testing.T) {
	p := &AnalysisPayload{
		Insights:      []string{"Most frequent places:", "- Scraped"},
		InsightGroups: &InsightGroups{FrequentPlaces: []string{"Structured"}},
	}
	if got := p.Groups().FrequentPlaces; !reflect.DeepEqual(got, []string{"Structured"}) {
		t.Errorf("Groups().FrequentPlaces = %q", got)
	}

	p.InsightGroups = nil
	if got := p.Groups().FrequentPlaces; !reflect.DeepEqual(got, []string{"Scraped"}) {
		t.Errorf("Groups().FrequentPlaces = %q", got)
	}
}
