package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func tx(date string, amount string, category string) Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return Transaction{
		Date:        d,
		Amount:      decimal.RequireFromString(amount),
		Description: "test " + category,
		Category:    category,
	}
}

func TestFilterByType(t *testing.T) {
	ts := NewTransactionSet([]Transaction{
		tx("2024-01-01", "-10.00", "food"),
		tx("2024-01-02", "2500.00", ""),
		tx("2024-01-03", "0", "food"),
		tx("2024-01-04", "-5.50", "transport"),
	})

	if got := ts.FilterByType(Outflow).Len(); got != 2 {
		t.Errorf("Outflow count = %d, want 2", got)
	}
	if got := ts.FilterByType(Inflow).Len(); got != 1 {
		t.Errorf("Inflow count = %d, want 1", got)
	}
	if got := ts.FilterByType(Outflow).SumAmount().String(); got != "-15.5" {
		t.Errorf("Outflow sum = %s, want -15.5", got)
	}
}

func TestCategoryTotals(t *testing.T) {
	ts := NewTransactionSet([]Transaction{
		tx("2024-01-01", "-10.005", "transport"),
		tx("2024-01-02", "-20", "food"),
		tx("2024-01-03", "-0.10", "food"),
		tx("2024-01-04", "-1", ""),
	})

	totals := ts.CategoryTotals()
	want := CategoryTotals{{"food", 20.1}, {"other", 1}, {"transport", 10.01}}
	if len(totals) != len(want) {
		t.Fatalf("Expected %d totals, got %d: %v", len(want), len(totals), totals)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}
}

func TestSortByAmountLargestOutflowFirst(t *testing.T) {
	ts := NewTransactionSet([]Transaction{
		tx("2024-01-01", "-10", "a"),
		tx("2024-01-02", "-300", "b"),
		tx("2024-01-03", "50", "c"),
		tx("2024-01-04", "-300", "d"),
	})

	sorted := ts.SortByAmount()
	want := []string{"b", "d", "a", "c"}
	for i, cat := range want {
		if sorted.Transactions[i].Category != cat {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted.Transactions[i].Category, cat)
		}
	}
}

func TestGroupByISOWeek(t *testing.T) {
	ts := NewTransactionSet([]Transaction{
		tx("2024-01-29", "-1", "a"),
		tx("2024-02-04", "-1", "a"),
		tx("2024-02-05", "-1", "a"),
	})

	groups := ts.GroupByISOWeek()
	if groups["2024-W05"].Len() != 2 {
		t.Errorf("Expected 2 transactions in 2024-W05, got %d", groups["2024-W05"].Len())
	}
	if groups["2024-W06"].Len() != 1 {
		t.Errorf("Expected 1 transaction in 2024-W06, got %d", groups["2024-W06"].Len())
	}
}

func TestComputeHashStable(t *testing.T) {
	a := tx("2024-01-01", "-10.0", "food")
	b := tx("2024-01-01", "-10.00", "food")
	b.Description = "  TEST food "
	if a.ComputeHash() != b.ComputeHash() {
		t.Error("Expected equal hashes for equivalent transactions")
	}
}
