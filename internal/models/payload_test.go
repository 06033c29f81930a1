package models

import (
	"encoding/json"
	"testing"
)

func TestCategoryTotalsKeepsDocumentOrder(t *testing.T) {
	var p AnalysisPayload
	body := `{"total_spent": 10, "categories": {"transport": 400, "food": 600, "bills": 400}}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"transport", "food", "bills"}
	if len(p.Categories) != len(want) {
		t.Fatalf("Expected %d categories, got %d", len(want), len(p.Categories))
	}
	for i, name := range want {
		if p.Categories[i].Name != name {
			t.Errorf("Categories[%d] = %q, want %q", i, p.Categories[i].Name, name)
		}
	}
}

func TestCategoryTotalsDuplicateKey(t *testing.T) {
	var c CategoryTotals
	if err := json.Unmarshal([]byte(`{"food": 1, "bills": 2, "food": 3}`), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(c) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(c))
	}
	if c[0].Name != "food" || c[0].Amount != 3 {
		t.Errorf("Expected food=3 in first position, got %+v", c[0])
	}
}

func TestCategoryTotalsNullAndEmpty(t *testing.T) {
	var p AnalysisPayload
	if err := json.Unmarshal([]byte(`{"categories": null}`), &p); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if len(p.Categories) != 0 {
		t.Errorf("Expected no categories, got %v", p.Categories)
	}

	if err := json.Unmarshal([]byte(`{"categories": {}}`), &p); err != nil {
		t.Fatalf("Unmarshal empty failed: %v", err)
	}
	if len(p.Categories) != 0 {
		t.Errorf("Expected no categories, got %v", p.Categories)
	}
}

func TestCategoryTotalsRejectsNonObject(t *testing.T) {
	var c CategoryTotals
	if err := json.Unmarshal([]byte(`[1, 2]`), &c); err == nil {
		t.Error("Expected error for array input")
	}
	if err := json.Unmarshal([]byte(`{"food": "a lot"}`), &c); err == nil {
		t.Error("Expected error for non-numeric amount")
	}
}

func TestCategoryTotalsMarshalOrder(t *testing.T) {
	c := CategoryTotals{{"zeta", 1.5}, {"alpha", 2}}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"zeta":1.5,"alpha":2}` {
		t.Errorf("Marshal = %s", data)
	}

	empty, _ := json.Marshal(CategoryTotals(nil))
	if string(empty) != `{}` {
		t.Errorf("Marshal(nil) = %s, want {}", empty)
	}
}

func TestSortedByAmountIsStable(t *testing.T) {
	c := CategoryTotals{
		{"a", 100},
		{"b", 300},
		{"c", 100},
		{"d", 300},
		{"e", 50},
	}
	sorted := c.SortedByAmount()

	want := []string{"b", "d", "a", "c", "e"}
	for i, name := range want {
		if sorted[i].Name != name {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i].Name, name)
		}
	}
	if c[0].Name != "a" {
		t.Error("SortedByAmount must not reorder the receiver")
	}
	if got := c.Total(); got != 850 {
		t.Errorf("Total() = %v, want 850", got)
	}
}
