package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// AnalysisPayload is the JSON document returned by the analysis endpoint
// for one uploaded statement.
type AnalysisPayload struct {
	TotalSpent      float64          `json:"total_spent"`
	TotalReceived   float64          `json:"total_received"`
	NetBalance      float64          `json:"net_balance"`
	Categories      CategoryTotals   `json:"categories"`
	Insights        []string         `json:"insights"`
	InsightGroups   *InsightGroups   `json:"insight_groups,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Error           string           `json:"error,omitempty"`
}

// Recommendation is one actionable suggestion. Priority is an open set of
// labels ("high", "medium", "low" are the ones produced here).
type Recommendation struct {
	Title       string   `json:"title"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// CategoryAmount is one entry of CategoryTotals
type CategoryAmount struct {
	Name   string
	Amount float64
}

// CategoryTotals maps category name to spent amount while remembering the
// order in which keys appeared in the JSON object.
type CategoryTotals []CategoryAmount

// Get returns the amount recorded for name
func (c CategoryTotals) Get(name string) (float64, bool) {
	for _, e := range c {
		if e.Name == name {
			return e.Amount, true
		}
	}
	return 0, false
}

// Total returns the sum of all amounts
func (c CategoryTotals) Total() float64 {
	var sum float64
	for _, e := range c {
		sum += e.Amount
	}
	return sum
}

// SortedByAmount returns a copy ordered by amount descending. Ties keep
// their original relative order.
func (c CategoryTotals) SortedByAmount() CategoryTotals {
	sorted := make(CategoryTotals, len(c))
	copy(sorted, c)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})
	return sorted
}

// MarshalJSON writes the totals as a JSON object in slice order
func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. A repeated key keeps
// its first position and takes the last value.
func (c *CategoryTotals) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("categories: expected object, got %v", tok)
	}

	var out CategoryTotals
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("categories: unexpected key %v", keyTok)
		}

		var amount float64
		if err := dec.Decode(&amount); err != nil {
			return fmt.Errorf("categories[%q]: %w", key, err)
		}

		if i, seen := index[key]; seen {
			out[i].Amount = amount
			continue
		}
		index[key] = len(out)
		out = append(out, CategoryAmount{Name: key, Amount: amount})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = out
	return nil
}
