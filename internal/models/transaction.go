package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType indicates whether a transaction brings money in or sends it out
type TransactionType string

const (
	Inflow  TransactionType = "Inflow"
	Outflow TransactionType = "Outflow"
)

// UncategorizedLabel is used when a transaction has no category
const UncategorizedLabel = "other"

// Transaction is a single statement line
type Transaction struct {
	ID          string          `json:"id,omitempty"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Place       string          `json:"place"`
	Category    string          `json:"category"`
	SourceFile  string          `json:"source_file"`
	Hash        string          `json:"hash"`
}

// ComputeHash generates a unique hash for duplicate detection
func (t *Transaction) ComputeHash() string {
	dateStr := t.Date.Format("2006-01-02")
	desc := strings.ToLower(strings.TrimSpace(t.Description))

	input := fmt.Sprintf("%s|%s|%s", dateStr, desc, t.Amount.StringFixed(2))
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// Type derives the direction of the transaction from its sign
func (t *Transaction) Type() TransactionType {
	if t.Amount.IsNegative() {
		return Outflow
	}
	return Inflow
}

// AbsAmount returns the absolute value of the amount
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// TransactionSet wraps a slice with filtering/aggregation methods
type TransactionSet struct {
	Transactions []Transaction
}

// NewTransactionSet creates a new TransactionSet from a slice
func NewTransactionSet(transactions []Transaction) *TransactionSet {
	return &TransactionSet{Transactions: transactions}
}

// Len returns the number of transactions
func (ts *TransactionSet) Len() int {
	return len(ts.Transactions)
}

// Filter returns the transactions for which keep returns true
func (ts *TransactionSet) Filter(keep func(Transaction) bool) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if keep(t) {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByType returns transactions of the specified type.
// Zero amounts count as neither.
func (ts *TransactionSet) FilterByType(tt TransactionType) *TransactionSet {
	return ts.Filter(func(t Transaction) bool {
		if t.Amount.IsZero() {
			return false
		}
		return t.Type() == tt
	})
}

// SumAmount returns the signed sum of all amounts
func (ts *TransactionSet) SumAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range ts.Transactions {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// SumAbsAmount returns the sum of absolute values
func (ts *TransactionSet) SumAbsAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range ts.Transactions {
		sum = sum.Add(t.Amount.Abs())
	}
	return sum
}

func (ts *TransactionSet) groupBy(key func(Transaction) string) map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		k := key(t)
		if result[k] == nil {
			result[k] = &TransactionSet{}
		}
		result[k].Transactions = append(result[k].Transactions, t)
	}
	return result
}

// GroupByCategory groups transactions by category
func (ts *TransactionSet) GroupByCategory() map[string]*TransactionSet {
	return ts.groupBy(func(t Transaction) string {
		if t.Category == "" {
			return UncategorizedLabel
		}
		return t.Category
	})
}

// GroupByDate groups transactions by calendar day ("2006-01-02")
func (ts *TransactionSet) GroupByDate() map[string]*TransactionSet {
	return ts.groupBy(func(t Transaction) string {
		return t.Date.Format("2006-01-02")
	})
}

// GroupByWeekday groups transactions by day of week ("Monday")
func (ts *TransactionSet) GroupByWeekday() map[string]*TransactionSet {
	return ts.groupBy(func(t Transaction) string {
		return t.Date.Weekday().String()
	})
}

// GroupByISOWeek groups transactions by ISO week ("2024-W05")
func (ts *TransactionSet) GroupByISOWeek() map[string]*TransactionSet {
	return ts.groupBy(func(t Transaction) string {
		year, week := t.Date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	})
}

// GroupByPlace groups transactions by simplified place name
func (ts *TransactionSet) GroupByPlace() map[string]*TransactionSet {
	return ts.groupBy(func(t Transaction) string {
		return t.Place
	})
}

// SortByAmount sorts transactions by amount (ascending, so the largest
// outflows come first). Ties keep statement order.
func (ts *TransactionSet) SortByAmount() *TransactionSet {
	sorted := make([]Transaction, len(ts.Transactions))
	copy(sorted, ts.Transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.LessThan(sorted[j].Amount)
	})
	return &TransactionSet{Transactions: sorted}
}

// SortByDate sorts transactions by date (ascending)
func (ts *TransactionSet) SortByDate() *TransactionSet {
	sorted := make([]Transaction, len(ts.Transactions))
	copy(sorted, ts.Transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &TransactionSet{Transactions: sorted}
}

// MaxDate returns the latest transaction date
func (ts *TransactionSet) MaxDate() time.Time {
	if len(ts.Transactions) == 0 {
		return time.Time{}
	}
	maxDate := ts.Transactions[0].Date
	for _, t := range ts.Transactions[1:] {
		if t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}
	return maxDate
}

// Categories returns a sorted list of unique categories
func (ts *TransactionSet) Categories() []string {
	groups := ts.GroupByCategory()
	cats := make([]string, 0, len(groups))
	for cat := range groups {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// CategoryTotals returns the absolute total per category, alphabetical,
// rounded to cents
func (ts *TransactionSet) CategoryTotals() CategoryTotals {
	groups := ts.GroupByCategory()
	result := make(CategoryTotals, 0, len(groups))
	for _, cat := range ts.Categories() {
		total := groups[cat].SumAbsAmount().Round(2)
		result = append(result, CategoryAmount{Name: cat, Amount: total.InexactFloat64()})
	}
	return result
}

// Copy creates a shallow copy of the TransactionSet
func (ts *TransactionSet) Copy() *TransactionSet {
	copied := make([]Transaction, len(ts.Transactions))
	copy(copied, ts.Transactions)
	return &TransactionSet{Transactions: copied}
}
