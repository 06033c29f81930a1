// Package statement turns uploaded bank statement files (CSV or XLSX) into
// transactions.
package statement

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	applog "statementlens/internal/log"
	"statementlens/internal/models"
	"statementlens/internal/services/classifier"
)

// ErrNoTransactions is returned when a statement parses but holds no usable rows
var ErrNoTransactions = errors.New("no transactions found")

// ValidationError describes a statement the user has to fix
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Standard column names
const (
	colDate        = "date"
	colDescription = "description"
	colAmount      = "amount"
	colID          = "id"
	colCategory    = "category"
	colDebit       = "debit"
	colCredit      = "credit"
)

// columnMappings maps bank export column names (lowercase) to standard names.
// Nubank exports use Data, Valor, Identificador and Descrição.
var columnMappings = map[string][]string{
	colDate: {
		"data", "date", "data da transação", "data lançamento", "data de lançamento",
		"transaction date", "posted date", "post date", "trans date", "posting date",
	},
	colDescription: {
		"descrição", "descricao", "description", "histórico", "historico",
		"estabelecimento", "title", "título", "titulo",
		"memo", "details", "payee", "merchant", "narrative", "transaction description",
	},
	colAmount: {
		"valor", "valor (r$)", "amount", "value", "transaction amount", "sum",
	},
	colID: {
		"identificador", "id", "transaction id",
	},
	colCategory: {
		"categoria", "category", "category name",
	},
	colDebit: {
		"débito", "debito", "saída", "saida", "debit", "withdrawal", "withdrawals", "money out",
	},
	colCredit: {
		"crédito", "credito", "entrada", "credit", "deposit", "deposits", "money in",
	},
}

// dateLayouts are tried in order; day-first comes before any ISO layout
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Parser reads statements
type Parser struct {
	log *applog.Logger
}

// New creates a Parser
func New(logger *applog.Logger) *Parser {
	return &Parser{log: logger.WithComponent(applog.ComponentStatement)}
}

// Parse reads a statement named name and returns its categorized
// transactions. Rows that cannot be parsed are skipped with a warning.
func (p *Parser) Parse(name string, data []byte) (*models.TransactionSet, error) {
	var rows [][]string
	var commaDecimal bool
	var err error

	if isExcelFile(name, data) {
		rows, err = readXLSX(data)
		p.log.Debug("reading spreadsheet", applog.FieldFile, name)
	} else {
		var comma rune
		var enc string
		rows, comma, enc, err = readCSV(data)
		// ';' exports use comma decimals, so "1.234" means 1234
		commaDecimal = comma == ';'
		p.log.Debug("reading csv", applog.FieldFile, name, "encoding", enc, "delimiter", string(comma))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &ValidationError{Message: "the file is empty"}
	}

	transactions, err := p.parseRows(filepath.Base(name), rows, commaDecimal)
	if err != nil {
		return nil, err
	}

	transactions = deduplicateTransactions(transactions)
	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}
	transactions = classifier.ClassifyTransactions(transactions)

	p.log.Info("statement parsed", applog.FieldFile, name, applog.FieldCount, len(transactions))
	return models.NewTransactionSet(transactions), nil
}

// parseRows maps a header row plus records to transactions. commaDecimal
// marks files whose amounts use ',' as the decimal separator.
func (p *Parser) parseRows(sourceFile string, rows [][]string, commaDecimal bool) ([]models.Transaction, error) {
	colIndex := buildColumnIndex(rows[0])

	_, hasAmount := colIndex[colAmount]
	_, hasDebit := colIndex[colDebit]
	_, hasCredit := colIndex[colCredit]
	useDebitCredit := !hasAmount && (hasDebit || hasCredit)

	if _, ok := colIndex[colDate]; !ok {
		return nil, missingColumn(colDate)
	}
	if _, ok := colIndex[colDescription]; !ok {
		return nil, missingColumn(colDescription)
	}
	if !hasAmount && !useDebitCredit {
		return nil, missingColumn(colAmount)
	}

	var transactions []models.Transaction
	for i, record := range rows[1:] {
		lineNum := i + 2
		if isBlankRow(record) {
			continue
		}

		t := models.Transaction{SourceFile: sourceFile}

		dateStr := cell(record, colIndex, colDate)
		t.Date = parseDate(dateStr)
		if t.Date.IsZero() {
			p.log.Warn("skipping row with unreadable date", "line", lineNum, "value", dateStr)
			continue
		}

		var err error
		if useDebitCredit {
			t.Amount, err = parseDebitCredit(record, colIndex, commaDecimal)
		} else {
			t.Amount, err = parseAmount(cell(record, colIndex, colAmount), commaDecimal)
		}
		if err != nil {
			p.log.Warn("skipping row with unreadable amount", "line", lineNum, applog.FieldError, err)
			continue
		}

		t.Description = cell(record, colIndex, colDescription)
		t.ID = cell(record, colIndex, colID)
		t.Category = cell(record, colIndex, colCategory)
		t.Hash = t.ComputeHash()
		transactions = append(transactions, t)
	}

	return transactions, nil
}

func missingColumn(standard string) error {
	return &ValidationError{Message: fmt.Sprintf("missing required column: %s (tried: %s)",
		standard, strings.Join(columnMappings[standard], ", "))}
}

// normalizeColumnName maps a bank export column name to our standard name
func normalizeColumnName(col string) string {
	col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if col == variant {
				return standard
			}
		}
	}
	return col
}

// buildColumnIndex creates a normalized column index from the header row
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(col)
		// first match wins
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// cell returns the trimmed value of a standard column, or ""
func cell(record []string, colIndex map[string]int, standard string) string {
	if idx, ok := colIndex[standard]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// parseDebitCredit combines Debit and Credit columns into a single signed
// amount: credits positive, debits negative
func parseDebitCredit(record []string, colIndex map[string]int, commaDecimal bool) (decimal.Decimal, error) {
	if s := cell(record, colIndex, colDebit); s != "" {
		debit, err := parseAmount(s, commaDecimal)
		if err != nil {
			return decimal.Zero, err
		}
		if !debit.IsZero() {
			return debit.Abs().Neg(), nil
		}
	}
	if s := cell(record, colIndex, colCredit); s != "" {
		credit, err := parseAmount(s, commaDecimal)
		if err != nil {
			return decimal.Zero, err
		}
		return credit.Abs(), nil
	}
	return decimal.Zero, nil
}

// parseDate tries the known layouts, then an Excel serial day number
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t
		}
	}
	return time.Time{}
}

var amountCleaner = strings.NewReplacer("R$", "", "$", "", " ", "", "\u00a0", "")

// parseAmount parses an amount in either "1.234,56" or "1,234.56" notation,
// with optional currency symbol and parentheses for negatives. With
// commaDecimal set, a lone dot followed by exactly three digits ("1.234")
// is a thousands separator.
func parseAmount(s string, commaDecimal bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountCleaner.Replace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case commaDecimal && lastDot >= 0 && len(s)-lastDot-1 == 3:
		s = strings.Replace(s, ".", "", 1)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// deduplicateTransactions drops rows repeating a bank-assigned identifier.
// Rows without one are kept, since identical purchases on the same day are
// legitimate.
func deduplicateTransactions(transactions []models.Transaction) []models.Transaction {
	seen := make(map[string]bool)
	unique := transactions[:0]
	for _, t := range transactions {
		if t.ID != "" {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
		}
		unique = append(unique, t)
	}
	return unique
}
