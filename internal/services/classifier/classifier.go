package classifier

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"statementlens/internal/models"
)

// Category names produced by Categorize
const (
	Bills       = "bills"
	Restaurants = "restaurants"
	Groceries   = "groceries"
	Shopping    = "shopping"
	Transport   = "transport"
	Health      = "health"
	Leisure     = "leisure"
	Education   = "education"
	Transfers   = "transfers"
	Other       = models.UncategorizedLabel
)

type categoryKeywords struct {
	name     string
	keywords []string
}

// categoryTable is checked in order; the first category with a matching
// keyword wins. Keywords are lowercase and match Brazilian statement text.
var categoryTable = []categoryKeywords{
	{Bills, []string{
		"energia", "água", "gas natural", "internet", "fibra",
		"condomínio", "aluguel", "iptu", "taxa", "copasa",
		"cemig", "comgas", "fatura", "fgts", "seguro",
		"financiamento", "prestação", "parcela fixa",
	}},
	{Restaurants, []string{
		"restaurante", "rest ", "bar", "food", "ifood",
		"lanchonete", "padaria", "cafeteria", "pizzaria",
		"hamburger", "açaí", "doceria", "confeitaria",
		"churrascaria", "sushi", "china", "mc donalds",
		"burger king", "subway", "habib", "spoleto",
		"giraffas", "outback", "starbucks", "kfc",
	}},
	{Groceries, []string{
		"mercado", "supermercado", "hortifruti", "mercearia",
		"atacadão", "atacadista", "feira", "sacolão",
		"carrefour", "pão de açúcar", "extra", "dia",
		"assaí", "sams club", "makro", "quitanda",
		"açougue", "peixaria", "natural",
	}},
	{Shopping, []string{
		"shopping", "loja", "store", "magazine", "varejo",
		"americanas", "renner", "riachuelo", "c&a", "zara",
		"nike", "adidas", "amazon", "mercado livre", "aliexpress",
		"shopee", "magalu", "casas bahia", "ponto frio",
		"marisa", "centauro", "decathlon",
	}},
	{Transport, []string{
		"uber", "99taxi", "99 pop", "taxi", "cabify",
		"combustível", "gasolina", "etanol", "alcool",
		"posto", "shell", "ipiranga", "br ", "petrobras",
		"estacionamento", "zona azul", "pedágio", "sem parar",
		"conectcar", "move", "veloe", "bilhete", "metrô",
		"metro", "cptm", "sptrans", "brt", "van", "trem",
	}},
	{Health, []string{
		"drogaria", "farmacia", "farmácia", "hospital",
		"clínica", "consultório", "médico", "dentista",
		"laboratório", "exame", "academia", "psicólogo",
		"fisioterapia", "nutricionista", "droga raia",
		"drogasil", "pacheco", "ultrafarma", "pague menos",
		"smart fit", "bio ritmo",
	}},
	{Leisure, []string{
		"cinema", "teatro", "show", "evento", "ingresso",
		"netflix", "spotify", "disney", "hbo", "prime",
		"youtube", "jogos", "games", "steam", "playstation",
		"xbox", "bilheteria", "festa", "boate",
		"parque", "museu", "livraria", "cultura",
	}},
	{Education, []string{
		"escola", "faculdade", "universidade", "curso",
		"livro", "material escolar", "mensalidade",
		"matrícula", "udemy", "coursera", "alura",
		"kultivi", "duolingo", "babbel", "rosetta",
	}},
	{Transfers, []string{
		"transferência", "pix", "ted", "doc",
		"transferencia enviada", "transferência enviada",
		"envio pix", "pagamento",
	}},
}

// transferMarkers identify money movements that are not purchases at a place
var transferMarkers = []string{"pix", "transferencia", "transferência", "pagamento", "ted", "doc"}

// descriptionPrefixes are stripped, in order, by SimplifyDescription
var descriptionPrefixes = []string{
	"compra no débito - ", "compra no debito - ", "compra no crédito - ",
	"pagamento em ", "compra em ", "compra com cartao ",
	"compra cartao ", "compra ", "pgto ", "pag ", "pagto ",
	"transferência enviada pelo pix - ", "transferência recebida pelo pix - ",
	"transferência enviada - ", "transferência recebida - ",
	"pagamento da fatura - ", "pagamento fatura - ",
}

// descriptionCuts end the merchant name
var descriptionCuts = []string{" - ", "ltda", "s.a.", "s/a"}

// ClassifyTransactions fills Category and Place for each transaction.
// A category already supplied by the statement is kept (lowercased).
func ClassifyTransactions(transactions []models.Transaction) []models.Transaction {
	for i := range transactions {
		t := &transactions[i]
		if cat := strings.ToLower(strings.TrimSpace(t.Category)); cat != "" {
			t.Category = cat
		} else {
			t.Category = Categorize(t.Description)
		}
		t.Place = SimplifyDescription(t.Description)
	}
	return transactions
}

// Categorize maps a statement description to a category. Exact keyword
// matches beat partial ones; anything unmatched is Other.
func Categorize(description string) string {
	desc := strings.ToLower(strings.TrimSpace(description))

	for _, c := range categoryTable {
		for _, kw := range c.keywords {
			if kw == desc {
				return c.name
			}
		}
	}

	for _, c := range categoryTable {
		if containsAny(desc, c.keywords) {
			return c.name
		}
	}

	if (strings.Contains(desc, "pix") || strings.Contains(desc, "transferência")) &&
		(strings.Contains(desc, "enviado") || strings.Contains(desc, "enviada")) {
		return Transfers
	}

	return Other
}

// SimplifyDescription extracts the merchant or recipient name from a
// statement description, e.g. "Compra em PADARIA REAL LTDA" -> "Padaria Real".
func SimplifyDescription(description string) string {
	desc := strings.ToLower(description)

	for _, prefix := range descriptionPrefixes {
		desc = strings.TrimPrefix(desc, prefix)
	}

	for _, sep := range descriptionCuts {
		desc, _, _ = strings.Cut(desc, sep)
	}

	desc = strings.Join(strings.Fields(desc), " ")
	return cases.Title(language.BrazilianPortuguese).String(desc)
}

// IsTransfer reports whether a description looks like a transfer or bill
// payment rather than a purchase at a place.
func IsTransfer(description string) bool {
	return containsAny(strings.ToLower(description), transferMarkers)
}

// containsAny checks if text contains any of the keywords
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
