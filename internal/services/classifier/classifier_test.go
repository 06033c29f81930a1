package classifier

import (
	"testing"

	"statementlens/internal/models"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		description string
		expected    string
	}{
		// exact and partial keyword matches
		{"Uber", Transport},
		{"UBER *TRIP", Transport},
		{"Compra em Padaria Real", Restaurants},
		{"ifood *restaurante", Restaurants},
		{"Supermercado Bom Preço", Groceries},
		{"Netflix.com", Leisure},
		{"Drogasil 123", Health},
		{"Alura cursos online", Education},
		{"Conta de Energia", Bills},
		{"Amazon Marketplace", Shopping},

		// table order decides overlaps: "bar" is a restaurant before leisure
		{"Bar do Zé", Restaurants},

		// exact match of a later category beats partial of an earlier one
		// ("bilhete" is a transport keyword)
		{"bilheteria", Leisure},
		{"bilheteria do estadio", Transport},

		// transfers
		{"Transferência enviada pelo Pix - Fulano", Transfers},
		{"Pagamento de boleto", Transfers},

		// unmatched
		{"XYZ 123", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := Categorize(tt.description); got != tt.expected {
				t.Errorf("Categorize(%q) = %q, want %q", tt.description, got, tt.expected)
			}
		})
	}
}

func TestSimplifyDescription(t *testing.T) {
	tests := []struct {
		description string
		expected    string
	}{
		{"Compra em PADARIA REAL LTDA", "Padaria Real"},
		{"Pagamento em Posto Shell - Av Paulista", "Posto Shell"},
		{"Transferência enviada pelo Pix - Maria Souza - 123.456.789-00", "Maria Souza"},
		{"MERCADO   CENTRAL s.a.", "Mercado Central"},
		{"uber trip", "Uber Trip"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := SimplifyDescription(tt.description); got != tt.expected {
				t.Errorf("SimplifyDescription(%q) = %q, want %q", tt.description, got, tt.expected)
			}
		})
	}
}

func TestIsTransfer(t *testing.T) {
	if !IsTransfer("Transferência Recebida - Pix") {
		t.Error("Expected pix transfer to be a transfer")
	}
	if !IsTransfer("Pagamento de fatura") {
		t.Error("Expected bill payment to be a transfer")
	}
	if IsTransfer("Padaria Real") {
		t.Error("Did not expect a bakery to be a transfer")
	}
}

func TestClassifyTransactionsKeepsStatementCategory(t *testing.T) {
	txs := ClassifyTransactions([]models.Transaction{
		{Description: "Compra em Padaria Real"},
		{Description: "Something", Category: " Travel "},
	})

	if txs[0].Category != Restaurants {
		t.Errorf("Expected %q, got %q", Restaurants, txs[0].Category)
	}
	if txs[0].Place != "Padaria Real" {
		t.Errorf("Expected place %q, got %q", "Padaria Real", txs[0].Place)
	}
	if txs[1].Category != "travel" {
		t.Errorf("Expected statement category to be kept, got %q", txs[1].Category)
	}
}
