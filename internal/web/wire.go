package web

import (
	"encoding/json"
	"time"

	"github.com/aristath/papertrader/internal/domain"
)

// TransactionResponse is a transaction on the wire
type TransactionResponse struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Side      string      `json:"type"`
	Quantity  int64       `json:"quantity"`
	Price     json.Number `json:"price"`
	Total     json.Number `json:"total"`
	Timestamp string      `json:"timestamp"`
}

// ToTransactionResponse converts a transaction for the wire
func ToTransactionResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Symbol:    tx.Symbol,
		Side:      string(tx.Side),
		Quantity:  tx.Quantity,
		Price:     domain.Amount(tx.Price),
		Total:     domain.Amount(tx.Total),
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// ToTransactionResponses converts a list of transactions, never returning nil
func ToTransactionResponses(txs []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionResponse(tx))
	}
	return out
}
