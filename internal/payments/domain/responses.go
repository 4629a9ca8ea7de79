package domain

import "time"

type CardResponse struct {
	Number       string                `json:"number"`
	Expiration   string                `json:"expiration"`
	Balance      string                `json:"balance"`
	CurrencyCode string                `json:"currency_code"`
	Transactions []TransactionResponse `json:"transactions"`
}

type CardSummaryResponse struct {
	Number       string `json:"number"`
	Expiration   string `json:"expiration"`
	Balance      string `json:"balance"`
	CurrencyCode string `json:"currency_code"`
}

type CardCollectionResponse struct {
	Content    []CardSummaryResponse `json:"content"`
	PageNumber int                   `json:"page_number"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

type TransactionResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
	Type      string    `json:"type"`
}

type AddCardResponse struct {
	Number     string `json:"number"`
	Expiration string `json:"expiration"`
}

type AddTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}
