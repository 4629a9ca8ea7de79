package apistrings

const (
	/// Core Functionality Error
	ServerError = "a server error occurred, please try again later"

	/// Card Related Strings
	CardNotFound           = "card does not exist"
	CardCreated            = "card created successfully"
	CardFetched            = "card fetched successfully"
	CardsFetched           = "cards fetched successfully"
	InvalidCardInput       = "check 'currency_code' key, invalid request"
	InvalidPageInput       = "check 'page_number' or 'page_size' parameters, invalid request"
	InsufficientBalance    = "insufficient balance on card"
	CurrencyMismatch       = "transaction currency does not match card currency"
	InvalidTransactionType = "transaction type must be IN or OUT"

	/// Transaction Related Strings
	TransactionAdded        = "transaction registered successfully"
	InvalidTransactionInput = "check 'amount', 'currency_code' or 'type' keys, invalid request"
	ValidationFailed        = "request validation failed"
)
