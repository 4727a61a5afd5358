package pipeline

const (
	// DefaultCurrency names the base currency unit in the system prompt.
	DefaultCurrency = "Vietnamese dong"

	// DefaultBulkConcurrency caps concurrent writes in AddBulkTransactions.
	DefaultBulkConcurrency = 8
)
