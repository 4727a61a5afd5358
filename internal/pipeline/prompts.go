package pipeline

import (
	"strings"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// BuildSystemPrompt constructs the instructions sent with every parse request.
// The category and type enumerations are listed so the model picks from them.
func BuildSystemPrompt(currency string, today time.Time) string {
	if currency == "" {
		currency = DefaultCurrency
	}

	var b strings.Builder
	b.WriteString("You extract vehicle expenses and income from free text.\n\n")
	b.WriteString("Parse the user's text into structured transactions. For each transaction extract:\n")
	b.WriteString("- \"description\": short text describing the transaction\n")
	b.WriteString("- \"amount\": number in " + currency + " (no currency symbols)\n")
	b.WriteString("- \"date\": \"YYYY-MM-DD\", or a relative term such as \"today\", \"yesterday\" or \"tomorrow\"; today is " + FormatDate(today) + "\n")

	b.WriteString("- \"category\": one of: ")
	b.WriteString(joinCategories(domain.AllTransactionCategories()))
	b.WriteString("\n")

	b.WriteString("- \"transactionType\": one of: ")
	types := domain.AllTransactionTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("1. Use \"" + string(domain.CategoryServiceIncome) + "\" with type \"Income\" for money earned with the vehicle.\n")
	b.WriteString("2. If no category fits, use \"" + string(domain.FallbackCategory) + "\".\n")
	b.WriteString("3. Return a JSON object of the form {\"transactions\": [...]}, even for a single transaction.\n")

	return b.String()
}

func joinCategories(cats []domain.TransactionCategory) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
