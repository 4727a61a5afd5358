package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/money"
)

// RawRecord is one loosely typed transaction as decoded from model output.
type RawRecord = map[string]any

var amountPunctuation = strings.NewReplacer("$", "", ",", "")

// NormalizeCategory returns v as a category when it is a member of the
// enumeration and the fallback category otherwise. Matching is exact.
func NormalizeCategory(v any) domain.TransactionCategory {
	if s, ok := v.(string); ok {
		if c := domain.TransactionCategory(s); c.IsValid() {
			return c
		}
	}
	return domain.FallbackCategory
}

// ResolveTransactionType returns v when it is exactly Income or Expense and
// otherwise infers the type from category. Callers pass the already
// normalized category, so an invalid category always infers Expense.
func ResolveTransactionType(v any, category domain.TransactionCategory) domain.TransactionType {
	if s, ok := v.(string); ok {
		if t := domain.TransactionType(s); t.IsValid() {
			return t
		}
	}
	return domain.TypeForCategory(category)
}

// CoerceAmount converts a number or currency-like string into a float.
// Dollar signs and commas are stripped, then the leading decimal literal is
// parsed and any trailing text (such as a currency suffix) is ignored.
// Input without a leading number yields 0. Negative values pass through.
func CoerceAmount(v any) float64 {
	s := amountPunctuation.Replace(stringify(v))
	d, ok := money.ParseLeading(s)
	if !ok {
		return 0
	}
	return money.ToFloat(d)
}

// NormalizeTransaction converts one raw record into a ParsedTransaction.
// It never fails: every field has a defaulting fallback.
func NormalizeTransaction(raw RawRecord, now time.Time) domain.ParsedTransaction {
	category := NormalizeCategory(raw["category"])
	return domain.ParsedTransaction{
		Description:     stringify(raw["description"]),
		Amount:          CoerceAmount(raw["amount"]),
		Date:            FormatDate(ResolveDate(stringify(raw["date"]), now)),
		Category:        category,
		TransactionType: ResolveTransactionType(raw["transactionType"], category),
	}
}

// NormalizeBatch normalizes records independently, preserving order and length.
func NormalizeBatch(records []RawRecord, now time.Time) []domain.ParsedTransaction {
	out := make([]domain.ParsedTransaction, len(records))
	for i, r := range records {
		out[i] = NormalizeTransaction(r, now)
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
