package pipeline

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"dollar and comma", "$1,200.50", 1200.5},
		{"plain string", "1200.50", 1200.5},
		{"number", 1200.5, 1200.5},
		{"not a number", "abc", 0},
		{"dong suffix", "2,000,000đ", 2000000},
		{"negative passes through", "-50", -50},
		{"fraction", "0.25", 0.25},
		{"json number", json.Number("42"), 42},
		{"int", 7, 7},
		{"nil", nil, 0},
		{"bool", true, 0},
		{"NaN float", math.NaN(), 0},
		{"infinite float", math.Inf(1), 0},
		{"empty", "", 0},
		{"tiny exponent", "1e-2000000000", 0},
		{"huge exponent", "7e999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceAmount(tt.in)
			if got != tt.want {
				t.Errorf("CoerceAmount(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Errorf("CoerceAmount(%v) is not finite", tt.in)
			}
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	for _, c := range domain.AllTransactionCategories() {
		if got := NormalizeCategory(string(c)); got != c {
			t.Errorf("NormalizeCategory(%q) = %q, want unchanged", c, got)
		}
	}

	for _, v := range []any{"InvalidCat", "fuel", "", nil, 3.5} {
		if got := NormalizeCategory(v); got != domain.CategoryOther {
			t.Errorf("NormalizeCategory(%v) = %q, want Other", v, got)
		}
	}
}

func TestResolveTransactionType(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		category domain.TransactionCategory
		want     domain.TransactionType
	}{
		{"explicit income kept", "Income", domain.CategoryFuel, domain.TransactionTypeIncome},
		{"explicit expense kept", "Expense", domain.CategoryServiceIncome, domain.TransactionTypeExpense},
		{"inferred income", "Bogus", domain.CategoryServiceIncome, domain.TransactionTypeIncome},
		{"inferred expense", nil, domain.CategoryToll, domain.TransactionTypeExpense},
		{"lowercase is invalid", "income", domain.CategoryOther, domain.TransactionTypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTransactionType(tt.in, tt.category); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNormalizeTransaction(t *testing.T) {
	now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  RawRecord
		want domain.ParsedTransaction
	}{
		{
			name: "invalid enums default",
			raw: RawRecord{
				"date":            "Yesterday",
				"amount":          "2,000,000đ",
				"category":        "InvalidCat",
				"transactionType": "Bogus",
			},
			want: domain.ParsedTransaction{
				Date:            "2024-03-14",
				Amount:          2000000,
				Category:        domain.CategoryOther,
				TransactionType: domain.TransactionTypeExpense,
			},
		},
		{
			name: "service income inferred",
			raw: RawRecord{
				"description": "Grab rides",
				"date":        "today",
				"amount":      350000.0,
				"category":    "ServiceIncome",
			},
			want: domain.ParsedTransaction{
				Description:     "Grab rides",
				Date:            "2024-03-15",
				Amount:          350000,
				Category:        domain.CategoryServiceIncome,
				TransactionType: domain.TransactionTypeIncome,
			},
		},
		{
			name: "misspelled income category falls to expense",
			raw: RawRecord{
				"date":     "2024-03-01",
				"amount":   "100",
				"category": "Service Income",
			},
			want: domain.ParsedTransaction{
				Date:            "2024-03-01",
				Amount:          100,
				Category:        domain.CategoryOther,
				TransactionType: domain.TransactionTypeExpense,
			},
		},
		{
			name: "empty record",
			raw:  RawRecord{},
			want: domain.ParsedTransaction{
				Date:            "2024-03-15",
				Category:        domain.CategoryOther,
				TransactionType: domain.TransactionTypeExpense,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTransaction(tt.raw, now); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNormalizeBatch_OrderAndIdempotence(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	raw := []RawRecord{
		{"description": "fuel", "amount": "$50", "date": "today", "category": "Fuel"},
		{"description": "junk"},
		{"description": "ride", "amount": 12.5, "date": "monday", "category": "ServiceIncome"},
	}

	first := NormalizeBatch(raw, now)
	if len(first) != len(raw) {
		t.Fatalf("Expected %d results, got %d", len(raw), len(first))
	}
	for i, p := range first {
		if p.Description != raw[i]["description"] {
			t.Errorf("Result %d out of order: %q", i, p.Description)
		}
	}

	// Round-trip through JSON the way a client would resubmit the records.
	encoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again []RawRecord
	if err := json.Unmarshal(encoded, &again); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	later := now.AddDate(0, 0, 3)
	second := NormalizeBatch(again, later)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Record %d changed on re-normalization: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestNormalizeBatch_Empty(t *testing.T) {
	got := NormalizeBatch(nil, time.Now())
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}
