package domain

// TransactionCategory is the closed set of classification tags shared by
// expense and income transactions.
type TransactionCategory string

const (
	CategoryFuel          TransactionCategory = "Fuel"
	CategoryMaintenance   TransactionCategory = "Maintenance"
	CategoryInsurance     TransactionCategory = "Insurance"
	CategoryToll          TransactionCategory = "Toll"
	CategoryParking       TransactionCategory = "Parking"
	CategoryWash          TransactionCategory = "Wash"
	CategoryAccessories   TransactionCategory = "Accessories"
	CategoryFine          TransactionCategory = "Fine"
	CategoryServiceIncome TransactionCategory = "ServiceIncome"
	CategoryOther         TransactionCategory = "Other"
)

// FallbackCategory replaces any category outside the enumeration.
const FallbackCategory = CategoryOther

var allCategories = []TransactionCategory{
	CategoryFuel,
	CategoryMaintenance,
	CategoryInsurance,
	CategoryToll,
	CategoryParking,
	CategoryWash,
	CategoryAccessories,
	CategoryFine,
	CategoryServiceIncome,
	CategoryOther,
}

// AllTransactionCategories returns every category in declaration order.
func AllTransactionCategories() []TransactionCategory {
	out := make([]TransactionCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

// IsValid reports whether c is a member of the enumeration.
func (c TransactionCategory) IsValid() bool {
	switch c {
	case CategoryFuel, CategoryMaintenance, CategoryInsurance, CategoryToll,
		CategoryParking, CategoryWash, CategoryAccessories, CategoryFine,
		CategoryServiceIncome, CategoryOther:
		return true
	}
	return false
}

// TransactionType is the direction of money flow.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "Income"
	TransactionTypeExpense TransactionType = "Expense"
)

// AllTransactionTypes returns both transaction types.
func AllTransactionTypes() []TransactionType {
	return []TransactionType{TransactionTypeIncome, TransactionTypeExpense}
}

// IsValid reports whether t is exactly Income or Expense.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// categoryTypes lists the categories that produce income. Categories absent
// from the table are expenses.
var categoryTypes = map[TransactionCategory]TransactionType{
	CategoryServiceIncome: TransactionTypeIncome,
}

// TypeForCategory infers the transaction type implied by a category.
func TypeForCategory(c TransactionCategory) TransactionType {
	if t, ok := categoryTypes[c]; ok {
		return t
	}
	return TransactionTypeExpense
}

// ReminderType classifies a reminder.
type ReminderType string

const (
	ReminderMaintenance  ReminderType = "Maintenance"
	ReminderInsurance    ReminderType = "Insurance"
	ReminderRegistration ReminderType = "Registration"
)

func (r ReminderType) IsValid() bool {
	switch r {
	case ReminderMaintenance, ReminderInsurance, ReminderRegistration:
		return true
	}
	return false
}

// TimeRange selects the window used by dashboard statistics.
type TimeRange string

const (
	TimeRangeWeek    TimeRange = "week"
	TimeRangeMonth   TimeRange = "month"
	TimeRangeQuarter TimeRange = "quarter"
	TimeRangeAll     TimeRange = "all"
)

func (r TimeRange) IsValid() bool {
	switch r {
	case TimeRangeWeek, TimeRangeMonth, TimeRangeQuarter, TimeRangeAll:
		return true
	}
	return false
}
