// Package dashboard aggregates a user's transactions and reminders into
// summary statistics.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/money"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

const (
	recentTransactionsLimit = 5
	upcomingRemindersLimit  = 5
)

// Options narrows the data the statistics are computed over.
type Options struct {
	// VehicleID limits stats to one vehicle when non-empty.
	VehicleID string
}

// RangeStart returns the first day included by r, or the zero time for "all".
// Unknown ranges behave like "all".
func RangeStart(r domain.TimeRange, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch r {
	case domain.TimeRangeWeek:
		return today.AddDate(0, 0, -7)
	case domain.TimeRangeMonth:
		return today.AddDate(0, -1, 0)
	case domain.TimeRangeQuarter:
		return today.AddDate(0, -3, 0)
	}
	return time.Time{}
}

// ComputeStats builds dashboard statistics. Inputs are not modified.
func ComputeStats(txs []domain.Transaction, reminders []domain.Reminder, r domain.TimeRange, now time.Time, opts Options) domain.DashboardStats {
	start := RangeStart(r, now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	byCategory := make(map[domain.TransactionCategory]decimal.Decimal)
	for _, c := range domain.AllTransactionCategories() {
		byCategory[c] = decimal.Zero
	}

	var expenses, income, monthly []float64
	var inRange []domain.Transaction
	for _, tx := range txs {
		if opts.VehicleID != "" && tx.VehicleID != opts.VehicleID {
			continue
		}
		d := tx.ParsedDate()
		if tx.TransactionType == domain.TransactionTypeExpense && !d.Before(monthStart) && d.Before(monthEnd) {
			monthly = append(monthly, tx.Amount)
		}
		if !start.IsZero() && d.Before(start) {
			continue
		}
		inRange = append(inRange, tx)

		switch tx.TransactionType {
		case domain.TransactionTypeIncome:
			income = append(income, tx.Amount)
		case domain.TransactionTypeExpense:
			expenses = append(expenses, tx.Amount)
			cat := tx.Category
			if !cat.IsValid() {
				cat = domain.FallbackCategory
			}
			byCategory[cat] = byCategory[cat].Add(decimal.NewFromFloat(tx.Amount))
		}
	}

	stats := domain.DashboardStats{
		TotalExpenses:      money.Sum(expenses...),
		TotalIncome:        money.Sum(income...),
		MonthlyExpenses:    money.Sum(monthly...),
		ExpensesByCategory: make(map[domain.TransactionCategory]float64, len(byCategory)),
		RecentTransactions: recentTransactions(inRange),
		UpcomingReminders:  upcomingReminders(reminders, opts.VehicleID),
	}
	for c, v := range byCategory {
		stats.ExpensesByCategory[c] = money.ToFloat(v)
	}
	return stats
}

func recentTransactions(txs []domain.Transaction) []domain.Transaction {
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	store.SortTransactions(sorted)
	if len(sorted) > recentTransactionsLimit {
		sorted = sorted[:recentTransactionsLimit]
	}
	return sorted
}

func upcomingReminders(reminders []domain.Reminder, vehicleID string) []domain.Reminder {
	out := make([]domain.Reminder, 0, upcomingRemindersLimit)
	var open []domain.Reminder
	for _, r := range reminders {
		if r.IsCompleted || (vehicleID != "" && r.VehicleID != vehicleID) {
			continue
		}
		open = append(open, r)
	}
	store.SortReminders(open)
	for _, r := range open {
		if len(out) == upcomingRemindersLimit {
			break
		}
		out = append(out, r)
	}
	return out
}
