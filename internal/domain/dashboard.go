package domain

// DashboardStats aggregates a user's transactions and reminders.
type DashboardStats struct {
	TotalExpenses      float64                         `json:"totalExpenses"`
	TotalIncome        float64                         `json:"totalIncome"`
	MonthlyExpenses    float64                         `json:"monthlyExpenses"`
	ExpensesByCategory map[TransactionCategory]float64 `json:"expensesByCategory"`
	RecentTransactions []Transaction                   `json:"recentTransactions"`
	UpcomingReminders  []Reminder                      `json:"upcomingReminders"`
}
