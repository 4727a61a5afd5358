package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for every stored date.
const DateLayout = "2006-01-02"

// Transaction is a single income or expense event tied to a vehicle. It is
// always owned by one user; the owner is tracked by the store, not the struct.
type Transaction struct {
	ID              string              `json:"id"`
	VehicleID       string              `json:"vehicleId"`
	Amount          float64             `json:"amount"`
	Date            string              `json:"date"`
	Description     string              `json:"description"`
	Category        TransactionCategory `json:"category"`
	TransactionType TransactionType     `json:"transactionType"`
	Attachments     []string            `json:"attachments,omitempty"`
}

// ParsedTransaction is the strictly typed output of normalization.
type ParsedTransaction struct {
	Description     string              `json:"description"`
	Amount          float64             `json:"amount"`
	Date            string              `json:"date"`
	Category        TransactionCategory `json:"category"`
	TransactionType TransactionType     `json:"transactionType"`
}

// ToTransaction attaches a parsed record to a vehicle.
func (p ParsedTransaction) ToTransaction(vehicleID string) Transaction {
	return Transaction{
		VehicleID:       vehicleID,
		Amount:          p.Amount,
		Date:            p.Date,
		Description:     p.Description,
		Category:        p.Category,
		TransactionType: p.TransactionType,
	}
}

// Validate checks a transaction before it is persisted.
func (t Transaction) Validate() error {
	if t.VehicleID == "" {
		return fmt.Errorf("%w: vehicleId is required", ErrInvalidInput)
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, t.Date)
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, t.Category)
	}
	if !t.TransactionType.IsValid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, t.TransactionType)
	}
	return nil
}

// ParsedDate returns the calendar date of the transaction. Unparseable dates
// yield the zero time.
func (t Transaction) ParsedDate() time.Time {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}
