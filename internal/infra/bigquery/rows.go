package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

func newUUID() string { return uuid.NewString() }

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	TransactionID   string     `bigquery:"transaction_id"`
	UserID          string     `bigquery:"user_id"`
	VehicleID       string     `bigquery:"vehicle_id"`
	Amount          *big.Rat   `bigquery:"amount"`
	TransactionDate civil.Date `bigquery:"transaction_date"`
	Description     string     `bigquery:"description"`
	Category        string     `bigquery:"category"`
	TransactionType string     `bigquery:"transaction_type"`
	Attachments     []string   `bigquery:"attachments"`
	CreatedTS       time.Time  `bigquery:"created_ts"`
	UpdatedTS       time.Time  `bigquery:"updated_ts"`
}

// VehicleRow mirrors one row of the vehicles table.
type VehicleRow struct {
	VehicleID    string    `bigquery:"vehicle_id"`
	UserID       string    `bigquery:"user_id"`
	LicensePlate string    `bigquery:"license_plate"`
	Brand        string    `bigquery:"brand"`
	Model        string    `bigquery:"model"`
	Year         int64     `bigquery:"year"`
	CreatedTS    time.Time `bigquery:"created_ts"`
}

// ReminderRow mirrors one row of the reminders table.
type ReminderRow struct {
	ReminderID   string     `bigquery:"reminder_id"`
	UserID       string     `bigquery:"user_id"`
	VehicleID    string     `bigquery:"vehicle_id"`
	ReminderType string     `bigquery:"reminder_type"`
	DueDate      civil.Date `bigquery:"due_date"`
	Description  string     `bigquery:"description"`
	IsCompleted  bool       `bigquery:"is_completed"`
	CreatedTS    time.Time  `bigquery:"created_ts"`
}

func parseCivilDate(field, s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", domain.ErrInvalidInput, field, s)
	}
	return d, nil
}

// NewTransactionRow converts a domain transaction into a row owned by userID.
func NewTransactionRow(userID string, tx domain.Transaction) (*TransactionRow, error) {
	d, err := parseCivilDate("date", tx.Date)
	if err != nil {
		return nil, err
	}
	attachments := tx.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          userID,
		VehicleID:       tx.VehicleID,
		Amount:          new(big.Rat).SetFloat64(tx.Amount),
		TransactionDate: d,
		Description:     tx.Description,
		Category:        string(tx.Category),
		TransactionType: string(tx.TransactionType),
		Attachments:     attachments,
	}, nil
}

// ToDomain converts the row back into a domain transaction.
func (r TransactionRow) ToDomain() domain.Transaction {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	var attachments []string
	if len(r.Attachments) > 0 {
		attachments = r.Attachments
	}
	return domain.Transaction{
		ID:              r.TransactionID,
		VehicleID:       r.VehicleID,
		Amount:          amount,
		Date:            r.TransactionDate.String(),
		Description:     r.Description,
		Category:        domain.TransactionCategory(r.Category),
		TransactionType: domain.TransactionType(r.TransactionType),
		Attachments:     attachments,
	}
}

// NewVehicleRow converts a domain vehicle into a row owned by userID.
func NewVehicleRow(userID string, v domain.Vehicle) *VehicleRow {
	return &VehicleRow{
		VehicleID:    v.ID,
		UserID:       userID,
		LicensePlate: v.LicensePlate,
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         int64(v.Year),
	}
}

func (r VehicleRow) ToDomain() domain.Vehicle {
	return domain.Vehicle{
		ID:           r.VehicleID,
		LicensePlate: r.LicensePlate,
		Brand:        r.Brand,
		Model:        r.Model,
		Year:         int(r.Year),
	}
}

// NewReminderRow converts a domain reminder into a row owned by userID.
func NewReminderRow(userID string, rem domain.Reminder) (*ReminderRow, error) {
	d, err := parseCivilDate("dueDate", rem.DueDate)
	if err != nil {
		return nil, err
	}
	return &ReminderRow{
		ReminderID:   rem.ID,
		UserID:       userID,
		VehicleID:    rem.VehicleID,
		ReminderType: string(rem.Type),
		DueDate:      d,
		Description:  rem.Description,
		IsCompleted:  rem.IsCompleted,
	}, nil
}

func (r ReminderRow) ToDomain() domain.Reminder {
	return domain.Reminder{
		ID:          r.ReminderID,
		VehicleID:   r.VehicleID,
		Type:        domain.ReminderType(r.ReminderType),
		DueDate:     r.DueDate.String(),
		Description: r.Description,
		IsCompleted: r.IsCompleted,
	}
}
