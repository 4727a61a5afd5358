package mongostore

import (
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

type transactionDoc struct {
	ID              string   `bson:"_id"`
	UserID          string   `bson:"user_id"`
	VehicleID       string   `bson:"vehicle_id"`
	Amount          float64  `bson:"amount"`
	Date            string   `bson:"date"`
	Description     string   `bson:"description"`
	Category        string   `bson:"category"`
	TransactionType string   `bson:"transaction_type"`
	Attachments     []string `bson:"attachments,omitempty"`
}

func newTransactionDoc(userID string, tx domain.Transaction) transactionDoc {
	return transactionDoc{
		ID:              tx.ID,
		UserID:          userID,
		VehicleID:       tx.VehicleID,
		Amount:          tx.Amount,
		Date:            tx.Date,
		Description:     tx.Description,
		Category:        string(tx.Category),
		TransactionType: string(tx.TransactionType),
		Attachments:     tx.Attachments,
	}
}

func (d transactionDoc) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:              d.ID,
		VehicleID:       d.VehicleID,
		Amount:          d.Amount,
		Date:            d.Date,
		Description:     d.Description,
		Category:        domain.TransactionCategory(d.Category),
		TransactionType: domain.TransactionType(d.TransactionType),
		Attachments:     d.Attachments,
	}
}

type vehicleDoc struct {
	ID           string `bson:"_id"`
	UserID       string `bson:"user_id"`
	LicensePlate string `bson:"license_plate"`
	Brand        string `bson:"brand"`
	Model        string `bson:"model"`
	Year         int    `bson:"year"`
}

func newVehicleDoc(userID string, v domain.Vehicle) vehicleDoc {
	return vehicleDoc{ID: v.ID, UserID: userID, LicensePlate: v.LicensePlate, Brand: v.Brand, Model: v.Model, Year: v.Year}
}

func (d vehicleDoc) toDomain() domain.Vehicle {
	return domain.Vehicle{ID: d.ID, LicensePlate: d.LicensePlate, Brand: d.Brand, Model: d.Model, Year: d.Year}
}

type reminderDoc struct {
	ID          string `bson:"_id"`
	UserID      string `bson:"user_id"`
	VehicleID   string `bson:"vehicle_id"`
	Type        string `bson:"type"`
	DueDate     string `bson:"due_date"`
	Description string `bson:"description"`
	IsCompleted bool   `bson:"is_completed"`
}

func newReminderDoc(userID string, r domain.Reminder) reminderDoc {
	return reminderDoc{
		ID:          r.ID,
		UserID:      userID,
		VehicleID:   r.VehicleID,
		Type:        string(r.Type),
		DueDate:     r.DueDate,
		Description: r.Description,
		IsCompleted: r.IsCompleted,
	}
}

func (d reminderDoc) toDomain() domain.Reminder {
	return domain.Reminder{
		ID:          d.ID,
		VehicleID:   d.VehicleID,
		Type:        domain.ReminderType(d.Type),
		DueDate:     d.DueDate,
		Description: d.Description,
		IsCompleted: d.IsCompleted,
	}
}

// settingsDoc is keyed by user id; one document per user.
type settingsDoc struct {
	UserID    string    `bson:"_id"`
	OpenAIKey string    `bson:"open_ai_key"`
	UpdatedAt time.Time `bson:"updated_at"`
}
