package domain

import (
	"fmt"
	"time"
)

// Reminder is a scheduled maintenance, insurance or registration due date.
type Reminder struct {
	ID          string       `json:"id"`
	VehicleID   string       `json:"vehicleId"`
	Type        ReminderType `json:"type"`
	DueDate     string       `json:"dueDate"`
	Description string       `json:"description"`
	IsCompleted bool         `json:"isCompleted"`
}

func (r Reminder) Validate() error {
	if r.VehicleID == "" {
		return fmt.Errorf("%w: vehicleId is required", ErrInvalidInput)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: unknown reminder type %q", ErrInvalidInput, r.Type)
	}
	if _, err := time.Parse(DateLayout, r.DueDate); err != nil {
		return fmt.Errorf("%w: dueDate %q is not YYYY-MM-DD", ErrInvalidInput, r.DueDate)
	}
	return nil
}
