package domain

import (
	"fmt"
	"strings"
)

// Vehicle is a car or bike the user tracks costs for.
type Vehicle struct {
	ID           string `json:"id"`
	LicensePlate string `json:"licensePlate"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
}

const minVehicleYear = 1886

func (v Vehicle) Validate() error {
	var missing []string
	if strings.TrimSpace(v.LicensePlate) == "" {
		missing = append(missing, "licensePlate")
	}
	if strings.TrimSpace(v.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(v.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if v.Year != 0 && v.Year < minVehicleYear {
		return fmt.Errorf("%w: year %d is out of range", ErrInvalidInput, v.Year)
	}
	return nil
}
