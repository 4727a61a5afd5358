package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const vehicleColumns = `vehicle_id, user_id, license_plate, brand, model, year, created_ts`

func (r *Repository) ListVehicles(ctx context.Context, userID string) ([]domain.Vehicle, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = @user_id
		ORDER BY license_plate
	`, vehicleColumns, r.table(vehiclesTable))

	rows, err := readAll[VehicleRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("ListVehicles: %w", err)
	}
	out := make([]domain.Vehicle, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

func (r *Repository) GetVehicle(ctx context.Context, userID, id string) (domain.Vehicle, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = @user_id AND vehicle_id = @vehicle_id
		LIMIT 1
	`, vehicleColumns, r.table(vehiclesTable))

	rows, err := readAll[VehicleRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "vehicle_id", Value: id},
	})
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("GetVehicle: %w", err)
	}
	if len(rows) == 0 {
		return domain.Vehicle{}, fmt.Errorf("GetVehicle: %s: %w", id, domain.ErrNotFound)
	}
	return rows[0].ToDomain(), nil
}

func (r *Repository) AddVehicle(ctx context.Context, userID string, v domain.Vehicle) (string, error) {
	v.ID = r.newID()
	row := NewVehicleRow(userID, v)

	sql := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@vehicle_id, @user_id, @license_plate, @brand, @model, @year, CURRENT_TIMESTAMP())
	`, r.table(vehiclesTable), vehicleColumns)

	if _, err := r.exec(ctx, sql, vehicleParams(row)); err != nil {
		return "", fmt.Errorf("AddVehicle: %w", err)
	}
	return v.ID, nil
}

func (r *Repository) UpdateVehicle(ctx context.Context, userID string, v domain.Vehicle) error {
	if v.ID == "" {
		return fmt.Errorf("UpdateVehicle: %w: id is required", domain.ErrInvalidInput)
	}

	sql := fmt.Sprintf(`
		UPDATE %s
		SET license_plate = @license_plate, brand = @brand, model = @model, year = @year
		WHERE user_id = @user_id AND vehicle_id = @vehicle_id
	`, r.table(vehiclesTable))

	n, err := r.exec(ctx, sql, vehicleParams(NewVehicleRow(userID, v)))
	if err != nil {
		return fmt.Errorf("UpdateVehicle: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateVehicle: %s: %w", v.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteVehicle(ctx context.Context, userID, id string) error {
	sql := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = @user_id AND vehicle_id = @vehicle_id
	`, r.table(vehiclesTable))

	n, err := r.exec(ctx, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "vehicle_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteVehicle: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteVehicle: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func vehicleParams(row *VehicleRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "vehicle_id", Value: row.VehicleID},
		{Name: "user_id", Value: row.UserID},
		{Name: "license_plate", Value: row.LicensePlate},
		{Name: "brand", Value: row.Brand},
		{Name: "model", Value: row.Model},
		{Name: "year", Value: row.Year},
	}
}
