package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const reminderColumns = `reminder_id, user_id, vehicle_id, reminder_type, due_date, description, is_completed, created_ts`

// ListReminders returns the user's reminders by due date.
func (r *Repository) ListReminders(ctx context.Context, userID string) ([]domain.Reminder, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = @user_id
		ORDER BY due_date, reminder_id
	`, reminderColumns, r.table(remindersTable))

	rows, err := readAll[ReminderRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("ListReminders: %w", err)
	}
	out := make([]domain.Reminder, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

func (r *Repository) GetReminder(ctx context.Context, userID, id string) (domain.Reminder, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = @user_id AND reminder_id = @reminder_id
		LIMIT 1
	`, reminderColumns, r.table(remindersTable))

	rows, err := readAll[ReminderRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "reminder_id", Value: id},
	})
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("GetReminder: %w", err)
	}
	if len(rows) == 0 {
		return domain.Reminder{}, fmt.Errorf("GetReminder: %s: %w", id, domain.ErrNotFound)
	}
	return rows[0].ToDomain(), nil
}

func (r *Repository) AddReminder(ctx context.Context, userID string, rem domain.Reminder) (string, error) {
	rem.ID = r.newID()
	row, err := NewReminderRow(userID, rem)
	if err != nil {
		return "", fmt.Errorf("AddReminder: %w", err)
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@reminder_id, @user_id, @vehicle_id, @reminder_type, @due_date, @description, @is_completed, CURRENT_TIMESTAMP())
	`, r.table(remindersTable), reminderColumns)

	if _, err := r.exec(ctx, sql, reminderParams(row)); err != nil {
		return "", fmt.Errorf("AddReminder: %w", err)
	}
	return rem.ID, nil
}

func (r *Repository) UpdateReminder(ctx context.Context, userID string, rem domain.Reminder) error {
	if rem.ID == "" {
		return fmt.Errorf("UpdateReminder: %w: id is required", domain.ErrInvalidInput)
	}
	row, err := NewReminderRow(userID, rem)
	if err != nil {
		return fmt.Errorf("UpdateReminder: %w", err)
	}

	sql := fmt.Sprintf(`
		UPDATE %s
		SET vehicle_id = @vehicle_id,
			reminder_type = @reminder_type,
			due_date = @due_date,
			description = @description,
			is_completed = @is_completed
		WHERE user_id = @user_id AND reminder_id = @reminder_id
	`, r.table(remindersTable))

	n, err := r.exec(ctx, sql, reminderParams(row))
	if err != nil {
		return fmt.Errorf("UpdateReminder: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateReminder: %s: %w", rem.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteReminder(ctx context.Context, userID, id string) error {
	sql := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = @user_id AND reminder_id = @reminder_id
	`, r.table(remindersTable))

	n, err := r.exec(ctx, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "reminder_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteReminder: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteReminder: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func reminderParams(row *ReminderRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "reminder_id", Value: row.ReminderID},
		{Name: "user_id", Value: row.UserID},
		{Name: "vehicle_id", Value: row.VehicleID},
		{Name: "reminder_type", Value: row.ReminderType},
		{Name: "due_date", Value: row.DueDate},
		{Name: "description", Value: row.Description},
		{Name: "is_completed", Value: row.IsCompleted},
	}
}
