package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

const transactionColumns = `transaction_id, user_id, vehicle_id, amount, transaction_date,
	description, category, transaction_type, attachments, created_ts, updated_ts`

// ListTransactions returns the user's transactions newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY transaction_date DESC, transaction_id
	`, transactionColumns, r.table(transactionsTable))

	rows, err := readAll[TransactionRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	out := make([]domain.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
		LIMIT 1
	`, transactionColumns, r.table(transactionsTable))

	rows, err := readAll[TransactionRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: id},
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	if len(rows) == 0 {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %s: %w", id, domain.ErrNotFound)
	}
	return rows[0].ToDomain(), nil
}

// AddTransaction inserts with DML rather than the streaming inserter so the
// row can be updated or deleted immediately afterwards.
func (r *Repository) AddTransaction(ctx context.Context, userID string, tx domain.Transaction) (string, error) {
	tx.ID = r.newID()
	row, err := NewTransactionRow(userID, tx)
	if err != nil {
		return "", fmt.Errorf("AddTransaction: %w", err)
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@transaction_id, @user_id, @vehicle_id, @amount, @transaction_date,
			@description, @category, @transaction_type, @attachments,
			CURRENT_TIMESTAMP(), CURRENT_TIMESTAMP())
	`, r.table(transactionsTable), transactionColumns)

	if _, err := r.exec(ctx, sql, transactionParams(row)); err != nil {
		return "", fmt.Errorf("AddTransaction: %w", err)
	}
	return tx.ID, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("UpdateTransaction: %w: id is required", domain.ErrInvalidInput)
	}
	row, err := NewTransactionRow(userID, tx)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}

	sql := fmt.Sprintf(`
		UPDATE %s
		SET vehicle_id = @vehicle_id,
			amount = @amount,
			transaction_date = @transaction_date,
			description = @description,
			category = @category,
			transaction_type = @transaction_type,
			updated_ts = CURRENT_TIMESTAMP()
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, r.table(transactionsTable))

	// Attachments change only through AddAttachment.
	var params []bigquery.QueryParameter
	for _, p := range transactionParams(row) {
		if p.Name != "attachments" {
			params = append(params, p)
		}
	}
	n, err := r.exec(ctx, sql, params)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, domain.ErrNotFound)
	}
	return nil
}

// AddAttachment appends uri in a single DML statement.
func (r *Repository) AddAttachment(ctx context.Context, userID, id, uri string) error {
	if id == "" {
		return fmt.Errorf("AddAttachment: %w: id is required", domain.ErrInvalidInput)
	}
	sql := fmt.Sprintf(`
		UPDATE %s
		SET attachments = ARRAY_CONCAT(attachments, [@uri]),
			updated_ts = CURRENT_TIMESTAMP()
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, r.table(transactionsTable))

	n, err := r.exec(ctx, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: id},
		{Name: "uri", Value: uri},
	})
	if err != nil {
		return fmt.Errorf("AddAttachment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("AddAttachment: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	sql := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, r.table(transactionsTable))

	n, err := r.exec(ctx, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func transactionParams(row *TransactionRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "vehicle_id", Value: row.VehicleID},
		{Name: "amount", Value: row.Amount},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "description", Value: row.Description},
		{Name: "category", Value: row.Category},
		{Name: "transaction_type", Value: row.TransactionType},
		{Name: "attachments", Value: row.Attachments},
	}
}
