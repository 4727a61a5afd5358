package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

type settingsRow struct {
	OpenAIKey bigquery.NullString `bigquery:"openai_api_key"`
}

// GetAPIKey returns the user's stored OpenAI key, or "" when none is stored.
func (r *Repository) GetAPIKey(ctx context.Context, userID string) (string, error) {
	sql := fmt.Sprintf(`
		SELECT openai_api_key FROM %s
		WHERE user_id = @user_id
		LIMIT 1
	`, r.table(settingsTable))

	rows, err := readAll[settingsRow](ctx, r.client, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return "", fmt.Errorf("GetAPIKey: %w", err)
	}
	if len(rows) == 0 || !rows[0].OpenAIKey.Valid {
		return "", nil
	}
	return rows[0].OpenAIKey.StringVal, nil
}

// SetAPIKey upserts the user's OpenAI key.
func (r *Repository) SetAPIKey(ctx context.Context, userID, key string) error {
	sql := fmt.Sprintf(`
		MERGE %s AS t
		USING (SELECT @user_id AS user_id, @key AS openai_api_key) AS s
		ON t.user_id = s.user_id
		WHEN MATCHED THEN
			UPDATE SET openai_api_key = s.openai_api_key, updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN
			INSERT (user_id, openai_api_key, updated_ts)
			VALUES (s.user_id, s.openai_api_key, CURRENT_TIMESTAMP())
	`, r.table(settingsTable))

	if _, err := r.exec(ctx, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "key", Value: key},
	}); err != nil {
		return fmt.Errorf("SetAPIKey: %w", err)
	}
	return nil
}
