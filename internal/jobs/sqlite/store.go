// Package sqlite is a durable jobs.JobStore on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
)

// Store keeps each job as a JSON payload plus the columns it is queried by.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database directory if needed, applies migrations and
// opens the store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("Open: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("Open: open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.ParseTextJob) error {
	if job.ID == "" {
		return fmt.Errorf("SaveJob: %w: job id is required", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("SaveJob: marshal job: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parse_jobs (id, user_id, status, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		job.ID, job.UserID, string(job.Status), string(payload), job.CreatedAt.UnixNano(), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("SaveJob: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ParseTextJob, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM parse_jobs WHERE id = ?`, jobID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetJob: %w: job %s", domain.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("GetJob: %w", err)
	}
	return decodeJob(payload)
}

func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ParseTextJob, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT payload FROM parse_jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListJobs: %w", err)
	}
	defer rows.Close()

	result := []*jobs.ParseTextJob{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("ListJobs: scan: %w", err)
		}
		job, err := decodeJob(payload)
		if err != nil {
			return nil, fmt.Errorf("ListJobs: %w", err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListJobs: %w", err)
	}
	return result, nil
}

func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("UpdateJobStatus: %w", err)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if err := s.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("UpdateJobStatus: %w", err)
	}
	return nil
}

func decodeJob(payload string) (*jobs.ParseTextJob, error) {
	var job jobs.ParseTextJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

var _ jobs.JobStore = (*Store)(nil)
