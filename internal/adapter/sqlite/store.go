package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/cirrohost/provisiond/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// JobStore implements domain.JobStore using SQLite. The jobs table is the
// only queue in the system: claims go through a single UPDATE statement so
// two workers can never receive the same job.
type JobStore struct {
	db *sql.DB
}

// Compile-time check: JobStore implements domain.JobStore.
var _ domain.JobStore = (*JobStore)(nil)

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*JobStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// A single connection serializes claims and avoids SQLITE_BUSY under
	// concurrent workers.
	db.SetMaxOpenConns(1)

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready store. Use this when the *sql.DB has been pre-configured
// (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*JobStore, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &JobStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *JobStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (e.g., river, the subscription repository).
func (s *JobStore) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000Z"

const jobColumns = `id, order_id, tenant_id, type, payload, status, attempts,
	 last_error, claimed_by, started_at, completed_at, created_at`

// CreateBatch inserts all jobs in one transaction so a crash can never leave
// an order with some but not all of its required jobs committed.
func (s *JobStore) CreateBatch(ctx context.Context, jobs []domain.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, job := range jobs {
		payload, err := json.Marshal(job.Intent)
		if err != nil {
			return fmt.Errorf("encoding payload for job %s: %w", job.ID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO jobs (id, order_id, tenant_id, type, payload, status, attempts,
			 last_error, claimed_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.OrderID, job.TenantID, string(job.Type), string(payload),
			string(job.Status), job.Attempts, job.LastError, job.ClaimedBy,
			job.CreatedAt.Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("inserting job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing job batch: %w", err)
	}
	return nil
}

// ClaimNext atomically transitions the oldest pending job to running. The
// claim is a single UPDATE guarded on status, never a read-then-write pair,
// so concurrent callers cannot claim the same job.
func (s *JobStore) ClaimNext(ctx context.Context, workerID string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs
		 SET status = ?, attempts = attempts + 1, claimed_by = ?, started_at = ?
		 WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1)
		   AND status = ?
		 RETURNING `+jobColumns,
		string(domain.JobRunning), workerID, time.Now().UTC().Format(timeFormat),
		string(domain.JobPending), string(domain.JobPending),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return domain.Job{}, domain.ErrNoClaimableJob
		}
		return domain.Job{}, err
	}
	return job, nil
}

// Complete writes the terminal status for a running job. It is the only
// writer of success/failed.
func (s *JobStore) Complete(ctx context.Context, jobID string, outcome domain.Outcome) error {
	status := domain.JobSuccess
	if !outcome.Success {
		status = domain.JobFailed
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, last_error = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), outcome.Error, time.Now().UTC().Format(timeFormat),
		jobID, string(domain.JobRunning),
	)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", jobID, err)
	}

	return s.checkStateGuard(ctx, result, jobID, "complete")
}

// Requeue resets a failed job to pending for another run. Legal only from
// failed; attempts stay cumulative for audit.
func (s *JobStore) Requeue(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, last_error = '', claimed_by = '',
		 started_at = NULL, completed_at = NULL
		 WHERE id = ? AND status = ?`,
		string(domain.JobPending), jobID, string(domain.JobFailed),
	)
	if err != nil {
		return fmt.Errorf("requeuing job %s: %w", jobID, err)
	}

	return s.checkStateGuard(ctx, result, jobID, "requeue")
}

// checkStateGuard turns a zero-row guarded UPDATE into the precise error:
// the job is missing, or it exists in a status the operation is not legal from.
func (s *JobStore) checkStateGuard(ctx context.Context, result sql.Result, jobID, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	return &domain.JobStateError{JobID: jobID, Status: job.Status, Op: op}
}

func (s *JobStore) GetByID(ctx context.Context, jobID string) (domain.Job, error) {
	return scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID,
	))
}

func (s *JobStore) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var conds []string
	var args []any

	if filter.OrderID != "" {
		conds = append(conds, `order_id = ?`)
		args = append(args, filter.OrderID)
	}
	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return s.queryJobs(ctx, query, args...)
}

// ListByOrder returns every job belonging to an order, oldest first. The
// aggregator re-reads this full set on every completion.
func (s *JobStore) ListByOrder(ctx context.Context, orderID string) ([]domain.Job, error) {
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE order_id = ? ORDER BY created_at, id`,
		orderID,
	)
}

// DeleteFailed removes all failed jobs and reports how many were removed.
func (s *JobStore) DeleteFailed(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status = ?`, string(domain.JobFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting failed jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *JobStore) queryJobs(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var j domain.Job
	var jobType, payload, status, createdAt string
	var startedAt, completedAt sql.NullString

	err := row.Scan(&j.ID, &j.OrderID, &j.TenantID, &jobType, &payload, &status,
		&j.Attempts, &j.LastError, &j.ClaimedBy, &startedAt, &completedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("scanning job: %w", err)
	}

	j.Type = domain.JobType(jobType)
	j.Status = domain.JobStatus(status)
	j.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	if startedAt.Valid {
		ts, _ := time.Parse(timeFormat, startedAt.String)
		j.StartedAt = &ts
	}
	if completedAt.Valid {
		ts, _ := time.Parse(timeFormat, completedAt.String)
		j.CompletedAt = &ts
	}

	if err := json.Unmarshal([]byte(payload), &j.Intent); err != nil {
		return domain.Job{}, fmt.Errorf("decoding payload for job %s: %w", j.ID, err)
	}

	return j, nil
}
