package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/port"
)

type exportRunRepo struct {
	db *sqlx.DB
}

// NewExportRunRepo creates a PostgreSQL-backed ExportRunRepository.
func NewExportRunRepo(db *sqlx.DB) port.ExportRunRepository {
	return &exportRunRepo{db: db}
}

// exportRunRow is the database shape of an export run. Spec and manifest
// are stored as jsonb.
type exportRunRow struct {
	ID          string         `db:"id"`
	ArchiveName string         `db:"archive_name"`
	Status      string         `db:"status"`
	Spec        []byte         `db:"spec"`
	Manifest    []byte         `db:"manifest"`
	StorageKey  sql.NullString `db:"storage_key"`
	Error       sql.NullString `db:"error"`
	StartedAt   time.Time      `db:"started_at"`
	FinishedAt  time.Time      `db:"finished_at"`
}

func (r *exportRunRepo) Create(ctx context.Context, run *domain.ExportRun) error {
	specJSON, err := json.Marshal(run.Spec)
	if err != nil {
		return fmt.Errorf("marshaling spec: %w", err)
	}
	manifestJSON, err := json.Marshal(run.Manifest)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	const query = `
		INSERT INTO export_runs (id, archive_name, status, spec, manifest, storage_key, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.ArchiveName, string(run.Status), specJSON, manifestJSON,
		nullable(run.StorageKey), nullable(run.Error), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting export run: %w", err)
	}
	return nil
}

func (r *exportRunRepo) GetByID(ctx context.Context, id string) (*domain.ExportRun, error) {
	var row exportRunRow
	const query = `SELECT * FROM export_runs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching export run: %w", err)
	}
	return rowToRun(row)
}

func (r *exportRunRepo) List(ctx context.Context, limit, offset int) ([]domain.ExportRun, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM export_runs`); err != nil {
		return nil, 0, fmt.Errorf("counting export runs: %w", err)
	}

	var rows []exportRunRow
	const query = `SELECT * FROM export_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("listing export runs: %w", err)
	}

	runs := make([]domain.ExportRun, 0, len(rows))
	for _, row := range rows {
		run, err := rowToRun(row)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}
	return runs, total, nil
}

func rowToRun(row exportRunRow) (*domain.ExportRun, error) {
	run := &domain.ExportRun{
		ID:          row.ID,
		ArchiveName: row.ArchiveName,
		Status:      domain.RunStatus(row.Status),
		StorageKey:  row.StorageKey.String,
		Error:       row.Error.String,
		StartedAt:   row.StartedAt,
		FinishedAt:  row.FinishedAt,
	}
	if err := json.Unmarshal(row.Spec, &run.Spec); err != nil {
		return nil, fmt.Errorf("unmarshaling spec for run %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Manifest, &run.Manifest); err != nil {
		return nil, fmt.Errorf("unmarshaling manifest for run %s: %w", row.ID, err)
	}
	return run, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
