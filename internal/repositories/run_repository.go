package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lienzo/internal/models"
)

var ErrRunNotFound = errors.New("run not found")

// MaxErrorText bounds runs.error_text.
const MaxErrorText = 2000

type RunRepository struct {
	db *pgxpool.Pool
}

func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, workspace_name, status, source_kind, params_json, inputs_json,
	COALESCE(archive_key,''), success_count, failure_count, skipped_count, overwrite_count,
	COALESCE(error_text,''), created_at, started_at, finished_at`

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	inputsJSON, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO runs (id, workspace_name, status, source_kind, params_json, inputs_json)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, run.ID, run.WorkspaceName, run.Status, run.SourceKind, paramsJSON, inputsJSON).Scan(&run.CreatedAt)
}

func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// List returns the most recent runs, optionally filtered by status.
func (r *RunRepository) List(ctx context.Context, status string, limit int) ([]models.Run, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *RunRepository) MarkRunning(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE runs
		SET status='RUNNING', started_at=now(), error_text=NULL
		WHERE id=$1
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) Complete(ctx context.Context, id string, c models.Completion) error {
	_, err := r.db.Exec(ctx, `
		UPDATE runs
		SET status=$2, archive_key=NULLIF($3,''),
		    success_count=$4, failure_count=$5, skipped_count=$6, overwrite_count=$7,
		    error_text=NULL, finished_at=now()
		WHERE id=$1
	`, id, c.Status, c.ArchiveKey, c.SuccessCount, c.FailureCount, c.SkippedCount, c.OverwriteCount)
	return err
}

func (r *RunRepository) MarkFailed(ctx context.Context, id string, errText string) error {
	errText = TruncateErrorText(errText)
	_, err := r.db.Exec(ctx, `
		UPDATE runs
		SET status='FAILED', error_text=$2, finished_at=now()
		WHERE id=$1
	`, id, errText)
	return err
}

// TruncateErrorText cuts s to at most MaxErrorText bytes without splitting
// a UTF-8 sequence.
func TruncateErrorText(s string) string {
	if len(s) <= MaxErrorText {
		return s
	}
	n := MaxErrorText
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// SaveItems replaces the stored items of a run.
func (r *RunRepository) SaveItems(ctx context.Context, runID string, items []models.RunItem) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM run_items WHERE run_id=$1`, runID); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"run_items"},
			[]string{"run_id", "seq", "filename", "origin", "status", "stage", "reason"},
			pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
				it := items[i]
				return []any{runID, it.Seq, it.Filename, it.Origin, string(it.Status), it.Stage, it.Reason}, nil
			}),
		)
		return err
	})
}

func (r *RunRepository) Items(ctx context.Context, runID string) ([]models.RunItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT seq, filename, origin, status, stage, reason
		FROM run_items
		WHERE run_id=$1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RunItem{}
	for rows.Next() {
		it := models.RunItem{RunID: runID}
		if err := rows.Scan(&it.Seq, &it.Filename, &it.Origin, &it.Status, &it.Stage, &it.Reason); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*models.Run, error) {
	var (
		run                    models.Run
		paramsJSON, inputsJSON []byte
	)
	err := row.Scan(
		&run.ID,
		&run.WorkspaceName,
		&run.Status,
		&run.SourceKind,
		&paramsJSON,
		&inputsJSON,
		&run.ArchiveKey,
		&run.SuccessCount,
		&run.FailureCount,
		&run.SkippedCount,
		&run.OverwriteCount,
		&run.ErrorText,
		&run.CreatedAt,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &run.Params); err != nil {
		return nil, fmt.Errorf("run %s: decode params: %w", run.ID, err)
	}
	if len(inputsJSON) > 0 {
		if err := json.Unmarshal(inputsJSON, &run.Inputs); err != nil {
			return nil, fmt.Errorf("run %s: decode inputs: %w", run.ID, err)
		}
	}
	return &run, nil
}
