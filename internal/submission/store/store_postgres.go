package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	"rekam/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore keeps each category in its own submissions_<category> table
// with the category fields in a JSONB payload column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// TableName maps a category name to its quoted table identifier.
func TableName(category string) (string, error) {
	if category == "" {
		return "", fmt.Errorf("category is required")
	}
	for _, r := range category {
		if (r < 'a' || r > 'z') && r != '-' {
			return "", fmt.Errorf("invalid category name %q", category)
		}
	}
	return pq.QuoteIdentifier("submissions_" + strings.ReplaceAll(category, "-", "_")), nil
}

const submissionColumns = `id, owner_id, submitter_name, submitter_nik, submitted_at, ready, scheduled_date, payload`

func (s *PostgresStore) Insert(ctx context.Context, category string, sub *models.Submission) error {
	table, err := TableName(category)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `INSERT INTO ` + table + ` (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.OwnerID),
		sub.SubmitterName,
		sub.SubmitterNIK,
		sub.SubmittedAt,
		sub.ReadyForRecording,
		sub.ScheduledDate,
		payload,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert submission: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Query runs the row and count reads concurrently.
func (s *PostgresStore) Query(ctx context.Context, category string, q models.Query) ([]*models.Submission, int, error) {
	table, err := TableName(category)
	if err != nil {
		return nil, 0, err
	}
	where, args := buildWhere(q.Filter, 1)

	var (
		total int
		out   []*models.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		countQuery := `SELECT count(*) FROM ` + table + where
		if err := s.db.QueryRowContext(gctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("count submissions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rowArgs := append([]any(nil), args...)
		rowQuery := `SELECT ` + submissionColumns + ` FROM ` + table + where +
			` ORDER BY submitted_at DESC, seq DESC`
		if q.Limit > 0 {
			rowArgs = append(rowArgs, q.Limit)
			rowQuery += ` LIMIT $` + strconv.Itoa(len(rowArgs))
		}
		if q.Offset > 0 {
			rowArgs = append(rowArgs, q.Offset)
			rowQuery += ` OFFSET $` + strconv.Itoa(len(rowArgs))
		}
		rows, err := s.queryRows(gctx, category, rowQuery, rowArgs...)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) queryRows(ctx context.Context, category, query string, args ...any) ([]*models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := []*models.Submission{}
	for rows.Next() {
		var (
			subID, ownerID uuid.UUID
			scheduled      sql.NullTime
			payload        []byte
			sub            = &models.Submission{Category: category}
		)
		if err := rows.Scan(&subID, &ownerID, &sub.SubmitterName, &sub.SubmitterNIK, &sub.SubmittedAt,
			&sub.ReadyForRecording, &scheduled, &payload); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.ID = id.SubmissionID(subID)
		sub.OwnerID = id.UserID(ownerID)
		if scheduled.Valid {
			d := scheduled.Time
			sub.ScheduledDate = &d
		}
		if err := json.Unmarshal(payload, &sub.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, category string, f models.Filter, p models.Patch) (int64, error) {
	table, err := TableName(category)
	if err != nil {
		return 0, err
	}
	if f.ID.IsNil() {
		return 0, ErrUnscopedWrite
	}
	if p.IsEmpty() {
		return 0, fmt.Errorf("update submission: empty patch")
	}

	var (
		sets []string
		args []any
	)
	if p.Payload != nil {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload: %w", err)
		}
		args = append(args, payload)
		sets = append(sets, "payload = $"+strconv.Itoa(len(args)))
	}
	if p.Ready != nil {
		args = append(args, *p.Ready)
		sets = append(sets, "ready = $"+strconv.Itoa(len(args)))
	}
	if p.ScheduledDate != nil {
		args = append(args, *p.ScheduledDate)
		sets = append(sets, "scheduled_date = $"+strconv.Itoa(len(args)))
	}

	where, whereArgs := buildWhere(f, len(args)+1)
	args = append(args, whereArgs...)

	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET `+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return 0, fmt.Errorf("update submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update submission rows affected: %w", err)
	}
	return affected, nil
}

// ToggleReady negates ready in a single statement and returns the stored value.
func (s *PostgresStore) ToggleReady(ctx context.Context, category string, f models.Filter) (bool, int64, error) {
	table, err := TableName(category)
	if err != nil {
		return false, 0, err
	}
	if f.ID.IsNil() {
		return false, 0, ErrUnscopedWrite
	}
	where, args := buildWhere(f, 1)
	var ready bool
	err = s.db.QueryRowContext(ctx, `UPDATE `+table+` SET ready = NOT ready`+where+` RETURNING ready`, args...).Scan(&ready)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("toggle ready: %w", err)
	}
	return ready, 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, category string, f models.Filter) (int64, error) {
	table, err := TableName(category)
	if err != nil {
		return 0, err
	}
	if f.ID.IsNil() {
		return 0, ErrUnscopedWrite
	}
	where, args := buildWhere(f, 1)
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete submission rows affected: %w", err)
	}
	return affected, nil
}

// buildWhere renders f as a WHERE clause whose placeholders start at $first.
func buildWhere(f models.Filter, first int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(first+len(args)-1)
	}

	if !f.ID.IsNil() {
		conds = append(conds, "id = "+next(uuid.UUID(f.ID)))
	}
	if !f.OwnerID.IsNil() {
		conds = append(conds, "owner_id = "+next(uuid.UUID(f.OwnerID)))
	}
	if f.Search != "" && len(f.SearchFields) > 0 {
		placeholder := next("%" + f.Search + "%")
		ors := make([]string, len(f.SearchFields))
		for i, key := range f.SearchFields {
			ors[i] = "payload->>" + pq.QuoteLiteral(key) + " ILIKE " + placeholder
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
