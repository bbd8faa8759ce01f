package issues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/dbx"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, is *models.Issue) error {
	query :=
		`INSERT INTO issues (id, title, description, category, department, status, severity,
		                     reporter_id, lat, lng, digipin, photo_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	_, err := r.db.ExecContext(ctx, query,
		is.ID, is.Title, is.Description, is.Category, is.Department, string(is.Status), string(is.Severity),
		is.ReporterID, is.Lat, is.Lng, is.Digipin, is.PhotoKey, is.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectIssues = `SELECT i.id, i.title, i.description, i.category, i.department, i.status, i.severity,
       i.reporter_id, r.name, COALESCE(i.assignee_id::text, ''), COALESCE(a.name, ''),
       i.lat, i.lng, i.digipin, i.photo_key, i.upvotes, i.created_at, i.updated_at, i.resolved_at
FROM issues i
JOIN users r ON r.id = i.reporter_id
LEFT JOIN users a ON a.id = i.assignee_id`

func scanIssue(row interface{ Scan(...any) error }) (*models.Issue, error) {
	is := &models.Issue{}
	var status, severity string
	var resolved sql.NullTime
	err := row.Scan(&is.ID, &is.Title, &is.Description, &is.Category, &is.Department, &status, &severity,
		&is.ReporterID, &is.ReporterName, &is.AssigneeID, &is.AssigneeName,
		&is.Lat, &is.Lng, &is.Digipin, &is.PhotoKey, &is.Upvotes, &is.CreatedAt, &is.UpdatedAt, &resolved)
	if err != nil {
		return nil, err
	}
	is.Status = civic.Status(status)
	is.Severity = civic.Severity(severity)
	if resolved.Valid {
		t := resolved.Time
		is.ResolvedAt = &t
	}
	return is, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Issue, error) {
	is, err := scanIssue(r.db.QueryRowContext(ctx, selectIssues+"\nWHERE i.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return is, nil
}

// where accumulates numbered placeholders.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "\nWHERE " + strings.Join(w.conds, " AND ")
}

func (r *PostgresRepository) List(ctx context.Context, f models.IssueFilter, box *models.Box) ([]models.Issue, error) {
	var w where
	if f.ReporterID != "" {
		w.add("i.reporter_id = ?", f.ReporterID)
	}
	if f.AssigneeID != "" {
		w.add("i.assignee_id = ?", f.AssigneeID)
	}
	if f.Status != "" {
		w.add("i.status = ?", string(f.Status))
	}
	if f.Category != "" {
		w.add("i.category = ?", f.Category)
	}
	if f.Severity != "" {
		w.add("i.severity = ?", string(f.Severity))
	}
	if box != nil {
		w.add("i.lat >= ?", box.MinLat)
		w.add("i.lat <= ?", box.MaxLat)
		w.add("i.lng >= ?", box.MinLng)
		w.add("i.lng <= ?", box.MaxLng)
	}

	query := selectIssues + w.String() + "\nORDER BY i.created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf("\nLIMIT %d", f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Issue
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, from, to civic.Status, at time.Time) (bool, error) {
	query :=
		`UPDATE issues
		 SET status = $3, updated_at = $4,
		     resolved_at = CASE WHEN $3 = 'resolved' THEN $4 ELSE resolved_at END
		 WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, string(from), string(to), at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Assign(ctx context.Context, id, staffID string, status civic.Status, at time.Time) error {
	query :=
		`UPDATE issues SET assignee_id = $2, status = $3, updated_at = $4
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, staffID, string(status), at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Upvote(ctx context.Context, id, userID string) (bool, error) {
	query :=
		`WITH vote AS (
		     INSERT INTO issue_upvotes (issue_id, user_id) VALUES ($1, $2)
		     ON CONFLICT DO NOTHING
		     RETURNING issue_id
		 )
		 UPDATE issues SET upvotes = upvotes + 1
		 WHERE id IN (SELECT issue_id FROM vote)`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Counts(ctx context.Context) (*models.IssueCounts, error) {
	query :=
		`SELECT status, category, severity, COUNT(*)
		 FROM issues
		 GROUP BY status, category, severity`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	c := &models.IssueCounts{
		ByStatus:   map[string]int{},
		ByCategory: map[string]int{},
		BySeverity: map[string]int{},
	}
	for rows.Next() {
		var status, category, severity string
		var n int
		if err := rows.Scan(&status, &category, &severity, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		c.Total += n
		c.ByStatus[status] += n
		c.ByCategory[category] += n
		c.BySeverity[severity] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}
