package store

import (
	"context"
	"fmt"
	"strconv"
)

const projectColumns = `id, user_id, passion_id, title, description, status, stage, privacy, start_date, end_date, created_at, updated_at`

func scanProject(scan func(dest ...any) error) (Project, error) {
	var p Project
	err := scan(&p.ID, &p.UserID, &p.PassionID, &p.Title, &p.Description, &p.Status, &p.Stage,
		&p.Privacy, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, user_id, passion_id, title, description, status, stage, privacy, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, p.ID, p.UserID, p.PassionID, p.Title, p.Description, p.Status, p.Stage, p.Privacy, p.StartDate, p.EndDate).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// GetProject fetches a project regardless of owner. Visibility rules live in
// the service layer, which needs the owner id to apply them.
func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, projectID).Scan)
}

// GetOwnedProject fetches a project only if ownerID owns it.
func (s *PostgresStore) GetOwnedProject(ctx context.Context, ownerID, projectID string) (Project, error) {
	return scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id=$1 AND user_id=$2`, projectID, ownerID).Scan)
}

// ProjectFilter narrows ListUserProjects. Zero values mean no filtering.
type ProjectFilter struct {
	PassionID string
	Status    string
	// PublicOnly hides private and friends-only projects. Set when the
	// viewer is not the owner.
	PublicOnly bool
}

func (s *PostgresStore) ListUserProjects(ctx context.Context, ownerID string, f ProjectFilter, limit, offset int) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id=$1`
	args := []any{ownerID}
	if f.PassionID != "" {
		args = append(args, f.PassionID)
		query += ` AND passion_id=$` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if f.PublicOnly {
		query += ` AND privacy='public'`
	}
	args = append(args, limit, offset)
	query += ` ORDER BY updated_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateProject(ctx context.Context, p Project) (Project, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE projects
		SET passion_id=$3, title=$4, description=$5, status=$6, stage=$7, privacy=$8,
			start_date=$9, end_date=$10, updated_at=NOW()
		WHERE id=$1 AND user_id=$2
		RETURNING created_at, updated_at
	`, p.ID, p.UserID, p.PassionID, p.Title, p.Description, p.Status, p.Stage, p.Privacy, p.StartDate, p.EndDate).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

// DeleteProject removes the project row. Milestones, tasks, entries and time
// entries under it go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteProject(ctx context.Context, ownerID, projectID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1 AND user_id=$2`, projectID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project result: %w", err)
	}
	return n > 0, nil
}
