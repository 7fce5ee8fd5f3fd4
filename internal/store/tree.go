package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
)

// jsonStrings round-trips []string columns through jsonb.
func jsonStrings(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}
	return json.Marshal(v)
}

func scanStrings(raw []byte, dest *[]string) error {
	if len(raw) == 0 {
		*dest = []string{}
		return nil
	}
	return json.Unmarshal(raw, dest)
}

const milestoneColumns = `id, user_id, project_id, parent_id, title, description, status, target_date, completed_at, sort_order, created_at`

func scanMilestone(scan func(dest ...any) error) (Milestone, error) {
	var m Milestone
	err := scan(&m.ID, &m.UserID, &m.ProjectID, &m.ParentID, &m.Title, &m.Description,
		&m.Status, &m.TargetDate, &m.CompletedAt, &m.Order, &m.CreatedAt)
	if err != nil {
		return Milestone{}, err
	}
	return m, nil
}

func (s *PostgresStore) CreateMilestone(ctx context.Context, m Milestone) (Milestone, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO milestones (id, user_id, project_id, parent_id, title, description, status, target_date, completed_at, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, m.ID, m.UserID, m.ProjectID, m.ParentID, m.Title, m.Description, m.Status, m.TargetDate, m.CompletedAt, m.Order).
		Scan(&m.CreatedAt)
	if err != nil {
		return Milestone{}, fmt.Errorf("insert milestone: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) GetMilestone(ctx context.Context, userID, milestoneID string) (Milestone, error) {
	return scanMilestone(s.db.QueryRowContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE id=$1 AND user_id=$2`, milestoneID, userID).Scan)
}

// GetMilestoneDetail loads a milestone with its direct children and the tasks
// attached to it, one level deep.
func (s *PostgresStore) GetMilestoneDetail(ctx context.Context, userID, milestoneID string) (MilestoneDetail, error) {
	m, err := s.GetMilestone(ctx, userID, milestoneID)
	if err != nil {
		return MilestoneDetail{}, err
	}
	detail := MilestoneDetail{Milestone: m, Children: []MilestoneRef{}, Tasks: []TaskRef{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, completed_at
		FROM milestones
		WHERE parent_id=$1 AND user_id=$2
		ORDER BY sort_order ASC, created_at ASC
	`, milestoneID, userID)
	if err != nil {
		return MilestoneDetail{}, fmt.Errorf("load milestone children: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref MilestoneRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Status, &ref.CompletedAt); err != nil {
			return MilestoneDetail{}, fmt.Errorf("scan milestone child: %w", err)
		}
		detail.Children = append(detail.Children, ref)
	}
	if err := rows.Err(); err != nil {
		return MilestoneDetail{}, err
	}

	taskRows, err := s.db.QueryContext(ctx, `
		SELECT id, title, completed, completed_at
		FROM tasks
		WHERE milestone_id=$1 AND user_id=$2
		ORDER BY sort_order ASC, created_at ASC
	`, milestoneID, userID)
	if err != nil {
		return MilestoneDetail{}, fmt.Errorf("load milestone tasks: %w", err)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var ref TaskRef
		if err := taskRows.Scan(&ref.ID, &ref.Title, &ref.Completed, &ref.CompletedAt); err != nil {
			return MilestoneDetail{}, fmt.Errorf("scan milestone task: %w", err)
		}
		detail.Tasks = append(detail.Tasks, ref)
	}
	return detail, taskRows.Err()
}

// MilestoneFilter narrows ListMilestones. Zero values mean no filtering.
type MilestoneFilter struct {
	ProjectID string
	ParentID  *string // non-nil with empty string selects roots
	Status    string
}

func (s *PostgresStore) ListMilestones(ctx context.Context, userID string, f MilestoneFilter, limit, offset int) ([]Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE user_id=$1`
	args := []any{userID}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		query += ` AND project_id=$` + strconv.Itoa(len(args))
	}
	if f.ParentID != nil {
		if *f.ParentID == "" {
			query += ` AND parent_id IS NULL`
		} else {
			args = append(args, *f.ParentID)
			query += ` AND parent_id=$` + strconv.Itoa(len(args))
		}
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += ` ORDER BY sort_order ASC, created_at ASC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	items := make([]Milestone, 0)
	for rows.Next() {
		m, err := scanMilestone(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateMilestone(ctx context.Context, m Milestone) (Milestone, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE milestones
		SET parent_id=$3, title=$4, description=$5, status=$6, target_date=$7, completed_at=$8, sort_order=$9
		WHERE id=$1 AND user_id=$2
		RETURNING created_at
	`, m.ID, m.UserID, m.ParentID, m.Title, m.Description, m.Status, m.TargetDate, m.CompletedAt, m.Order).
		Scan(&m.CreatedAt)
	if err != nil {
		return Milestone{}, err
	}
	return m, nil
}

// DeleteMilestoneCascade removes a milestone in one transaction: direct
// children are promoted to roots, tasks and entries pointing at it are
// detached, then the row goes. Returns false when the milestone does not
// exist or belongs to another user.
func (s *PostgresStore) DeleteMilestoneCascade(ctx context.Context, userID, milestoneID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin milestone delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE milestones SET parent_id=NULL WHERE parent_id=$1 AND user_id=$2
	`, milestoneID, userID); err != nil {
		return false, fmt.Errorf("promote milestone children: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET milestone_id=NULL WHERE milestone_id=$1 AND user_id=$2
	`, milestoneID, userID); err != nil {
		return false, fmt.Errorf("detach milestone tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE entries SET milestone_id=NULL WHERE milestone_id=$1 AND user_id=$2
	`, milestoneID, userID); err != nil {
		return false, fmt.Errorf("detach milestone entries: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE id=$1 AND user_id=$2`, milestoneID, userID)
	if err != nil {
		return false, fmt.Errorf("delete milestone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete milestone result: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit milestone delete: %w", err)
	}
	return true, nil
}

const taskColumns = `id, user_id, project_id, milestone_id, title, description, completed, completed_at, due_date, sort_order, created_at`

func scanTask(scan func(dest ...any) error) (Task, error) {
	var t Task
	err := scan(&t.ID, &t.UserID, &t.ProjectID, &t.MilestoneID, &t.Title, &t.Description,
		&t.Completed, &t.CompletedAt, &t.DueDate, &t.Order, &t.CreatedAt)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, user_id, project_id, milestone_id, title, description, completed, completed_at, due_date, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, t.ID, t.UserID, t.ProjectID, t.MilestoneID, t.Title, t.Description, t.Completed, t.CompletedAt, t.DueDate, t.Order).
		Scan(&t.CreatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, userID, taskID string) (Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 AND user_id=$2`, taskID, userID).Scan)
}

// TaskFilter narrows ListTasks. Zero values mean no filtering.
type TaskFilter struct {
	ProjectID   string
	MilestoneID string
	Completed   *bool
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID string, f TaskFilter, limit, offset int) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1`
	args := []any{userID}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		query += ` AND project_id=$` + strconv.Itoa(len(args))
	}
	if f.MilestoneID != "" {
		args = append(args, f.MilestoneID)
		query += ` AND milestone_id=$` + strconv.Itoa(len(args))
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		query += ` AND completed=$` + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += ` ORDER BY sort_order ASC, created_at ASC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t Task) (Task, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET milestone_id=$3, title=$4, description=$5, completed=$6, completed_at=$7, due_date=$8, sort_order=$9
		WHERE id=$1 AND user_id=$2
		RETURNING created_at
	`, t.ID, t.UserID, t.MilestoneID, t.Title, t.Description, t.Completed, t.CompletedAt, t.DueDate, t.Order).
		Scan(&t.CreatedAt)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, userID, taskID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1 AND user_id=$2`, taskID, userID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task result: %w", err)
	}
	return n > 0, nil
}

const entryColumns = `id, user_id, project_id, milestone_id, title, content, type, privacy, media_urls, links, tags, published_at, created_at`

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var e Entry
	var media, links, tags []byte
	err := scan(&e.ID, &e.UserID, &e.ProjectID, &e.MilestoneID, &e.Title, &e.Content,
		&e.Type, &e.Privacy, &media, &links, &tags, &e.PublishedAt, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	if err := scanStrings(media, &e.MediaURLs); err != nil {
		return Entry{}, fmt.Errorf("decode media urls: %w", err)
	}
	if err := scanStrings(links, &e.Links); err != nil {
		return Entry{}, fmt.Errorf("decode links: %w", err)
	}
	if err := scanStrings(tags, &e.Tags); err != nil {
		return Entry{}, fmt.Errorf("decode tags: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) CreateEntry(ctx context.Context, e Entry) (Entry, error) {
	media, err := jsonStrings(e.MediaURLs)
	if err != nil {
		return Entry{}, fmt.Errorf("encode media urls: %w", err)
	}
	links, err := jsonStrings(e.Links)
	if err != nil {
		return Entry{}, fmt.Errorf("encode links: %w", err)
	}
	tags, err := jsonStrings(e.Tags)
	if err != nil {
		return Entry{}, fmt.Errorf("encode tags: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO entries (id, user_id, project_id, milestone_id, title, content, type, privacy, media_urls, links, tags, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`, e.ID, e.UserID, e.ProjectID, e.MilestoneID, e.Title, e.Content, e.Type, e.Privacy, media, links, tags, e.PublishedAt).
		Scan(&e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

// GetEntry fetches an entry regardless of owner. The service layer applies
// privacy before handing it to a non-owner.
func (s *PostgresStore) GetEntry(ctx context.Context, entryID string) (Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id=$1`, entryID).Scan)
}

// EntryFilter narrows ListEntries. Zero values mean no filtering.
type EntryFilter struct {
	ProjectID   string
	MilestoneID string
	Type        string
	PublicOnly  bool
}

func (s *PostgresStore) ListEntries(ctx context.Context, ownerID string, f EntryFilter, limit, offset int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=$1`
	args := []any{ownerID}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		query += ` AND project_id=$` + strconv.Itoa(len(args))
	}
	if f.MilestoneID != "" {
		args = append(args, f.MilestoneID)
		query += ` AND milestone_id=$` + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += ` AND type=$` + strconv.Itoa(len(args))
	}
	if f.PublicOnly {
		query += ` AND privacy='public' AND published_at IS NOT NULL`
	}
	args = append(args, limit, offset)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, e Entry) (Entry, error) {
	media, err := jsonStrings(e.MediaURLs)
	if err != nil {
		return Entry{}, fmt.Errorf("encode media urls: %w", err)
	}
	links, err := jsonStrings(e.Links)
	if err != nil {
		return Entry{}, fmt.Errorf("encode links: %w", err)
	}
	tags, err := jsonStrings(e.Tags)
	if err != nil {
		return Entry{}, fmt.Errorf("encode tags: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		UPDATE entries
		SET milestone_id=$3, title=$4, content=$5, type=$6, privacy=$7, media_urls=$8, links=$9, tags=$10, published_at=$11
		WHERE id=$1 AND user_id=$2
		RETURNING created_at
	`, e.ID, e.UserID, e.MilestoneID, e.Title, e.Content, e.Type, e.Privacy, media, links, tags, e.PublishedAt).
		Scan(&e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, userID, entryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id=$1 AND user_id=$2`, entryID, userID)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entry result: %w", err)
	}
	return n > 0, nil
}

const timeEntryColumns = `id, user_id, project_id, task_id, milestone_id, description, duration, started_at, ended_at, created_at`

func scanTimeEntry(scan func(dest ...any) error) (TimeEntry, error) {
	var te TimeEntry
	err := scan(&te.ID, &te.UserID, &te.ProjectID, &te.TaskID, &te.MilestoneID,
		&te.Description, &te.Duration, &te.StartedAt, &te.EndedAt, &te.CreatedAt)
	if err != nil {
		return TimeEntry{}, err
	}
	return te, nil
}

func (s *PostgresStore) CreateTimeEntry(ctx context.Context, te TimeEntry) (TimeEntry, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO time_entries (id, user_id, project_id, task_id, milestone_id, description, duration, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, te.ID, te.UserID, te.ProjectID, te.TaskID, te.MilestoneID, te.Description, te.Duration, te.StartedAt, te.EndedAt).
		Scan(&te.CreatedAt)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("insert time entry: %w", err)
	}
	return te, nil
}

// TimeEntryFilter narrows ListTimeEntries and TotalTrackedMinutes.
type TimeEntryFilter struct {
	ProjectID   string
	TaskID      string
	MilestoneID string
}

func timeEntryWhere(userID string, f TimeEntryFilter) (string, []any) {
	where := ` WHERE user_id=$1`
	args := []any{userID}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		where += ` AND project_id=$` + strconv.Itoa(len(args))
	}
	if f.TaskID != "" {
		args = append(args, f.TaskID)
		where += ` AND task_id=$` + strconv.Itoa(len(args))
	}
	if f.MilestoneID != "" {
		args = append(args, f.MilestoneID)
		where += ` AND milestone_id=$` + strconv.Itoa(len(args))
	}
	return where, args
}

func (s *PostgresStore) ListTimeEntries(ctx context.Context, userID string, f TimeEntryFilter, limit, offset int) ([]TimeEntry, error) {
	where, args := timeEntryWhere(userID, f)
	args = append(args, limit, offset)
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries` + where +
		` ORDER BY started_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	items := make([]TimeEntry, 0)
	for rows.Next() {
		te, err := scanTimeEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		items = append(items, te)
	}
	return items, rows.Err()
}

// TotalTrackedMinutes sums durations across the filtered set.
func (s *PostgresStore) TotalTrackedMinutes(ctx context.Context, userID string, f TimeEntryFilter) (int, error) {
	where, args := timeEntryWhere(userID, f)
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(duration) FROM time_entries`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum time entries: %w", err)
	}
	return int(total.Int64), nil
}

func (s *PostgresStore) DeleteTimeEntry(ctx context.Context, userID, timeEntryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id=$1 AND user_id=$2`, timeEntryID, userID)
	if err != nil {
		return false, fmt.Errorf("delete time entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete time entry result: %w", err)
	}
	return n > 0, nil
}
