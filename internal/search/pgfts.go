package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across projects and entries using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.UserID}
	argN := 3

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultProject {
		projWhere := "p.fts @@ " + tsQuery + " AND p.user_id = $2"
		if q.FilterPassionID != "" {
			projWhere += fmt.Sprintf(" AND p.passion_id = $%d", argN)
			args = append(args, q.FilterPassionID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'project'::text AS type, p.id, p.title,
				ts_headline('english', coalesce(p.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				p.id AS project_id, p.passion_id, p.privacy,
				ts_rank(p.fts, %s) AS rank
			FROM projects p
			WHERE %s`, tsQuery, tsQuery, projWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultEntry {
		entryWhere := "e.fts @@ " + tsQuery + " AND e.user_id = $2"
		if q.FilterPassionID != "" {
			entryWhere += fmt.Sprintf(" AND p.passion_id = $%d", argN)
			args = append(args, q.FilterPassionID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'entry'::text AS type, e.id, e.title,
				ts_headline('english', coalesce(e.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				e.project_id, p.passion_id, e.privacy,
				ts_rank(e.fts, %s) AS rank
			FROM entries e
			JOIN projects p ON p.id = e.project_id
			WHERE %s`, tsQuery, tsQuery, entryWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, project_id, passion_id, privacy
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ProjectID, &r.PassionID, &r.Privacy); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ProjectRecord, []EntryRecord, error) {
	projRows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, passion_id, title, description, status, privacy
		FROM projects
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load projects: %w", err)
	}
	defer projRows.Close()

	projects := make([]ProjectRecord, 0)
	for projRows.Next() {
		var pr ProjectRecord
		if err := projRows.Scan(&pr.ID, &pr.UserID, &pr.PassionID, &pr.Title, &pr.Description, &pr.Status, &pr.Privacy); err != nil {
			return nil, nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, pr)
	}
	if err := projRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate projects: %w", err)
	}

	entryRows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, title, content, type, privacy
		FROM entries
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load entries: %w", err)
	}
	defer entryRows.Close()

	entries := make([]EntryRecord, 0)
	for entryRows.Next() {
		var er EntryRecord
		if err := entryRows.Scan(&er.ID, &er.UserID, &er.ProjectID, &er.Title, &er.Content, &er.Type, &er.Privacy); err != nil {
			return nil, nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, er)
	}
	if err := entryRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate entries: %w", err)
	}

	return projects, entries, nil
}
