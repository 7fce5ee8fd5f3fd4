package app

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"pathos/api/internal/search"
	"pathos/api/internal/store"
	"pathos/api/internal/util"
)

var allowedMilestoneStatus = map[string]struct{}{
	"planned":   {},
	"active":    {},
	"completed": {},
	"skipped":   {},
}

var allowedEntryTypes = map[string]struct{}{
	"progress":  {},
	"milestone": {},
	"note":      {},
	"media":     {},
	"link":      {},
}

const maxTimeEntryMinutes = 1440

func crossProject(what string) *DomainError {
	return domainError(400, "CROSS_PROJECT", what+" belongs to a different project", nil)
}

// --- Milestones ---

type CreateMilestoneInput struct {
	ProjectID   string     `json:"projectId"`
	ParentID    *string    `json:"parentId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	TargetDate  *time.Time `json:"targetDate"`
	Order       int        `json:"order"`
}

type UpdateMilestoneInput struct {
	ParentID    Optional[string]    `json:"parentId"`
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	Status      Optional[string]    `json:"status"`
	TargetDate  Optional[time.Time] `json:"targetDate"`
	Order       Optional[int]       `json:"order"`
}

// CreateMilestone adds a milestone to an owned project, optionally under a
// parent milestone of the same project.
func (s *Service) CreateMilestone(ctx context.Context, userID string, in CreateMilestoneInput) (map[string]any, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	status := in.Status
	if status == "" {
		status = "planned"
	}
	if _, ok := allowedMilestoneStatus[status]; !ok {
		return nil, validationError("invalid status")
	}

	if _, err := s.store.GetOwnedProject(ctx, userID, in.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("project")
		}
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.store.GetMilestone(ctx, userID, *in.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("parent milestone")
			}
			return nil, err
		}
		if parent.ProjectID != in.ProjectID {
			return nil, crossProject("parent milestone")
		}
	}

	m := store.Milestone{
		ID:          util.NewID("mls"),
		UserID:      userID,
		ProjectID:   in.ProjectID,
		ParentID:    in.ParentID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		TargetDate:  in.TargetDate,
		Order:       in.Order,
	}
	if status == "completed" {
		now := time.Now()
		m.CompletedAt = &now
	}

	created, err := s.store.CreateMilestone(ctx, m)
	if err != nil {
		return nil, err
	}
	return milestonePayload(created), nil
}

// GetMilestone returns a milestone with its direct children, tasks and
// derived progress.
func (s *Service) GetMilestone(ctx context.Context, userID, milestoneID string) (map[string]any, error) {
	detail, err := s.store.GetMilestoneDetail(ctx, userID, milestoneID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("milestone")
		}
		return nil, err
	}

	children := make([]map[string]any, 0, len(detail.Children))
	for _, c := range detail.Children {
		children = append(children, map[string]any{
			"id":          c.ID,
			"title":       c.Title,
			"status":      c.Status,
			"completedAt": c.CompletedAt,
		})
	}
	tasks := make([]map[string]any, 0, len(detail.Tasks))
	for _, t := range detail.Tasks {
		tasks = append(tasks, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"completed":   t.Completed,
			"completedAt": t.CompletedAt,
		})
	}

	payload := milestonePayload(detail.Milestone)
	payload["children"] = children
	payload["tasks"] = tasks
	payload["progress"] = ComputeProgress(detail.Children, detail.Tasks)
	return payload, nil
}

// ListMilestones lists the caller's milestones, optionally filtered by
// project, parent (parentId=null selects roots) and status.
func (s *Service) ListMilestones(ctx context.Context, userID string, f store.MilestoneFilter, limit, offset int) ([]map[string]any, error) {
	if f.Status != "" {
		if _, ok := allowedMilestoneStatus[f.Status]; !ok {
			return nil, validationError("invalid status")
		}
	}
	milestones, err := s.store.ListMilestones(ctx, userID, f, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(milestones))
	for _, m := range milestones {
		items = append(items, milestonePayload(m))
	}
	return items, nil
}

// UpdateMilestone applies a partial update. Reparenting enforces the tree
// shape: no self-parent, no moving under a descendant, no crossing projects.
// Status moves keep completedAt in lockstep with "completed".
func (s *Service) UpdateMilestone(ctx context.Context, userID, milestoneID string, in UpdateMilestoneInput) (map[string]any, error) {
	m, err := s.store.GetMilestone(ctx, userID, milestoneID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("milestone")
		}
		return nil, err
	}

	if in.ParentID.Set {
		if !in.ParentID.Valid {
			m.ParentID = nil // promote to root
		} else {
			newParentID := in.ParentID.Value
			if newParentID == m.ID {
				return nil, domainError(400, "SELF_PARENT", "A milestone cannot be its own parent", nil)
			}
			parent, err := s.store.GetMilestone(ctx, userID, newParentID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, notFound("parent milestone")
				}
				return nil, err
			}
			if parent.ProjectID != m.ProjectID {
				return nil, crossProject("parent milestone")
			}
			// The walk and the write below run as separate statements, so
			// two concurrent reparents of the same tree can interleave
			// into a cycle neither walk sees.
			if err := s.ensureNotDescendant(ctx, userID, m.ID, parent); err != nil {
				return nil, err
			}
			m.ParentID = &newParentID
		}
	}
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if !in.Title.Valid || title == "" {
			return nil, validationError("title cannot be empty")
		}
		m.Title = title
	}
	if in.Description.Set {
		m.Description = ""
		if in.Description.Valid {
			m.Description = strings.TrimSpace(in.Description.Value)
		}
	}
	if in.Status.Set {
		if _, ok := allowedMilestoneStatus[in.Status.Value]; !in.Status.Valid || !ok {
			return nil, validationError("invalid status")
		}
		newStatus := in.Status.Value
		switch {
		case newStatus == "completed" && m.Status != "completed":
			now := time.Now()
			m.CompletedAt = &now
		case newStatus != "completed" && m.Status == "completed":
			m.CompletedAt = nil
		}
		m.Status = newStatus
	}
	if in.TargetDate.Set {
		m.TargetDate = nil
		if in.TargetDate.Valid {
			v := in.TargetDate.Value
			m.TargetDate = &v
		}
	}
	if in.Order.Set && in.Order.Valid {
		m.Order = in.Order.Value
	}

	updated, err := s.store.UpdateMilestone(ctx, m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("milestone")
		}
		return nil, err
	}
	return milestonePayload(updated), nil
}

// ensureNotDescendant walks up from candidate's ancestors; finding
// milestoneID on the way means the move would close a loop.
func (s *Service) ensureNotDescendant(ctx context.Context, userID, milestoneID string, candidate store.Milestone) error {
	cur := candidate
	for cur.ParentID != nil {
		if *cur.ParentID == milestoneID {
			return domainError(400, "CYCLE", "Cannot move a milestone under its own descendant", nil)
		}
		next, err := s.store.GetMilestone(ctx, userID, *cur.ParentID)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// DeleteMilestone removes a milestone. Its children become roots; its tasks
// and entries are detached, not deleted.
func (s *Service) DeleteMilestone(ctx context.Context, userID, milestoneID string) error {
	removed, err := s.store.DeleteMilestoneCascade(ctx, userID, milestoneID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("milestone")
	}
	return nil
}

func milestonePayload(m store.Milestone) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"projectId":   m.ProjectID,
		"parentId":    m.ParentID,
		"title":       m.Title,
		"description": m.Description,
		"status":      m.Status,
		"targetDate":  m.TargetDate,
		"completedAt": m.CompletedAt,
		"order":       m.Order,
		"createdAt":   m.CreatedAt,
	}
}

// --- Tasks ---

type CreateTaskInput struct {
	ProjectID   *string    `json:"projectId"`
	MilestoneID *string    `json:"milestoneId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
	Order       int        `json:"order"`
}

type UpdateTaskInput struct {
	MilestoneID Optional[string]    `json:"milestoneId"`
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	Completed   Optional[bool]      `json:"completed"`
	DueDate     Optional[time.Time] `json:"dueDate"`
	Order       Optional[int]       `json:"order"`
}

// CreateTask creates a task under a project and/or milestone. A task given
// only a milestone inherits the milestone's project.
func (s *Service) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (map[string]any, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	if in.MilestoneID != nil {
		milestone, err := s.store.GetMilestone(ctx, userID, *in.MilestoneID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("milestone")
			}
			return nil, err
		}
		if in.ProjectID == nil {
			pid := milestone.ProjectID
			in.ProjectID = &pid
		} else if *in.ProjectID != milestone.ProjectID {
			return nil, crossProject("milestone")
		}
	}
	if in.ProjectID != nil {
		if _, err := s.store.GetOwnedProject(ctx, userID, *in.ProjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("project")
			}
			return nil, err
		}
	}

	t := store.Task{
		ID:          util.NewID("tsk"),
		UserID:      userID,
		ProjectID:   in.ProjectID,
		MilestoneID: in.MilestoneID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Completed:   in.Completed,
		DueDate:     in.DueDate,
		Order:       in.Order,
	}
	if t.Completed {
		now := time.Now()
		t.CompletedAt = &now
	}

	created, err := s.store.CreateTask(ctx, t)
	if err != nil {
		return nil, err
	}
	return taskPayload(created), nil
}

// ListTasks lists the caller's tasks with optional project/milestone/state
// filters.
func (s *Service) ListTasks(ctx context.Context, userID string, f store.TaskFilter, limit, offset int) ([]map[string]any, error) {
	tasks, err := s.store.ListTasks(ctx, userID, f, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskPayload(t))
	}
	return items, nil
}

// UpdateTask applies a partial update, keeping completedAt in lockstep with
// the completed flag.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, in UpdateTaskInput) (map[string]any, error) {
	t, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("task")
		}
		return nil, err
	}

	if in.MilestoneID.Set {
		if !in.MilestoneID.Valid {
			t.MilestoneID = nil
		} else {
			milestone, err := s.store.GetMilestone(ctx, userID, in.MilestoneID.Value)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, notFound("milestone")
				}
				return nil, err
			}
			if t.ProjectID != nil && milestone.ProjectID != *t.ProjectID {
				return nil, crossProject("milestone")
			}
			if t.ProjectID == nil {
				pid := milestone.ProjectID
				t.ProjectID = &pid
			}
			id := milestone.ID
			t.MilestoneID = &id
		}
	}
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if !in.Title.Valid || title == "" {
			return nil, validationError("title cannot be empty")
		}
		t.Title = title
	}
	if in.Description.Set {
		t.Description = ""
		if in.Description.Valid {
			t.Description = strings.TrimSpace(in.Description.Value)
		}
	}
	if in.Completed.Set && in.Completed.Valid {
		switch {
		case in.Completed.Value && !t.Completed:
			now := time.Now()
			t.CompletedAt = &now
		case !in.Completed.Value && t.Completed:
			t.CompletedAt = nil
		}
		t.Completed = in.Completed.Value
	}
	if in.DueDate.Set {
		t.DueDate = nil
		if in.DueDate.Valid {
			v := in.DueDate.Value
			t.DueDate = &v
		}
	}
	if in.Order.Set && in.Order.Valid {
		t.Order = in.Order.Value
	}

	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("task")
		}
		return nil, err
	}
	return taskPayload(updated), nil
}

func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	removed, err := s.store.DeleteTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("task")
	}
	return nil
}

func taskPayload(t store.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"projectId":   t.ProjectID,
		"milestoneId": t.MilestoneID,
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"completedAt": t.CompletedAt,
		"dueDate":     t.DueDate,
		"order":       t.Order,
		"createdAt":   t.CreatedAt,
	}
}

// --- Entries ---

type CreateEntryInput struct {
	ProjectID   string     `json:"projectId"`
	MilestoneID *string    `json:"milestoneId"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Type        string     `json:"type"`
	Privacy     string     `json:"privacy"`
	MediaURLs   []string   `json:"mediaUrls"`
	Links       []string   `json:"links"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"publishedAt"`
	Publish     bool       `json:"publish"`
}

type UpdateEntryInput struct {
	MilestoneID Optional[string]    `json:"milestoneId"`
	Title       Optional[string]    `json:"title"`
	Content     Optional[string]    `json:"content"`
	Type        Optional[string]    `json:"type"`
	Privacy     Optional[string]    `json:"privacy"`
	MediaURLs   Optional[[]string]  `json:"mediaUrls"`
	Links       Optional[[]string]  `json:"links"`
	Tags        Optional[[]string]  `json:"tags"`
	PublishedAt Optional[time.Time] `json:"publishedAt"`
}

// CreateEntry posts a progress entry on an owned project. A nil publishedAt
// keeps it a draft; publish=true stamps it now.
func (s *Service) CreateEntry(ctx context.Context, userID string, in CreateEntryInput) (map[string]any, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	entryType := in.Type
	if entryType == "" {
		entryType = "progress"
	}
	if _, ok := allowedEntryTypes[entryType]; !ok {
		return nil, validationError("invalid type")
	}
	privacy := in.Privacy
	if privacy == "" {
		privacy = "public"
	}
	if _, ok := allowedPrivacy[privacy]; !ok {
		return nil, validationError("invalid privacy")
	}

	if _, err := s.store.GetOwnedProject(ctx, userID, in.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("project")
		}
		return nil, err
	}
	if in.MilestoneID != nil {
		milestone, err := s.store.GetMilestone(ctx, userID, *in.MilestoneID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("milestone")
			}
			return nil, err
		}
		if milestone.ProjectID != in.ProjectID {
			return nil, crossProject("milestone")
		}
	}

	publishedAt := in.PublishedAt
	if publishedAt == nil && in.Publish {
		now := time.Now()
		publishedAt = &now
	}

	created, err := s.store.CreateEntry(ctx, store.Entry{
		ID:          util.NewID("ent"),
		UserID:      userID,
		ProjectID:   in.ProjectID,
		MilestoneID: in.MilestoneID,
		Title:       title,
		Content:     in.Content,
		Type:        entryType,
		Privacy:     privacy,
		MediaURLs:   in.MediaURLs,
		Links:       in.Links,
		Tags:        in.Tags,
		PublishedAt: publishedAt,
	})
	if err != nil {
		return nil, err
	}
	s.indexEntry(created)
	return entryPayload(created), nil
}

// GetEntry returns an entry. Non-owners only see published public entries;
// everything else reads as missing.
func (s *Service) GetEntry(ctx context.Context, viewerID, entryID string) (map[string]any, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("entry")
		}
		return nil, err
	}
	if entry.UserID != viewerID {
		if entry.Privacy != "public" || entry.PublishedAt == nil {
			return nil, notFound("entry")
		}
	}
	return entryPayload(entry), nil
}

// ListEntries lists an owner's entries. Viewing someone else narrows to
// published public entries.
func (s *Service) ListEntries(ctx context.Context, viewerID, ownerID string, f store.EntryFilter, limit, offset int) ([]map[string]any, error) {
	if ownerID == "" {
		ownerID = viewerID
	}
	if f.Type != "" {
		if _, ok := allowedEntryTypes[f.Type]; !ok {
			return nil, validationError("invalid type")
		}
	}
	f.PublicOnly = ownerID != viewerID
	entries, err := s.store.ListEntries(ctx, ownerID, f, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryPayload(e))
	}
	return items, nil
}

// UpdateEntry applies a partial update. Setting publishedAt to null returns
// the entry to draft.
func (s *Service) UpdateEntry(ctx context.Context, userID, entryID string, in UpdateEntryInput) (map[string]any, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil || entry.UserID != userID {
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("entry")
		}
		return nil, err
	}

	if in.MilestoneID.Set {
		if !in.MilestoneID.Valid {
			entry.MilestoneID = nil
		} else {
			milestone, err := s.store.GetMilestone(ctx, userID, in.MilestoneID.Value)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, notFound("milestone")
				}
				return nil, err
			}
			if milestone.ProjectID != entry.ProjectID {
				return nil, crossProject("milestone")
			}
			id := milestone.ID
			entry.MilestoneID = &id
		}
	}
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if !in.Title.Valid || title == "" {
			return nil, validationError("title cannot be empty")
		}
		entry.Title = title
	}
	if in.Content.Set {
		entry.Content = ""
		if in.Content.Valid {
			entry.Content = in.Content.Value
		}
	}
	if in.Type.Set {
		if _, ok := allowedEntryTypes[in.Type.Value]; !in.Type.Valid || !ok {
			return nil, validationError("invalid type")
		}
		entry.Type = in.Type.Value
	}
	if in.Privacy.Set {
		if _, ok := allowedPrivacy[in.Privacy.Value]; !in.Privacy.Valid || !ok {
			return nil, validationError("invalid privacy")
		}
		entry.Privacy = in.Privacy.Value
	}
	if in.MediaURLs.Set {
		entry.MediaURLs = nil
		if in.MediaURLs.Valid {
			entry.MediaURLs = in.MediaURLs.Value
		}
	}
	if in.Links.Set {
		entry.Links = nil
		if in.Links.Valid {
			entry.Links = in.Links.Value
		}
	}
	if in.Tags.Set {
		entry.Tags = nil
		if in.Tags.Valid {
			entry.Tags = in.Tags.Value
		}
	}
	if in.PublishedAt.Set {
		entry.PublishedAt = nil
		if in.PublishedAt.Valid {
			v := in.PublishedAt.Value
			entry.PublishedAt = &v
		}
	}

	updated, err := s.store.UpdateEntry(ctx, entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("entry")
		}
		return nil, err
	}
	s.indexEntry(updated)
	return entryPayload(updated), nil
}

func (s *Service) DeleteEntry(ctx context.Context, userID, entryID string) error {
	removed, err := s.store.DeleteEntry(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("entry")
	}
	if s.search != nil {
		s.search.DeleteEntry(entryID)
	}
	return nil
}

func (s *Service) indexEntry(e store.Entry) {
	if s.search == nil {
		return
	}
	s.search.IndexEntry(search.EntryRecord{
		ID:        e.ID,
		UserID:    e.UserID,
		ProjectID: e.ProjectID,
		Title:     e.Title,
		Content:   e.Content,
		Type:      e.Type,
		Privacy:   e.Privacy,
	})
}

func entryPayload(e store.Entry) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"userId":      e.UserID,
		"projectId":   e.ProjectID,
		"milestoneId": e.MilestoneID,
		"title":       e.Title,
		"content":     e.Content,
		"type":        e.Type,
		"privacy":     e.Privacy,
		"mediaUrls":   nonNilStrings(e.MediaURLs),
		"links":       nonNilStrings(e.Links),
		"tags":        nonNilStrings(e.Tags),
		"publishedAt": e.PublishedAt,
		"createdAt":   e.CreatedAt,
	}
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// --- Time entries ---

type LogTimeEntryInput struct {
	ProjectID   *string   `json:"projectId"`
	TaskID      *string   `json:"taskId"`
	MilestoneID *string   `json:"milestoneId"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"` // minutes; 0 = derive from span
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
}

// LogTimeEntry records tracked time. A supplied non-zero duration wins;
// otherwise the span is rounded to whole minutes. Either way the result must
// land in [1, 1440].
func (s *Service) LogTimeEntry(ctx context.Context, userID string, in LogTimeEntryInput) (map[string]any, error) {
	if in.StartedAt.IsZero() || in.EndedAt.IsZero() {
		return nil, validationError("startedAt and endedAt are required")
	}
	if !in.EndedAt.After(in.StartedAt) {
		return nil, domainError(400, "END_BEFORE_START", "endedAt must be after startedAt", nil)
	}

	if in.TaskID != nil {
		task, err := s.store.GetTask(ctx, userID, *in.TaskID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("task")
			}
			return nil, err
		}
		if in.ProjectID == nil {
			in.ProjectID = task.ProjectID
		} else if task.ProjectID != nil && *task.ProjectID != *in.ProjectID {
			return nil, crossProject("task")
		}
	}
	if in.MilestoneID != nil {
		milestone, err := s.store.GetMilestone(ctx, userID, *in.MilestoneID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("milestone")
			}
			return nil, err
		}
		if in.ProjectID == nil {
			pid := milestone.ProjectID
			in.ProjectID = &pid
		} else if milestone.ProjectID != *in.ProjectID {
			return nil, crossProject("milestone")
		}
	}
	if in.ProjectID != nil {
		if _, err := s.store.GetOwnedProject(ctx, userID, *in.ProjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("project")
			}
			return nil, err
		}
	}

	duration := in.Duration
	if duration == 0 {
		duration = int(math.Round(in.EndedAt.Sub(in.StartedAt).Minutes()))
	}
	if duration < 1 || duration > maxTimeEntryMinutes {
		return nil, validationError("duration must be between 1 and 1440 minutes")
	}

	created, err := s.store.CreateTimeEntry(ctx, store.TimeEntry{
		ID:          util.NewID("tme"),
		UserID:      userID,
		ProjectID:   in.ProjectID,
		TaskID:      in.TaskID,
		MilestoneID: in.MilestoneID,
		Description: strings.TrimSpace(in.Description),
		Duration:    duration,
		StartedAt:   in.StartedAt,
		EndedAt:     in.EndedAt,
	})
	if err != nil {
		return nil, err
	}
	return timeEntryPayload(created), nil
}

// ListTimeEntries returns the caller's time entries plus the total tracked
// minutes over the same filter.
func (s *Service) ListTimeEntries(ctx context.Context, userID string, f store.TimeEntryFilter, limit, offset int) (map[string]any, error) {
	entries, err := s.store.ListTimeEntries(ctx, userID, f, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.store.TotalTrackedMinutes(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(entries))
	for _, te := range entries {
		items = append(items, timeEntryPayload(te))
	}
	return map[string]any{"timeEntries": items, "totalMinutes": total}, nil
}

func (s *Service) DeleteTimeEntry(ctx context.Context, userID, timeEntryID string) error {
	removed, err := s.store.DeleteTimeEntry(ctx, userID, timeEntryID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("time entry")
	}
	return nil
}

func timeEntryPayload(te store.TimeEntry) map[string]any {
	return map[string]any{
		"id":          te.ID,
		"projectId":   te.ProjectID,
		"taskId":      te.TaskID,
		"milestoneId": te.MilestoneID,
		"description": te.Description,
		"duration":    te.Duration,
		"startedAt":   te.StartedAt,
		"endedAt":     te.EndedAt,
		"createdAt":   te.CreatedAt,
	}
}
