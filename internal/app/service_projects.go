package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"pathos/api/internal/search"
	"pathos/api/internal/store"
	"pathos/api/internal/util"
)

var allowedProjectStatus = map[string]struct{}{
	"active":    {},
	"paused":    {},
	"completed": {},
	"archived":  {},
}

var allowedProjectStage = map[string]struct{}{
	"idea":        {},
	"planning":    {},
	"development": {},
	"testing":     {},
	"launch":      {},
	"maintenance": {},
}

var allowedPrivacy = map[string]struct{}{
	"private": {},
	"friends": {},
	"public":  {},
}

type CreateProjectInput struct {
	PassionID   string     `json:"passionId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Stage       string     `json:"stage"`
	Privacy     string     `json:"privacy"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

type UpdateProjectInput struct {
	PassionID   Optional[string]    `json:"passionId"`
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	Status      Optional[string]    `json:"status"`
	Stage       Optional[string]    `json:"stage"`
	Privacy     Optional[string]    `json:"privacy"`
	StartDate   Optional[time.Time] `json:"startDate"`
	EndDate     Optional[time.Time] `json:"endDate"`
}

// CreateProject creates a project under one of the caller's passions.
// Custom passions require membership; curated ones do not.
func (s *Service) CreateProject(ctx context.Context, userID string, in CreateProjectInput) (map[string]any, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	passion, err := s.store.GetPassion(ctx, in.PassionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("passion")
		}
		return nil, err
	}
	if passion.IsCustom {
		joined, err := s.store.HasUserPassion(ctx, userID, passion.ID)
		if err != nil {
			return nil, err
		}
		if !joined {
			return nil, domainError(http.StatusForbidden, "PASSION_NOT_JOINED", "Join the passion before creating projects under it", nil)
		}
	}

	status := in.Status
	if status == "" {
		status = "active"
	}
	stage := in.Stage
	if stage == "" {
		stage = "idea"
	}
	privacy := in.Privacy
	if privacy == "" {
		privacy = "public"
	}
	if _, ok := allowedProjectStatus[status]; !ok {
		return nil, validationError("invalid status")
	}
	if _, ok := allowedProjectStage[stage]; !ok {
		return nil, validationError("invalid stage")
	}
	if _, ok := allowedPrivacy[privacy]; !ok {
		return nil, validationError("invalid privacy")
	}
	if in.StartDate != nil && in.EndDate != nil && !in.EndDate.After(*in.StartDate) {
		return nil, validationError("endDate must be after startDate")
	}

	project, err := s.store.CreateProject(ctx, store.Project{
		ID:          util.NewID("prj"),
		UserID:      userID,
		PassionID:   passion.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Stage:       stage,
		Privacy:     privacy,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	})
	if err != nil {
		return nil, err
	}
	s.indexProject(project)
	return projectPayload(project, true), nil
}

// GetProject returns a project. A non-owner only sees public projects;
// private and friends-only ones read as missing so existence does not leak.
func (s *Service) GetProject(ctx context.Context, viewerID, projectID string) (map[string]any, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("project")
		}
		return nil, err
	}
	isOwner := project.UserID == viewerID
	if !isOwner && project.Privacy != "public" {
		return nil, notFound("project")
	}
	return projectPayload(project, isOwner), nil
}

// ListProjects lists the caller's own projects, or another user's public
// projects when ownerID names someone else.
func (s *Service) ListProjects(ctx context.Context, viewerID, ownerID, passionID, status string, limit, offset int) ([]map[string]any, error) {
	if ownerID == "" {
		ownerID = viewerID
	}
	if status != "" {
		if _, ok := allowedProjectStatus[status]; !ok {
			return nil, validationError("invalid status")
		}
	}
	filter := store.ProjectFilter{
		PassionID:  passionID,
		Status:     status,
		PublicOnly: ownerID != viewerID,
	}
	projects, err := s.store.ListUserProjects(ctx, ownerID, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	isOwner := ownerID == viewerID
	items := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectPayload(p, isOwner))
	}
	return items, nil
}

// UpdateProject applies a partial update. Omitted fields are untouched;
// explicit nulls clear the nullable dates.
func (s *Service) UpdateProject(ctx context.Context, userID, projectID string, in UpdateProjectInput) (map[string]any, error) {
	project, err := s.store.GetOwnedProject(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("project")
		}
		return nil, err
	}

	if in.PassionID.Set {
		if !in.PassionID.Valid {
			return nil, validationError("passionId cannot be null")
		}
		passion, err := s.store.GetPassion(ctx, in.PassionID.Value)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("passion")
			}
			return nil, err
		}
		project.PassionID = passion.ID
	}
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if !in.Title.Valid || title == "" {
			return nil, validationError("title cannot be empty")
		}
		project.Title = title
	}
	if in.Description.Set {
		project.Description = ""
		if in.Description.Valid {
			project.Description = strings.TrimSpace(in.Description.Value)
		}
	}
	if in.Status.Set {
		if _, ok := allowedProjectStatus[in.Status.Value]; !in.Status.Valid || !ok {
			return nil, validationError("invalid status")
		}
		project.Status = in.Status.Value
	}
	if in.Stage.Set {
		if _, ok := allowedProjectStage[in.Stage.Value]; !in.Stage.Valid || !ok {
			return nil, validationError("invalid stage")
		}
		project.Stage = in.Stage.Value
	}
	if in.Privacy.Set {
		if _, ok := allowedPrivacy[in.Privacy.Value]; !in.Privacy.Valid || !ok {
			return nil, validationError("invalid privacy")
		}
		project.Privacy = in.Privacy.Value
	}
	if in.StartDate.Set {
		project.StartDate = nil
		if in.StartDate.Valid {
			v := in.StartDate.Value
			project.StartDate = &v
		}
	}
	if in.EndDate.Set {
		project.EndDate = nil
		if in.EndDate.Valid {
			v := in.EndDate.Value
			project.EndDate = &v
		}
	}
	if project.StartDate != nil && project.EndDate != nil && !project.EndDate.After(*project.StartDate) {
		return nil, validationError("endDate must be after startDate")
	}

	updated, err := s.store.UpdateProject(ctx, project)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("project")
		}
		return nil, err
	}
	s.indexProject(updated)
	return projectPayload(updated, true), nil
}

// DeleteProject removes a project and everything under it.
func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) error {
	removed, err := s.store.DeleteProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("project")
	}
	if s.search != nil {
		s.search.DeleteProject(projectID)
	}
	return nil
}

func (s *Service) indexProject(p store.Project) {
	if s.search == nil {
		return
	}
	s.search.IndexProject(search.ProjectRecord{
		ID:          p.ID,
		UserID:      p.UserID,
		PassionID:   p.PassionID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Privacy:     p.Privacy,
	})
}

func projectPayload(p store.Project, isOwner bool) map[string]any {
	payload := map[string]any{
		"id":          p.ID,
		"userId":      p.UserID,
		"passionId":   p.PassionID,
		"title":       p.Title,
		"description": p.Description,
		"status":      p.Status,
		"stage":       p.Stage,
		"startDate":   p.StartDate,
		"endDate":     p.EndDate,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
	if isOwner {
		payload["privacy"] = p.Privacy
	}
	return payload
}
