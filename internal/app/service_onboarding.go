package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pathos/api/internal/store"
	"pathos/api/internal/util"
)

type OnboardingProject struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Note        string   `json:"note"`
}

type OnboardingPassionDetail struct {
	PassionID string              `json:"passionId"`
	Projects  []OnboardingProject `json:"projects"`
}

// ImportPassionDetails bulk-creates starter projects collected during
// onboarding. The batch is best-effort by design: details for passions the
// user has not joined are skipped, as are projects with a blank title, and a
// bad item never aborts the rest.
func (s *Service) ImportPassionDetails(ctx context.Context, userID string, details []OnboardingPassionDetail) (map[string]any, error) {
	created := 0
	skipped := 0

	for _, detail := range details {
		joined, err := s.store.HasUserPassion(ctx, userID, detail.PassionID)
		if err != nil {
			return nil, err
		}
		if !joined {
			skipped += len(detail.Projects)
			continue
		}
		if _, err := s.store.GetPassion(ctx, detail.PassionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				skipped += len(detail.Projects)
				continue
			}
			return nil, err
		}

		for _, proj := range detail.Projects {
			title := strings.TrimSpace(proj.Title)
			if title == "" {
				skipped++
				continue
			}

			project, err := s.store.CreateProject(ctx, store.Project{
				ID:          util.NewID("prj"),
				UserID:      userID,
				PassionID:   detail.PassionID,
				Title:       title,
				Description: strings.TrimSpace(proj.Description),
				Status:      "active",
				Stage:       "idea",
				Privacy:     "public",
			})
			if err != nil {
				return nil, err
			}
			created++
			s.indexProject(project)

			steps := make([]string, 0, len(proj.Steps))
			for _, step := range proj.Steps {
				if strings.TrimSpace(step) != "" {
					steps = append(steps, strings.TrimSpace(step))
				}
			}
			if len(steps) > 0 {
				milestone, err := s.store.CreateMilestone(ctx, store.Milestone{
					ID:        util.NewID("mls"),
					UserID:    userID,
					ProjectID: project.ID,
					Title:     "Next Steps",
					Status:    "active",
				})
				if err != nil {
					return nil, err
				}
				for i, step := range steps {
					mid := milestone.ID
					pid := project.ID
					if _, err := s.store.CreateTask(ctx, store.Task{
						ID:          util.NewID("tsk"),
						UserID:      userID,
						ProjectID:   &pid,
						MilestoneID: &mid,
						Title:       step,
						Order:       i,
					}); err != nil {
						return nil, err
					}
				}
			}

			if note := strings.TrimSpace(proj.Note); note != "" {
				entry, err := s.store.CreateEntry(ctx, store.Entry{
					ID:        util.NewID("ent"),
					UserID:    userID,
					ProjectID: project.ID,
					Title:     "Getting started",
					Content:   note,
					Type:      "note",
					Privacy:   "private",
				})
				if err != nil {
					return nil, err
				}
				s.indexEntry(entry)
			}
		}
	}

	return map[string]any{"created": created, "skipped": skipped}, nil
}
