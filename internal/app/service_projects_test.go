package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"pathos/api/internal/store"
)

func TestCreateProjectRequiresCustomPassionMembership(t *testing.T) {
	fs := &fakeStore{
		getPassionFn: func(_ context.Context, passionID string) (store.Passion, error) {
			return store.Passion{ID: passionID, Name: "Bonsai", Slug: "bonsai", IsCustom: true}, nil
		},
		hasUserPassionFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.CreateProject(context.Background(), "usr_1", CreateProjectInput{
		PassionID: "pas_custom", Title: "Juniper shaping",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 403 || domainErr.Code != "PASSION_NOT_JOINED" {
		t.Fatalf("expected 403 PASSION_NOT_JOINED, got %d %s", domainErr.Status, domainErr.Code)
	}

	// Curated passions need no membership.
	fs.getPassionFn = func(_ context.Context, passionID string) (store.Passion, error) {
		return store.Passion{ID: passionID, Name: "Gardening", Slug: "gardening"}, nil
	}
	payload, err := svc.CreateProject(context.Background(), "usr_1", CreateProjectInput{
		PassionID: "pas_1", Title: "Juniper shaping",
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if payload["status"] != "active" || payload["stage"] != "idea" || payload["privacy"] != "public" {
		t.Fatalf("unexpected defaults: status=%v stage=%v privacy=%v",
			payload["status"], payload["stage"], payload["privacy"])
	}
}

func TestGetProjectHidesPrivateFromNonOwner(t *testing.T) {
	fs := &fakeStore{
		getProjectFn: func(_ context.Context, projectID string) (store.Project, error) {
			return store.Project{ID: projectID, UserID: "usr_owner", Privacy: "private", Title: "Secret"}, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.GetProject(context.Background(), "usr_other", "prj_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	// Privacy denial reads as missing so existence does not leak.
	if domainErr.Status != 404 || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %s", domainErr.Status, domainErr.Code)
	}

	// The owner still sees it, privacy field included.
	payload, err := svc.GetProject(context.Background(), "usr_owner", "prj_1")
	if err != nil {
		t.Fatalf("GetProject() as owner error = %v", err)
	}
	if payload["privacy"] != "private" {
		t.Fatalf("owner payload should carry privacy, got %v", payload["privacy"])
	}
}

func TestGetPublicProjectOmitsPrivacyForNonOwner(t *testing.T) {
	fs := &fakeStore{
		getProjectFn: func(_ context.Context, projectID string) (store.Project, error) {
			return store.Project{ID: projectID, UserID: "usr_owner", Privacy: "public", Title: "Open build"}, nil
		},
	}
	svc := newTestService(fs, nil)

	payload, err := svc.GetProject(context.Background(), "usr_other", "prj_1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if _, ok := payload["privacy"]; ok {
		t.Fatal("non-owner payload must not expose the privacy setting")
	}
}

func TestListProjectsForOtherUserForcesPublicOnly(t *testing.T) {
	var gotFilter store.ProjectFilter
	var gotOwner string
	fs := &fakeStore{
		listUserProjectsFn: func(_ context.Context, ownerID string, filter store.ProjectFilter, _, _ int) ([]store.Project, error) {
			gotOwner = ownerID
			gotFilter = filter
			return nil, nil
		},
	}
	svc := newTestService(fs, nil)

	if _, err := svc.ListProjects(context.Background(), "usr_viewer", "usr_other", "", "", 50, 0); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if gotOwner != "usr_other" || !gotFilter.PublicOnly {
		t.Fatalf("expected public-only listing of usr_other, got owner=%q publicOnly=%v", gotOwner, gotFilter.PublicOnly)
	}

	if _, err := svc.ListProjects(context.Background(), "usr_viewer", "", "", "", 50, 0); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if gotOwner != "usr_viewer" || gotFilter.PublicOnly {
		t.Fatalf("own listing should not be public-only, got owner=%q publicOnly=%v", gotOwner, gotFilter.PublicOnly)
	}
}

func TestUpdateProjectLeavesOmittedFieldsAlone(t *testing.T) {
	var updated store.Project
	fs := &fakeStore{
		getOwnedProjectFn: func(_ context.Context, ownerID, projectID string) (store.Project, error) {
			return store.Project{
				ID: projectID, UserID: ownerID, PassionID: "pas_1",
				Title: "Workbench", Description: "A sturdy bench",
				Status: "active", Stage: "development", Privacy: "public",
			}, nil
		},
		updateProjectFn: func(_ context.Context, p store.Project) (store.Project, error) {
			updated = p
			return p, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.UpdateProject(context.Background(), "usr_1", "prj_1", UpdateProjectInput{
		Status: Optional[string]{Set: true, Valid: true, Value: "paused"},
	})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	if updated.Status != "paused" {
		t.Fatalf("expected status paused, got %q", updated.Status)
	}
	if updated.Title != "Workbench" || updated.Description != "A sturdy bench" || updated.Stage != "development" {
		t.Fatalf("omitted fields were touched: %+v", updated)
	}
}

func TestUpdateProjectRejectsEndBeforeStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		getOwnedProjectFn: func(_ context.Context, ownerID, projectID string) (store.Project, error) {
			return store.Project{ID: projectID, UserID: ownerID, Title: "Bench", StartDate: &start,
				Status: "active", Stage: "idea", Privacy: "public"}, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.UpdateProject(context.Background(), "usr_1", "prj_1", UpdateProjectInput{
		EndDate: Optional[time.Time]{Set: true, Valid: true, Value: start.AddDate(0, -1, 0)},
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestDeleteProjectMissingIsNotFound(t *testing.T) {
	fs := &fakeStore{
		deleteProjectFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs, nil)

	err := svc.DeleteProject(context.Background(), "usr_1", "prj_missing")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}
