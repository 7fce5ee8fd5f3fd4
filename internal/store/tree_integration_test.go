package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// openTestStore connects to the database named by PATHOS_TEST_DATABASE_URL,
// resets the public schema and applies the migrations. Tests that need a
// real database skip when the variable is unset.
func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("PATHOS_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("PATHOS_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

type treeFixture struct {
	user    User
	project Project
	root    Milestone
	child   Milestone
	task    Task
	entry   Entry
}

// seedTree builds one owner with a project, a root milestone, a child
// milestone under it, and a task, entry and time entry attached to the root.
func seedTree(t *testing.T, s *PostgresStore, suffix string) treeFixture {
	t.Helper()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, User{
		ID:           "usr_" + suffix,
		Username:     "maker-" + suffix,
		Email:        suffix + "@example.com",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	passion, err := s.CreatePassion(ctx, Passion{
		ID:   "pas_" + suffix,
		Name: "Woodworking " + suffix,
		Slug: "woodworking-" + suffix,
	})
	if err != nil {
		t.Fatalf("seed passion: %v", err)
	}

	project, err := s.CreateProject(ctx, Project{
		ID:        "prj_" + suffix,
		UserID:    user.ID,
		PassionID: passion.ID,
		Title:     "Workbench",
		Status:    "active",
		Stage:     "idea",
		Privacy:   "public",
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	root, err := s.CreateMilestone(ctx, Milestone{
		ID:        "mls_root_" + suffix,
		UserID:    user.ID,
		ProjectID: project.ID,
		Title:     "Frame",
		Status:    "active",
	})
	if err != nil {
		t.Fatalf("seed root milestone: %v", err)
	}

	child, err := s.CreateMilestone(ctx, Milestone{
		ID:        "mls_child_" + suffix,
		UserID:    user.ID,
		ProjectID: project.ID,
		ParentID:  &root.ID,
		Title:     "Legs",
		Status:    "planned",
	})
	if err != nil {
		t.Fatalf("seed child milestone: %v", err)
	}

	task, err := s.CreateTask(ctx, Task{
		ID:          "tsk_" + suffix,
		UserID:      user.ID,
		ProjectID:   &project.ID,
		MilestoneID: &root.ID,
		Title:       "Cut lumber",
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}

	entry, err := s.CreateEntry(ctx, Entry{
		ID:          "ent_" + suffix,
		UserID:      user.ID,
		ProjectID:   project.ID,
		MilestoneID: &root.ID,
		Title:       "Day one",
		Type:        "progress",
		Privacy:     "public",
	})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	started := time.Now().Add(-time.Hour)
	if _, err := s.CreateTimeEntry(ctx, TimeEntry{
		ID:          "tme_" + suffix,
		UserID:      user.ID,
		ProjectID:   &project.ID,
		TaskID:      &task.ID,
		MilestoneID: &root.ID,
		Duration:    60,
		StartedAt:   started,
		EndedAt:     started.Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed time entry: %v", err)
	}

	return treeFixture{user: user, project: project, root: root, child: child, task: task, entry: entry}
}

func TestDeleteMilestoneCascadePromotesChildrenAndDetaches(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := openTestStore(t)
	ctx := context.Background()
	fx := seedTree(t, s, "a")

	ok, err := s.DeleteMilestoneCascade(ctx, fx.user.ID, fx.root.ID)
	if err != nil {
		t.Fatalf("delete milestone: %v", err)
	}
	if !ok {
		t.Fatal("expected the milestone to be deleted")
	}

	if _, err := s.GetMilestone(ctx, fx.user.ID, fx.root.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected milestone gone, got %v", err)
	}

	child, err := s.GetMilestone(ctx, fx.user.ID, fx.child.ID)
	if err != nil {
		t.Fatalf("load child: %v", err)
	}
	if child.ParentID != nil {
		t.Fatalf("expected child promoted to root, got parent %s", *child.ParentID)
	}

	task, err := s.GetTask(ctx, fx.user.ID, fx.task.ID)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.MilestoneID != nil {
		t.Fatal("expected task detached from the milestone")
	}
	if task.ProjectID == nil || *task.ProjectID != fx.project.ID {
		t.Fatal("expected task to keep its project")
	}

	entry, err := s.GetEntry(ctx, fx.entry.ID)
	if err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.MilestoneID != nil {
		t.Fatal("expected entry detached from the milestone")
	}
}

func TestDeleteMilestoneCascadeIgnoresForeignRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := openTestStore(t)
	ctx := context.Background()
	fx := seedTree(t, s, "b")

	other, err := s.CreateUser(ctx, User{
		ID:           "usr_other",
		Username:     "other",
		Email:        "other@example.com",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed other user: %v", err)
	}

	ok, err := s.DeleteMilestoneCascade(ctx, other.ID, fx.root.ID)
	if err != nil {
		t.Fatalf("delete as foreign owner: %v", err)
	}
	if ok {
		t.Fatal("expected no delete for a foreign owner")
	}

	child, err := s.GetMilestone(ctx, fx.user.ID, fx.child.ID)
	if err != nil {
		t.Fatalf("load child: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != fx.root.ID {
		t.Fatal("expected child still under its parent")
	}

	task, err := s.GetTask(ctx, fx.user.ID, fx.task.ID)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.MilestoneID == nil || *task.MilestoneID != fx.root.ID {
		t.Fatal("expected task still attached to the milestone")
	}
}

func TestDeleteProjectRemovesWholeSubtree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := openTestStore(t)
	ctx := context.Background()
	fx := seedTree(t, s, "c")

	ok, err := s.DeleteProject(ctx, "usr_nobody", fx.project.ID)
	if err != nil {
		t.Fatalf("delete as foreign owner: %v", err)
	}
	if ok {
		t.Fatal("expected no delete for a foreign owner")
	}

	ok, err = s.DeleteProject(ctx, fx.user.ID, fx.project.ID)
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if !ok {
		t.Fatal("expected the project to be deleted")
	}

	if _, err := s.GetProject(ctx, fx.project.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected project gone, got %v", err)
	}
	if _, err := s.GetMilestone(ctx, fx.user.ID, fx.root.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected root milestone gone, got %v", err)
	}
	if _, err := s.GetMilestone(ctx, fx.user.ID, fx.child.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected child milestone gone, got %v", err)
	}
	if _, err := s.GetTask(ctx, fx.user.ID, fx.task.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected task gone, got %v", err)
	}
	if _, err := s.GetEntry(ctx, fx.entry.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected entry gone, got %v", err)
	}

	remaining, err := s.ListTimeEntries(ctx, fx.user.ID, TimeEntryFilter{}, 50, 0)
	if err != nil {
		t.Fatalf("list time entries: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no time entries left, got %d", len(remaining))
	}
}
