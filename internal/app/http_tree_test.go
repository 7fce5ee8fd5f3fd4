package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pathos/api/internal/auth"
	"pathos/api/internal/store"
)

func issueTestToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Sub:  userID,
		Name: "maker",
		JTI:  "jti_test",
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "usr_1"))
	return req
}

func TestCreateMilestoneEndpointReturns201(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*", nil)

	req := authedRequest(t, http.MethodPost, "/api/milestones",
		`{"projectId":"prj_1","title":"Frame"}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["title"] != "Frame" || payload["status"] != "planned" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestMilestoneListParentNullSelectsRoots(t *testing.T) {
	var gotFilter store.MilestoneFilter
	fs := &fakeStore{
		listMilestonesFn: func(_ context.Context, _ string, filter store.MilestoneFilter, _, _ int) ([]store.Milestone, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/milestones?projectId=prj_1&parentId=null", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotFilter.ParentID == nil || *gotFilter.ParentID != "" {
		t.Fatalf("parentId=null should filter for roots, got %v", gotFilter.ParentID)
	}

	// Without the parameter, no parent filter at all.
	req = authedRequest(t, http.MethodGet, "/api/milestones?projectId=prj_1", "")
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if gotFilter.ParentID != nil {
		t.Fatalf("omitted parentId should not filter, got %v", gotFilter.ParentID)
	}
}

func TestForeignMilestoneReads404(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/milestones/mls_foreign", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected code NOT_FOUND, got %v", payload["code"])
	}
}

func TestEntriesListUsesDefaultLimit(t *testing.T) {
	var gotLimit, gotOffset int
	fs := &fakeStore{
		listEntriesFn: func(_ context.Context, _ string, _ store.EntryFilter, limit, offset int) ([]store.Entry, error) {
			gotLimit = limit
			gotOffset = offset
			return nil, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	// Garbage pagination values fall back to the defaults.
	req := authedRequest(t, http.MethodGet, "/api/entries?limit=banana&offset=-3", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotLimit != 20 || gotOffset != 0 {
		t.Fatalf("expected default limit 20 offset 0, got %d %d", gotLimit, gotOffset)
	}
}

func TestTasksCompletedFilterParses(t *testing.T) {
	var gotFilter store.TaskFilter
	fs := &fakeStore{
		listTasksFn: func(_ context.Context, _ string, filter store.TaskFilter, _, _ int) ([]store.Task, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/tasks?completed=false", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if gotFilter.Completed == nil || *gotFilter.Completed {
		t.Fatalf("expected completed=false filter, got %v", gotFilter.Completed)
	}

	req = authedRequest(t, http.MethodGet, "/api/tasks", "")
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if gotFilter.Completed != nil {
		t.Fatalf("expected no completed filter, got %v", gotFilter.Completed)
	}
}

func TestTimeEntryGetIsMethodNotAllowed(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/time-entries/tme_1", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTimeEntriesListPayloadShape(t *testing.T) {
	fs := &fakeStore{
		listTimeEntriesFn: func(context.Context, string, store.TimeEntryFilter, int, int) ([]store.TimeEntry, error) {
			return []store.TimeEntry{{ID: "tme_1", Duration: 45}}, nil
		},
		totalTrackedMinutesFn: func(context.Context, string, store.TimeEntryFilter) (int, error) {
			return 45, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/time-entries", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["totalMinutes"] != float64(45) {
		t.Fatalf("expected totalMinutes 45, got %v", payload["totalMinutes"])
	}
	if _, ok := payload["timeEntries"].([]any); !ok {
		t.Fatalf("expected timeEntries array, got %T", payload["timeEntries"])
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/widgets", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDeleteJoinedPassionRoute(t *testing.T) {
	var leftPassion string
	fs := &fakeStore{
		leavePassionFn: func(_ context.Context, _, passionID string) (bool, error) {
			leftPassion = passionID
			return true, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	req := authedRequest(t, http.MethodDelete, "/api/user/passions/pas_1", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if leftPassion != "pas_1" {
		t.Fatalf("expected pas_1 left, got %q", leftPassion)
	}
}

func TestProjectUpdateOmittedVsNullDates(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	var updated store.Project
	fs := &fakeStore{
		getOwnedProjectFn: func(_ context.Context, ownerID, projectID string) (store.Project, error) {
			return store.Project{ID: projectID, UserID: ownerID, Title: "Bench",
				Status: "active", Stage: "idea", Privacy: "public",
				StartDate: &start, EndDate: &end}, nil
		},
		updateProjectFn: func(_ context.Context, p store.Project) (store.Project, error) {
			updated = p
			return p, nil
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	// endDate:null clears it; the omitted startDate stays.
	req := authedRequest(t, http.MethodPatch, "/api/projects/prj_1", `{"endDate":null}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if updated.EndDate != nil {
		t.Fatalf("null endDate should clear it, got %v", updated.EndDate)
	}
	if updated.StartDate == nil || !updated.StartDate.Equal(start) {
		t.Fatalf("omitted startDate must be untouched, got %v", updated.StartDate)
	}
}

func TestSessionLookupForUnknownUserIsUnauthorized(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(context.Context, string) (store.User, error) {
			return store.User{}, sql.ErrNoRows
		},
	}
	server := NewHTTPServer(newTestService(fs, nil), "*", nil)

	req := authedRequest(t, http.MethodGet, "/api/profile", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertUnauthorizedCode(t, rr)
}
