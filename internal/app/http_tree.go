package app

import (
	"net/http"
	"strings"

	"pathos/api/internal/store"
)

// routeTree dispatches the milestone, task, entry and time-entry routes.
// Returns false when the path is not one of them.
func (s *HTTPServer) routeTree(w http.ResponseWriter, r *http.Request, session Session, parts []string) bool {
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "api" {
		return false
	}

	resource := parts[1]
	id := ""
	if len(parts) == 3 {
		id = parts[2]
	}

	switch resource {
	case "milestones":
		if id == "" {
			s.handleMilestones(w, r, session)
		} else {
			s.handleMilestone(w, r, session, id)
		}
		return true
	case "tasks":
		if id == "" {
			s.handleTasks(w, r, session)
		} else {
			s.handleTask(w, r, session, id)
		}
		return true
	case "entries":
		if id == "" {
			s.handleEntries(w, r, session)
		} else {
			s.handleEntry(w, r, session, id)
		}
		return true
	case "time-entries":
		if id == "" {
			s.handleTimeEntries(w, r, session)
		} else {
			s.handleTimeEntry(w, r, session, id)
		}
		return true
	}
	return false
}

func (s *HTTPServer) handleMilestones(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		filter := store.MilestoneFilter{
			ProjectID: strings.TrimSpace(r.URL.Query().Get("projectId")),
			Status:    strings.TrimSpace(r.URL.Query().Get("status")),
		}
		// parentId=null selects root milestones
		if raw, ok := r.URL.Query()["parentId"]; ok && len(raw) > 0 {
			parent := strings.TrimSpace(raw[0])
			if parent == "null" {
				parent = ""
			}
			filter.ParentID = &parent
		}
		items, err := s.service.ListMilestones(r.Context(), session.UserID, filter, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"milestones": items})
	case http.MethodPost:
		var body CreateMilestoneInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateMilestone(r.Context(), session.UserID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleMilestone(w http.ResponseWriter, r *http.Request, session Session, milestoneID string) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetMilestone(r.Context(), session.UserID, milestoneID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPatch, http.MethodPut:
		var body UpdateMilestoneInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateMilestone(r.Context(), session.UserID, milestoneID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		if err := s.service.DeleteMilestone(r.Context(), session.UserID, milestoneID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTasks(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		filter := store.TaskFilter{
			ProjectID:   strings.TrimSpace(r.URL.Query().Get("projectId")),
			MilestoneID: strings.TrimSpace(r.URL.Query().Get("milestoneId")),
		}
		switch strings.TrimSpace(r.URL.Query().Get("completed")) {
		case "true":
			v := true
			filter.Completed = &v
		case "false":
			v := false
			filter.Completed = &v
		}
		items, err := s.service.ListTasks(r.Context(), session.UserID, filter, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": items})
	case http.MethodPost:
		var body CreateTaskInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateTask(r.Context(), session.UserID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTask(w http.ResponseWriter, r *http.Request, session Session, taskID string) {
	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var body UpdateTaskInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateTask(r.Context(), session.UserID, taskID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		if err := s.service.DeleteTask(r.Context(), session.UserID, taskID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleEntries(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		filter := store.EntryFilter{
			ProjectID:   strings.TrimSpace(r.URL.Query().Get("projectId")),
			MilestoneID: strings.TrimSpace(r.URL.Query().Get("milestoneId")),
			Type:        strings.TrimSpace(r.URL.Query().Get("type")),
		}
		items, err := s.service.ListEntries(r.Context(), session.UserID,
			strings.TrimSpace(r.URL.Query().Get("userId")),
			filter, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": items})
	case http.MethodPost:
		var body CreateEntryInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateEntry(r.Context(), session.UserID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleEntry(w http.ResponseWriter, r *http.Request, session Session, entryID string) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetEntry(r.Context(), session.UserID, entryID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPatch, http.MethodPut:
		var body UpdateEntryInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateEntry(r.Context(), session.UserID, entryID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		if err := s.service.DeleteEntry(r.Context(), session.UserID, entryID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTimeEntries(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		filter := store.TimeEntryFilter{
			ProjectID:   strings.TrimSpace(r.URL.Query().Get("projectId")),
			TaskID:      strings.TrimSpace(r.URL.Query().Get("taskId")),
			MilestoneID: strings.TrimSpace(r.URL.Query().Get("milestoneId")),
		}
		payload, err := s.service.ListTimeEntries(r.Context(), session.UserID, filter, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodPost:
		var body LogTimeEntryInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.LogTimeEntry(r.Context(), session.UserID, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTimeEntry(w http.ResponseWriter, r *http.Request, session Session, timeEntryID string) {
	switch r.Method {
	case http.MethodDelete:
		if err := s.service.DeleteTimeEntry(r.Context(), session.UserID, timeEntryID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}
