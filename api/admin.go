package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log15 "github.com/inconshreveable/log15/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pulsecheck/checkin"
	"pulsecheck/db"
	"pulsecheck/timeutil"
)

// AdminHandler is the administrative surface: question catalog management,
// workspace schedule configuration, user management, and the manual
// check-in trigger. It carries no auth layer of its own.
type AdminHandler struct {
	store       *db.Store
	engine      CheckInService
	workspaceID string
	log         log15.Logger
}

func NewAdminHandler(store *db.Store, engine CheckInService, workspaceID string, logger log15.Logger) *AdminHandler {
	return &AdminHandler{store: store, engine: engine, workspaceID: workspaceID, log: logger}
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("activeOnly") != "false"
	questions, err := h.store.ListQuestions(activeOnly)
	if err != nil {
		h.serverError(w, "failed to list questions", err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionText == "" {
		writeError(w, http.StatusBadRequest, "question_text is required")
		return
	}
	if !db.IsValidRole(req.QuestionType) {
		writeError(w, http.StatusBadRequest, "invalid question_type")
		return
	}

	question := db.Question{QuestionText: req.QuestionText, QuestionType: req.QuestionType, IsActive: true}
	if err := h.store.CreateQuestion(&question); err != nil {
		if errors.Is(err, db.ErrCoreRoleOccupied) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, "failed to create question", err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *AdminHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QuestionText != nil {
		if err := h.store.UpdateQuestionText(id, *req.QuestionText); err != nil {
			h.questionUpdateError(w, err)
			return
		}
	}
	if req.QuestionType != nil {
		if !db.IsValidRole(*req.QuestionType) {
			writeError(w, http.StatusBadRequest, "invalid question_type")
			return
		}
		if err := h.store.ChangeQuestionType(id, *req.QuestionType); err != nil {
			h.questionUpdateError(w, err)
			return
		}
	}
	if req.IsActive != nil {
		if err := h.store.SetQuestionActive(id, *req.IsActive); err != nil {
			h.questionUpdateError(w, err)
			return
		}
	}

	question, err := h.store.FindQuestionByID(id)
	if err != nil {
		h.serverError(w, "failed to reload question", err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *AdminHandler) questionUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrCoreRoleOccupied), errors.Is(err, db.ErrCoreRoleEmptied):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "question not found")
	default:
		h.serverError(w, "failed to update question", err)
	}
}

func (h *AdminHandler) ReorderQuestions(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.QuestionIDs) == 0 {
		writeError(w, http.StatusBadRequest, "question_ids must be a non-empty array")
		return
	}
	if err := h.store.ReorderRotatingQueue(req.QuestionIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "questions reordered"})
}

func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.GetOrCreateWorkspaceConfig(h.workspaceID)
	if err != nil {
		h.serverError(w, "failed to load workspace config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updates := map[string]any{}
	if req.CheckInDay != nil {
		if _, err := timeutil.ParseWeekday(*req.CheckInDay); err != nil {
			writeError(w, http.StatusBadRequest, "invalid check_in_day, must be a weekday name")
			return
		}
		updates["check_in_day"] = *req.CheckInDay
	}
	if req.CheckInTime != nil {
		if !timeutil.IsValidClock(*req.CheckInTime) {
			writeError(w, http.StatusBadRequest, "invalid check_in_time, must be HH:MM")
			return
		}
		updates["check_in_time"] = *req.CheckInTime
	}
	if req.ReminderTimes != nil {
		for _, at := range req.ReminderTimes {
			if !timeutil.IsValidClock(at) {
				writeError(w, http.StatusBadRequest, "invalid reminder time: "+at)
				return
			}
		}
		updates["reminder_times"] = datatypes.NewJSONSlice(req.ReminderTimes)
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no valid fields to update")
		return
	}

	// Config row exists after startup, but handle first-request ordering.
	if _, err := h.store.GetOrCreateWorkspaceConfig(h.workspaceID); err != nil {
		h.serverError(w, "failed to load workspace config", err)
		return
	}
	cfg, err := h.store.UpdateWorkspaceConfig(h.workspaceID, updates)
	if err != nil {
		h.serverError(w, "failed to update workspace config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("activeOnly") != "false"
	users, err := h.store.ListUsers(activeOnly)
	if err != nil {
		h.serverError(w, "failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeactivateUser(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(w, "failed to deactivate user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}

// TriggerCheckIn is a manual pass-through into the engine's launch, used for
// testing a workspace's setup.
func (h *AdminHandler) TriggerCheckIn(w http.ResponseWriter, r *http.Request) {
	var req triggerCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SlackUserID == "" {
		writeError(w, http.StatusBadRequest, "slack_user_id is required")
		return
	}

	result, err := h.engine.Launch(r.Context(), req.SlackUserID, h.workspaceID)
	if err != nil {
		if errors.Is(err, checkin.ErrMissingCoreQuestion) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.serverError(w, "failed to launch check-in", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
