/*
Package api's handlers.go exposes the timer engine, ledger and validator
over HTTP. Request flow mirrors the teacher's handlers.go: parse, call
domain logic, serialize, handle errors via the shared writeJSON/writeError
helpers (400 validation, 404 not found, 409 precondition, 500 internal).

No authentication: a single Handler is bound to one local user at
startup, matching this component's scope as a local control surface, not
the out-of-scope multi-device sync backend.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/gamify"
	"github.com/kvaranth/dayclock/plan"
	"github.com/kvaranth/dayclock/timer"
	"github.com/kvaranth/dayclock/validate"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *timer.Engine
	Ledger *gamify.Ledger
	Store  plan.Store
	Clock  plan.Clock
	UserID string
	Logger *zap.SugaredLogger
}

func NewHandler(engine *timer.Engine, ledger *gamify.Ledger, store plan.Store, clock plan.Clock, userID string, logger *zap.SugaredLogger) *Handler {
	return &Handler{Engine: engine, Ledger: ledger, Store: store, Clock: clock, UserID: userID, Logger: logger}
}

// =============================================================================
// SNAPSHOT / PREVIEW / WARNINGS
// =============================================================================

// GetSnapshot returns the engine's current read-only projection.
// GET /api/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSnapshotDTO(h.Engine.Snapshot()))
}

// GetPreview returns today's gamification coin preview.
// GET /api/preview
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := h.Clock.Now().Format("2006-01-02")

	dp, err := h.Store.GetDayPlan(ctx, h.UserID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load day plan", err)
		return
	}
	if dp == nil {
		writeJSON(w, http.StatusOK, PreviewDTO{})
		return
	}
	balance, err := h.Store.GetCoinBalance(ctx, h.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load coin balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(gamify.Preview(*dp, balance.Streak)))
}

// GetWarnings returns today's plan-validator warnings.
// GET /api/warnings
func (h *Handler) GetWarnings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := h.Clock.Now().Format("2006-01-02")

	dp, err := h.Store.GetDayPlan(ctx, h.UserID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load day plan", err)
		return
	}
	if dp == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	writeJSON(w, http.StatusOK, validate.Warnings(*dp, h.Clock.Now()))
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// AddTask creates a new task on today's plan.
// POST /api/tasks
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	t, err := h.Engine.AddTask(req.Name, req.AllocatedSeconds, req.ScheduledTime, plan.Priority(req.Priority))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t.ID.String())
}

// UpdateTask edits a task's mutable metadata.
// PUT /api/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.Engine.UpdateTaskMeta(id, req.Name, req.AllocatedSeconds, req.ScheduledTime, plan.Priority(req.Priority)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RemoveTask deletes a task. Idempotent for unknown ids (spec.md §7).
// DELETE /api/tasks/{id}
func (h *Handler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	h.Engine.RemoveTask(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ActivateTask makes a task the single active task, deactivating any
// other. No-op for an already-terminal task.
// POST /api/tasks/{id}/activate
func (h *Handler) ActivateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	h.Engine.ActivateTask(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Deactivate clears the active task without completing or skipping it.
// POST /api/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.Engine.Deactivate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CompleteTask marks a task completed and flushes immediately.
// POST /api/tasks/{id}/complete
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	h.Engine.CompleteTask(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SkipTask marks a task skipped and flushes immediately.
// POST /api/tasks/{id}/skip
func (h *Handler) SkipTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	h.Engine.SkipTask(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CarryOverTask copies a non-terminal, not-yet-carried task to a target
// date.
// POST /api/tasks/{id}/carry-over
func (h *Handler) CarryOverTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	var req CarryOverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.TargetDate == "" {
		writeError(w, http.StatusBadRequest, "target_date is required", nil)
		return
	}
	if err := h.Engine.CarryOverTask(r.Context(), id, req.TargetDate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// BALANCE / REWARD HANDLERS
// =============================================================================

// GetBalance returns the coin balance and streak.
// GET /api/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	cb, err := h.Store.GetCoinBalance(r.Context(), h.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: cb.Balance, Streak: cb.Streak})
}

// GetReward returns a shop reward by id.
// GET /api/rewards/{id}
func (h *Handler) GetReward(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reward, err := h.Store.GetReward(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reward", err)
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRewardDTO(*reward))
}

// PurchaseReward redeems a reward against the coin balance.
// POST /api/rewards/{id}/purchase
func (h *Handler) PurchaseReward(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := h.Ledger.Purchase(r.Context(), h.UserID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the current settings.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.GetSettings(r.Context(), h.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(*st))
}

// UpdateSettings replaces the current settings wholesale.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var dto SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	st := plan.Settings{
		UserID:               h.UserID,
		OverrunBehavior:      plan.OverrunBehavior(dto.OverrunBehavior),
		OverrunSource:        plan.OverrunSource(dto.OverrunSource),
		NotifyBeforeMinutes:  dto.NotifyBeforeMinutes,
		GamificationEnabled:  dto.GamificationEnabled,
		AllowNegativeBalance: dto.AllowNegativeBalance,
		Theme:                dto.Theme,
	}
	if err := h.Store.SaveSettings(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(st))
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTaskID(w http.ResponseWriter, r *http.Request) (plan.TaskID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := plan.ParseTaskID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id", err)
		return plan.TaskID{}, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status per spec.md §7:
// 400 validation, 404 not found, 409 precondition, 500 otherwise.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *plan.ValidationError
	var pe *plan.PurchaseError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error(), nil)
	case errors.As(err, &pe):
		writeError(w, http.StatusConflict, pe.Error(), nil)
	case errors.Is(err, plan.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, plan.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument", err)
	case errors.Is(err, plan.ErrPreconditionFailed):
		writeError(w, http.StatusConflict, "precondition failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
