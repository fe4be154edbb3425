package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"steppingStonesAPI/internal/step"
	"steppingStonesAPI/middleware"
	"steppingStonesAPI/services"
)

type StepHandler struct {
	stepService *services.StepService
}

func NewStepHandler(stepService *services.StepService) *StepHandler {
	return &StepHandler{
		stepService: stepService,
	}
}

func (h *StepHandler) CreateStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req step.CreateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	st, err := h.stepService.CreateStep(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create step")
		return
	}
	respondWithJSON(w, http.StatusCreated, st)
}

func (h *StepHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	filter := r.URL.Query().Get("filter")
	sortBy := r.URL.Query().Get("sort")

	steps, err := h.stepService.ListSteps(ctx, userID, filter, sortBy)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list steps")
		return
	}
	respondWithJSON(w, http.StatusOK, steps)
}

func (h *StepHandler) GetStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	detail, err := h.stepService.GetStep(ctx, userID, stepID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load step")
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *StepHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	var req step.UpdateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	st, err := h.stepService.UpdateStep(ctx, userID, stepID, &req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update step")
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (h *StepHandler) ArchiveStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	if err := h.stepService.ArchiveStep(ctx, userID, stepID); err != nil {
		respondWithServiceError(w, err, "Failed to archive step")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"archived": true})
}

func (h *StepHandler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	if err := h.stepService.DeleteStep(ctx, userID, stepID); err != nil {
		respondWithServiceError(w, err, "Failed to delete step")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *StepHandler) UpsertLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	var req step.LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	l, err := h.stepService.UpsertLog(ctx, userID, stepID, req.Content)
	if err != nil {
		respondWithServiceError(w, err, "Failed to save log")
		return
	}
	respondWithJSON(w, http.StatusOK, l)
}

func (h *StepHandler) UpdateOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	var req step.OverviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.stepService.UpdateOverview(ctx, userID, stepID, req.OverviewContent); err != nil {
		respondWithServiceError(w, err, "Failed to update overview")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *StepHandler) AddSubTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	var req step.AddSubTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.stepService.AddSubTask(ctx, userID, stepID, req.Text)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add subtask")
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}

// ToggleSubTask flips completion; completing a subtask can extend the
// streak, so the response carries the evaluation result.
func (h *StepHandler) ToggleSubTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	subtaskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid subtask id")
		return
	}

	resp, err := h.stepService.ToggleSubTask(ctx, userID, subtaskID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to toggle subtask")
		return
	}
	recordStreakMetrics(resp.Streak)
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *StepHandler) DeleteSubTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	subtaskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid subtask id")
		return
	}

	if err := h.stepService.DeleteSubTask(ctx, userID, subtaskID); err != nil {
		respondWithServiceError(w, err, "Failed to delete subtask")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *StepHandler) ShareStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stepID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid step id")
		return
	}

	token, err := h.stepService.EnsureShareToken(ctx, userID, stepID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create share link")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"link":  "/shared/" + token,
	})
}

// GetSharedStep is public: accountability partners hit it without a
// session.
func (h *StepHandler) GetSharedStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	token := mux.Vars(r)["token"]
	shared, err := h.stepService.GetSharedStep(ctx, token)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load shared step")
		return
	}
	respondWithJSON(w, http.StatusOK, shared)
}

func (h *StepHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	heatmap, err := h.stepService.Heatmap(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load heatmap")
		return
	}
	respondWithJSON(w, http.StatusOK, heatmap)
}

func (h *StepHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	timeline, err := h.stepService.Timeline(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load timeline")
		return
	}
	respondWithJSON(w, http.StatusOK, timeline)
}
