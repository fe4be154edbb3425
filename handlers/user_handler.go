package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"steppingStonesAPI/internal/calendar"
	"steppingStonesAPI/internal/journal"
	"steppingStonesAPI/internal/restday"
	"steppingStonesAPI/internal/step"
	"steppingStonesAPI/internal/streak"
	"steppingStonesAPI/internal/user"
	"steppingStonesAPI/middleware"
	"steppingStonesAPI/services"
)

type UserHandler struct {
	userService    *services.UserService
	stepService    *services.StepService
	journalService *services.JournalService
}

func NewUserHandler(userService *services.UserService, stepService *services.StepService, journalService *services.JournalService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		stepService:    stepService,
		journalService: journalService,
	}
}

// DashboardResponse is everything the dashboard screen needs in one
// round trip.
type DashboardResponse struct {
	User             *user.User        `json:"user"`
	Progress         int               `json:"progress"`
	StreakNotice     *streak.Notice    `json:"streak_notice,omitempty"`
	Steps            []*step.Step      `json:"steps"`
	DailyJournal     *journal.Entry    `json:"daily_journal,omitempty"`
	Heatmap          calendar.Heatmap  `json:"heatmap"`
	CustomRestDays   map[string]string `json:"custom_rest_days"`
	SpecialDayReason string            `json:"special_day_reason,omitempty"`
	TodayDate        string            `json:"today_date"`
}

// Dashboard runs the daily streak evaluation and assembles the home
// screen payload.
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	res, err := h.userService.EvaluateStreak(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to evaluate streak")
		return
	}
	recordStreakMetrics(res)

	// Re-read after the evaluation so streak fields are current.
	u, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load user")
		return
	}

	steps, err := h.stepService.ListActiveSteps(ctx, userID, 4)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load steps")
		return
	}

	today := time.Now().UTC()
	daily, err := h.journalService.GetByDate(ctx, userID, today)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load journal")
		return
	}

	heatmap, err := h.stepService.Heatmap(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load heatmap")
		return
	}

	customRestDays, err := h.userService.CustomRestDayMap(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load rest days")
		return
	}

	todayKey := today.Format(restday.DateLayout)
	respondWithJSON(w, http.StatusOK, DashboardResponse{
		User:             u,
		Progress:         res.Progress,
		StreakNotice:     res.Notice,
		Steps:            steps,
		DailyJournal:     daily,
		Heatmap:          heatmap,
		CustomRestDays:   customRestDays,
		SpecialDayReason: customRestDays[todayKey],
		TodayDate:        todayKey,
	})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load user")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) AdjustTarget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	action := mux.Vars(r)["action"]
	target, err := h.userService.AdjustDailyTarget(ctx, userID, action)
	if err != nil {
		respondWithServiceError(w, err, "Failed to adjust target")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"daily_target": target})
}

func (h *UserHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	darkMode, err := h.userService.ToggleTheme(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to toggle theme")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"dark_mode": darkMode})
}

func (h *UserHandler) SetRestDays(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.SetRestDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	csv, err := h.userService.SetWeeklyRestDays(ctx, userID, req.Weekdays)
	if err != nil {
		respondWithServiceError(w, err, "Failed to set rest days")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"rest_days": csv})
}

func (h *UserHandler) AddCustomRestDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req restday.AddCustomRestDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	day, err := h.userService.AddCustomRestDay(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			respondWithError(w, http.StatusConflict, "You already have a plan for that day")
			return
		}
		respondWithServiceError(w, err, "Failed to add rest day")
		return
	}
	respondWithJSON(w, http.StatusCreated, day)
}

func (h *UserHandler) ListCustomRestDays(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	days, err := h.userService.ListCustomRestDays(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load rest days")
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

func (h *UserHandler) DeleteCustomRestDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	restDayID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid rest day id")
		return
	}

	if err := h.userService.DeleteCustomRestDay(ctx, userID, restDayID); err != nil {
		respondWithServiceError(w, err, "Failed to delete rest day")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func recordStreakMetrics(res *streak.Result) {
	if res == nil {
		return
	}
	if res.Extended {
		middleware.RecordStreakExtended()
	}
	if res.Notice == nil {
		return
	}
	switch res.Notice.Kind {
	case streak.NoticeFreezeUsed:
		middleware.RecordFreezeConsumed()
	case streak.NoticeStreakReset:
		middleware.RecordStreakReset()
	}
}

func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrEditWindowClosed):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
