package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"steppingStonesAPI/internal/journal"
	"steppingStonesAPI/middleware"
	"steppingStonesAPI/services"
)

type JournalHandler struct {
	journalService *services.JournalService
}

func NewJournalHandler(journalService *services.JournalService) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
	}
}

func (h *JournalHandler) UpsertToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req journal.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.journalService.UpsertToday(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to save journal entry")
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

func (h *JournalHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	entries, err := h.journalService.History(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load journal history")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) EditEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	entryID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid journal entry id")
		return
	}

	var req journal.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.journalService.EditEntry(ctx, userID, entryID, &req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to edit journal entry")
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}
