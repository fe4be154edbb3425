package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"steppingStonesAPI/internal/user"
	"steppingStonesAPI/middleware"
	"steppingStonesAPI/services"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req user.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.Register(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			respondWithError(w, http.StatusConflict, "Username already exists")
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Register failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := middleware.IssueToken(u.ID, u.Username)
	if err != nil {
		log.Printf("Token issue failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondWithJSON(w, http.StatusCreated, user.AuthResponse{Token: token, User: u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req user.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPassword) {
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		log.Printf("Login failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	token, err := middleware.IssueToken(u.ID, u.Username)
	if err != nil {
		log.Printf("Token issue failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondWithJSON(w, http.StatusOK, user.AuthResponse{Token: token, User: u})
}
