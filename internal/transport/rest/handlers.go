// Package rest exposes the two boundary operations over HTTP: roster
// management and the report trigger.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"correspondent/internal/domain"
	"correspondent/internal/ports"
	"correspondent/internal/usecase"
)

// Runner triggers a report run.
type Runner interface {
	RunReport(ctx context.Context) (domain.RunSummary, error)
}

// Handler serves the roster and report-trigger endpoints.
type Handler struct {
	roster ports.Roster
	runner Runner
	logger *slog.Logger
}

// NewHandler wires collaborators.
func NewHandler(roster ports.Roster, runner Runner, logger *slog.Logger) *Handler {
	return &Handler{roster: roster, runner: runner, logger: logger}
}

type userPayload struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Interests []string `json:"interests"`
	Sites     []string `json:"sites_of_interest"`
}

type summaryPayload struct {
	UsersProcessed int `json:"users_processed"`
	UsersFailed    int `json:"users_failed"`
	ItemsDelivered int `json:"items_delivered"`
	SiteFailures   int `json:"site_failures"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.roster.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", "error", err)
		sendError(w, "internal_error", "cannot load roster", http.StatusInternalServerError)
		return
	}

	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, toPayload(u))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) addUser(w http.ResponseWriter, r *http.Request) {
	input, err := decodeUserInput(r)
	if err != nil {
		sendError(w, "bad_request", err.Error(), http.StatusBadRequest)
		return
	}

	user, err := domain.NewUser(input.Name, input.Email, input.Interests, input.Sites)
	if err != nil {
		sendError(w, "validation_failed", err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.roster.AddUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			sendError(w, "email_taken", domain.ErrEmailTaken.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("add user", "error", err)
		sendError(w, "internal_error", "cannot store user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toPayload(created))
}

func (h *Handler) runReport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunReport(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			sendError(w, "run_in_progress", err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("report run", "error", err)
		sendError(w, "run_failed", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summaryPayload{
		UsersProcessed: summary.UsersProcessed,
		UsersFailed:    summary.UsersFailed,
		ItemsDelivered: summary.ItemsDelivered,
		SiteFailures:   summary.SiteFailures,
	})
}

// decodeUserInput accepts JSON bodies and the legacy form encoding with
// comma-separated interests and sites.
func decodeUserInput(r *http.Request) (userPayload, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return userPayload{}, errors.New("malformed form body")
		}
		return userPayload{
			Name:      r.FormValue("name"),
			Email:     r.FormValue("email"),
			Interests: splitList(r.FormValue("interests")),
			Sites:     splitList(r.FormValue("sites")),
		}, nil
	}

	var input userPayload
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return userPayload{}, errors.New("malformed JSON body")
	}
	return input, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toPayload(u domain.User) userPayload {
	return userPayload{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Interests: u.Interests,
		Sites:     u.Sites,
	}
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func sendError(w http.ResponseWriter, code, message string, status int) {
	var resp apiError
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
