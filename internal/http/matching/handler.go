package matching

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/spendy/internal/auth"
	"github.com/MrJamesThe3rd/spendy/internal/category"
	"github.com/MrJamesThe3rd/spendy/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.learn)
}

type learnRequest struct {
	RawPattern  string `json:"raw_pattern"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.RawPattern == "" {
		http.Error(w, "raw_pattern is required", http.StatusBadRequest)
		return
	}

	if req.Category != "" && !category.Valid(req.Category) {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	err := h.svc.Learn(r.Context(), userID, req.RawPattern, matching.Suggestion{
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
