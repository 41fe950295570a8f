package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/auth"
	"github.com/MrJamesThe3rd/spendy/internal/image"
	"github.com/MrJamesThe3rd/spendy/internal/transaction"
	"github.com/MrJamesThe3rd/spendy/internal/wallet"
)

const maxUploadSize = 10 << 20

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type transactionRequest struct {
	WalletID    uuid.UUID        `json:"wallet_id"`
	Amount      int64            `json:"amount"`
	Type        transaction.Type `json:"type"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Date        time.Time        `json:"date"`
}

// parseForm accepts JSON, or multipart/form-data when a receipt image is
// attached to the submission.
func parseForm(r *http.Request) (transaction.CreateParams, error) {
	var params transaction.CreateParams

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		var req transactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return params, err
		}

		return transaction.CreateParams{
			WalletID:    req.WalletID,
			Amount:      req.Amount,
			Type:        req.Type,
			Description: req.Description,
			Category:    req.Category,
			Date:        req.Date,
		}, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return params, err
	}

	if v := r.FormValue("wallet_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return params, fmt.Errorf("invalid wallet_id: %w", err)
		}

		params.WalletID = id
	}

	if v := r.FormValue("amount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, fmt.Errorf("invalid amount: %w", err)
		}

		params.Amount = amount
	}

	if v := r.FormValue("date"); v != "" {
		date, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return params, fmt.Errorf("invalid date: %w", err)
		}

		params.Date = date
	}

	params.Type = transaction.Type(r.FormValue("type"))
	params.Description = r.FormValue("description")
	params.Category = r.FormValue("category")

	file, header, err := r.FormFile("receipt")
	if err == nil {
		params.Receipt = &image.File{Name: header.Filename, Reader: file}
	}

	return params, nil
}

func writeError(w http.ResponseWriter, err error) {
	var ve *transaction.ValidationError

	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, transaction.ErrNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, wallet.ErrNotFound):
		http.Error(w, "wallet not found", http.StatusNotFound)
	case errors.Is(err, transaction.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, image.ErrUpload):
		http.Error(w, "receipt upload failed", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	params, err := parseForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Create(r.Context(), userID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := transaction.ListFilter{}

	if s := r.URL.Query().Get("wallet_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.WalletID = &id
		}
	}

	if s := r.URL.Query().Get("type"); s != "" {
		t := transaction.Type(s)
		filter.Type = &t
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	txs, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, http.StatusOK, toResponse(tx))
}

// update is a full replacement: the client re-submits the entire record.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	params, err := parseForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Update(r.Context(), userID, id, params)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
