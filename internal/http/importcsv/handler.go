package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/auth"
	"github.com/MrJamesThe3rd/spendy/internal/importer"
	"github.com/MrJamesThe3rd/spendy/internal/matching"
	"github.com/MrJamesThe3rd/spendy/internal/transaction"
	"github.com/MrJamesThe3rd/spendy/internal/wallet"
)

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
	matchSvc  *matching.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service, matchSvc *matching.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
		matchSvc:  matchSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importStatement)
	r.Post("/confirm", h.confirmImport)
}

type transactionResponse struct {
	ID             uuid.UUID        `json:"id"`
	WalletID       uuid.UUID        `json:"wallet_id"`
	Amount         int64            `json:"amount"`
	Type           transaction.Type `json:"type"`
	Description    string           `json:"description"`
	RawDescription string           `json:"raw_description,omitempty"`
	Category       string           `json:"category,omitempty"`
	Date           time.Time        `json:"date"`
	CreatedAt      time.Time        `json:"created_at"`
}

type importSuccessResponse struct {
	Imported     int                   `json:"imported"`
	Transactions []transactionResponse `json:"transactions"`
}

type createParamsDTO struct {
	Amount         int64            `json:"amount"`
	Type           transaction.Type `json:"type"`
	Description    string           `json:"description"`
	RawDescription string           `json:"raw_description"`
	Category       string           `json:"category"`
	Date           time.Time        `json:"date"`
}

type conflictDTO struct {
	Incoming createParamsDTO     `json:"incoming"`
	Existing transactionResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []createParamsDTO `json:"new"`
	Conflicts []conflictDTO     `json:"conflicts"`
}

type confirmRequest struct {
	WalletID uuid.UUID         `json:"wallet_id"`
	Params   []createParamsDTO `json:"params"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	walletID, err := uuid.Parse(r.FormValue("wallet_id"))
	if err != nil {
		http.Error(w, "wallet_id field is required", http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatCSV
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for i, p := range params {
		suggestion, err := h.matchSvc.Suggest(r.Context(), userID, p.RawDescription)
		if err != nil || suggestion == nil {
			continue
		}

		if suggestion.Description != "" {
			params[i].Description = suggestion.Description
		}

		if suggestion.Category != "" {
			params[i].Category = suggestion.Category
		}
	}

	result, err := h.txSvc.ImportBatch(r.Context(), userID, walletID, params)
	if err != nil {
		h.writeImportError(w, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]createParamsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toTxResponse(c.Existing),
			})
		}

		respond(w, http.StatusConflict, resp)

		return
	}

	respond(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.WalletID == uuid.Nil {
		http.Error(w, "wallet_id is required", http.StatusBadRequest)
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		params = append(params, transaction.CreateParams{
			Amount:         p.Amount,
			Type:           p.Type,
			Description:    p.Description,
			RawDescription: p.RawDescription,
			Category:       p.Category,
			Date:           p.Date,
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), userID, req.WalletID, params)
	if err != nil {
		h.writeImportError(w, err)
		return
	}

	respond(w, http.StatusCreated, toSuccessResponse(txs))
}

func (h *Handler) writeImportError(w http.ResponseWriter, err error) {
	var ve *transaction.ValidationError

	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, wallet.ErrNotFound):
		http.Error(w, "wallet not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, toTxResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}

func toTxResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:             tx.ID,
		WalletID:       tx.WalletID,
		Amount:         tx.Amount,
		Type:           tx.Type,
		Description:    tx.Description,
		RawDescription: tx.RawDescription,
		Category:       tx.Category,
		Date:           tx.Date,
		CreatedAt:      tx.CreatedAt,
	}
}

func toParamsDTO(p transaction.CreateParams) createParamsDTO {
	return createParamsDTO{
		Amount:         p.Amount,
		Type:           p.Type,
		Description:    p.Description,
		RawDescription: p.RawDescription,
		Category:       p.Category,
		Date:           p.Date,
	}
}
