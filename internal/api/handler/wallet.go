// internal/api/handler/wallet.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finflow-ledger/internal/api/types"
	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/service"
	"finflow-ledger/internal/util"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// WalletHandler serves wallet reads, ledger listings and the admin wallet tools.
type WalletHandler struct {
	responder
	wallets  service.WalletService
	overview service.OverviewService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets service.WalletService, overview service.OverviewService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		responder: newResponder(logger),
		wallets:   wallets,
		overview:  overview,
	}
}

// GetWallet returns the caller's wallet, creating it on first access.
// GET /api/v1/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	wallet, err := h.wallets.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, wallet)
}

// GetOverview handles GET /api/v1/wallet/overview.
func (h *WalletHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	overview, err := h.overview.Overview(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, overview)
}

// ListTransactions lists the caller's ledger entries.
// GET /api/v1/transactions?type=&status=&search=&limit=&offset=
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	filter := transactionFilterFromQuery(r)
	filter.UserID = userID
	h.listTransactions(w, r, filter)
}

// AdminListTransactions lists ledger entries across users, optionally narrowed by user_id.
// GET /api/v1/admin/transactions?user_id=&type=&status=&search=&limit=&offset=
func (h *WalletHandler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := transactionFilterFromQuery(r)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			h.respondWithError(w, util.ErrInvalidInput)
			return
		}
		filter.UserID = userID
	}
	h.listTransactions(w, r, filter)
}

func (h *WalletHandler) listTransactions(w http.ResponseWriter, r *http.Request, filter domain.TransactionFilter) {
	transactions, total, err := h.wallets.ListTransactions(r.Context(), filter)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       transactions,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		TotalCount: total,
	})
}

func transactionFilterFromQuery(r *http.Request) domain.TransactionFilter {
	query := r.URL.Query()

	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset, err := strconv.Atoi(query.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return domain.TransactionFilter{
		Type:   domain.TransactionType(query.Get("type")),
		Status: domain.TransactionStatus(query.Get("status")),
		Search: query.Get("search"),
		Limit:  limit,
		Offset: offset,
	}
}

// Reconcile replays a user's ledger against the stored balance.
// GET /api/v1/admin/wallets/{userID}/reconcile
func (h *WalletHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.wallets.Reconcile(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// AdjustmentRequest represents the request body for a manual balance adjustment.
type AdjustmentRequest struct {
	Type        string          `json:"type" validate:"required,oneof=manual_credit manual_debit"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
}

// Adjust applies a manual credit or debit.
// POST /api/v1/admin/wallets/{userID}/adjustments
func (h *WalletHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req AdjustmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	wallet, transaction, err := h.wallets.AdjustBalance(r.Context(), userID, domain.TransactionType(req.Type), req.Amount, req.Description)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Adjustment applied",
		"wallet":      wallet,
		"transaction": transaction,
	})
}
