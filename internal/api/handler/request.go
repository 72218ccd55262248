// internal/api/handler/request.go
package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/service"
)

// RequestHandler serves deposit and withdrawal requests and their admin decisions.
type RequestHandler struct {
	responder
	requests service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requests service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		responder: newResponder(logger),
		requests:  requests,
	}
}

// DepositRequest represents the request body for filing a deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Proof  string          `json:"proof" validate:"required,max=512"`
}

// CreateDeposit handles POST /api/v1/deposits.
func (h *RequestHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req DepositRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	deposit, err := h.requests.CreateDeposit(r.Context(), userID, req.Amount, req.Proof)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, deposit)
}

// ListDeposits handles GET /api/v1/deposits.
func (h *RequestHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	deposits, err := h.requests.ListDeposits(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if deposits == nil {
		deposits = []domain.DepositRequest{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": deposits})
}

// WithdrawRequest represents the request body for filing a withdrawal.
type WithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	WalletAddress string          `json:"wallet_address" validate:"required,max=255"`
}

// CreateWithdrawal handles POST /api/v1/withdrawals.
func (h *RequestHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req WithdrawRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	withdrawal, err := h.requests.CreateWithdrawal(r.Context(), userID, req.Amount, req.WalletAddress)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, withdrawal)
}

// ListWithdrawals handles GET /api/v1/withdrawals.
func (h *RequestHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	withdrawals, err := h.requests.ListWithdrawals(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if withdrawals == nil {
		withdrawals = []domain.WithdrawalRequest{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": withdrawals})
}

// DecisionRequest carries an admin decision. The value itself is checked by the service so an
// unknown option surfaces as an invalid decision.
type DecisionRequest struct {
	Status string `json:"status" validate:"required"`
}

// DecideDeposit handles PATCH /api/v1/admin/deposits/{id}.
func (h *RequestHandler) DecideDeposit(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req DecisionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	deposit, err := h.requests.DecideDeposit(r.Context(), requestID, req.Status)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, deposit)
}

// DecideWithdrawal handles PATCH /api/v1/admin/withdrawals/{id}. An approval the balance can no
// longer cover comes back as a rejected request with 200.
func (h *RequestHandler) DecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req DecisionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	withdrawal, err := h.requests.DecideWithdrawal(r.Context(), requestID, req.Status)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, withdrawal)
}
