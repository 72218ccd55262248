// internal/api/handler/investment.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finflow-ledger/internal/domain"
	"finflow-ledger/internal/service"
)

// InvestmentHandler serves the plan catalog and investment positions.
type InvestmentHandler struct {
	responder
	investments service.InvestmentService
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investments service.InvestmentService, logger *zap.Logger) *InvestmentHandler {
	return &InvestmentHandler{
		responder:   newResponder(logger),
		investments: investments,
	}
}

// ListPlans handles GET /api/v1/plans.
func (h *InvestmentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.investments.ListPlans(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if plans == nil {
		plans = []domain.InvestmentPlan{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": plans})
}

// StartInvestmentRequest represents the request body for opening a position.
type StartInvestmentRequest struct {
	PlanID int64           `json:"plan_id" validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// Start opens a position funded from the caller's wallet.
// POST /api/v1/investments
func (h *InvestmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req StartInvestmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	investment, err := h.investments.StartInvestment(r.Context(), userID, req.PlanID, req.Amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, investment)
}

// List handles GET /api/v1/investments.
func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.investments.ListInvestments)
}

// ListActive handles GET /api/v1/investments/active.
func (h *InvestmentHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.investments.ListActiveInvestments)
}

func (h *InvestmentHandler) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, userID int64) ([]domain.UserInvestment, error)) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	investments, err := fetch(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if investments == nil {
		investments = []domain.UserInvestment{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": investments})
}

// Get handles GET /api/v1/investments/{id}.
func (h *InvestmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	investmentID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	investment, err := h.investments.GetInvestment(r.Context(), userID, investmentID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, investment)
}

// GetProfit handles GET /api/v1/investments/{id}/profit.
func (h *InvestmentHandler) GetProfit(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	investmentID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	profit, err := h.investments.GetProfit(r.Context(), userID, investmentID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profit)
}

// CompleteExpired pays out every matured position now.
// POST /api/v1/admin/investments/complete-expired
func (h *InvestmentHandler) CompleteExpired(w http.ResponseWriter, r *http.Request) {
	completed, err := h.investments.CompleteExpired(r.Context(), time.Now().UTC())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"completed": completed})
}
