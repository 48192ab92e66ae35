package handler

import (
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/models"
	"github.com/ayo6706/invest-ledger/internal/service"
)

type InvestmentHandler struct {
	investments *service.InvestmentService
	activations *service.ActivationService
}

func NewInvestmentHandler(investments *service.InvestmentService, activations *service.ActivationService) *InvestmentHandler {
	return &InvestmentHandler{investments: investments, activations: activations}
}

func (h *InvestmentHandler) Invest(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req struct {
		AmountMicros int64 `json:"amount_micros"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	investment, err := h.investments.Invest(r.Context(), actorID, req.AmountMicros)
	if err != nil {
		writeServiceError(w, r, "invest", err)
		return
	}
	RespondJSON(w, http.StatusCreated, models.NewInvestment(investment))
}

func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	items, err := h.investments.ListInvestments(r.Context(), actorID, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, "list investments", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.List(items, models.NewInvestment))
}

// Activate opens today's trade activation; repeated calls return the same record.
func (h *InvestmentHandler) Activate(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	activation, err := h.activations.Activate(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, r, "activate trading", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewActivation(activation))
}

func (h *InvestmentHandler) TodayActivation(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	activation, err := h.activations.Today(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, r, "today activation", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewActivation(activation))
}
