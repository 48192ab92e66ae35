package handler

import (
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/models"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/google/uuid"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Register creates a user account, resolving the optional referrer.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username         string     `json:"username"`
		Email            string     `json:"email"`
		ReferrerID       *uuid.UUID `json:"referrer_id"`
		ReferrerUsername string     `json:"referrer_username"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:         req.Username,
		Email:            req.Email,
		ReferrerID:       req.ReferrerID,
		ReferrerUsername: req.ReferrerUsername,
	})
	if err != nil {
		writeServiceError(w, r, "register account", err)
		return
	}

	RespondJSON(w, http.StatusCreated, models.NewAccount(account))
}

// Me returns the caller's account with its balances.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	h.respondAccount(w, r, actorID)
}

// Get returns any account to an admin and the caller's own account otherwise.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if !isAdmin && accountID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}
	h.respondAccount(w, r, accountID)
}

func (h *AccountHandler) respondAccount(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	account, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get account", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewAccount(account))
}

// Incomes lists the caller's income entries, optionally filtered by ?type=.
func (h *AccountHandler) Incomes(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	limit, offset := page(r)
	filter := repository.IncomeFilter{}.
		ForUser(actorID).
		OfType(r.URL.Query().Get("type")).
		Page(limit, offset)

	entries, err := h.svc.ListIncomes(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "list incomes", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.List(entries, models.NewIncome))
}

func (h *AccountHandler) TeamRewards(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	rewards, err := h.svc.TeamRewards(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, r, "list team rewards", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.List(rewards, models.NewTeamReward))
}

func (h *AccountHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

func (h *AccountHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *AccountHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	adminID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.SetBlocked(r.Context(), adminID, userID, blocked); err != nil {
		writeServiceError(w, r, "set account blocked", err)
		return
	}
	h.respondAccount(w, r, userID)
}
