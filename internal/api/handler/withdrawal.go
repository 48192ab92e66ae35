package handler

import (
	"context"
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/models"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/google/uuid"
)

const withdrawalEntity = "withdrawal"

type WithdrawalHandler struct {
	svc   *service.WithdrawalService
	audit *service.AuditService
}

func NewWithdrawalHandler(svc *service.WithdrawalService, audit *service.AuditService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc, audit: audit}
}

type resolveRequest struct {
	Note string `json:"note"`
}

// Request escrows the amount from main and optionally releases stake.
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req struct {
		AmountMicros int64  `json:"amount_micros"`
		Destination  string `json:"destination"`
		Release      string `json:"release"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	withdrawal, err := h.svc.Request(r.Context(), service.RequestWithdrawal{
		UserID:      actorID,
		Amount:      req.AmountMicros,
		Destination: req.Destination,
		Release:     req.Release,
		OTPVerified: otpVerified(r),
	})
	if err != nil {
		writeServiceError(w, r, "request withdrawal", err)
		return
	}
	RespondJSON(w, http.StatusCreated, models.NewWithdrawal(withdrawal))
}

// ListMine lists the caller's withdrawals, optionally by ?status=.
func (h *WithdrawalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	h.list(w, r, repository.WithdrawalFilter{}.ForUser(actorID))
}

// List serves the admin queue; ?user_id= narrows it to one account.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.WithdrawalFilter{}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
			return
		}
		filter = filter.ForUser(userID)
	}
	h.list(w, r, filter)
}

func (h *WithdrawalHandler) list(w http.ResponseWriter, r *http.Request, filter repository.WithdrawalFilter) {
	limit, offset := page(r)
	items, err := h.svc.List(r.Context(), filter.WithStatus(r.URL.Query().Get("status")).Page(limit, offset))
	if err != nil {
		writeServiceError(w, r, "list withdrawals", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.List(items, models.NewWithdrawal))
}

func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	withdrawal, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get withdrawal", err)
		return
	}
	if !isAdmin && repository.FromPgUUID(withdrawal.UserID) != actorID {
		// Hide other users' withdrawals entirely.
		RespondError(w, r, http.StatusNotFound, "withdrawal/not-found", "Withdrawal not found")
		return
	}
	RespondJSON(w, http.StatusOK, models.NewWithdrawal(withdrawal))
}

func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.svc.Approve)
}

func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.svc.Reject)
}

type resolveFunc func(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (repository.Withdrawal, error)

func (h *WithdrawalHandler) resolve(w http.ResponseWriter, r *http.Request, fn resolveFunc) {
	adminID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	withdrawal, err := fn(r.Context(), id, adminID, req.Note)
	if err != nil {
		writeServiceError(w, r, "resolve withdrawal", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewWithdrawal(withdrawal))
}

// History returns the audit trail of one withdrawal.
func (h *WithdrawalHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.audit.History(r.Context(), withdrawalEntity, id)
	if err != nil {
		writeServiceError(w, r, "withdrawal history", err)
		return
	}
	RespondJSON(w, http.StatusOK, models.List(entries, models.NewAuditEntry))
}
