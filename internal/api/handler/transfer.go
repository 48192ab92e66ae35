package handler

import (
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/models"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/google/uuid"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// UserToUser sends main funds to another account, less the transfer fee.
func (h *TransferHandler) UserToUser(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req struct {
		ToUserID     string `json:"to_user_id"`
		AmountMicros int64  `json:"amount_micros"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	toID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-to-user-id", "Invalid to_user_id")
		return
	}

	transfer, err := h.svc.UserToUser(r.Context(), actorID, toID, req.AmountMicros, otpVerified(r))
	if err != nil {
		writeServiceError(w, r, "user transfer", err)
		return
	}
	RespondJSON(w, http.StatusCreated, models.NewTransfer(transfer))
}

// Self moves main funds into the caller's topup wallet.
func (h *TransferHandler) Self(w http.ResponseWriter, r *http.Request) {
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

	transfer, err := h.svc.Self(r.Context(), actorID, req.AmountMicros)
	if err != nil {
		writeServiceError(w, r, "self transfer", err)
		return
	}
	RespondJSON(w, http.StatusCreated, models.NewTransfer(transfer))
}

// AdminCredit credits an account wallet on behalf of an admin.
func (h *TransferHandler) AdminCredit(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Wallet       string `json:"wallet"`
		AmountMicros int64  `json:"amount_micros"`
		Note         string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	transfer, err := h.svc.AdminCredit(r.Context(), adminID, userID, domain.Wallet(req.Wallet), req.AmountMicros, req.Note)
	if err != nil {
		writeServiceError(w, r, "admin credit", err)
		return
	}
	RespondJSON(w, http.StatusCreated, models.NewTransfer(transfer))
}
