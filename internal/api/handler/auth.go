package handler

import (
	"net/http"
	"time"

	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

// TokenSigner mints session tokens.
type TokenSigner interface {
	Sign(userID, role string, ttl time.Duration) (string, time.Time, error)
}

type AuthHandler struct {
	accounts *service.AccountService
	signer   TokenSigner
}

func NewAuthHandler(accounts *service.AccountService, signer TokenSigner) *AuthHandler {
	return &AuthHandler{accounts: accounts, signer: signer}
}

// Login issues a token for an existing account. Credential checks belong to
// the upstream identity provider; this endpoint only mints the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
		return
	}

	account, err := h.accounts.Get(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}
	if account.Blocked {
		RespondError(w, r, http.StatusForbidden, "account/blocked", "Account is blocked")
		return
	}

	token, expires, err := h.signer.Sign(uid.String(), account.Role, tokenTTL)
	if err != nil {
		zap.L().Error("sign token failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "auth/token-sign-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.UTC(),
	})
}
