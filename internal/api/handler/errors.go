package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/api/problem"
	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/ayo6706/invest-ledger/internal/worker"
	"go.uber.org/zap"
)

// writeServiceError maps a service error onto a problem response. Causes of
// 5xx answers are logged and never echoed to the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.StateConflictError
		pe *domain.PartialLedgerFailure
		ue *domain.UpstreamDependencyError
	)
	switch {
	case errors.As(err, &ve):
		d := problem.New(r, http.StatusBadRequest, "request/validation", ve.Error())
		d.Field = ve.Field
		d.Send(w)
	case errors.As(err, &ce):
		RespondError(w, r, http.StatusConflict, "state/conflict", ce.Error())
	case errors.As(err, &pe):
		zap.L().Error(op+" partially applied", zap.String("transfer_id", pe.TransferID.String()), zap.Error(pe.Err))
		RespondError(w, r, http.StatusInternalServerError, "transfer/pending-reconciliation",
			"transfer "+pe.TransferID.String()+" was debited and will be settled by reconciliation")
	case errors.Is(err, domain.ErrAccountNotFound):
		RespondError(w, r, http.StatusNotFound, "account/not-found", "Account not found")
	case errors.Is(err, domain.ErrWithdrawalNotFound):
		RespondError(w, r, http.StatusNotFound, "withdrawal/not-found", "Withdrawal not found")
	case errors.Is(err, domain.ErrActivationNotFound):
		RespondError(w, r, http.StatusNotFound, "activation/not-found", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		RespondError(w, r, http.StatusBadRequest, "ledger/insufficient-funds", "Insufficient funds")
	case errors.Is(err, domain.ErrAccountBlocked):
		RespondError(w, r, http.StatusForbidden, "account/blocked", "Account is blocked")
	case errors.Is(err, domain.ErrNoActiveStake):
		RespondError(w, r, http.StatusBadRequest, "investment/no-active-stake", err.Error())
	case errors.Is(err, service.ErrInvalidSignature):
		RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
	case errors.Is(err, service.ErrDepositPayloadMismatch):
		RespondError(w, r, http.StatusConflict, "deposit/payload-mismatch", err.Error())
	case errors.Is(err, worker.ErrBatchRunning):
		RespondError(w, r, http.StatusConflict, "batch/running", "Batch already running")
	default:
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		if errors.As(err, &ue) {
			zap.L().Error(op+" failed", zap.String("dependency_op", ue.Op), zap.Error(ue.Err))
			RespondError(w, r, http.StatusServiceUnavailable, "dependency/unavailable", "Service temporarily unavailable")
			return
		}
		zap.L().Error(op+" failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}
