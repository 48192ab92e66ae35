package handler

import (
	"io"
	"net/http"

	"github.com/ayo6706/invest-ledger/internal/service"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// WebhookHandler handles incoming webhook events from external systems.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
	}
}

// HandleDepositWebhook handles POST /v1/webhooks/deposit.
// The signature covers the raw body, so it is read before decoding.
func (h *WebhookHandler) HandleDepositWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	resp, err := h.webhookSvc.HandleDepositWebhook(r.Context(), body, r.Header.Get("X-Webhook-Signature"))
	if err != nil {
		writeServiceError(w, r, "deposit webhook", err)
		return
	}

	RespondJSON(w, http.StatusOK, resp)
}
