package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/ayo6706/invest-ledger/internal/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettingsStore reads and replaces the engine settings.
type SettingsStore interface {
	Get(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, s settings.Settings) error
}

// BatchRunner triggers the daily batches outside their schedule.
type BatchRunner interface {
	RunProfit(ctx context.Context) (service.ProfitReport, error)
	RunCommission(ctx context.Context) (worker.CommissionRun, error)
}

type AdminHandler struct {
	settings       SettingsStore
	batches        BatchRunner
	profit         *service.ProfitService
	activations    *service.ActivationService
	reconciliation *service.ReconciliationService
}

func NewAdminHandler(
	settings SettingsStore,
	batches BatchRunner,
	profit *service.ProfitService,
	activations *service.ActivationService,
	reconciliation *service.ReconciliationService,
) *AdminHandler {
	return &AdminHandler{
		settings:       settings,
		batches:        batches,
		profit:         profit,
		activations:    activations,
		reconciliation: reconciliation,
	}
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, "get settings", domain.Upstream("load settings", err))
		return
	}
	RespondJSON(w, http.StatusOK, s)
}

// PutSettings replaces the whole settings document.
func (h *AdminHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := s.Validate(); err != nil {
		RespondError(w, r, http.StatusBadRequest, "settings/invalid", err.Error())
		return
	}
	if err := h.settings.Update(r.Context(), s); err != nil {
		writeServiceError(w, r, "update settings", domain.Upstream("persist settings", err))
		return
	}
	actorID, _, _ := requestActor(r)
	zap.L().Info("engine settings updated", zap.String("admin_id", actorID.String()))
	RespondJSON(w, http.StatusOK, s)
}

// OverrideProfit moves pending activations to a terminal profit status
// without crediting anything.
func (h *AdminHandler) OverrideProfit(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID   *uuid.UUID `json:"user_id"`
		DateFrom string     `json:"date_from"`
		DateTo   string     `json:"date_to"`
		Status   string     `json:"status"`
		Reason   string     `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	from, err := parseDate(req.DateFrom)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-date", "date_from must be YYYY-MM-DD")
		return
	}
	to, err := parseDate(req.DateTo)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-date", "date_to must be YYYY-MM-DD")
		return
	}

	rows, err := h.profit.OverrideProfitStatus(r.Context(), service.OverrideRequest{
		UserID:   req.UserID,
		DateFrom: from,
		DateTo:   to,
		Status:   req.Status,
		Reason:   req.Reason,
		ActorID:  &adminID,
	})
	if err != nil {
		writeServiceError(w, r, "override profit status", err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int64{"updated": rows})
}

func (h *AdminHandler) RunProfit(w http.ResponseWriter, r *http.Request) {
	report, err := h.batches.RunProfit(r.Context())
	if err != nil {
		writeServiceError(w, r, "run profit batch", err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) RunCommission(w http.ResponseWriter, r *http.Request) {
	run, err := h.batches.RunCommission(r.Context())
	if err != nil {
		writeServiceError(w, r, "run commission batch", err)
		return
	}
	RespondJSON(w, http.StatusOK, run)
}

func (h *AdminHandler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliation.Run(r.Context())
	if err != nil {
		writeServiceError(w, r, "run reconciliation", err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) SyncActivations(w http.ResponseWriter, r *http.Request) {
	report, err := h.activations.SyncActivations(r.Context())
	if err != nil {
		writeServiceError(w, r, "sync activations", err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, v)
}
