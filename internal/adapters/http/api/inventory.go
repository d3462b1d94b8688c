package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/appraiser/internal/app"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
)

// InventoryDependencies defines the interface for valuation requests.
type InventoryDependencies interface {
	Evaluate(ctx context.Context, ign string) (model.ValuationResult, error)
}

// InventoryHandler handles inventory valuation requests.
type InventoryHandler struct {
	deps InventoryDependencies
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(deps InventoryDependencies) *InventoryHandler {
	return &InventoryHandler{deps: deps}
}

// HandleGetInventory handles GET /inventory/{ign} requests.
//
// A valuation that ran but failed (unknown player, no categories, browser
// trouble) is still a 200 carrying success:false. Non-2xx statuses are
// reserved for requests the service refused to run.
func (h *InventoryHandler) HandleGetInventory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_inventory"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ign := strings.TrimPrefix(r.URL.Path, "/inventory/")
	if strings.TrimSpace(ign) == "" || strings.Contains(ign, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: missing player name", op, ErrBadRequest))
		return
	}

	res, err := h.deps.Evaluate(r.Context(), ign)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Get().Named("api").Warn(r.Context(), "valuation request failed",
				logger.String("player", ign),
				logger.String("code", code),
				logger.Error(err))
		}
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// classify maps service errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name"
	case errors.Is(err, service.ErrAlreadyInFlight):
		return http.StatusConflict, "already_in_flight"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return statusClientClosed, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
