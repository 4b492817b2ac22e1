// Package http wires the onboarding services to their REST endpoints. The
// handlers stay thin: decode, delegate, translate errors.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onboard/internal/domain"
	"onboard/internal/status"
	"onboard/internal/workflow"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/httputil"
	"onboard/pkg/requestcontext"
)

// WorkflowService starts and aborts onboarding executions.
type WorkflowService interface {
	Start(ctx context.Context, req *workflow.StartRequest) (*workflow.StartResult, error)
	Abort(ctx context.Context, executionID string) (*domain.ExecutionState, error)
}

// StatusService reads execution snapshots.
type StatusService interface {
	Get(ctx context.Context, executionID string) (*status.Response, error)
}

// Handler wires onboarding endpoints to the workflow and status services.
type Handler struct {
	workflow WorkflowService
	status   StatusService
	logger   *slog.Logger
}

// New constructs an onboarding handler with its dependencies.
func New(workflowService WorkflowService, statusService StatusService, logger *slog.Logger) *Handler {
	return &Handler{
		workflow: workflowService,
		status:   statusService,
		logger:   logger,
	}
}

// Register mounts onboarding endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/onboarding/start", h.HandleStart)
	r.Get("/onboarding/status/{executionID}", h.HandleStatus)
	r.Post("/onboarding/abort/{executionID}", h.HandleAbort)
}

// HandleStart handles POST /onboarding/start requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[workflow.StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// The authenticated customer may only open applications for themselves.
	if customerID := requestcontext.CustomerID(ctx); customerID != "" && customerID != req.CustomerID {
		h.logger.WarnContext(ctx, "start rejected for mismatched customer",
			"request_id", requestID,
			"token_customer_id", customerID,
			"customer_id", req.CustomerID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token does not match customer"))
		return
	}

	result, err := h.workflow.Start(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "onboarding start failed",
			"request_id", requestID,
			"customer_id", req.CustomerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "onboarding started",
		"request_id", requestID,
		"customer_id", req.CustomerID,
		"execution_id", result.ExecutionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusAccepted, result)
}

// HandleStatus handles GET /onboarding/status/{executionID} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	executionID := chi.URLParam(r, "executionID")
	if executionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "execution id is required"))
		return
	}

	resp, err := h.status.Get(ctx, executionID)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeNotFound {
			h.logger.ErrorContext(ctx, "status lookup failed",
				"request_id", requestID,
				"execution_id", executionID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleAbort handles POST /onboarding/abort/{executionID} requests.
func (h *Handler) HandleAbort(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	executionID := chi.URLParam(r, "executionID")
	if executionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "execution id is required"))
		return
	}

	state, err := h.workflow.Abort(ctx, executionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "onboarding aborted",
		"request_id", requestID,
		"execution_id", executionID,
	)

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"execution_id": state.ID,
		"status":       state.Status,
	})
}
