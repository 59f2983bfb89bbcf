package restapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every API response.
type APIResponse struct {
	Data          any                     `json:"data,omitempty"`
	ServiceErrors []entity.PortfolioError `json:"service_errors,omitempty"`
	StatusMessage string                  `json:"status_message"`
}

// SnapshotSummary is one entry of the snapshot selection list.
type SnapshotSummary struct {
	Index          int     `json:"index"`
	Timestamp      int64   `json:"timestamp"`
	Label          string  `json:"label"`
	PortfolioValue float64 `json:"portfolioValue"`
	ValueDisplay   string  `json:"valueDisplay"`
}

// NetworksResponse lists the selected networks and the whole catalog.
type NetworksResponse struct {
	Selected []entity.NetworkDefinition `json:"selected"`
	Catalog  []entity.NetworkDefinition `json:"catalog"`
}

type addAccountRequest struct {
	Address string `json:"address" binding:"required"`
}

type hideDustRequest struct {
	HideDust *bool `json:"hideDust" binding:"required"`
}

// PortfolioHandler serves the tracker over HTTP.
type PortfolioHandler struct {
	tracker       port.PortfolioTracker
	reloadTimeout time.Duration
	logger        port.Logger
}

// NewPortfolioHandler creates a PortfolioHandler. reloadTimeout bounds one reload request.
func NewPortfolioHandler(tracker port.PortfolioTracker, reloadTimeout time.Duration, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{tracker: tracker, reloadTimeout: reloadTimeout, logger: logger}
}

// GetPortfolioHandler returns the live portfolio, or a snapshot with ?snapshot=<index>.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	index := entity.LiveSnapshotIndex
	if raw := c.Query("snapshot"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(c, http.StatusBadRequest, err)
			return
		}
		index = i
	}
	h.writePortfolio(c, index)
}

// GetSnapshotHandler returns the snapshot at :index as a portfolio view.
func (h *PortfolioHandler) GetSnapshotHandler(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	h.writePortfolio(c, i)
}

func (h *PortfolioHandler) writePortfolio(c *gin.Context, index int) {
	view, err := h.tracker.Portfolio(c.Request.Context(), index)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	msg := "Live portfolio retrieved."
	if view.Source == entity.ViewSourceSnapshot {
		msg = "Snapshot retrieved."
	}
	c.JSON(http.StatusOK, APIResponse{Data: view, StatusMessage: msg})
}

// ReloadHandler starts a new generation and waits for it.
func (h *PortfolioHandler) ReloadHandler(c *gin.Context) {
	ctx := c.Request.Context()
	if h.reloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.reloadTimeout)
		defer cancel()
	}

	report, err := h.tracker.Reload(ctx)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	msg := "Portfolio reloaded successfully."
	if len(report.Errors) > 0 {
		msg = "Portfolio reloaded. Some wallets or prices could not be retrieved."
	}
	c.JSON(http.StatusOK, APIResponse{Data: report, ServiceErrors: report.Errors, StatusMessage: msg})
}

// ListAccountsHandler returns the tracked accounts.
func (h *PortfolioHandler) ListAccountsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Data: h.tracker.Accounts(), StatusMessage: "Accounts retrieved."})
}

// AddAccountHandler starts tracking the account in the request body.
func (h *PortfolioHandler) AddAccountHandler(c *gin.Context) {
	var req addAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	if err := h.tracker.AddAccount(c.Request.Context(), req.Address); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, APIResponse{Data: h.tracker.Accounts(), StatusMessage: "Account added."})
}

// RemoveAccountHandler stops tracking :address.
func (h *PortfolioHandler) RemoveAccountHandler(c *gin.Context) {
	if err := h.tracker.RemoveAccount(c.Request.Context(), c.Param("address")); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: h.tracker.Accounts(), StatusMessage: "Account removed."})
}

// ListNetworksHandler returns the selected networks and the catalog.
func (h *PortfolioHandler) ListNetworksHandler(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Data:          NetworksResponse{Selected: h.tracker.Networks(), Catalog: h.tracker.Catalog()},
		StatusMessage: "Networks retrieved.",
	})
}

// ToggleNetworkHandler selects or deselects :chainId.
func (h *PortfolioHandler) ToggleNetworkHandler(c *gin.Context) {
	chainID := c.Param("chainId")
	selected, err := h.tracker.ToggleNetwork(c.Request.Context(), chainID)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          gin.H{"chainId": chainID, "selected": selected},
		StatusMessage: "Network toggled.",
	})
}

// SetHideDustHandler toggles hiding of rows without value.
func (h *PortfolioHandler) SetHideDustHandler(c *gin.Context) {
	var req hideDustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	h.tracker.SetHideDust(*req.HideDust)
	c.JSON(http.StatusOK, APIResponse{Data: gin.H{"hideDust": *req.HideDust}, StatusMessage: "Setting updated."})
}

// ListSnapshotsHandler returns the snapshot selection list, labelled by timestamp.
func (h *PortfolioHandler) ListSnapshotsHandler(c *gin.Context) {
	snapshots, err := h.tracker.Snapshots(c.Request.Context())
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	out := make([]SnapshotSummary, 0, len(snapshots))
	for i, s := range snapshots {
		out = append(out, SnapshotSummary{
			Index:          i,
			Timestamp:      s.Timestamp,
			Label:          time.UnixMilli(s.Timestamp).UTC().Format(time.RFC3339),
			PortfolioValue: s.PortfolioValue,
			ValueDisplay:   utils.FormatUSD(s.PortfolioValue),
		})
	}
	c.JSON(http.StatusOK, APIResponse{Data: out, StatusMessage: "Snapshots retrieved."})
}

// SaveSnapshotHandler freezes the live portfolio into a new snapshot.
func (h *PortfolioHandler) SaveSnapshotHandler(c *gin.Context) {
	snap, err := h.tracker.SaveSnapshot(c.Request.Context())
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, APIResponse{Data: snap, StatusMessage: "Snapshot saved."})
}

func (h *PortfolioHandler) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, APIResponse{StatusMessage: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrIndexOutOfRange),
		errors.Is(err, entity.ErrAccountNotFound),
		errors.Is(err, entity.ErrUnsupportedChain):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrDuplicateAccount),
		errors.Is(err, entity.ErrStaleGeneration):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
