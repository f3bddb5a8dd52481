package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adimyra/medilims/internal/platform/auth"
	"github.com/adimyra/medilims/internal/platform/rpc"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(method *echo.Group, api *echo.Group) {
	staff := auth.RequireRole(auth.RoleReceptionist, auth.RoleLabTech, auth.RolePhlebotomist)
	bench := auth.RequireRole(auth.RoleLabTech)

	rpc.Register(method, "get_doctype_counts", h.DoctypeCounts, staff)
	rpc.Register(method, "get_recent_activity", h.RecentActivity, staff)
	rpc.Register(method, "get_sample_stats", h.SampleStats, staff)
	rpc.Register(method, "get_sample_worklist", h.SampleWorklist, staff)
	rpc.Register(method, "get_samples_for_result_entry", h.SamplesForResultEntry, bench)
	rpc.Register(method, "get_pending_reports", h.PendingReports, bench)

	api.GET("/worklist", h.SampleWorklist, staff)
	api.GET("/stats/samples", h.SampleStats, staff)
}

func (h *Handler) DoctypeCounts(c echo.Context) error {
	counts, err := h.svc.DoctypeCounts(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handler) RecentActivity(c echo.Context) error {
	items, err := h.svc.RecentActivity(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SampleStats(c echo.Context) error {
	st, err := h.svc.SampleStats(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) SampleWorklist(c echo.Context) error {
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.ReadError(err)
	}
	items, err := h.svc.SampleWorklist(c.Request().Context(), args.String("status"))
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SamplesForResultEntry(c echo.Context) error {
	items, err := h.svc.SamplesForResultEntry(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) PendingReports(c echo.Context) error {
	items, err := h.svc.PendingReports(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, items)
}
