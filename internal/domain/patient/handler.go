package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adimyra/medilims/internal/platform/auth"
	"github.com/adimyra/medilims/internal/platform/rpc"
	"github.com/adimyra/medilims/pkg/pagination"
)

type Handler struct {
	svc  *Service
	errs rpc.ErrorRecorder
}

func NewHandler(svc *Service, errs rpc.ErrorRecorder) *Handler {
	return &Handler{svc: svc, errs: errs}
}

func (h *Handler) RegisterRoutes(method *echo.Group, api *echo.Group) {
	read := auth.RequireRole(auth.RoleReceptionist, auth.RoleLabTech, auth.RolePhlebotomist)
	rpc.Register(method, "get_patients_for_listing", h.ListPatients, read)
	rpc.Register(method, "create_new_patient", h.CreatePatient, auth.RequireRole(auth.RoleReceptionist))

	api.GET("/patients", h.ListPatients, read)
	api.GET("/patients/:id", h.GetPatient, read)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	const method = "create_new_patient"
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	data, err := args.Object("data")
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), data)
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	return rpc.Write(c, h.errs, method, rpc.Success("Patient created successfully").With("name", p.ID), nil)
}

func (h *Handler) ListPatients(c echo.Context) error {
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.ReadError(err)
	}
	filters, err := args.Filters("filters")
	if err != nil {
		return rpc.ReadError(err)
	}
	page := args.Page()
	patients, total, err := h.svc.ListPatients(c.Request().Context(), filters, page)
	if err != nil {
		return rpc.ReadError(err)
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, page))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, p)
}
