package appointment

import (
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
	desk := auth.RequireRole(auth.RoleReceptionist, auth.RolePhlebotomist)

	rpc.Register(method, "get_appointments", h.Upcoming, desk)
	rpc.Register(method, "get_appointment_stats", h.Stats, desk)
	rpc.Register(method, "get_phlebotomy_queue", h.PhlebotomyQueue, desk)
	rpc.Register(method, "create_dummy_collection_appointment", h.CreateDummyCollectionAppointment, desk)
	rpc.Register(method, "get_appointments_for_listing", h.ListPatientAppointments, desk)
	rpc.Register(method, "create_dummy_appointment", h.CreateDummyPatientAppointment, auth.RequireRole(auth.RoleReceptionist))

	api.GET("/appointments", h.ListPatientAppointments, desk)
	api.GET("/collections/queue", h.PhlebotomyQueue, desk)
}

func (h *Handler) Upcoming(c echo.Context) error {
	items, err := h.svc.Upcoming(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) PhlebotomyQueue(c echo.Context) error {
	items, err := h.svc.PhlebotomyQueue(c.Request().Context())
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) CreateDummyCollectionAppointment(c echo.Context) error {
	const method = "create_dummy_collection_appointment"
	a, err := h.svc.CreateDummyCollectionAppointment(c.Request().Context())
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	resp := rpc.Success("Collection appointment created successfully").With("appointment_name", a.ID)
	return rpc.Write(c, h.errs, method, resp, nil)
}

func (h *Handler) CreateDummyPatientAppointment(c echo.Context) error {
	const method = "create_dummy_appointment"
	a, err := h.svc.CreateDummyPatientAppointment(c.Request().Context())
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	resp := rpc.Success("Appointment created successfully").With("appointment_name", a.ID)
	return rpc.Write(c, h.errs, method, resp, nil)
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.ReadError(err)
	}
	filters, err := args.Filters("filters")
	if err != nil {
		return rpc.ReadError(err)
	}
	page := args.Page()
	items, total, err := h.svc.ListPatientAppointments(c.Request().Context(), filters, page)
	if err != nil {
		return rpc.ReadError(err)
	}
	if items == nil {
		items = []*PatientAppointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, page))
}

func nonNil(items []*CollectionAppointment) []*CollectionAppointment {
	if items == nil {
		return []*CollectionAppointment{}
	}
	return items
}
