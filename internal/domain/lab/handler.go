package lab

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
	// every lab role reads and registers samples; results are bench work
	staff := auth.RequireRole(auth.RoleReceptionist, auth.RoleLabTech, auth.RolePhlebotomist)
	bench := auth.RequireRole(auth.RoleLabTech)

	rpc.Register(method, "get_samples_for_listing", h.ListSamples, staff)
	rpc.Register(method, "create_new_sample", h.CreateSample, staff)
	rpc.Register(method, "update_test_result", h.UpdateTestResult, bench)
	rpc.Register(method, "create_dummy_sample_with_tests", h.CreateDummySampleWithTests, bench)

	api.GET("/samples", h.ListSamples, staff)
	api.GET("/samples/:id", h.GetSample, staff)
	api.PUT("/test-results/:id", h.PutTestResult, bench)
}

func (h *Handler) CreateSample(c echo.Context) error {
	const method = "create_new_sample"
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	data, err := args.Object("data")
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	s, err := h.svc.CreateSample(c.Request().Context(), data)
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	return rpc.Write(c, h.errs, method, rpc.Success("Sample created successfully").With("name", s.ID), nil)
}

func (h *Handler) ListSamples(c echo.Context) error {
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.ReadError(err)
	}
	filters, err := args.Filters("filters")
	if err != nil {
		return rpc.ReadError(err)
	}
	page := args.Page()
	samples, total, err := h.svc.ListSamples(c.Request().Context(), filters, page)
	if err != nil {
		return rpc.ReadError(err)
	}
	if samples == nil {
		samples = []*Sample{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(samples, total, page))
}

func (h *Handler) GetSample(c echo.Context) error {
	s, err := h.svc.GetSample(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "sample not found")
	}
	if err != nil {
		return rpc.ReadError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateTestResult(c echo.Context) error {
	const method = "update_test_result"
	args, err := rpc.Bind(c)
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	_, err = h.svc.UpdateTestResult(c.Request().Context(), args.String("test_result_name"), args.String("result_value"))
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	return rpc.Write(c, h.errs, method, rpc.Success("Test result updated successfully"), nil)
}

// PutTestResult is the REST form of update_test_result.
func (h *Handler) PutTestResult(c echo.Context) error {
	var body struct {
		ResultValue string `json:"result_value"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.UpdateTestResult(c.Request().Context(), c.Param("id"), body.ResultValue)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "test result not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		h.errs.Record(c.Request().Context(), "update_test_result", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CreateDummySampleWithTests(c echo.Context) error {
	const method = "create_dummy_sample_with_tests"
	s, err := h.svc.CreateDummySampleWithTests(c.Request().Context())
	if err != nil {
		return rpc.Write(c, h.errs, method, nil, err)
	}
	return rpc.Write(c, h.errs, method, rpc.Success("Dummy sample created successfully").With("sample_name", s.ID), nil)
}
