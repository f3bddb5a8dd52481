package errorlog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/adimyra/medilims/internal/platform/auth"
)

type Handler struct {
	log *Log
}

func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// RegisterRoutes exposes recent write failures to administrators.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/error-log", h.Recent, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Recent(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.log.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}
