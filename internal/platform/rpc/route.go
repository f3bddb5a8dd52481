package rpc

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register mounts a method under g. Methods answer both GET and POST.
func Register(g *echo.Group, name string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	g.Match([]string{http.MethodGet, http.MethodPost}, "/"+name, h, m...)
}
