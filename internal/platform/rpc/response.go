package rpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adimyra/medilims/internal/platform/db"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope returned by write operations.
type Response map[string]interface{}

func Success(message string) Response {
	return Response{"status": StatusSuccess, "message": message}
}

func (r Response) With(key string, value interface{}) Response {
	r[key] = value
	return r
}

func Failure(err error) Response {
	return Response{"status": StatusError, "message": err.Error()}
}

// ErrorRecorder is satisfied by *errorlog.Log.
type ErrorRecorder interface {
	Record(ctx context.Context, method string, err error)
}

// Write answers a write operation. Failures are recorded against method and
// still return 200 with the error envelope.
func Write(c echo.Context, rec ErrorRecorder, method string, resp Response, err error) error {
	if err != nil {
		if rec != nil {
			rec.Record(c.Request().Context(), method, err)
		}
		return c.JSON(http.StatusOK, Failure(err))
	}
	return c.JSON(http.StatusOK, resp)
}

// ReadError maps a read operation failure to an HTTP error.
func ReadError(err error) error {
	if errors.Is(err, db.ErrInvalidFilter) || errors.Is(err, ErrBadArgs) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
