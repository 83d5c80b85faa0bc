package errs

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTP maps a domain error onto the transport status codes: validation
// 400, not found 404, invalid state / consistency 409, partial failure 502.
// Anything else stays a 500.
func ToHTTP(err error) *echo.HTTPError {
	switch {
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case IsInvalidState(err), IsConsistency(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case IsPartialFailure(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
