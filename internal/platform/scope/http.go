package scope

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// FromRequest reads the tenancy filter from the clinic_id / workspace_id
// query parameters and enforces the clinic-xor-workspace rule.
func FromRequest(c echo.Context) (Scope, error) {
	var sc Scope
	if raw := c.QueryParam("clinic_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Scope{}, echo.NewHTTPError(http.StatusBadRequest, "invalid clinic_id")
		}
		sc.ClinicID = &id
	}
	if raw := c.QueryParam("workspace_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Scope{}, echo.NewHTTPError(http.StatusBadRequest, "invalid workspace_id")
		}
		sc.WorkspaceID = &id
	}
	if err := sc.Validate(); err != nil {
		return Scope{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return sc, nil
}
