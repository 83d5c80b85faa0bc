package checkin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/frontdesk/frontdesk/internal/domain/patient"
	"github.com/frontdesk/frontdesk/internal/platform/auth"
	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
	"github.com/frontdesk/frontdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "nurse", "registrar"))
	g.POST("/check-in", h.CheckIn)
	g.POST("/patients/:id/verify", h.VerifyPatientInfo)
	g.GET("/waiting-room", h.WaitingRoomStatus)
	g.GET("/patients/search", h.SearchPatients)
}

func (h *Handler) CheckIn(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Scope = sc
	result, err := h.svc.CheckInPatient(c.Request().Context(), req)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) VerifyPatientInfo(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var data VerificationData
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.VerifyPatientInfo(c.Request().Context(), sc, id, data)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) WaitingRoomStatus(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	st, err := h.svc.GetWaitingRoomStatus(c.Request().Context(), sc)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	req := SearchRequest{
		Scope:  sc,
		Term:   c.QueryParam("q"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := patient.Status(raw)
		req.Filters.Status = &status
	}
	if raw := c.QueryParam("checked_in"); raw != "" {
		checkedIn, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid checked_in")
		}
		req.Filters.CheckedIn = &checkedIn
	}
	if raw := c.QueryParam("updated_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid updated_after")
		}
		req.Filters.UpdatedAfter = &t
	}
	matches, err := h.svc.SearchPatients(c.Request().Context(), req)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, matches)
}
