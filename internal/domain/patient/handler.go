package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:id", h.GetPatient)
	g.POST("/patients", h.CreatePatient)
	g.POST("/patients/:id/start-consultation", h.StartConsultation)
	g.POST("/patients/:id/complete-visit", h.CompleteVisit)
	g.POST("/patients/:id/no-show", h.MarkAsNoShow)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreatePatient(c.Request().Context(), sc, p)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetPatient(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), sc, id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	status := Status(c.QueryParam("status"))
	if status == "" {
		status = StatusWaiting
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListByStatus(c.Request().Context(), sc, status, pg.Limit, pg.Offset)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) StartConsultation(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		ProfessionalID uuid.UUID `json:"professional_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.ProfessionalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "professional_id is required")
	}
	p, err := h.svc.StartConsultation(c.Request().Context(), sc, id, body.ProfessionalID)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CompleteVisit(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Actor string  `json:"actor"`
		Notes *string `json:"notes,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Actor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor is required")
	}
	p, err := h.svc.CompleteVisit(c.Request().Context(), sc, id, body.Actor, body.Notes)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) MarkAsNoShow(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Actor  string  `json:"actor"`
		Reason *string `json:"reason,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Actor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor is required")
	}
	p, err := h.svc.MarkAsNoShow(c.Request().Context(), sc, id, body.Actor, body.Reason)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
