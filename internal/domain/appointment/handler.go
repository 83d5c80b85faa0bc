package appointment

import (
	"net/http"
	"time"

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
	g.POST("/appointments", h.Schedule)
	g.GET("/appointments/:id", h.GetAppointment)
	g.GET("/appointments", h.ListAppointments)
	g.POST("/appointments/:id/arrive", h.MarkAsArrived)
	g.POST("/appointments/:id/start", h.Start)
	g.POST("/appointments/:id/complete", h.Complete)
	g.POST("/appointments/:id/no-show", h.MarkAsNoShow)
	g.POST("/appointments/:id/cancel", h.Cancel)
	g.POST("/appointments/:id/reminder-sent", h.MarkReminderSent)
}

func (h *Handler) Schedule(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	var body struct {
		Appointment
		Actor string `json:"actor"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, warnings, err := h.svc.Schedule(c.Request().Context(), sc, body.Appointment, body.Actor)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment": created,
		"warnings":    warnings,
	})
}

func (h *Handler) GetAppointment(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), sc, id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	ctx := c.Request().Context()
	if from, to := c.QueryParam("from"), c.QueryParam("to"); from != "" && to != "" {
		fromT, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from")
		}
		toT, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to")
		}
		appts, err := h.svc.FindByPatientAndDateRange(ctx, sc, patientID, fromT, toT)
		if err != nil {
			return errs.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, appts)
	}

	pg := pagination.FromContext(c)
	appts, total, err := h.svc.ListByPatient(ctx, sc, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg.Limit, pg.Offset))
}

type transitionBody struct {
	Actor  string  `json:"actor"`
	Reason *string `json:"reason,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

func (h *Handler) transition(c echo.Context, fn func(sc scope.Scope, id uuid.UUID, body transitionBody) (Appointment, error)) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body transitionBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Actor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actor is required")
	}
	a, err := fn(sc, id, body)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkAsArrived(c echo.Context) error {
	return h.transition(c, func(sc scope.Scope, id uuid.UUID, body transitionBody) (Appointment, error) {
		return h.svc.MarkAsArrived(c.Request().Context(), sc, id, body.Actor)
	})
}

func (h *Handler) Start(c echo.Context) error {
	return h.transition(c, func(sc scope.Scope, id uuid.UUID, body transitionBody) (Appointment, error) {
		return h.svc.Start(c.Request().Context(), sc, id, body.Actor)
	})
}

func (h *Handler) Complete(c echo.Context) error {
	return h.transition(c, func(sc scope.Scope, id uuid.UUID, body transitionBody) (Appointment, error) {
		return h.svc.Complete(c.Request().Context(), sc, id, body.Actor, body.Notes)
	})
}

func (h *Handler) MarkAsNoShow(c echo.Context) error {
	return h.transition(c, func(sc scope.Scope, id uuid.UUID, body transitionBody) (Appointment, error) {
		return h.svc.MarkAsNoShow(c.Request().Context(), sc, id, body.Actor, body.Reason)
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, func(sc scope.Scope, id uuid.UUID, body transitionBody) (Appointment, error) {
		return h.svc.Cancel(c.Request().Context(), sc, id, body.Actor, body.Reason)
	})
}

func (h *Handler) MarkReminderSent(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.MarkReminderSent(c.Request().Context(), sc, id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}
