package waitingqueue

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/frontdesk/frontdesk/internal/platform/auth"
	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "nurse", "registrar"))
	g.POST("/queues", h.CreateQueue)
	g.GET("/queues", h.ListQueues)
	g.GET("/queues/:id", h.GetQueue)
	g.GET("/queues/:id/metrics", h.Metrics)
	g.POST("/queues/:id/patients", h.AddPatient)
	g.DELETE("/queues/:id/patients/:patientId", h.RemovePatient)
	g.POST("/queues/:id/patients/:patientId/move", h.MovePatient)
	g.POST("/queues/:id/resort", h.Resort)
	g.POST("/queues/:id/pause", h.Pause)
	g.POST("/queues/:id/resume", h.Resume)
	g.PUT("/queues/:id/config", h.UpdateConfig)
}

func (h *Handler) CreateQueue(c echo.Context) error {
	var q Queue
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateQueue(c.Request().Context(), q)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListQueues(c echo.Context) error {
	sc, err := scope.FromRequest(c)
	if err != nil {
		return err
	}
	queues, err := h.svc.ListQueues(c.Request().Context(), sc)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, queues)
}

func (h *Handler) GetQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := h.svc.GetQueue(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) Metrics(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Metrics(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) AddPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	q, err := h.svc.AddPatient(c.Request().Context(), id, req)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) RemovePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	q, err := h.svc.RemovePatient(c.Request().Context(), id, patientID)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) MovePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var body struct {
		Position int `json:"position"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Position < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "position must be at least 1")
	}
	q, err := h.svc.MovePatient(c.Request().Context(), id, patientID, body.Position)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) Resort(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Method SortMethod `json:"method"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.Resort(c.Request().Context(), id, body.Method)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) Pause(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := h.svc.Pause(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) Resume(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := h.svc.Resume(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) UpdateConfig(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var cfg Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.UpdateConfig(c.Request().Context(), id, cfg)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, q)
}
