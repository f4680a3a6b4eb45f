package scheduling

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediqueue/mediqueue/internal/platform/auth"
	"github.com/mediqueue/mediqueue/internal/platform/datastore"
	"github.com/mediqueue/mediqueue/pkg/pagination"
)

type Handler struct {
	svc  *Service
	gate datastore.Gate
}

func NewHandler(svc *Service, gate datastore.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments", auth.RequireRole(auth.RoleStaff, auth.RoleDoctor))
	g.GET("", h.List)
	g.POST("", h.Book)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
}

type listResponse struct {
	*pagination.Page
	Counts Counts `json:"counts"`
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Search:     c.QueryParam("q"),
		Status:     c.QueryParam("status"),
		Department: c.QueryParam("department"),
		Date:       c.QueryParam("date"),
		Limit:      pg.Limit,
		Offset:     pg.Offset,
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Listing, error) {
		return h.svc.List(ctx, f)
	})
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	l := *res.Data
	return c.JSON(http.StatusOK, listResponse{
		Page:   pagination.NewPage(l.Appointments, l.Total, pg).WithLinks(c, pg),
		Counts: l.Counts,
	})
}

func (h *Handler) Book(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Appointment, error) {
		return h.svc.Book(ctx, req)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Appointment, error) {
		return h.svc.Get(ctx, id)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Appointment, error) {
		return h.svc.UpdateStatus(ctx, id, body.Status)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res := datastore.Exec(c.Request().Context(), h.gate, func(ctx context.Context) error {
		return h.svc.Delete(ctx, id)
	})
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	return c.NoContent(http.StatusNoContent)
}
