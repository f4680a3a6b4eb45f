package queue

import (
	"context"
	"net/http"
	"strconv"

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

// RegisterRoutes mounts the queue endpoints. bookingMW wraps only the public
// booking route.
func (h *Handler) RegisterRoutes(api *echo.Group, bookingMW ...echo.MiddlewareFunc) {
	api.POST("/bookings", h.Book, bookingMW...)
	api.GET("/queue", h.Overview)
	api.GET("/queue/:department", h.Status)
	api.GET("/queue/:department/position", h.Position)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleDoctor))
	staff.GET("/visits", h.ListVisits)
	staff.GET("/visits/:id", h.GetVisit)
	staff.PATCH("/visits/:id/status", h.UpdateStatus)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/doctor/queue", h.DoctorQueue)
	doctor.POST("/visits/:id/call", h.Call)
	doctor.POST("/visits/:id/complete", h.Complete)
}

func (h *Handler) Book(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Booking, error) {
		return h.svc.Book(ctx, req)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}

func (h *Handler) Overview(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) ([]*Status, error) {
		return h.svc.Overview(ctx)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) Status(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Status, error) {
		return h.svc.Status(ctx, c.Param("department"))
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) Position(c echo.Context) error {
	stn, err := strconv.Atoi(c.QueryParam("stn"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "stn must be a number")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Position, error) {
		return h.svc.Position(ctx, c.Param("department"), stn)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) ListVisits(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := VisitFilter{
		Date:       c.QueryParam("date"),
		Department: c.QueryParam("department"),
		Status:     c.QueryParam("status"),
		Search:     c.QueryParam("q"),
		Limit:      pg.Limit,
		Offset:     pg.Offset,
	}

	type page struct {
		items []*Visit
		total int
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (page, error) {
		items, total, err := h.svc.ListVisits(ctx, f)
		return page{items, total}, err
	})
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	items := res.Data.items
	if items == nil {
		items = []*Visit{}
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, res.Data.total, pg).WithLinks(c, pg))
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Visit, error) {
		return h.svc.GetVisit(ctx, id)
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
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Visit, error) {
		return h.svc.UpdateStatus(ctx, id, body.Status)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) DoctorQueue(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) ([]*Visit, error) {
		items, err := h.svc.DoctorQueue(ctx, c.QueryParam("department"))
		if items == nil && err == nil {
			items = []*Visit{}
		}
		return items, err
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) Call(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		DoctorID *uuid.UUID `json:"doctor_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Visit, error) {
		return h.svc.Call(ctx, id, body.DoctorID)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body Consultation
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Visit, error) {
		return h.svc.Complete(ctx, id, body)
	})
	return datastore.Respond(c, http.StatusOK, res)
}
