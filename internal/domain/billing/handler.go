package billing

import (
	"context"
	"fmt"
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
	g := api.Group("/billing", auth.RequireRole(auth.RoleStaff))
	g.GET("/transactions", h.ListTransactions)
	g.GET("/transactions/:id", h.GetTransaction)
	g.GET("/transactions/:id/receipt", h.Receipt)
	g.POST("/transactions/:id/refund", h.Refund)
	g.GET("/pending", h.PendingVisits)
	g.GET("/analytics", h.Analytics)
	g.POST("/payments", h.ProcessPayment)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListTransactions(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Search: c.QueryParam("q"),
		Status: c.QueryParam("status"),
		Method: c.QueryParam("method"),
		Date:   c.QueryParam("date"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}

	type page struct {
		items []*Transaction
		total int
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (page, error) {
		items, total, err := h.svc.ListTransactions(ctx, f)
		return page{items, total}, err
	})
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	items := res.Data.items
	if items == nil {
		items = []*Transaction{}
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, res.Data.total, pg).WithLinks(c, pg))
}

func (h *Handler) GetTransaction(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Transaction, error) {
		return h.svc.GetTransaction(ctx, id)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

// Receipt serves the printable receipt inline, or as an attachment with
// ?download=true.
func (h *Handler) Receipt(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Document, error) {
		return h.svc.Receipt(ctx, id)
	})
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	doc := *res.Data
	if c.QueryParam("download") == "true" {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	}
	return c.Blob(http.StatusOK, doc.ContentType, doc.Body)
}

func (h *Handler) Refund(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Transaction, error) {
		return h.svc.Refund(ctx, id)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) PendingVisits(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) ([]*BillableVisit, error) {
		return h.svc.PendingVisits(ctx)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) Analytics(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Analytics, error) {
		return h.svc.Analytics(ctx)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Transaction, error) {
		return h.svc.ProcessPayment(ctx, req)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}
