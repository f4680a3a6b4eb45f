package patient

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
	// Public prescription download by UID.
	api.GET("/prescriptions", h.LookupPrescriptions)
	api.GET("/prescriptions/download", h.DownloadHistory)
	api.GET("/prescriptions/:id/download", h.DownloadPrescription)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleDoctor))
	staff.GET("/patients", h.ListPatients)
	staff.POST("/patients", h.CreatePatient)
	staff.GET("/patients/:uid", h.GetPatient)
	staff.PATCH("/patients/:uid", h.UpdatePatient)
	staff.GET("/patients/:uid/report", h.DownloadReport)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/patients/:uid/history", h.RecordHistory)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := SearchParams{Query: c.QueryParam("q"), Limit: pg.Limit, Offset: pg.Offset}

	type page struct {
		items []*Patient
		total int
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (page, error) {
		items, total, err := h.svc.Search(ctx, params)
		return page{items, total}, err
	})
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	items := res.Data.items
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, res.Data.total, pg).WithLinks(c, pg))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var reg Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Patient, error) {
		return h.svc.Register(ctx, reg)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}

func (h *Handler) GetPatient(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Record, error) {
		return h.svc.Record(ctx, c.Param("uid"))
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var reg Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Patient, error) {
		return h.svc.Update(ctx, c.Param("uid"), reg)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) RecordHistory(c echo.Context) error {
	var entry HistoryEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*MedicalHistory, error) {
		return h.svc.RecordHistory(ctx, c.Param("uid"), entry)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}

func (h *Handler) LookupPrescriptions(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*PrescriptionLookup, error) {
		return h.svc.Prescriptions(ctx, c.QueryParam("uid"))
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) DownloadPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Document, error) {
		return h.svc.PrescriptionDocument(ctx, id, c.QueryParam("uid"))
	})
	return h.attach(c, res)
}

func (h *Handler) DownloadHistory(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Document, error) {
		return h.svc.HistoryDocument(ctx, c.QueryParam("uid"))
	})
	return h.attach(c, res)
}

// DownloadReport serves the printable report inline unless ?download=true.
func (h *Handler) DownloadReport(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Document, error) {
		return h.svc.ReportDocument(ctx, c.Param("uid"))
	})
	if res.OK() && c.QueryParam("download") != "true" {
		return c.Blob(http.StatusOK, (*res.Data).ContentType, (*res.Data).Body)
	}
	return h.attach(c, res)
}

func (h *Handler) attach(c echo.Context, res datastore.Result[*Document]) error {
	if !res.OK() {
		return datastore.Respond(c, http.StatusOK, res)
	}
	doc := *res.Data
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Blob(http.StatusOK, doc.ContentType, doc.Body)
}
