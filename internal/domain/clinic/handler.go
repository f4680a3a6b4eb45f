package clinic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediqueue/mediqueue/internal/platform/auth"
	"github.com/mediqueue/mediqueue/internal/platform/datastore"
)

type Handler struct {
	svc  *Service
	gate datastore.Gate
}

func NewHandler(svc *Service, gate datastore.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Department listing backs the public booking form.
	api.GET("/departments", h.ListDepartments)
	api.GET("/departments/:name", h.GetDepartment)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleDoctor))
	staff.GET("/doctors", h.ListDoctors)
	staff.GET("/doctors/:id", h.GetDoctor)
	staff.GET("/settings", h.ListSettings)
	staff.GET("/settings/:key", h.GetSetting)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/departments", h.CreateDepartment)
	admin.PATCH("/departments/:name", h.UpdateDepartment)
	admin.PATCH("/departments/:name/status", h.SetDepartmentStatus)
	admin.POST("/doctors", h.CreateDoctor)
	admin.PUT("/doctors/:id", h.UpdateDoctor)
	admin.PATCH("/doctors/:id/status", h.SetDoctorStatus)
	admin.PUT("/settings/:key", h.PutSetting)
}

// -- Department Handlers --

func (h *Handler) ListDepartments(c echo.Context) error {
	activeOnly := true
	if c.QueryParam("all") == "true" && auth.HasRole(auth.RolesFromContext(c.Request().Context()), auth.RoleStaff) {
		activeOnly = false
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) ([]*Department, error) {
		return h.svc.ListDepartments(ctx, activeOnly)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Department, error) {
		return h.svc.GetDepartment(ctx, c.Param("name"))
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	var d Department
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Department, error) {
		return &d, h.svc.CreateDepartment(ctx, &d)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	var patch Department
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Department, error) {
		return h.svc.UpdateDepartment(ctx, c.Param("name"), &patch)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) SetDepartmentStatus(c echo.Context) error {
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_active is required")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Department, error) {
		return h.svc.SetDepartmentActive(ctx, c.Param("name"), *body.IsActive)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

// -- Doctor Handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	f := DoctorFilter{Status: c.QueryParam("status"), Specialization: c.QueryParam("specialization")}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) ([]*Doctor, error) {
		return h.svc.ListDoctors(ctx, f)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Doctor, error) {
		return h.svc.GetDoctor(ctx, id)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Doctor, error) {
		return &d, h.svc.CreateDoctor(ctx, &d)
	})
	return datastore.Respond(c, http.StatusCreated, res)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d.ID = id
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Doctor, error) {
		return &d, h.svc.UpdateDoctor(ctx, &d)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) SetDoctorStatus(c echo.Context) error {
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
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Doctor, error) {
		return h.svc.SetDoctorStatus(ctx, id, body.Status)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

// -- Setting Handlers --

func (h *Handler) ListSettings(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) ([]*Setting, error) {
		return h.svc.ListSettings(ctx)
	})
	return datastore.Respond(c, http.StatusOK, res)
}

func (h *Handler) GetSetting(c echo.Context) error {
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Setting, error) {
		return h.svc.GetSetting(ctx, c.Param("key"))
	})
	return datastore.Respond(c, http.StatusOK, res)
}

// PutSetting accepts either a full setting document or a bare JSON value.
func (h *Handler) PutSetting(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	st := Setting{Key: c.Param("key")}
	var doc struct {
		Value       json.RawMessage `json:"setting_value"`
		Type        string          `json:"setting_type"`
		Description *string         `json:"description"`
	}
	if json.Unmarshal(body, &doc) == nil && len(doc.Value) > 0 {
		st.Value, st.Type, st.Description = doc.Value, doc.Type, doc.Description
	} else {
		st.Value = body
	}
	res := datastore.Safe(c.Request().Context(), h.gate, func(ctx context.Context) (*Setting, error) {
		return &st, h.svc.PutSetting(ctx, &st)
	})
	return datastore.Respond(c, http.StatusOK, res)
}
