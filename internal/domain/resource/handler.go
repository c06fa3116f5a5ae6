package resource

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.GET("/resources", h.List)
	doctors.POST("/resources", h.Create)
	doctors.PUT("/resources/:id", h.Update)
	doctors.DELETE("/resources/:id", h.Delete)

	api.GET("/me/resources", h.ListMine, auth.RequireRole(auth.RolePatient))
}

type resourceRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	URL         string `json:"url" validate:"required,url"`
	Category    string `json:"category" validate:"required,oneof=Crisis Coping Therapy Education Other"`
}

func (r resourceRequest) input() Input {
	return Input{Title: r.Title, Description: r.Description, URL: r.URL, Category: Category(r.Category)}
}

func bind(c echo.Context) (*resourceRequest, error) {
	var req resourceRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperr.Validation("", "Invalid data provided.")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListByDoctor(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListForPatient(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) Create(c echo.Context) error {
	req, err := bind(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Add(ctx, auth.UserIDFromContext(ctx), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Update(c echo.Context) error {
	req, err := bind(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Update(ctx, auth.UserIDFromContext(ctx), c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.UserIDFromContext(ctx), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
