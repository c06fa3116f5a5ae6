package auditlog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	g.GET("/audit-logs", h.List)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	entries, err := h.svc.Query(ctx, auth.RoleFromContext(ctx), c.QueryParam("q"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  entries,
		"total": len(entries),
	})
}
