package inbox

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor))
	g.GET("/notifications", h.List)
	g.POST("/notifications/read", h.MarkAllRead)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	doctorID := auth.UserIDFromContext(ctx)

	items, total, err := h.svc.List(ctx, doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Dependency("list notifications", err)
	}
	unread, err := h.svc.CountUnread(ctx, doctorID)
	if err != nil {
		return apperr.Dependency("count unread notifications", err)
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path),
		"unread":        unread,
	})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	ctx := c.Request().Context()
	n, err := h.svc.MarkAllRead(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.Dependency("mark notifications read", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": n})
}
