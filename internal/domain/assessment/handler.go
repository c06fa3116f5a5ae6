package assessment

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/domain/screening"
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
	api.GET("/questionnaires", h.Questionnaires)
	api.GET("/assessments/:id", h.Get)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.POST("/assessments", h.Submit)
	patients.GET("/assessments", h.ListMine)
	patients.POST("/assessments/:id/email", h.EmailResults)

	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.PUT("/assessments/:id/note", h.SaveNote)
	doctors.GET("/review-queue", h.ReviewQueue)
}

// Answers accept either JSON strings or numbers, matching form posts.
type rawAnswers map[string]string

func (r *rawAnswers) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out := make(rawAnswers, len(m))
	for k, v := range m {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("answer %s: expected a number", k)
		}
		out[k] = n.String()
	}
	*r = out
	return nil
}

type submitRequest struct {
	Answers           rawAnswers `json:"answers" validate:"required"`
	AdditionalContext string     `json:"additionalContext"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) Questionnaires(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": screening.Bank()})
}

func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("", msgInvalidSubmission)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := h.svc.Submit(ctx, auth.UserIDFromContext(ctx), req.Answers, req.AdditionalContext)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListForPatient(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Assessment{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, auth.PrincipalFromContext(ctx), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) SaveNote(c echo.Context) error {
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("", "Invalid data provided.")
	}
	ctx := c.Request().Context()
	a, err := h.svc.AddOrUpdateNote(ctx, auth.UserIDFromContext(ctx), c.Param("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) EmailResults(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.EmailResults(ctx, auth.UserIDFromContext(ctx), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) ReviewQueue(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, err := h.svc.ReviewQueue(ctx, auth.UserIDFromContext(ctx), pg.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}
