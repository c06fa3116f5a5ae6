package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/domain/user"
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
	api.GET("/me", h.Me)
	api.POST("/me", h.Register)
	api.PUT("/me/profile", h.UpdateProfile)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.POST("/me/doctor", h.LinkDoctor)
	patients.GET("/me/doctor", h.MyDoctor)

	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.GET("/patients", h.List)
	doctors.POST("/patients", h.Create)
	doctors.GET("/patients/:id", h.History)
	doctors.POST("/patients/:id/send", h.Send)
	doctors.POST("/patients/:id/resend", h.Resend)
	doctors.GET("/dashboard/stats", h.Stats)

	api.DELETE("/patients/:id", h.Delete, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	api.PUT("/users/:id/role", h.UpdateRole, auth.RequireRole(auth.RoleAdmin))
}

type createRequest struct {
	PatientEmail          string `json:"patientEmail" validate:"required,email"`
	FirstName             string `json:"firstName" validate:"required"`
	LastName              string `json:"lastName" validate:"required"`
	DateOfBirth           string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Phone                 string `json:"phone"`
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`
	Source                string `json:"source" validate:"omitempty,oneof=kiosk portal"`
}

type linkRequest struct {
	DoctorEmail string `json:"doctorEmail" validate:"required,email"`
}

type profileRequest struct {
	FirstName             string `json:"firstName" validate:"required"`
	LastName              string `json:"lastName" validate:"required"`
	DateOfBirth           string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Phone                 string `json:"phone" validate:"required"`
	EmergencyContactName  string `json:"emergencyContactName" validate:"required"`
	EmergencyContactPhone string `json:"emergencyContactPhone" validate:"required"`
	HIPAAConsent          bool   `json:"hipaaConsent"`
}

type registerRequest struct {
	Role      string `json:"role" validate:"required,oneof=patient doctor"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("", "Invalid data provided.")
	}
	return c.Validate(req)
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.Profile(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	u, err := h.svc.Register(ctx, auth.PrincipalFromContext(ctx), Registration{
		Role:      auth.Role(req.Role),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	u, err := h.svc.UpdateProfile(ctx, auth.UserIDFromContext(ctx), ProfileUpdate{
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		DateOfBirth:           req.DateOfBirth,
		Phone:                 req.Phone,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		HIPAAConsent:          req.HIPAAConsent,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) LinkDoctor(c echo.Context) error {
	var req linkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	d, err := h.svc.LinkDoctor(ctx, auth.UserIDFromContext(ctx), req.DoctorEmail)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) MyDoctor(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := h.svc.MyDoctor(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.ListPatients(ctx, auth.UserIDFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*user.User{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	res, err := h.svc.CreateByDoctor(ctx, auth.UserIDFromContext(ctx), NewPatient{
		Email:                 req.PatientEmail,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		DateOfBirth:           req.DateOfBirth,
		Phone:                 req.Phone,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Source:                req.Source,
	})
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if res.Linked {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

func (h *Handler) History(c echo.Context) error {
	ctx := c.Request().Context()
	hist, err := h.svc.ViewPatientHistory(ctx, auth.UserIDFromContext(ctx), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *Handler) Send(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.SendAssessment(ctx, auth.UserIDFromContext(ctx), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) Resend(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.ResendInvite(ctx, auth.UserIDFromContext(ctx), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.PrincipalFromContext(ctx), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := h.svc.DashboardStats(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateRole(c echo.Context) error {
	var req roleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateRole(ctx, auth.PrincipalFromContext(ctx), c.Param("id"), role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
