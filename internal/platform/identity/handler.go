package identity

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
)

// TokenConfig signs standalone-mode access tokens.
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// Handler exchanges a password for an access token. It is only mounted when
// the server verifies its own HS256 tokens.
type Handler struct {
	svc *Service
	cfg TokenConfig
}

func NewHandler(svc *Service, cfg TokenConfig) *Handler {
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	return &Handler{svc: svc, cfg: cfg}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/token", h.Token)
}

type tokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (h *Handler) Token(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("", "Invalid data provided.")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ident, err := h.svc.Verify(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	token, err := auth.MintToken(h.cfg.SigningKey, auth.TokenRequest{
		Subject:  ident.ID,
		Email:    ident.Email,
		Role:     ident.Role,
		Issuer:   h.cfg.Issuer,
		Audience: h.cfg.Audience,
		TTL:      h.cfg.TTL,
	})
	if err != nil {
		return apperr.Dependency("sign token", err)
	}
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.cfg.TTL.Seconds()),
	})
}
