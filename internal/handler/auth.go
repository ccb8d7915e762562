package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lecturer-claims/internal/config"
	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/service"
	"github.com/iliyamo/lecturer-claims/internal/utils"
)

// AuthHandler serves registration, login and the identity endpoint.
type AuthHandler struct {
	dir *service.Directory
	cfg config.Config
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(dir *service.Directory, cfg config.Config) *AuthHandler {
	return &AuthHandler{dir: dir, cfg: cfg}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates an unapproved lecturer account. The response makes
// the pending state explicit so the client can tell the user why a
// login right after registering will be refused.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	u, err := h.dir.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user":    newUserView(u),
		"message": "registration received; an HR administrator must approve the account before login",
	})
}

// Login verifies credentials for the requested role and issues an
// access token. An unapproved lecturer with correct credentials gets
// 403 with its own message rather than the generic 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	u, err := h.dir.Authenticate(ctx, req.Email, req.Password, model.Role(req.Role))
	if err != nil {
		return writeError(c, err)
	}
	tok, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, u.Role, u.Email, h.cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
		"user":         newUserView(u),
	})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	u, err := h.dir.User(ctx, actor.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}
