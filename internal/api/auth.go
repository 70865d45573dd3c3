package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Spok95/course-feedback/internal/models"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	Role      models.Role `json:"role"`
	Name      string      `json:"name"`
	Profile   any         `json:"profile"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func registerAuthAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	g.POST("/login", s.login)
	g.POST("/logout", s.logout, authed)
	g.GET("/me", s.me, authed)
}

func (s *server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("binding to loginRequest: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	// токен прежней сессии (если клиент его прислал) будет закрыт
	prev, _ := bearerToken(c)
	sess, err := s.opts.Sessions.Login(c.Request().Context(), prev, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:     sess.Token,
		Role:      sess.Account.Role,
		Name:      sess.Account.DisplayName(),
		Profile:   sess.Account.Profile(),
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *server) logout(c echo.Context) error {
	s.opts.Sessions.Logout(currentSession(c).Token)
	return c.NoContent(http.StatusNoContent)
}

func (s *server) me(c echo.Context) error {
	sess := currentSession(c)
	return c.JSON(http.StatusOK, loginResponse{
		Token:     sess.Token,
		Role:      sess.Account.Role,
		Name:      sess.Account.DisplayName(),
		Profile:   sess.Account.Profile(),
		ExpiresAt: sess.ExpiresAt,
	})
}
