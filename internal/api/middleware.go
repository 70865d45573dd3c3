package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/ctxutil"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/session"
)

const (
	ctxSessionKey = "session"
	bearerPrefix  = "Bearer "
)

// requestLogger завершает обработку ошибки сам, чтобы в лог и метрики попал итоговый статус.
func requestLogger(log *zap.Logger, quiet bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			metrics.HTTPRequests.WithLabelValues(req.Method, strconv.Itoa(res.Status)).Inc()
			if !quiet {
				log.Info("http request",
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
					zap.Int("status", res.Status),
					zap.Duration("latency", time.Since(start)),
				)
			}
			return nil
		}
	}
}

// sessionAuth разрешает Bearer-токен в сессию.
func sessionAuth(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return errUnauthorized
			}
			sess, ok := m.Get(token)
			if !ok {
				return errSessionExpired
			}
			c.Set(ctxSessionKey, sess)
			req := c.Request()
			c.SetRequest(req.WithContext(ctxutil.WithSessionToken(req.Context(), token)))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	return tok, tok != ""
}

func requireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if currentSession(c).Account.Role != role {
				return errHttpForbidden
			}
			return next(c)
		}
	}
}

func currentSession(c echo.Context) session.Session {
	sess, _ := c.Get(ctxSessionKey).(session.Session)
	return sess
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
