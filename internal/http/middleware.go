package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"symptom-chatbot/internal/auth"
	"symptom-chatbot/internal/core"
)

const userIDKey = "user_id"

// New returns an echo instance with middleware and all routes registered.
func New(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.Logger.Log(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))

	s.RegisterRoutes(e)
	return e
}

// requireAuth resolves the bearer token to a user id stored on the context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "))
		user, err := s.Auth.Resolve(c.Request().Context(), token)
		if err != nil {
			msg := "Invalid session"
			if errors.Is(err, auth.ErrMissingCredential) {
				msg = "Authentication required"
			}
			return c.JSON(http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   msg,
				"code":    "unauthorized",
			})
		}
		c.Set(userIDKey, user)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// statusFor maps an error code to an HTTP status.
func statusFor(code core.Code) int {
	switch code {
	case core.CodeValidation, core.CodePrecondition:
		return http.StatusBadRequest
	case core.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err in the standard error envelope. Errors that are not a
// *core.Error are logged and reported generically.
func (s *Server) fail(c echo.Context, err error) error {
	var ce *core.Error
	if !errors.As(err, &ce) {
		s.Logger.ErrorContext(c.Request().Context(), "unhandled error", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error", "internal_error")
	}

	body := map[string]any{
		"success": false,
		"error":   ce.Message,
		"code":    ce.Code,
	}
	if ce.Field != "" {
		body["field"] = ce.Field
	}
	if ce.Code == core.CodePrecondition {
		switch ce.Field {
		case "age":
			body["requires_age"] = true
			body["age_groups"] = s.Service.AgeGroups()
		case "language":
			body["requires_language"] = true
			body["languages"] = s.languageCodes()
		}
	}
	return c.JSON(statusFor(ce.Code), body)
}

func errorJSON(c echo.Context, status int, msg string, code core.Code) error {
	return c.JSON(status, map[string]any{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// httpErrorHandler keeps router errors (unknown route, wrong method) in the
// same envelope as handler errors.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch status {
		case http.StatusNotFound:
			msg = "Endpoint not found"
		case http.StatusMethodNotAllowed:
			msg = "Method not allowed"
		default:
			msg = http.StatusText(status)
		}
	} else {
		s.Logger.ErrorContext(c.Request().Context(), "request failed", "error", err)
	}
	_ = errorJSON(c, status, msg, core.Code(strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")))
}
