package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"symptom-chatbot/internal/auth"
	"symptom-chatbot/internal/core"
	"symptom-chatbot/pkg"
)

// Providers is the part of the model selector exposed over HTTP.
type Providers interface {
	Name() string
	Providers() []string
	Available(ctx context.Context) []string
	Switch(name string) error
}

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	Service   *core.ChatService
	Providers Providers
	Auth      auth.Resolver
	Logger    *slog.Logger
}

// NewServer constructs a Server.
func NewServer(chat *core.ChatService, providers Providers, resolver auth.Resolver, logger *slog.Logger) *Server {
	if resolver == nil {
		resolver = auth.Anonymous{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Service: chat, Providers: providers, Auth: resolver, Logger: logger}
}

// RegisterRoutes registers routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.Health)

	cfg := e.Group("/api/config")
	cfg.GET("/age-groups", s.AgeGroups)
	cfg.GET("/languages", s.Languages)
	cfg.GET("/llm-providers", s.LLMProviders)
	cfg.POST("/switch-provider", s.SwitchProvider)

	api := e.Group("/api", s.requireAuth)
	api.POST("/conversation/start", s.StartConversation)
	api.POST("/conversation/:id/age", s.SetAge)
	api.POST("/conversation/:id/language", s.SetLanguage)
	api.POST("/conversation/:id/chat", s.Chat)
	api.GET("/conversation/:id/status", s.Status)
	api.GET("/conversation/:id/history", s.History)
	api.GET("/user/conversations", s.UserConversations)
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "symptom-chatbot",
	})
}

func (s *Server) AgeGroups(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"age_groups": s.Service.AgeGroups(),
	})
}

func (s *Server) Languages(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success":          true,
		"languages":        s.Service.Languages(),
		"default_language": s.Service.DefaultLanguage(),
	})
}

func (s *Server) LLMProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success":             true,
		"current_provider":    s.Providers.Name(),
		"available_providers": s.Providers.Available(c.Request().Context()),
		"all_providers":       s.Providers.Providers(),
	})
}

// SwitchProvider changes the active model backend for all later calls.
func (s *Server) SwitchProvider(c echo.Context) error {
	var req pkg.SwitchProviderRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body", core.CodeValidation)
	}
	if req.Provider == "" {
		return errorJSON(c, http.StatusBadRequest, "Provider name is required", core.CodeValidation)
	}
	if err := s.Providers.Switch(req.Provider); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error(), core.CodeValidation)
	}
	s.Logger.InfoContext(c.Request().Context(), "switched model provider", "provider", req.Provider)
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"provider": req.Provider,
		"message":  "Switched to " + req.Provider + " provider",
	})
}

func (s *Server) StartConversation(c echo.Context) error {
	conv, err := s.Service.CreateConversation(c.Request().Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"conversation_id": conv.ID,
		"owner_id":        conv.OwnerID,
		"message":         "Conversation started. Please select your age group.",
		"state":           conv.State,
		"age_groups":      s.Service.AgeGroups(),
	})
}

func (s *Server) SetAge(c echo.Context) error {
	var req pkg.AgeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body", core.CodeValidation)
	}
	st, err := s.Service.SetAge(c.Request().Context(), userID(c), c.Param("id"), req.Age)
	if err != nil {
		return s.fail(c, err)
	}

	msg := "Age set. Please select your preferred language."
	if st.State == pkg.StateReady || st.State == pkg.StateInConversation {
		msg = "Conversation ready. You can now describe your symptoms."
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"message":   msg,
		"age":       st.Age,
		"state":     st.State,
		"languages": s.languageCodes(),
	})
}

// SetLanguage sets the language and translates any existing messages.
func (s *Server) SetLanguage(c echo.Context) error {
	var req pkg.LanguageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body", core.CodeValidation)
	}
	res, err := s.Service.SwitchLanguage(c.Request().Context(), userID(c), c.Param("id"), req.Language)
	if err != nil {
		return s.fail(c, err)
	}

	body := map[string]any{
		"success":  true,
		"message":  "Conversation ready. You can now describe your symptoms.",
		"language": res.Status.Language,
		"state":    res.Status.State,
	}
	if res.Status.Age == "" {
		body["message"] = "Language set. Please select your age group."
		body["age_groups"] = s.Service.AgeGroups()
	}
	if res.Messages != nil {
		body["translated_messages"] = res.Messages
	}
	if res.Warning != "" {
		body["translation_warning"] = res.Warning
		body["warning_code"] = res.WarningCode
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) Chat(c echo.Context) error {
	var req pkg.ChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body", core.CodeValidation)
	}
	id := c.Param("id")
	resp, err := s.Service.Chat(c.Request().Context(), userID(c), id, req.Message)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"response":        resp,
		"conversation_id": id,
	})
}

func (s *Server) Status(c echo.Context) error {
	st, err := s.Service.Status(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"conversation_id": st.ConversationID,
		"state":           st.State,
		"age":             st.Age,
		"language":        st.Language,
		"message_count":   st.MessageCount,
	})
}

// History returns stored messages; ?limit=N keeps only the last N.
func (s *Server) History(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, "limit must be a non-negative integer", core.CodeValidation)
		}
		limit = n
	}
	id := c.Param("id")
	msgs, err := s.Service.History(c.Request().Context(), userID(c), id, limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"conversation_id": id,
		"messages":        msgs,
	})
}

func (s *Server) UserConversations(c echo.Context) error {
	convs, err := s.Service.ListConversations(c.Request().Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"conversations": convs,
	})
}

func (s *Server) languageCodes() []string {
	langs := s.Service.Languages()
	codes := make([]string, len(langs))
	for i, l := range langs {
		codes[i] = l.Code
	}
	return codes
}
