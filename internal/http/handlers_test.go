package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symptom-chatbot/internal/auth"
	"symptom-chatbot/internal/core"
	"symptom-chatbot/internal/llm"
	"symptom-chatbot/internal/store/memory"
)

const cannedReply = "(A) Summary\nheadache\n(B) Home Care\nrest\n(C) When to Seek Medical Attention\nvision loss\n(D) Possible Causes\ntension"

type testServer struct {
	e        *echo.Echo
	provider *llm.Static
	selector *llm.Selector
}

func newTestServer(t *testing.T, resolver auth.Resolver) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := &llm.Static{Reply: cannedReply}
	selector, err := llm.NewSelector("static", map[string]llm.Factory{
		"static": func(context.Context) (llm.Provider, error) { return provider, nil },
		"broken": func(context.Context) (llm.Provider, error) { return nil, errors.New("no key") },
	}, logger)
	require.NoError(t, err)

	svc := core.NewChatService(selector, core.Options{Store: memory.NewStore(), Logger: logger})
	return &testServer{
		e:        New(NewServer(svc, selector, resolver, logger)),
		provider: provider,
		selector: selector,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestConversationFlow(t *testing.T) {
	ts := newTestServer(t, auth.StaticTokens{"tok": "alice"})

	code, body := ts.do(t, http.MethodPost, "/api/conversation/start", "tok", "")
	require.Equal(t, http.StatusOK, code)
	id := body["conversation_id"].(string)
	assert.Equal(t, "alice", body["owner_id"])
	assert.Len(t, body["age_groups"], 6)
	startState := body["state"]

	code, body = ts.do(t, http.MethodGet, "/api/conversation/"+id+"/status", "tok", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "initial", body["state"])
	assert.Equal(t, startState, body["state"])

	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "tok", `{"message":"headache"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, true, body["requires_age"])
	assert.Equal(t, string(core.CodePrecondition), body["code"])

	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/age", "tok", `{"age":"18-64 years (Adult)"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting_language", body["state"])

	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "tok", `{"message":"headache"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, true, body["requires_language"])

	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/language", "tok", `{"language":"english"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["state"])
	assert.NotContains(t, body, "translated_messages")

	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "tok", `{"message":"I have a headache"}`)
	require.Equal(t, http.StatusOK, code)
	resp := body["response"].(map[string]any)
	assert.Equal(t, "(A) Summary\nheadache", resp["summary"])
	assert.Equal(t, "(D) Possible Causes\ntension", resp["possible_causes"])
	assert.NotEmpty(t, resp["disclaimer"])

	code, body = ts.do(t, http.MethodGet, "/api/conversation/"+id+"/status", "tok", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "in_conversation", body["state"])
	assert.Equal(t, float64(2), body["message_count"])

	code, body = ts.do(t, http.MethodGet, "/api/conversation/"+id+"/history?limit=1", "tok", "")
	require.Equal(t, http.StatusOK, code)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0].(map[string]any)["role"])

	code, body = ts.do(t, http.MethodGet, "/api/user/conversations", "tok", "")
	require.Equal(t, http.StatusOK, code)
	convs := body["conversations"].([]any)
	require.Len(t, convs, 1)
	assert.Equal(t, "I have a headache", convs[0].(map[string]any)["title"])
}

func TestLanguageSwitchWithTranslationFailure(t *testing.T) {
	ts := newTestServer(t, auth.Anonymous{})

	_, body := ts.do(t, http.MethodPost, "/api/conversation/start", "", "")
	id := body["conversation_id"].(string)
	ts.do(t, http.MethodPost, "/api/conversation/"+id+"/age", "", `{"age":"6-12 years (Child)"}`)
	ts.do(t, http.MethodPost, "/api/conversation/"+id+"/language", "", `{"language":"english"}`)
	code, _ := ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "", `{"message":"stomach ache"}`)
	require.Equal(t, http.StatusOK, code)

	// The canned reply is not a JSON array, so translation fails.
	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/language", "", `{"language":"hindi"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hindi", body["language"])
	assert.Equal(t, string(core.CodeTranslationWarning), body["warning_code"])
	assert.NotEmpty(t, body["translation_warning"])
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t, auth.StaticTokens{"tok": "alice", "tok2": "bob"})

	code, body := ts.do(t, http.MethodPost, "/api/conversation/start", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication required", body["error"])

	code, body = ts.do(t, http.MethodPost, "/api/conversation/start", "nope", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid session", body["error"])

	code, body = ts.do(t, http.MethodGet, "/api/conversation/missing/status", "tok", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(core.CodeNotFound), body["code"])

	_, body = ts.do(t, http.MethodPost, "/api/conversation/start", "tok", "")
	id := body["conversation_id"].(string)

	code, _ = ts.do(t, http.MethodGet, "/api/conversation/"+id+"/status", "tok2", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/age", "tok", `{"age":"adult"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "age", body["field"])

	code, _ = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "tok", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodGet, "/api/conversation/"+id+"/history?limit=-1", "tok", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(t, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Endpoint not found", body["error"])
}

func TestGenerationFailure(t *testing.T) {
	ts := newTestServer(t, auth.Anonymous{})
	ts.provider.Err = errors.New("upstream 500")

	_, body := ts.do(t, http.MethodPost, "/api/conversation/start", "", "")
	id := body["conversation_id"].(string)
	ts.do(t, http.MethodPost, "/api/conversation/"+id+"/age", "", `{"age":"65+ years (Senior)"}`)
	ts.do(t, http.MethodPost, "/api/conversation/"+id+"/language", "", `{"language":"english"}`)

	code, body := ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "", `{"message":"dizzy"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, string(core.CodeGeneration), body["code"])
	assert.NotContains(t, body["error"], "upstream")

	_, body = ts.do(t, http.MethodGet, "/api/conversation/"+id+"/status", "", "")
	assert.Equal(t, float64(1), body["message_count"])
}

func TestConfigEndpoints(t *testing.T) {
	ts := newTestServer(t, auth.Anonymous{})

	code, body := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	_, body = ts.do(t, http.MethodGet, "/api/config/age-groups", "", "")
	assert.Len(t, body["age_groups"], 6)

	_, body = ts.do(t, http.MethodGet, "/api/config/languages", "", "")
	assert.Len(t, body["languages"], 13)
	assert.Equal(t, "english", body["default_language"])

	_, body = ts.do(t, http.MethodGet, "/api/config/llm-providers", "", "")
	assert.Equal(t, "static", body["current_provider"])
	assert.Equal(t, []any{"static"}, body["available_providers"])
	assert.Equal(t, []any{"broken", "static"}, body["all_providers"])

	code, _ = ts.do(t, http.MethodPost, "/api/config/switch-provider", "", `{"provider":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, "/api/config/switch-provider", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(t, http.MethodPost, "/api/config/switch-provider", "", `{"provider":"broken"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "broken", ts.selector.Name())

	// The broken backend cannot be built, so chat reports it as unavailable.
	_, body = ts.do(t, http.MethodPost, "/api/conversation/start", "", "")
	id := body["conversation_id"].(string)
	ts.do(t, http.MethodPost, "/api/conversation/"+id+"/age", "", `{"age":"65+ years (Senior)"}`)
	ts.do(t, http.MethodPost, "/api/conversation/"+id+"/language", "", `{"language":"english"}`)
	code, body = ts.do(t, http.MethodPost, "/api/conversation/"+id+"/chat", "", `{"message":"dizzy"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, string(core.CodeProviderUnavailable), body["code"])
}
