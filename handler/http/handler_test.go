package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpHdlr "kbchat/handler/http"
	"kbchat/src/core/assistant"
)

type fakeChatService struct {
	answer  *assistant.Answer
	history []assistant.ChatMessage
	err     error
	lastAsk assistant.AskInput
}

func (s *fakeChatService) Ask(ctx context.Context, in assistant.AskInput) (*assistant.Answer, error) {
	s.lastAsk = in
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

func (s *fakeChatService) History(ctx context.Context, sessionID string) ([]assistant.ChatMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

type fakeQueryService struct {
	response string
	err      error
}

func (s *fakeQueryService) QueryKnowledgeBase(ctx context.Context, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *fakeQueryService) InvokeModel(ctx context.Context, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type fakeSystemService struct {
	status *assistant.HealthStatus
}

func (s *fakeSystemService) CheckHealth(ctx context.Context) *assistant.HealthStatus {
	return s.status
}

func newTestRouter(chat *fakeChatService, query *fakeQueryService, sys *fakeSystemService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	if sys == nil {
		sys = &fakeSystemService{status: &assistant.HealthStatus{Status: "healthy"}}
	}

	h := httpHdlr.NewHandler(chat, query, sys, nil, nil, nil, "pdfs")
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestChatEndpoint(t *testing.T) {
	chat := &fakeChatService{
		answer: &assistant.Answer{
			SessionID: "session-1",
			MessageID: "message-1",
			Text:      "An answer.\n",
			Mode:      assistant.ModeKnowledgeBase,
		},
	}
	r := newTestRouter(chat, &fakeQueryService{}, nil)

	body := `{"message":"How much?","use_knowledge_base":true,"session_id":"session-1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "An answer.\n", resp["response"])
	assert.Equal(t, "session-1", resp["sessionId"])
	assert.Equal(t, assistant.ModeKnowledgeBase, resp["type"])

	assert.Equal(t, "How much?", chat.lastAsk.Message)
	assert.True(t, chat.lastAsk.UseKnowledgeBase)
}

func TestChatEndpointMissingMessage(t *testing.T) {
	r := newTestRouter(&fakeChatService{}, &fakeQueryService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "empty query",
			err:        assistant.ErrEmptyQuery,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_QUERY",
		},
		{
			name:       "throttled",
			err:        fmt.Errorf("%w: slow down", assistant.ErrThrottled),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "THROTTLED",
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("%w: deadline", assistant.ErrTimeout),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "UPSTREAM_TIMEOUT",
		},
		{
			name:       "not configured",
			err:        assistant.ErrNotConfigured,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "NOT_CONFIGURED",
		},
		{
			name:       "upstream failure",
			err:        fmt.Errorf("%w: boom", assistant.ErrUpstream),
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_ERROR",
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeChatService{err: tt.err}, &fakeQueryService{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"q"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)

			var resp httpHdlr.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestChatHistoryEndpoint(t *testing.T) {
	chat := &fakeChatService{
		history: []assistant.ChatMessage{
			{SessionID: "session-1", Role: "user", Content: "q"},
			{SessionID: "session-1", Role: "assistant", Content: "a"},
		},
	}
	r := newTestRouter(chat, &fakeQueryService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/history?sessionId=session-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var msgs []assistant.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)
}

func TestChatHistoryRequiresSessionID(t *testing.T) {
	r := newTestRouter(&fakeChatService{}, &fakeQueryService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryEndpoints(t *testing.T) {
	query := &fakeQueryService{response: "grounded answer\n"}
	r := newTestRouter(&fakeChatService{}, query, nil)

	for _, path := range []string{"/bedrock/query", "/bedrock/invoke"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path+"?text=hello", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "grounded answer\n", resp["response"])
		})

		t.Run(path+" requires text", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		status     *assistant.HealthStatus
		wantStatus int
	}{
		{
			name: "healthy",
			status: &assistant.HealthStatus{
				Status:     "healthy",
				Components: map[string]assistant.ComponentStatus{"postgres": assistant.StatusUp},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "unhealthy",
			status: &assistant.HealthStatus{
				Status:     "unhealthy",
				Components: map[string]assistant.ComponentStatus{"postgres": assistant.StatusDown},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeChatService{}, &fakeQueryService{}, &fakeSystemService{status: tt.status})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestChatScriptReadsAnswerWireNames(t *testing.T) {
	r := newTestRouter(&fakeChatService{}, &fakeQueryService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	script := w.Body.String()

	answer := assistant.Answer{
		SessionID: "session-1",
		Text:      "a\n",
		Citations: []assistant.Citation{{DocumentID: "guide.pdf"}},
	}
	raw, err := json.Marshal(answer)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Contains(t, payload, "sessionId")
	require.Contains(t, payload, "response")
	require.Contains(t, payload, "citations")

	// The page script must address the answer by the same wire names.
	assert.Contains(t, script, "result.body.sessionId")
	assert.Contains(t, script, "result.body.response")
	assert.Contains(t, script, "citation.documentId")
}

func TestChatPageServed(t *testing.T) {
	r := newTestRouter(&fakeChatService{}, &fakeQueryService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Knowledge Base Assistant")
}
