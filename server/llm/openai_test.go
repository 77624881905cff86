package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatSendsWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string        `json:"model"`
			Messages []wireMessage `json:"messages"`
			Tools    []ToolDef     `json:"tools"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Tools, 1)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "test-model")
	msg, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}},
		[]ToolDef{NewToolDef("multiply", "multiply", nil, nil)})
	require.NoError(t, err)
	require.Equal(t, "hi there", msg.Content)
	require.Equal(t, RoleAssistant, msg.Role)
}

func TestChatDecodesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{
			"role":"assistant","content":"",
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"multiply","arguments":"{\"a\":\"2\",\"b\":\"3\"}"}}]
		}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", "test-model")
	msg, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "2*3"}}, nil)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	require.Equal(t, "multiply", msg.ToolCalls[0].Name)
	require.Equal(t, "2", msg.ToolCalls[0].Arguments["a"])
}

func TestChatKeepsMalformedArgumentsAsRawInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{
			"role":"assistant","content":"",
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"multiply","arguments":"just multiply them"}}]
		}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", "test-model")
	msg, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "go"}}, nil)
	require.NoError(t, err)
	require.Equal(t, "just multiply them", msg.ToolCalls[0].Arguments["input"])
}

func TestChatSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", "test-model")
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestChatRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", "test-model")
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []wireMessage `json:"messages"`
			Tools    []ToolDef     `json:"tools"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Empty(t, req.Tools)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"a short summary"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", "test-model")
	out, err := client.Complete(context.Background(), "summarize this")
	require.NoError(t, err)
	require.Equal(t, "a short summary", out)
}
