package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenRouter, Ollama's /v1, vLLM, ...).
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIClient creates a client for baseURL (without the
// /chat/completions suffix), e.g. "https://openrouter.ai/api/v1".
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// wireToolCall is the OpenAI wire shape for a tool call. Arguments is a
// JSON-encoded string on the wire, a map internally.
type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

func toWire(msgs []Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Arguments)
			wtc := wireToolCall{ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = string(args)
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		out = append(out, wm)
	}
	return out
}

func fromWire(wm wireMessage) *Message {
	m := &Message{
		Role:       wm.Role,
		Content:    wm.Content,
		Name:       wm.Name,
		ToolCallID: wm.ToolCallID,
	}
	if m.Role == "" {
		m.Role = RoleAssistant
	}
	for _, wtc := range wm.ToolCalls {
		tc := ToolCall{ID: wtc.ID, Name: wtc.Function.Name}
		if wtc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(wtc.Function.Arguments), &tc.Arguments); err != nil {
				// Models occasionally emit bare strings here. Keep the raw
				// text so the tool can report a usable error.
				tc.Arguments = map[string]any{"input": wtc.Function.Arguments}
			}
		}
		m.ToolCalls = append(m.ToolCalls, tc)
	}
	return m
}

// Chat implements Client.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Message, error) {
	reqBody := map[string]any{
		"model":    c.model,
		"messages": toWire(messages),
	}
	if len(tools) > 0 {
		reqBody["tools"] = tools
	}

	var apiResp struct {
		Choices []struct {
			Message wireMessage `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.post(ctx, reqBody, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Error != nil {
		return nil, errors.Errorf("model error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}
	return fromWire(apiResp.Choices[0].Message), nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (c *OpenAIClient) post(ctx context.Context, reqBody, out any) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "model request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errors.Errorf("model returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode model response")
	}
	return nil
}

var _ Client = (*OpenAIClient)(nil)

// String identifies the client in logs.
func (c *OpenAIClient) String() string {
	return fmt.Sprintf("openai-compat(%s, model=%s)", c.baseURL, c.model)
}
