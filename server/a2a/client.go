package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/strandlabs/strand/server/llm"
)

// Client calls a remote agent's A2A endpoint.
type Client struct {
	baseURL string
	agentID string
	client  *http.Client
}

// NewClient creates a client for the agent hosted at baseURL under
// agentID (endpoint: {baseURL}/a2a/{agentID}).
func NewClient(baseURL, agentID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		agentID: agentID,
		client:  &http.Client{Timeout: timeout},
	}
}

// Invoke runs one synchronous turn on the remote agent and returns the
// messages of the remote turn.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message, threadID, userID string) ([]llm.Message, error) {
	req := NewRequest(uuid.New().String(), MethodInvoke, Params{
		Messages: messages,
		ThreadID: threadID,
		UserID:   userID,
		Config:   map[string]any{},
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal a2a request")
	}

	endpoint := fmt.Sprintf("%s/a2a/%s", c.baseURL, c.agentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build a2a request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "a2a request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("a2a endpoint returned status %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decode a2a response")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, errors.New("a2a response carries neither result nor error")
	}
	return resp.Result.Messages, nil
}
