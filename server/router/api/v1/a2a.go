package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/strandlabs/strand/server/a2a"
	"github.com/strandlabs/strand/server/agent"
)

// JSON-RPC error codes used by the A2A endpoint.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// handleA2A serves the agent-to-agent endpoint. The agentID path
// segment identifies which hosted agent is addressed; this server hosts
// a single agent and accepts any ID.
func (s *APIV1Service) handleA2A(c *echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusOK, a2a.NewErrorResponse("", codeParseError, "unreadable request body"))
	}

	req, err := a2a.Decode(body)
	if err != nil {
		return c.JSON(http.StatusOK, a2a.NewErrorResponse("", codeParseError, err.Error()))
	}
	if strings.TrimSpace(req.Params.ThreadID) == "" || strings.TrimSpace(req.Params.UserID) == "" || len(req.Params.Messages) == 0 {
		return c.JSON(http.StatusOK, a2a.NewErrorResponse(req.ID, codeInvalidRequest, "params require messages, thread_id and user_id"))
	}

	slog.Info("a2a request", "agent", c.Param("agentID"), "method", req.Method, "thread", req.Params.ThreadID)

	switch req.Method {
	case a2a.MethodInvoke:
		return s.a2aInvoke(c, req)
	case a2a.MethodStream:
		return s.a2aStream(c, req)
	default:
		return c.JSON(http.StatusOK, a2a.NewErrorResponse(req.ID, codeMethodNotFound, "unknown method "+req.Method))
	}
}

func (s *APIV1Service) a2aInvoke(c *echo.Context, req *a2a.Request) error {
	transcript, err := s.Service.Chat(c.Request().Context(), req.Params.ThreadID, req.Params.UserID, req.Params.Messages)
	if err != nil {
		return c.JSON(http.StatusOK, a2a.NewErrorResponse(req.ID, codeInternalError, err.Error()))
	}
	return c.JSON(http.StatusOK, a2a.NewResponse(req.ID, &a2a.Result{
		Messages:   transcript.Messages,
		StopReason: string(transcript.StopReason),
	}))
}

// a2aStream emits one JSON-RPC response per completed step as
// server-sent events; a failure is a terminal response with the error
// populated.
func (s *APIV1Service) a2aStream(c *echo.Context, req *a2a.Request) error {
	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.WriteHeader(http.StatusOK)

	emit := func(resp *a2a.Response) error {
		data, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(rw, "data: %s\n\n", data); err != nil {
			return err
		}
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
		return nil
	}

	err := s.Service.Stream(c.Request().Context(), req.Params.ThreadID, req.Params.UserID, req.Params.Messages, func(t *agent.Transcript) error {
		return emit(a2a.NewResponse(req.ID, &a2a.Result{
			Messages:   t.Messages,
			StopReason: string(t.StopReason),
		}))
	})
	if err != nil {
		_ = emit(a2a.NewErrorResponse(req.ID, codeInternalError, err.Error()))
	}
	return nil
}
