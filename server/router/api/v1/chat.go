package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/strandlabs/strand/server/agent"
	"github.com/strandlabs/strand/server/llm"
)

// chatRequest is the body of POST /chat and POST /chat/stream.
type chatRequest struct {
	ThreadID string        `json:"thread_id"`
	UserID   string        `json:"user_id"`
	Messages []llm.Message `json:"messages"`
}

func (r *chatRequest) validate() error {
	if strings.TrimSpace(r.ThreadID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "thread_id required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	if len(r.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages required")
	}
	return nil
}

func (s *APIV1Service) healthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat runs one full turn and returns the turn's transcript.
func (s *APIV1Service) handleChat(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	transcript, err := s.Service.Chat(c.Request().Context(), req.ThreadID, req.UserID, req.Messages)
	if err != nil {
		slog.Warn("chat turn failed", "thread", req.ThreadID, "user", req.UserID, "err", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, transcript)
}

// handleChatStream runs one turn, emitting an incremental transcript as
// a server-sent event after each completed step. A mid-stream failure
// is emitted as a terminal error event, not an HTTP error.
func (s *APIV1Service) handleChatStream(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)

	emit := func(payload any) error {
		data, err := json.Marshal(payload)
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

	err := s.Service.Stream(c.Request().Context(), req.ThreadID, req.UserID, req.Messages, func(t *agent.Transcript) error {
		return emit(t)
	})
	if err != nil {
		slog.Warn("stream turn failed", "thread", req.ThreadID, "user", req.UserID, "err", err)
		_ = emit(map[string]string{"type": "error", "message": err.Error()})
	}
	return nil
}
