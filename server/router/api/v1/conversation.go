package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

// listConversations returns all thread IDs for a user.
func (s *APIV1Service) listConversations(c *echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	threads, err := s.Service.ListThreads(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"threads": threads,
		"count":   len(threads),
	})
}

// getConversation returns a thread's full transcript.
func (s *APIV1Service) getConversation(c *echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	threadID := c.Param("threadID")

	transcript, err := s.Service.History(c.Request().Context(), threadID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, transcript)
}
