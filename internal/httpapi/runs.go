package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lingotab/lingotab/internal/engine"
)

// handleRun validates the request, then switches the response to a
// server-sent event stream: progress events while the run executes, one
// terminal complete or error event at the end. Closing the connection
// cancels the run through the request context.
func (s *Server) handleRun(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	req, err := ValidateRunRequest(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	// Progress events are emitted from the engine's single forwarding
	// goroutine, which drains before Run returns, so the stream is never
	// written concurrently.
	table, runErr := s.engine.Run(c.Request().Context(), engine.Input{
		Records: req.Records,
		Groups:  req.Groups,
		Prior:   req.Prior,
		Progress: func(groupID string, percent int) {
			s.writeEvent(res, "progress", map[string]any{
				"group_id": groupID,
				"percent":  percent,
			})
		},
	})

	if runErr != nil && table == nil {
		s.writeEvent(res, "error", map[string]any{
			"message": runErr.Error(),
		})
		return nil
	}

	// A run that came back with both a table and an error was canceled
	// mid-flight; the table still covers every pair, sentinels included.
	s.writeEvent(res, "complete", map[string]any{
		"canceled": runErr != nil,
		"groups":   req.Groups,
		"table":    table,
		"columns":  engine.BuildHeader(req.Groups, req.IncludeMetadata),
		"rows":     engine.BuildRows(table, req.Records, req.Groups, req.IncludeMetadata),
	})
	return nil
}

func (s *Server) writeEvent(res *echo.Response, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("marshal sse payload failed")
		return
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		s.logger.Debug().Err(err).Msg("sse client went away")
		return
	}
	res.Flush()
}
