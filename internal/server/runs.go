package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/postforge/internal/queue"
	"github.com/mohammad-safakhou/postforge/internal/runstate"
)

// RunsHandler exposes run submission and the polling status endpoint.
type RunsHandler struct {
	store  runstate.Store
	queue  *queue.Dispatcher
	logger *log.Logger
}

func NewRunsHandler(store runstate.Store, dispatcher *queue.Dispatcher) *RunsHandler {
	return &RunsHandler{
		store:  store,
		queue:  dispatcher,
		logger: log.New(log.Writer(), "[RUNS] ", log.LstdFlags),
	}
}

func (h *RunsHandler) Register(e *echo.Echo) {
	e.POST("/run", h.submit)
	e.GET("/result/:run_id", h.result)
}

type submitRequest struct {
	Topic string `json:"topic"`
}

type submitResponse struct {
	RunID string `json:"run_id"`
}

// submit allocates a run id, enqueues the saga and returns immediately.
func (h *RunsHandler) submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}

	runID := uuid.NewString()
	if err := h.queue.Enqueue(queue.Task{RunID: runID, Topic: topic}); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pipeline is at capacity, retry later")
	}
	h.logger.Printf("accepted run %s for topic %q", runID, topic)
	return c.JSON(http.StatusAccepted, submitResponse{RunID: runID})
}

// result returns the latest persisted snapshot for the poller. An unknown id
// yields a pending placeholder and a corrupt document yields a synthetic
// failed status; the client always receives well-formed JSON.
func (h *RunsHandler) result(c echo.Context) error {
	runID := c.Param("run_id")

	rec, err := h.store.Read(c.Request().Context(), runID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, rec)
	case errors.Is(err, runstate.ErrNotFound):
		return c.JSON(http.StatusAccepted, map[string]string{"status": "pending"})
	case errors.Is(err, runstate.ErrCorrupt):
		h.logger.Printf("warn: run %s has corrupt state: %v", runID, err)
		return c.JSON(http.StatusOK, map[string]string{"status": "failed", "error": "Corrupt run data"})
	default:
		return err
	}
}
