package httpserver

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rkpcode/Real-time-Transcription-Intelligence-Engine/internal/pipeline"
)

// maxAudioChunk caps a single POSTed audio chunk. A second of 16 kHz
// 16-bit mono audio is 32000 bytes; anything much larger is a client bug.
const maxAudioChunk = 1 << 20

// PipelineController is the slice of the coordinator the HTTP layer
// drives; satisfied by *pipeline.Coordinator.
type PipelineController interface {
	Start(ctx context.Context) error
	Stop()
	FeedPCM(pcm []byte) error
	State() pipeline.State
}

// Observer attaches WebSocket connections; satisfied by hub.Hub.
type Observer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

type Handlers struct {
	Pipeline PipelineController
	Hub      Observer
}

// NewHandlers builds the handler set around a live coordinator and hub.
func NewHandlers(p PipelineController, h Observer) Handlers {
	return Handlers{Pipeline: p, Hub: h}
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws", h.websocket)
	e.POST("/pipeline/start", h.startPipeline)
	e.POST("/pipeline/stop", h.stopPipeline)
	e.POST("/audio", h.ingestAudio)
}

func (h Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"pipeline":  h.Pipeline.State().String(),
		"observers": h.Hub.ClientCount(),
	})
}

func (h Handlers) websocket(c echo.Context) error {
	h.Hub.ServeWS(c.Response(), c.Request())
	return nil
}

func (h Handlers) startPipeline(c echo.Context) error {
	// The pipeline outlives the request, so it cannot run on the
	// request context.
	if err := h.Pipeline.Start(context.Background()); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "started"})
}

func (h Handlers) stopPipeline(c echo.Context) error {
	h.Pipeline.Stop()
	return c.JSON(http.StatusOK, map[string]string{"status": "stopped"})
}

// ingestAudio accepts a raw PCM chunk (16 kHz, 16-bit LE, mono) in the
// request body and forwards it to the live pipeline.
func (h Handlers) ingestAudio(c echo.Context) error {
	pcm, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAudioChunk))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cannot read body"})
	}
	if len(pcm) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty audio chunk"})
	}
	if err := h.Pipeline.FeedPCM(pcm); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusAccepted)
}
