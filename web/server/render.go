package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/df07/go-stochastic-raytracer/pkg/output"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
	"github.com/df07/go-stochastic-raytracer/pkg/scene"
)

// ChunkUpdate represents a finished band of rows sent via SSE. Chunks arrive
// in completion order, not top to bottom.
type ChunkUpdate struct {
	StartRow        int    `json:"startRow"`
	EndRow          int    `json:"endRow"`
	Width           int    `json:"width"`
	ImageData       string `json:"imageData"` // Base64 encoded PNG of just these rows
	RowsCompleted   int    `json:"rowsCompleted"`
	TotalRows       int    `json:"totalRows"`
	ChunksCompleted int    `json:"chunksCompleted"`
	TotalChunks     int    `json:"totalChunks"`
}

// CompleteUpdate is sent once the whole image has been rendered
type CompleteUpdate struct {
	Scene            string  `json:"scene"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	SamplesPerPixel  int     `json:"samplesPerPixel"`
	MaxDepth         int     `json:"maxDepth"`
	TotalPixels      int64   `json:"totalPixels"`
	TotalSamples     int64   `json:"totalSamples"`
	SamplesPerSecond float64 `json:"samplesPerSecond"`
	Workers          int     `json:"workers"`
	ElapsedMs        int64   `json:"elapsedMs"`
	PrimitiveCount   int     `json:"primitiveCount"`
	MeanLuminance    float64 `json:"meanLuminance"` // linear, before gamma
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "chunk", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// handleRender renders a scene and streams row chunks via SSE as they finish.
// The render stops when the client disconnects.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	// Single writer goroutine; the handler waits for it before returning
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(w, ctx, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan := make(chan ConsoleMessage, 50)
	var consoleWG sync.WaitGroup
	consoleWG.Add(1)
	go func() {
		defer consoleWG.Done()
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()

	renderLogger := s.renderLogger(consoleChan)
	update, err := s.render(ctx, req, renderLogger, sseEventChan)

	// The render logger is no longer used once render returns
	close(consoleChan)
	consoleWG.Wait()

	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Rendering failed: %v", err))
		return
	}

	data, err := json.Marshal(update)
	if err != nil {
		s.handleError(ctx, sseEventChan, err.Error())
		return
	}
	s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "complete", Data: string(data)})
}

// render builds the requested scene and traces it, sending a chunk event per
// finished band of rows
func (s *Server) render(ctx context.Context, req *RenderRequest, logger *slog.Logger, sseEventChan chan SSEEvent) (CompleteUpdate, error) {
	sceneObj, err := s.createScene(req.Scene, req.Width, req.Seed)
	if err != nil {
		return CompleteUpdate{}, err
	}

	raytracer, config, err := sceneObj.NewRaytracer(scene.RenderSettings{
		SamplesPerPixel: req.Samples,
		MaxDepth:        req.MaxDepth,
		Seed:            req.Seed,
		Integrator:      req.Integrator,
	}, logger)
	if err != nil {
		return CompleteUpdate{}, err
	}

	logger.Info("rendering scene", "scene", sceneObj.Name, "width", config.Width, "height", config.Height,
		"samples", config.SamplesPerPixel, "depth", config.MaxDepth, "integrator", req.Integrator)

	buf, stats, err := raytracer.Render(ctx, renderer.RenderOptions{
		OnChunk: func(chunk renderer.ChunkResult) {
			s.handleChunkUpdate(ctx, sseEventChan, chunk, logger)
		},
	})
	if err != nil {
		return CompleteUpdate{}, err
	}

	return CompleteUpdate{
		Scene:            sceneObj.Name,
		Width:            config.Width,
		Height:           config.Height,
		SamplesPerPixel:  config.SamplesPerPixel,
		MaxDepth:         config.MaxDepth,
		TotalPixels:      stats.TotalPixels,
		TotalSamples:     stats.TotalSamples,
		SamplesPerSecond: stats.SamplesPerSecond(),
		Workers:          stats.Workers,
		ElapsedMs:        stats.Elapsed.Milliseconds(),
		PrimitiveCount:   sceneObj.World.Len(),
		MeanLuminance:    buf.MeanLuminance(),
	}, nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// renderLogger creates a per-render logger feeding the console channel and the server log
func (s *Server) renderLogger(consoleChan chan<- ConsoleMessage) *slog.Logger {
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	return slog.New(NewConsoleHandler(consoleChan, slog.LevelInfo, s.logger.Handler())).
		With("render", renderID)
}

// writeSSEEvents handles writing all SSE events in a single goroutine (thread-safe)
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan <-chan SSEEvent) {
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return
			}
			if flusher != nil {
				flusher.Flush()
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// streamConsoleMessages forwards console messages until the channel is closed
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, sseEventChan chan SSEEvent) {
	for consoleMsg := range consoleChan {
		data, err := json.Marshal(consoleMsg)
		if err != nil {
			s.logger.Warn("failed to marshal console message", "error", err)
			continue
		}
		s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "console", Data: string(data)})
	}
}

// handleChunkUpdate encodes the finished rows and sends them as a chunk event
func (s *Server) handleChunkUpdate(ctx context.Context, sseEventChan chan SSEEvent, chunk renderer.ChunkResult, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}

	strip := output.ToImageRows(chunk.Buffer, chunk.StartRow, chunk.EndRow)
	imageData, err := imageToBase64PNG(strip)
	if err != nil {
		logger.Warn("failed to encode chunk", "startRow", chunk.StartRow, "error", err)
		return
	}

	data, err := json.Marshal(ChunkUpdate{
		StartRow:        chunk.StartRow,
		EndRow:          chunk.EndRow,
		Width:           chunk.Buffer.Width,
		ImageData:       imageData,
		RowsCompleted:   chunk.RowsCompleted,
		TotalRows:       chunk.TotalRows,
		ChunksCompleted: chunk.ChunksCompleted,
		TotalChunks:     chunk.TotalChunks,
	})
	if err != nil {
		logger.Warn("failed to marshal chunk update", "error", err)
		return
	}
	s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "chunk", Data: string(data)})
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := output.Encode(&buf, img, output.FormatPNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// sendEvent queues an event unless the client has gone away
func (s *Server) sendEvent(ctx context.Context, sseEventChan chan SSEEvent, event SSEEvent) {
	select {
	case sseEventChan <- event:
	case <-ctx.Done():
	}
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, sseEventChan chan SSEEvent, message string) {
	s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "error", Data: message})
}
