// Package http implements the HTTP transport for ransom.
//
// This transport exposes a small REST API: POST /render turns text into a
// WAV collage (or its score), GET /voices lists the voice registry. The
// OpenAPI docs are served under /swagger/.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nadzzz/ransom/internal/dispatch"
	"github.com/nadzzz/ransom/internal/message"
	"github.com/nadzzz/ransom/internal/transport"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port  int
	ready atomic.Bool

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// SetReady toggles whether /render accepts requests.
func (t *Transport) SetReady(ready bool) { t.ready.Store(ready) }

// Handler builds the request router around svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	mux := http.NewServeMux()

	// POST /render: accepts text, returns audio or a score.
	mux.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		t.handleRender(w, r, svc)
	})

	// GET /voices: lists the voice registry.
	mux.HandleFunc("GET /voices", func(w http.ResponseWriter, r *http.Request) {
		t.handleVoices(w, r, svc)
	})

	// Swagger UI: serves the OpenAPI docs registered by package docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// Listen starts the HTTP server and routes incoming requests to svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleRender processes a POST /render request.
//
// @Summary     Render text as a ransom note collage
// @Description Every distinct word is spoken by a voice picked from the registry, and the clips are
// @Description laid end to end and rendered by csound. Words whose synthesis fails become tones.
// @Description With mode "audio" (default) the WAV is returned as the body unless the client accepts
// @Description application/json, in which case it is base64-encoded in the result.
// @Tags        render
// @Accept      json
// @Accept      plain
// @Produce     audio/wav
// @Produce     json
// @Param       request  body      message.RenderRequest  true  "Render request (JSON). A text/plain body is taken as the text."
// @Param       mode     query     string                 false "audio, score or sketch"
// @Success     200  {object}  message.RenderResult  "Render result"
// @Failure     400  {string}  string  "Invalid request body"
// @Failure     500  {object}  message.RenderResult  "Session failed"
// @Failure     503  {string}  string  "Not ready"
// @Router      /render [post]
func (t *Transport) handleRender(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	if !t.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := svc.Handle(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dispatch.ErrNoText) {
			status = http.StatusBadRequest
		}
		http.Error(w, "render error: "+err.Error(), status)
		return
	}

	if result.Error != "" {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	if result.Audio != "" && !acceptsJSON(r) {
		audio, err := result.AudioBytes()
		if err != nil {
			http.Error(w, "decoding audio: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("X-Ransom-Words", strconv.Itoa(result.Words))
		w.Header().Set("X-Ransom-Fallbacks", strconv.Itoa(result.Fallbacks))
		w.Header().Set("X-Ransom-Seconds", strconv.FormatFloat(result.Seconds, 'f', -1, 64))
		_, _ = w.Write(audio)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleVoices processes a GET /voices request.
//
// @Summary     List voices
// @Description Enumerates the configured backends in order and returns every voice found.
// @Tags        voices
// @Produce     json
// @Success     200  {object}  message.VoiceList  "Voice registry"
// @Failure     500  {string}  string  "Enumeration failed"
// @Router      /voices [get]
func (t *Transport) handleVoices(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	list, err := svc.Voices(r.Context())
	if err != nil {
		slog.Error("listing voices failed", "error", err)
		http.Error(w, "voices error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func decodeRequest(r *http.Request) (*message.RenderRequest, error) {
	var req message.RenderRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	body := io.LimitReader(r.Body, maxBody)
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	default:
		// Treat the body as the text itself.
		text, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		req.Text = string(text)
		req.Source = r.Header.Get("X-Ransom-Source")
	}

	if mode := r.URL.Query().Get("mode"); mode != "" {
		req.Mode = message.Mode(mode)
	}
	switch req.Mode {
	case "", message.ModeAudio, message.ModeScore, message.ModeSketch:
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}
	req.Timestamp = time.Now()
	return &req, nil
}

func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
