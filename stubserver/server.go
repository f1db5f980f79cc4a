// ABOUTME: Local stand-in for the remix backend with the same routes and payloads
// ABOUTME: Renders synthetic WAV artifacts under /static so the client can run end to end

// Package stubserver serves /api/search, /api/remix, /api/create and
// /api/genres with deterministic fake results, plus /static artifact files.
package stubserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"remix-studio/waveform"
)

const (
	defaultMaxResults = 10
	maxUploadMemory   = 64 << 20
	outputSubdir      = "output"
	artifactSeconds   = 4
	artifactRate      = 22050
)

// Options configures the stub backend
type Options struct {
	StaticDir   string        // Root served under /static/
	Genres      []string      // Genres reported by /api/genres and accepted by /api/remix
	VoiceStyles []string      // Accepted voice_style values; empty accepts any
	Delay       time.Duration // Simulated processing time for remix and create
	Logger      *zap.Logger
}

// Server is the stub backend
type Server struct {
	opts    Options
	log     *zap.Logger
	handler http.Handler
}

// New creates the server and its output directory
func New(opts Options) (*Server, error) {
	if opts.StaticDir == "" {
		return nil, errors.New("static directory is required")
	}

	if len(opts.Genres) == 0 {
		opts.Genres = []string{"Rock", "Electro", "Jazz", "Hip-Hop", "Lo-Fi"}
	}

	if err := os.MkdirAll(filepath.Join(opts.StaticDir, outputSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{opts: opts, log: log}
	s.handler = s.routes()

	return s, nil
}

// Handler returns the root HTTP handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	api.HandleFunc("/remix", s.handleRemix).Methods(http.MethodPost)
	api.HandleFunc("/create", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/genres", s.handleGenres).Methods(http.MethodGet)

	router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir))))

	router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions, http.MethodHead},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("stub backend listening", zap.String("addr", addr), zap.String("static", s.opts.StaticDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("stub backend stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

type searchBody struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid search body")
		return
	}

	limit := body.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	query := strings.TrimSpace(body.Query)
	results := make([]searchItem, 0, limit)

	if query != "" {
		for i := range limit {
			id := catalogID(query, i)
			results = append(results, searchItem{
				ID:        id,
				Title:     fmt.Sprintf("%s (take %d)", query, i+1),
				Thumbnail: "/static/thumbnails/" + id + ".jpg",
				Channel:   "Stub Channel",
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type remixBody struct {
	VideoID string `json:"video_id"`
	Genre   string `json:"genre"`
}

func (s *Server) handleRemix(w http.ResponseWriter, r *http.Request) {
	var body remixBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoID == "" || body.Genre == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "video_id and genre are required")
		return
	}

	idx := slices.IndexFunc(s.opts.Genres, func(g string) bool { return strings.EqualFold(g, body.Genre) })
	if idx < 0 {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Unsupported genre: %s", body.Genre))
		return
	}

	if !s.wait(r.Context()) {
		return
	}

	name := fmt.Sprintf("%s_%s_remix.wav", safeName(body.VideoID), safeName(body.Genre))
	tone := waveform.Tone{
		Frequency:  220 * float64(idx+1),
		Seconds:    artifactSeconds,
		SampleRate: artifactRate,
		Swell:      0.5 + float64(idx)*0.25,
	}

	url, err := s.writeArtifact(name, func(f io.Writer) error { return waveform.WriteTone(f, tone) })
	if err != nil {
		s.log.Error("remix render failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "multipart form required")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "files are required")
		return
	}

	var ratios []float64
	if err := json.Unmarshal([]byte(r.FormValue("mix_ratios")), &ratios); err != nil {
		writeDetail(w, http.StatusBadRequest, "mix_ratios must be a JSON array of numbers")
		return
	}

	if len(ratios) != len(files) {
		writeDetail(w, http.StatusBadRequest, "Number of tracks must match number of mix ratios")
		return
	}

	for _, ratio := range ratios {
		if ratio < 0 || ratio > 1 {
			writeDetail(w, http.StatusBadRequest, "mix ratios must be within [0, 1]")
			return
		}
	}

	lyrics := strings.TrimSpace(r.FormValue("lyrics"))
	voice := r.FormValue("voice_style")

	if lyrics != "" && len(s.opts.VoiceStyles) > 0 && !slices.Contains(s.opts.VoiceStyles, voice) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Unsupported voice style: %s", voice))
		return
	}

	signals := make([]waveform.PCM, 0, len(files)+1)

	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}

		data, err := io.ReadAll(f)
		_ = f.Close()

		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}

		signals = append(signals, stemSignal(data, i))
	}

	if lyrics != "" {
		// Vocals sit under the instrumental mix
		signals = append(signals, stemSignal(nil, len(files)+3))
		ratios = append(ratios, 0.3)
	}

	if !s.wait(r.Context()) {
		return
	}

	mixed, err := waveform.Mix(signals, ratios)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	name := fmt.Sprintf("creation_%s.wav", uuid.NewString())

	url, err := s.writeArtifact(name, func(f io.Writer) error { return waveform.WritePCM(f, mixed) })
	if err != nil {
		s.log.Error("creation render failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.log.Info("creation rendered",
		zap.Int("tracks", len(files)),
		zap.Bool("vocals", lyrics != ""),
		zap.String("url", url))

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"genres": s.opts.Genres})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeDetail(w, http.StatusNotFound, "API endpoint not found")
		return
	}

	writeDetail(w, http.StatusNotFound, "Not Found")
}

// wait applies the simulated processing delay; false means the client went away
func (s *Server) wait(ctx context.Context) bool {
	if s.opts.Delay <= 0 {
		return true
	}

	select {
	case <-time.After(s.opts.Delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// writeArtifact renders into the output directory and returns its /static URL
func (s *Server) writeArtifact(name string, render func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}

	path := filepath.Join(s.opts.StaticDir, outputSubdir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return "/static/" + outputSubdir + "/" + name, nil
}

// stemSignal decodes an uploaded WAV at the artifact rate, otherwise substitutes a tone
func stemSignal(data []byte, index int) waveform.PCM {
	if pcm, err := waveform.DecodeWAV(data); err == nil && len(pcm.Samples) > 0 && pcm.SampleRate == artifactRate {
		return pcm
	}

	var buf bytes.Buffer

	_ = waveform.WriteTone(&buf, waveform.Tone{
		Frequency:  330 + 110*float64(index),
		Seconds:    artifactSeconds,
		SampleRate: artifactRate,
		Swell:      0.75,
	})

	pcm, _ := waveform.DecodeWAV(buf.Bytes())

	return pcm
}

// catalogID derives a stable 11 character id from the query and position
func catalogID(query string, i int) string {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", strings.ToLower(query), i)))
	return strings.ReplaceAll(u.String(), "-", "")[:11]
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("elapsed", time.Since(start)))
	})
}
