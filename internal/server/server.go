package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-german-cv/internal/config"
	"github.com/example/go-german-cv/internal/phoneme"
	"github.com/example/go-german-cv/internal/phonemizer"
	"github.com/google/uuid"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Phonemizer is the part of *phonemizer.Phonemizer the handler needs.
type Phonemizer interface {
	Analyze(n phonemizer.Note) phonemizer.Analysis
	ProcessBatch(ctx context.Context, notes []phonemizer.Note, opts phonemizer.BatchOptions) ([]phonemizer.Result, error)
}

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps any request body before decoding.
const maxBodyBytes = 8 << 20

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxLyricBytes   int
	maxBatchNotes   int
	workers         int
	requestTimeout  time.Duration
	defaultDuration int
	legato          bool
	concurrency     int
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		maxLyricBytes:   256,
		maxBatchNotes:   4096,
		workers:         4,
		requestTimeout:  10 * time.Second,
		defaultDuration: 480,
		logger:          slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxLyricBytes sets the maximum lyric length in bytes for a single note.
func WithMaxLyricBytes(n int) Option {
	return func(o *options) { o.maxLyricBytes = n }
}

// WithMaxBatchNotes sets the maximum number of notes in POST /phonemize/batch.
func WithMaxBatchNotes(n int) Option {
	return func(o *options) { o.maxBatchNotes = n }
}

// WithWorkers sets the maximum number of requests phonemized at once.
// Zero or less disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithDefaultDuration sets the duration used when a request omits one.
func WithDefaultDuration(ticks int) Option {
	return func(o *options) { o.defaultDuration = ticks }
}

// WithLegato sets whether batches are linked when the request does not say.
func WithLegato(on bool) Option {
	return func(o *options) { o.legato = on }
}

// WithConcurrency sets the per-batch worker count.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	ph   Phonemizer
	opts options
	sem  chan struct{}
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /inventory,
// POST /phonemize and POST /phonemize/batch.
func NewHandler(ph Phonemizer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		ph:   ph,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/inventory", h.handleInventory)
	mux.HandleFunc("/phonemize", h.withRequestID(h.handlePhonemize))
	mux.HandleFunc("/phonemize/batch", h.withRequestID(h.handleBatch))
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

type requestIDKey struct{}

// withRequestID propagates the caller's X-Request-ID or assigns a new one.
func (h *handler) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, phoneme.Snapshot())
}

type phonemizeRequest struct {
	Lyric     string `json:"lyric" msgpack:"lyric"`
	Duration  *int   `json:"duration" msgpack:"duration"`
	PrevVowel string `json:"prev_vowel" msgpack:"prev_vowel"`
	Explain   bool   `json:"explain" msgpack:"explain"`
}

func (h *handler) handlePhonemize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req phonemizeRequest
	if status, err := h.decode(w, r, &req); err != nil {
		respondError(w, r, status, err.Error())
		return
	}

	if req.Lyric == "" {
		respondError(w, r, http.StatusBadRequest, "lyric field is required")
		return
	}

	if len(req.Lyric) > h.opts.maxLyricBytes {
		respondError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("lyric exceeds maximum size of %d bytes", h.opts.maxLyricBytes))
		return
	}

	note := phonemizer.Note{Lyric: req.Lyric, Duration: h.opts.defaultDuration, PrevVowel: req.PrevVowel}
	if req.Duration != nil {
		note.Duration = *req.Duration
	}
	if note.Duration < 0 {
		respondError(w, r, http.StatusBadRequest, "duration must not be negative")
		return
	}

	release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	start := time.Now()
	a := h.ph.Analyze(note)

	h.log.InfoContext(r.Context(), "phonemize complete",
		slog.String("request_id", requestID(r.Context())),
		slog.Int("lyric_len", len(req.Lyric)),
		slog.Int("phonemes", len(a.Phonemes)),
		slog.Bool("passthrough", a.Passthrough),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if req.Explain {
		respond(w, r, http.StatusOK, a)
		return
	}
	respond(w, r, http.StatusOK, a.Result)
}

type batchRequest struct {
	Notes []phonemizer.Note `json:"notes" msgpack:"notes"`
	// Duration fills in notes with no duration of their own.
	Duration *int  `json:"duration" msgpack:"duration"`
	Legato   *bool `json:"legato" msgpack:"legato"`
}

type batchResponse struct {
	Results []phonemizer.Result `json:"results" msgpack:"results"`
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req batchRequest
	if status, err := h.decode(w, r, &req); err != nil {
		respondError(w, r, status, err.Error())
		return
	}

	if len(req.Notes) > h.opts.maxBatchNotes {
		respondError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds maximum of %d notes", h.opts.maxBatchNotes))
		return
	}

	fill := h.opts.defaultDuration
	if req.Duration != nil {
		fill = *req.Duration
	}
	for i := range req.Notes {
		n := &req.Notes[i]
		if len(n.Lyric) > h.opts.maxLyricBytes {
			respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("note %d: lyric exceeds maximum size of %d bytes", i, h.opts.maxLyricBytes))
			return
		}
		if n.Duration == 0 {
			n.Duration = fill
		}
		if n.Duration < 0 {
			respondError(w, r, http.StatusBadRequest, fmt.Sprintf("note %d: duration must not be negative", i))
			return
		}
	}

	legato := h.opts.legato
	if req.Legato != nil {
		legato = *req.Legato
	}

	release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	results, err := h.ph.ProcessBatch(ctx, req.Notes, phonemizer.BatchOptions{
		Legato:      legato,
		Concurrency: h.opts.concurrency,
	})
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.WarnContext(r.Context(), "batch timed out",
				slog.String("request_id", requestID(r.Context())),
				slog.Int("notes", len(req.Notes)),
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
			respondError(w, r, http.StatusGatewayTimeout, "phonemization timed out")
			return
		}
		h.log.ErrorContext(r.Context(), "batch failed",
			slog.String("request_id", requestID(r.Context())),
			slog.Int("notes", len(req.Notes)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "batch complete",
		slog.String("request_id", requestID(r.Context())),
		slog.Int("notes", len(req.Notes)),
		slog.Bool("legato", legato),
		slog.Int64("duration_ms", durationMS),
	)

	if results == nil {
		results = []phonemizer.Result{}
	}
	respond(w, r, http.StatusOK, batchResponse{Results: results})
}

// decode reads a size-capped request body. The returned status applies when
// err is non-nil.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	if r.Body == nil {
		return http.StatusBadRequest, errors.New("request body is required")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := decodeBody(r, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return http.StatusBadRequest, err
	}
	return 0, nil
}

// acquire takes a worker slot, honouring cancellation while waiting.
// On failure it has already written the response.
func (h *handler) acquire(w http.ResponseWriter, r *http.Request) (release func(), ok bool) {
	if h.sem == nil {
		return func() {}, true
	}
	select {
	case h.sem <- struct{}{}:
		return func() { <-h.sem }, true
	case <-r.Context().Done():
		respondError(w, r, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return nil, false
	}
}

// ---------------------------------------------------------------------------
// Server wires the handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	ph              Phonemizer
	shutdownTimeout time.Duration
}

// New returns a Server for cfg. A nil ph gets a default phonemizer.
func New(cfg config.Config, ph *phonemizer.Phonemizer) *Server {
	if ph == nil {
		ph = phonemizer.New()
	}
	return &Server{
		cfg:             cfg,
		ph:              ph,
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

// HandlerOptions maps the config to handler options.
func HandlerOptions(cfg config.Config) []Option {
	return []Option{
		WithWorkers(cfg.Server.Workers),
		WithMaxLyricBytes(cfg.Server.MaxLyricBytes),
		WithMaxBatchNotes(cfg.Server.MaxBatchNotes),
		WithRequestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second),
		WithDefaultDuration(cfg.Phonemizer.DefaultDuration),
		WithLegato(cfg.Phonemizer.Legato),
		WithConcurrency(cfg.Phonemizer.Concurrency),
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           NewHandler(s.ph, HandlerOptions(s.cfg)...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
