// Package mocktarget provides stand-ins for the flag evaluation service and the
// search indexer, so the load generator can be exercised without either.
package mocktarget

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/flagr-loadgen/internal/telemetry"
)

const (
	DefaultFlagID  int64 = 2
	DefaultFlagKey       = "loadgen_demo"
	DefaultSalt          = "flagr-loadgen"

	notFoundMsg = "flagID/flagKey not found or deleted"
)

// Server answers evaluation and indexing requests.
type Server struct {
	flagID   int64
	flagKey  string
	salt     string
	variants []Variant
	delay    time.Duration
	log      zerolog.Logger
	now      func() time.Time

	evaluated  atomic.Int64
	indexed    atomic.Int64
	lastDigest atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithFlag sets the single flag the evaluation mock knows about.
func WithFlag(id int64, key string) Option {
	return func(s *Server) { s.flagID, s.flagKey = id, key }
}

// WithSalt sets the bucketing salt.
func WithSalt(salt string) Option {
	return func(s *Server) { s.salt = salt }
}

// WithVariants replaces DefaultVariants. Weights must sum to 100.
func WithVariants(v []Variant) Option {
	return func(s *Server) { s.variants = v }
}

// WithDelay makes every evaluation take at least d.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New returns a Server with the demo flag and an even two-way split.
func New(opts ...Option) *Server {
	s := &Server{
		flagID:   DefaultFlagID,
		flagKey:  DefaultFlagKey,
		salt:     DefaultSalt,
		variants: DefaultVariants,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "mocktarget").Logger()
	return s
}

// Evaluated returns how many evaluations were answered.
func (s *Server) Evaluated() int64 { return s.evaluated.Load() }

// Indexed returns how many records were accepted.
func (s *Server) Indexed() int64 { return s.indexed.Load() }

// LastDigest returns the xxhash64 of the most recently indexed body.
func (s *Server) LastDigest() uint64 { return s.lastDigest.Load() }

// EvalRouter serves POST /api/v1/evaluation.
func (s *Server) EvalRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, telemetry.Middleware)

	r.Get("/healthz", handleHealth)
	r.Post("/api/v1/evaluation", s.handleEvaluation)
	return r
}

// IndexRouter serves POST /{index}/{type}, e.g. /flagr/flagr-records.
func (s *Server) IndexRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, telemetry.Middleware)

	r.Get("/healthz", handleHealth)
	r.Post("/{index}/{type}", s.handleIndex)
	return r
}

// Serve listens on both addresses until ctx is done or either server fails.
func (s *Server) Serve(ctx context.Context, evalAddr, indexAddr string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{
		{Addr: evalAddr, Handler: s.EvalRouter(), ReadHeaderTimeout: 3 * time.Second, IdleTimeout: 60 * time.Second},
		{Addr: indexAddr, Handler: s.IndexRouter(), ReadHeaderTimeout: 3 * time.Second, IdleTimeout: 60 * time.Second},
	} {
		g.Go(func() error {
			s.log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctxShut)
		})
	}
	return g.Wait()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type evalRequest struct {
	EntityID      string         `json:"entityID"`
	EntityType    string         `json:"entityType"`
	EntityContext map[string]any `json:"entityContext"`
	FlagID        int64          `json:"flagID"`
	FlagKey       string         `json:"flagKey"`
	EnableDebug   bool           `json:"enableDebug"`
}

func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "request body must be a JSON object")
		return
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	result := EvalResult{
		FlagID:  req.FlagID,
		FlagKey: req.FlagKey,
		EvalContext: EvalContext{
			EntityID:      req.EntityID,
			EntityType:    req.EntityType,
			EntityContext: req.EntityContext,
			FlagID:        req.FlagID,
			EnableDebug:   req.EnableDebug,
		},
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}

	known := req.FlagID == s.flagID || (req.FlagID == 0 && req.FlagKey == s.flagKey)
	switch {
	case !known:
		result.EvalDebugLog = &EvalDebugLog{Msg: notFoundMsg}
	default:
		result.FlagID, result.FlagKey, result.FlagSnapshotID = s.flagID, s.flagKey, 1
		bucket := bucketEntity(req.EntityID, s.flagKey, s.salt)
		if v, ok := pickVariant(s.variants, bucket); ok {
			result.SegmentID = 1
			result.VariantID = v.ID
			result.VariantKey = v.Key
			result.VariantAttachment = json.RawMessage(`{}`)
		}
		if req.EnableDebug {
			result.EvalDebugLog = &EvalDebugLog{SegmentDebugLogs: []SegmentDebugLog{
				{SegmentID: 1, Msg: debugMsg(bucket)},
			}}
		}
	}

	s.evaluated.Add(1)
	s.log.Debug().
		Str("entity_id", req.EntityID).
		Int64("flag_id", req.FlagID).
		Str("variant", result.VariantKey).
		Msg("evaluated")
	writeJSON(w, http.StatusOK, result)
}

func debugMsg(bucket int) string {
	if bucket < 0 {
		return "missing entityID, rollout skipped"
	}
	return "matched all constraints. rollout yes. bucket " + strconv.Itoa(bucket)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "failed to read body")
		return
	}
	if !json.Valid(body) {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "failed to parse document")
		return
	}

	count := s.indexed.Add(1)
	s.lastDigest.Store(xxhash.Sum64(body))
	telemetry.IndexedRecords.Set(float64(count))

	writeJSON(w, http.StatusCreated, IndexResult{
		Index:   chi.URLParam(r, "index"),
		ID:      uuid.NewString(),
		Result:  "created",
		Version: 1,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
