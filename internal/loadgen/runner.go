// Package loadgen drives synthetic evaluation traffic against a flag service
// and relays every evaluation result to an indexing endpoint.
//
// One Runner owns one flow of control. Each iteration blocks on the evaluation
// call, prints its latency and body, forwards the body untouched, and prints
// the indexer's reply. Nothing is retried and no status code is inspected.
package loadgen

import (
	"context"
	"fmt"
	"io"
	"net/http/httptrace"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/TimurManjosov/flagr-loadgen/internal/payload"
	"github.com/TimurManjosov/flagr-loadgen/internal/target"
	"github.com/TimurManjosov/flagr-loadgen/internal/telemetry"
)

const (
	// EvaluationPath is where generated requests are sent.
	EvaluationPath = "/api/v1/evaluation"
	// RecordsPath is where evaluation results are forwarded for indexing.
	RecordsPath = "/flagr/flagr-records"

	TargetEval  = "eval"
	TargetIndex = "index"
)

// Poster sends a JSON body to a path on one target. *target.Conn implements it.
type Poster interface {
	Post(ctx context.Context, path string, body []byte) (target.Response, error)
}

// Config bounds a run.
type Config struct {
	MaxIterations int // 0 runs until the context is cancelled
}

// Iteration is what one Step produced.
type Iteration struct {
	Seq          uint64
	Request      payload.EvaluationRequest
	Latency      time.Duration // evaluation round trip, dispatch to full body read
	IndexLatency time.Duration
	Eval         target.Response
	Index        target.Response
}

// Runner is the load generator.
type Runner struct {
	cfg   Config
	eval  Poster
	index Poster
	out   io.Writer
	gen   *payload.Generator
	log   zerolog.Logger
	stats *Stats
	runID string

	state atomic.Int32
	seq   uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithGenerator replaces the time-seeded payload generator.
func WithGenerator(g *payload.Generator) Option {
	return func(r *Runner) { r.gen = g }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithStats collects per-target latencies into s.
func WithStats(s *Stats) Option {
	return func(r *Runner) { r.stats = s }
}

// New returns a Runner that evaluates against eval, indexes into index and prints to out.
func New(cfg Config, eval, index Poster, out io.Writer, opts ...Option) *Runner {
	r := &Runner{
		cfg:   cfg,
		eval:  eval,
		index: index,
		out:   out,
		log:   zerolog.Nop(),
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gen == nil {
		r.gen = payload.NewSeededGenerator(0)
	}
	r.log = r.log.With().Str("component", "loadgen").Str("run_id", r.runID).Logger()
	return r
}

// State reports the phase the runner is in.
func (r *Runner) State() State {
	return State(r.state.Load())
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	telemetry.LoopState.Set(float64(s))
}

// Run repeats Step until the context is cancelled, MaxIterations is reached,
// or a request fails. A failed request ends the run with its error; cancellation
// ends it cleanly between iterations.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info().Int("max_iterations", r.cfg.MaxIterations).Msg("load generator started")

	for r.cfg.MaxIterations == 0 || int(r.seq) < r.cfg.MaxIterations {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.Step(ctx); err != nil {
			r.log.Error().Err(err).Uint64("completed", r.seq).Str("state", r.State().String()).Msg("load generator failed")
			return err
		}
	}

	r.log.Info().Uint64("completed", r.seq).Msg("load generator stopped")
	return nil
}

// Step performs one iteration. Requests are not cancelled by ctx once
// dispatched; only its values are carried.
func (r *Runner) Step(ctx context.Context) (Iteration, error) {
	ctx = context.WithoutCancel(ctx)

	r.setState(Generating)
	req := r.gen.Next()
	body, err := req.Marshal()
	if err != nil {
		return Iteration{}, err
	}
	it := Iteration{Seq: r.seq + 1, Request: req}

	r.setState(AwaitingEval)
	start := time.Now()
	it.Eval, err = r.eval.Post(ctx, EvaluationPath, body)
	it.Latency = time.Since(start)
	if err != nil {
		telemetry.ObserveTransportError(TargetEval)
		return it, fmt.Errorf("evaluation request: %w", err)
	}
	r.observe(TargetEval, it.Eval.StatusCode, it.Latency)

	if _, err := fmt.Fprintf(r.out, "%sms\n", formatMillis(it.Latency)); err != nil {
		return it, fmt.Errorf("write output: %w", err)
	}
	if _, err := fmt.Fprintln(r.out, string(it.Eval.Body)); err != nil {
		return it, fmt.Errorf("write output: %w", err)
	}

	r.setState(ForwardingIndex)
	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) { r.setState(AwaitingIndex) },
	}
	start = time.Now()
	it.Index, err = r.index.Post(httptrace.WithClientTrace(ctx, trace), RecordsPath, it.Eval.Body)
	it.IndexLatency = time.Since(start)
	if err != nil {
		telemetry.ObserveTransportError(TargetIndex)
		return it, fmt.Errorf("index request: %w", err)
	}
	r.setState(AwaitingIndex)
	r.observe(TargetIndex, it.Index.StatusCode, it.IndexLatency)

	if _, err := fmt.Fprintln(r.out, string(it.Index.Body)); err != nil {
		return it, fmt.Errorf("write output: %w", err)
	}

	r.seq = it.Seq
	telemetry.Iterations.Inc()
	if r.stats != nil {
		r.stats.iteration()
	}

	if e := r.log.Debug(); e.Enabled() {
		e.Uint64("seq", it.Seq).
			Str("entity_id", req.EntityID).
			Int("eval_status", it.Eval.StatusCode).
			Int("index_status", it.Index.StatusCode).
			Dur("latency", it.Latency).
			Str("variant", gjson.GetBytes(it.Eval.Body, "variantKey").String()).
			Str("body_xxh64", strconv.FormatUint(xxhash.Sum64(it.Eval.Body), 16)).
			Msg("iteration complete")
	}

	return it, nil
}

func (r *Runner) observe(name string, status int, d time.Duration) {
	telemetry.ObserveRequest(name, status, d)
	if r.stats != nil {
		r.stats.Record(name, status, d)
	}
}

// formatMillis renders d in fractional milliseconds at full clock resolution.
func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', -1, 64)
}
