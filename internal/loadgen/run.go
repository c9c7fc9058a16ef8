package loadgen

import (
	"context"
	"io"

	"go.uber.org/multierr"

	"github.com/TimurManjosov/flagr-loadgen/internal/target"
)

// Targets are the base URLs of the two services a run talks to.
type Targets struct {
	EvalAddr  string
	IndexAddr string
}

// Run dials both targets, runs the load generator over them and closes them
// again on every exit path. A dial failure ends the run before any request.
func Run(ctx context.Context, cfg Config, targets Targets, out io.Writer, opts ...Option) (err error) {
	r := New(cfg, nil, nil, out, opts...)

	eval, err := target.Dial(ctx, TargetEval, targets.EvalAddr)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(eval))

	index, err := target.Dial(ctx, TargetIndex, targets.IndexAddr)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(index))

	r.log.Info().
		Str("eval_addr", eval.Addr()).
		Str("index_addr", index.Addr()).
		Msg("targets connected")

	r.eval, r.index = eval, index
	return r.Run(ctx)
}
