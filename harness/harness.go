package harness

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/engine"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/hostenv"
)

// DefaultTimeout bounds a single invocation unless configured otherwise.
const DefaultTimeout = 10 * time.Second

// Config controls invocation.
type Config struct {
	// Console is redirected into Outcome.Output for the duration of each
	// call. nil leaves output uncaptured.
	Console *hostenv.Console
	Logger  *zap.Logger
	// Timeout bounds each call. 0 disables the deadline; it is only
	// enforced by engines that abort on context expiry.
	Timeout time.Duration
	// Isolate runs every export after the first on a fresh instance.
	Isolate bool
}

// Target is the instantiated module under test.
type Target struct {
	Instance engine.Instance
	// Spawn creates a fresh instance of the same module. Required when
	// isolating.
	Spawn func(ctx context.Context) (engine.Instance, error)
}

// Harness invokes function exports one at a time.
type Harness struct {
	logger *zap.Logger
	cfg    Config
}

// New creates a harness.
func New(cfg Config) *Harness {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{cfg: cfg, logger: logger}
}

// Run invokes every function export in order with zero arguments. Other
// export kinds are skipped. A failure in one export never stops the rest.
func (h *Harness) Run(ctx context.Context, target *Target, exports []wasmcheck.ExportDescriptor) []Outcome {
	var outcomes []Outcome
	first := true

	for _, exp := range exports {
		if exp.Kind != wasmcheck.KindFunction {
			continue
		}
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, failed(NotInvocable, errors.NotInvocable(exp.Name, "run canceled", err)))
			continue
		}

		if first || !h.cfg.Isolate || target.Spawn == nil {
			first = false
			outcomes = append(outcomes, h.Invoke(ctx, target.Instance, exp.Name))
			continue
		}

		inst, err := target.Spawn(ctx)
		if err != nil {
			outcomes = append(outcomes, failed(NotInvocable, errors.NotInvocable(exp.Name, "instantiate", err)))
			continue
		}
		outcomes = append(outcomes, h.Invoke(ctx, inst, exp.Name))
		if err := inst.Close(ctx); err != nil {
			h.logger.Debug("close instance", zap.String("export", exp.Name), zap.Error(err))
		}
	}

	return outcomes
}

// Invoke calls one export on inst, supplying zero for every parameter.
func (h *Harness) Invoke(ctx context.Context, inst engine.Instance, name string) Outcome {
	return h.Call(ctx, inst, name, nil)
}

// Call invokes name with raw-encoded params. Missing trailing params are
// zero; extra ones make the export not invocable.
func (h *Harness) Call(ctx context.Context, inst engine.Instance, name string, params []uint64) Outcome {
	if inst.Closed() {
		return failed(NotInvocable, errors.NotInvocable(name, "instance closed by an earlier call", nil))
	}
	fn, ok := inst.Function(name)
	if !ok {
		return failed(NotInvocable, errors.NotInvocable(name, fmt.Sprintf("no function export named %q", name), nil))
	}
	n := len(fn.ParamTypes())
	if len(params) > n {
		return failed(NotInvocable, errors.NotInvocable(name, fmt.Sprintf("takes %d params, got %d", n, len(params)), nil))
	}
	params = append(params[:len(params):len(params)], make([]uint64, n-len(params))...)

	callCtx := ctx
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	var captured bytes.Buffer
	if h.cfg.Console != nil {
		prev := h.cfg.Console.Redirect(&captured)
		defer h.cfg.Console.Redirect(prev)
	}

	start := time.Now()
	results, err := fn.Call(callCtx, params...)
	h.logger.Debug("invoked",
		zap.String("export", name),
		zap.Int("params", len(params)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	out := h.classify(callCtx, name, fn, results, err)
	out.Output = captured.String()
	return out
}

func (h *Harness) classify(ctx context.Context, name string, fn engine.Function, results []uint64, err error) Outcome {
	if err == nil {
		return Outcome{Name: name, Status: Returned, Value: RenderValues(fn.ResultTypes(), results)}
	}

	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		switch code := exitErr.ExitCode(); {
		case code == sys.ExitCodeDeadlineExceeded || stderrors.Is(ctx.Err(), context.DeadlineExceeded):
			e := errors.Timeout(name, nil)
			e.Detail = fmt.Sprintf("deadline of %s exceeded", h.cfg.Timeout)
			e.Value = err
			return failed(Trapped, e)
		case code == sys.ExitCodeContextCanceled:
			return failed(Trapped, errors.Trap(name, context.Canceled))
		case code == 0:
			return Outcome{Name: name, Status: Returned, Value: Unit}
		default:
			return failed(Trapped, errors.Exit(name, code))
		}
	}

	return failed(Trapped, errors.Trap(name, err))
}

func failed(status Status, err *errors.Error) Outcome {
	name := ""
	if len(err.Path) > 0 {
		name = err.Path[0]
	}
	return Outcome{Name: name, Status: status, Reason: firstLine(err.Reason()), Err: err}
}

// firstLine drops the engine's stack trace from trap messages.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
