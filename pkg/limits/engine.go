package limits

import (
	"context"
	"sync/atomic"
	"time"

	"strato-hq/tollgate/pkg/limits/storage"
)

// FinalVerdict is the aggregate decision for one request across every
// matched definition.
type FinalVerdict struct {
	// Allowed is true iff every matched definition allowed the request.
	Allowed bool

	// RetryAfter is how long the caller must wait before the request could
	// succeed: the longest of the denying buckets' rollover delays, since
	// every exceeded bucket has to clear. Zero when allowed.
	RetryAfter time.Duration

	// Verdicts holds the per-definition outcomes, in definition order.
	Verdicts []Verdict
}

// Remaining returns the smallest remaining quota across the allowed
// verdicts, or -1 when no definition matched. Response headers report this
// as the most restrictive remaining budget.
func (v FinalVerdict) Remaining() int64 {
	if len(v.Verdicts) == 0 {
		return -1
	}
	remaining := int64(-1)
	for _, vd := range v.Verdicts {
		if !vd.Allowed {
			return 0
		}
		if remaining < 0 || vd.Remaining < remaining {
			remaining = vd.Remaining
		}
	}
	return remaining
}

// Engine is the per-request decision engine: class resolution, limit
// matching, quota accounting and verdict aggregation.
//
// The engine holds no mutable request state; the definition set is swapped
// atomically on reload and all counter contention is resolved inside the
// ledger, so Check may be called from any number of goroutines.
type Engine struct {
	resolver   *Resolver
	accountant *Accountant
	defs       atomic.Pointer[[]*Definition]
	metrics    *Metrics
	now        func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the engine's clock. Tests use this; production code
// should not.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given stores with an initial
// definition set. Definitions must already be validated (the loader does
// this).
func NewEngine(classes storage.ClassStore, ledger storage.Ledger, defs []*Definition, opts ...EngineOption) *Engine {
	e := &Engine{
		resolver:   NewResolver(classes, DefaultClass),
		accountant: NewAccountant(ledger),
		now:        time.Now,
	}
	e.defs.Store(&defs)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Definitions returns the current definition set.
func (e *Engine) Definitions() []*Definition {
	return *e.defs.Load()
}

// Reload atomically replaces the definition set. In-flight requests keep the
// set they started with; bucket keys are UUID-scoped, so counters for
// unchanged rules carry across the swap.
func (e *Engine) Reload(defs []*Definition) {
	e.defs.Store(&defs)
}

// Check produces the final verdict for a request using the engine's clock.
func (e *Engine) Check(ctx context.Context, req Request) (FinalVerdict, error) {
	return e.CheckAt(ctx, req, e.now())
}

// CheckAt produces the final verdict for a request at an explicit instant.
//
// Every matched definition is accounted even after the first denial: quota
// consumption is one request, once, against every applicable bucket, which
// keeps the side effects independent of definition order. A store failure
// aborts the request with an error wrapping storage.ErrUnavailable — never a
// partial verdict, and never a silent allow.
func (e *Engine) CheckAt(ctx context.Context, req Request, now time.Time) (FinalVerdict, error) {
	started := e.now()

	class, err := e.resolver.Resolve(ctx, req.TenantID)
	if err != nil {
		e.metrics.observeError("resolve")
		return FinalVerdict{}, err
	}
	req.RateClass = class

	matched := Match(e.Definitions(), req)
	if len(matched) == 0 {
		e.metrics.observeCheck(true, e.now().Sub(started))
		return FinalVerdict{Allowed: true}, nil
	}

	verdicts := make([]Verdict, 0, len(matched))
	for _, m := range matched {
		verdict, err := e.accountant.Account(ctx, m, req, now)
		if err != nil {
			e.metrics.observeError("account")
			return FinalVerdict{}, err
		}
		verdicts = append(verdicts, verdict)
	}

	final := aggregate(verdicts, now)
	e.metrics.observeCheck(final.Allowed, e.now().Sub(started))
	if !final.Allowed {
		for _, vd := range final.Verdicts {
			if !vd.Allowed {
				e.metrics.observeDenial(vd.Definition.RateClass, string(vd.Definition.Unit))
			}
		}
	}
	return final, nil
}

// aggregate combines per-definition verdicts: allowed iff all allowed,
// otherwise denied with the maximum rollover delay.
func aggregate(verdicts []Verdict, now time.Time) FinalVerdict {
	final := FinalVerdict{Allowed: true, Verdicts: verdicts}
	var latest time.Time
	for _, vd := range verdicts {
		if vd.Allowed {
			continue
		}
		final.Allowed = false
		if vd.DelayUntil.After(latest) {
			latest = vd.DelayUntil
		}
	}
	if !final.Allowed {
		if delay := latest.Sub(now); delay > 0 {
			final.RetryAfter = delay
		}
	}
	return final
}
