package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kilnstack/kiln/pkg/telemetry"
)

// Evaluator periodically evaluates every stored watch rule and invokes the
// actions evaluation produces. Rules are evaluated in parallel across a
// bounded worker pool, with at most one in-flight evaluation per rule.
type Evaluator struct {
	svc      *Service
	interval time.Duration

	// maxParallel is the maximum number of concurrent evaluations
	maxParallel int

	tracer *telemetry.Tracer
	log    *telemetry.Logger

	// mu protects inFlight
	mu sync.Mutex

	// inFlight tracks rule IDs currently being evaluated so a slow rule is
	// never evaluated twice concurrently
	inFlight map[string]bool
}

// EvaluatorConfig configures an Evaluator.
type EvaluatorConfig struct {
	// Service evaluates the rules.
	Service *Service

	// Interval is the tick period; defaults to 60s.
	Interval time.Duration

	// MaxParallel bounds concurrent evaluations; defaults to 10.
	MaxParallel int

	// Tracer records evaluation spans; optional.
	Tracer *telemetry.Tracer
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("watch service is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 10
	}

	return &Evaluator{
		svc:         cfg.Service,
		interval:    cfg.Interval,
		maxParallel: cfg.MaxParallel,
		tracer:      cfg.Tracer,
		log:         cfg.Service.log.NewComponentLogger("evaluator"),
		inFlight:    make(map[string]bool),
	}, nil
}

// Run evaluates all rules on every tick until the context is cancelled.
// A failing pass is logged and does not stop the loop.
func (e *Evaluator) Run(ctx context.Context) error {
	e.log.Infof("starting watch evaluator, interval %s", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("watch evaluator stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := e.RunOnce(ctx); err != nil {
				e.log.WithError(err).Error("evaluation pass failed")
			}
		}
	}
}

// RunOnce evaluates every stored rule once, fanning the work out over the
// worker pool and waiting for the pass to complete.
func (e *Evaluator) RunOnce(ctx context.Context) error {
	records, err := e.svc.store.ListWatchRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list watch rules: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	workerCount := e.maxParallel
	if len(records) < workerCount {
		workerCount = len(records)
	}

	workQueue := make(chan string, len(records))
	for _, record := range records {
		workQueue <- record.ID
	}
	close(workQueue)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for id := range workQueue {
				e.evaluateOne(ctx, id)

				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	return nil
}

// evaluateOne evaluates a single rule by ID and invokes its actions.
// Failures are logged, never propagated: one broken rule must not starve
// the rest of the pass.
func (e *Evaluator) evaluateOne(ctx context.Context, id string) {
	if !e.acquire(id) {
		e.log.Debugf("skipping rule %s, evaluation already in flight", id)
		return
	}
	defer e.release(id)

	record, err := e.svc.store.GetWatchRuleByID(ctx, id)
	if err != nil {
		e.log.WithError(err).Warnf("failed to load watch rule %s", id)
		return
	}

	rule, err := e.svc.RuleFromRecord(ctx, record)
	if err != nil {
		e.log.WithError(err).Warnf("failed to rebuild watch rule %s", record.Name)
		return
	}

	ctx, span := e.startSpan(ctx, rule)
	defer span.End()

	actions, err := rule.Evaluate(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		e.log.WithError(err).Warnf("evaluation of watch rule %s failed", rule.Name)
		return
	}

	for _, action := range actions {
		if err := action(ctx); err != nil {
			telemetry.RecordError(span, err)
			e.log.WithError(err).Warnf("action for watch rule %s failed", rule.Name)
		}
	}
	telemetry.RecordSuccess(span)
}

// startSpan opens an evaluation span, or a no-op span when no tracer is
// configured.
func (e *Evaluator) startSpan(ctx context.Context, rule *WatchRule) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, noop.Span{}
	}

	ctx, span := e.tracer.StartEvaluationSpan(ctx, rule.Name, rule.StackID)
	span.SetAttributes(attribute.String("watch.state", string(rule.State)))
	return ctx, span
}

func (e *Evaluator) acquire(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[id] {
		return false
	}
	e.inFlight[id] = true
	return true
}

func (e *Evaluator) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, id)
}
