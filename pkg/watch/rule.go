package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kilnstack/kiln/pkg/stack"
	"github.com/kilnstack/kiln/pkg/stores"
	"github.com/kilnstack/kiln/pkg/telemetry"
)

var validate = validator.New()

// Service owns the collaborators watch rules need: the persistent store,
// the stack loader, and telemetry. Rules are created and loaded through
// it.
type Service struct {
	store   stores.WatchStore
	stacks  stack.Loader
	log     *telemetry.Logger
	metrics *telemetry.Metrics
	clock   func() time.Time
}

// ServiceConfig configures a watch Service.
type ServiceConfig struct {
	// Store is the watch rule persistence layer.
	Store stores.WatchStore

	// Stacks loads owning stacks for action dispatch.
	Stacks stack.Loader

	// Logger is the structured logger; a no-op logger is used when nil.
	Logger *telemetry.Logger

	// Metrics records evaluation metrics; disabled when nil.
	Metrics *telemetry.Metrics

	// Clock supplies the current time; time.Now when nil. Tests inject a
	// fake clock here.
	Clock func() time.Time
}

// NewService creates a watch Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("watch store is required")
	}
	if cfg.Stacks == nil {
		return nil, fmt.Errorf("stack loader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Service{
		store:   cfg.Store,
		stacks:  cfg.Stacks,
		log:     cfg.Logger.NewComponentLogger("watch"),
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
	}, nil
}

// WatchRule is a persisted alarm definition together with its buffered
// samples. Identity is the rule name within a stack, or the opaque ID once
// stored.
type WatchRule struct {
	// Name uniquely identifies the rule within its stack.
	Name string

	// ID is the opaque storage identifier; empty until first stored.
	ID string

	// StackID identifies the owning stack.
	StackID string

	// Rule is the resolved alarm specification.
	Rule Rule

	// State is the current alarm state.
	State State

	// LastEvaluated is when the rule last ran to completion.
	LastEvaluated time.Time

	// timeperiod is the evaluation window, derived once from Rule.Period.
	timeperiod time.Duration

	data []WatchData
	svc  *Service
	log  *telemetry.Logger
}

// NewRule constructs an unstored watch rule in the NODATA state. The rule
// specification is validated here so an unknown statistic surfaces before
// the first evaluation.
func (s *Service) NewRule(name string, rule Rule, stackID string) (*WatchRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	return &WatchRule{
		Name:          name,
		StackID:       stackID,
		Rule:          rule,
		State:         StateNoData,
		LastEvaluated: s.clock(),
		timeperiod:    time.Duration(rule.Period) * time.Second,
		data:          []WatchData{},
		svc:           s,
		log:           s.log.WithWatchName(name),
	}, nil
}

// LoadRule loads a watch rule by name. Every store fault during the lookup
// is collapsed into *WatchRuleNotFoundError; callers that need to
// distinguish transient faults must go through the store directly.
func (s *Service) LoadRule(ctx context.Context, name string) (*WatchRule, error) {
	record, err := s.store.GetWatchRuleByName(ctx, name)
	if err != nil {
		if !errors.Is(err, stores.ErrNotFound) {
			s.log.WithError(err).Warnf("loading watch rule %s failed", name)
		}
		return nil, &WatchRuleNotFoundError{Name: name}
	}
	return s.RuleFromRecord(ctx, record)
}

// RuleFromRecord rebuilds a watch rule from a stored record, including its
// buffered samples.
func (s *Service) RuleFromRecord(ctx context.Context, record *stores.WatchRuleRecord) (*WatchRule, error) {
	var rule Rule
	if err := json.Unmarshal(record.Rule, &rule); err != nil {
		return nil, fmt.Errorf("failed to decode rule for watch %s: %w", record.Name, err)
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	samples, err := s.store.ListWatchData(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watch data for %s: %w", record.Name, err)
	}

	data := make([]WatchData, 0, len(samples))
	for _, sample := range samples {
		var metrics map[string]MetricDatum
		if err := json.Unmarshal(sample.Data, &metrics); err != nil {
			return nil, fmt.Errorf("failed to decode watch data for %s: %w", record.Name, err)
		}
		data = append(data, WatchData{CreatedAt: sample.CreatedAt, Data: metrics})
	}

	return &WatchRule{
		Name:          record.Name,
		ID:            record.ID,
		StackID:       record.StackID,
		Rule:          rule,
		State:         State(record.State),
		LastEvaluated: record.LastEvaluated,
		timeperiod:    time.Duration(rule.Period) * time.Second,
		data:          data,
		svc:           s,
		log:           s.log.WithWatchName(record.Name),
	}, nil
}

// ListRules loads every stored watch rule.
func (s *Service) ListRules(ctx context.Context) ([]*WatchRule, error) {
	records, err := s.store.ListWatchRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch rules: %w", err)
	}

	rules := make([]*WatchRule, 0, len(records))
	for _, record := range records {
		rule, err := s.RuleFromRecord(ctx, record)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// validateRule checks the alarm specification: statistic membership in the
// fixed dispatch table first, field constraints second.
func validateRule(rule Rule) error {
	if _, ok := statisticFuncs[rule.Statistic]; !ok {
		return &UnknownStatisticError{Statistic: rule.Statistic}
	}
	if err := validate.Struct(rule); err != nil {
		return fmt.Errorf("invalid watch rule: %w", err)
	}
	return nil
}

// Timeperiod returns the evaluation window derived from the rule's period.
// It is immutable after construction.
func (r *WatchRule) Timeperiod() time.Duration {
	return r.timeperiod
}

// Store persists the rule, creating it with a fresh ID on first store and
// updating the existing record afterwards.
func (r *WatchRule) Store(ctx context.Context) error {
	payload, err := json.Marshal(r.Rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule for watch %s: %w", r.Name, err)
	}

	record := &stores.WatchRuleRecord{
		Name:          r.Name,
		StackID:       r.StackID,
		State:         string(r.State),
		Rule:          payload,
		LastEvaluated: r.LastEvaluated,
	}

	if r.ID == "" {
		r.ID = uuid.New().String()
		record.ID = r.ID
		now := r.svc.clock()
		record.CreatedAt = now
		record.UpdatedAt = now
		return r.svc.store.CreateWatchRule(ctx, record)
	}

	record.ID = r.ID
	return r.svc.store.UpdateWatchRule(ctx, record)
}

// Destroy deletes the rule from the store. Unstored rules are a no-op.
func (r *WatchRule) Destroy(ctx context.Context) error {
	if r.ID == "" {
		return nil
	}
	return r.svc.store.DeleteWatchRule(ctx, r.ID)
}

// Evaluate runs the rule if it is due. Suspended rules do nothing, and a
// rule runs at most once per period: evaluation inside the period returns
// no actions without recomputation or a store write. The returned actions
// are for the caller to invoke; concurrent Evaluate calls for the same
// rule are not self-synchronizing.
func (r *WatchRule) Evaluate(ctx context.Context) ([]Action, error) {
	if r.State == StateSuspended {
		r.log.Debug("evaluation skipped, rule is suspended")
		return nil, nil
	}

	now := r.svc.clock()
	if now.Before(r.LastEvaluated.Add(r.timeperiod)) {
		return nil, nil
	}
	return r.runRule(ctx, now)
}

// runRule computes the new state, resolves the actions for it before
// committing, then persists the transition.
func (r *WatchRule) runRule(ctx context.Context, now time.Time) ([]Action, error) {
	start := time.Now()

	newState, err := r.alarmState(now)
	if err != nil {
		return nil, err
	}

	actions, err := r.ruleActions(ctx, newState)
	if err != nil {
		return nil, err
	}

	r.State = newState
	r.LastEvaluated = now
	if err := r.Store(ctx); err != nil {
		return nil, err
	}

	r.svc.metrics.RecordEvaluation(string(newState), time.Since(start))
	return actions, nil
}

// alarmState dispatches to the statistic function over the current window.
func (r *WatchRule) alarmState(now time.Time) (State, error) {
	fn, ok := statisticFuncs[r.Rule.Statistic]
	if !ok {
		return "", &UnknownStatisticError{Statistic: r.Rule.Statistic}
	}
	return fn(r.Rule, r.data, now.Add(-r.timeperiod)), nil
}

// Details describes a state transition for delivery with a signal.
func (r *WatchRule) Details(state State) map[string]interface{} {
	return map[string]interface{}{
		"alarm": r.Name,
		"state": string(state),
	}
}

// ruleActions resolves the actions registered for newState into signal
// callables on the owning stack's resources. A stack that is being deleted
// or is not settled never receives watch-triggered signals; a stack
// deleted concurrently reads as "no actions dispatchable".
func (r *WatchRule) ruleActions(ctx context.Context, newState State) ([]Action, error) {
	r.log.Infof("watch %s of stack %s transitions to %s", r.Name, r.StackID, newState)

	refs := r.Rule.actionsFor(newState)
	if len(refs) == 0 {
		r.log.Debugf("no actions registered for state %s", newState)
		return nil, nil
	}

	owner, err := r.svc.stacks.Load(ctx, r.StackID)
	if err != nil {
		if errors.Is(err, stack.ErrStackNotFound) {
			r.log.Warnf("could not process watch state %s, stack %s is gone", newState, r.StackID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load stack %s: %w", r.StackID, err)
	}

	if owner.Action() == stack.ActionDelete || owner.Status() != stack.StatusComplete {
		r.log.Warnf("could not process watch state %s for stack %s", newState, r.StackID)
		return nil, nil
	}

	details := r.Details(newState)
	actions := make([]Action, 0, len(refs))
	for _, ref := range refs {
		resource, ok := owner.Resource(ref)
		if !ok {
			r.log.Warnf("action target %s not found in stack %s", ref, r.StackID)
			continue
		}
		actions = append(actions, func(ctx context.Context) error {
			return resource.Signal(ctx, details)
		})
	}

	r.svc.metrics.RecordActionsDispatched(string(newState), len(actions))
	return actions, nil
}

// CreateWatchData ingests one metric sample. Samples are silently ignored
// while the rule is suspended, and when they do not carry the rule's
// configured metric: a rule only ever cares about one named metric, so
// extra metrics in a multi-metric payload are dropped, not stored.
func (r *WatchRule) CreateWatchData(ctx context.Context, data map[string]MetricDatum) error {
	if r.State == StateSuspended {
		r.log.Debug("ignoring metric data, rule is suspended")
		r.svc.metrics.RecordSampleIgnored("suspended")
		return nil
	}

	if _, ok := data[r.Rule.MetricName]; !ok {
		r.log.Debugf("ignoring metric data, only %s is accepted", r.Rule.MetricName)
		r.svc.metrics.RecordSampleIgnored("metric_mismatch")
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode watch data for %s: %w", r.Name, err)
	}

	sample := WatchData{CreatedAt: r.svc.clock(), Data: data}
	record := &stores.WatchDataRecord{
		ID:          uuid.New().String(),
		WatchRuleID: r.ID,
		Data:        payload,
		CreatedAt:   sample.CreatedAt,
	}
	if err := r.svc.store.CreateWatchData(ctx, record); err != nil {
		return err
	}

	r.data = append(r.data, sample)
	r.svc.metrics.RecordSampleIngested(r.Rule.MetricName)
	return nil
}

// StateSet validates and persistently stores a watch state.
func (r *WatchRule) StateSet(ctx context.Context, state State) error {
	if !state.Valid() {
		return &InvalidStateError{State: state}
	}
	r.State = state
	return r.Store(ctx)
}

// SetWatchState temporarily overrides the watch state: it returns the
// actions for the target state without committing it as the persisted
// state. A target equal to the current state yields no actions.
func (r *WatchRule) SetWatchState(ctx context.Context, state State) ([]Action, error) {
	if !state.Valid() {
		return nil, &InvalidStateError{State: state}
	}

	if state == r.State {
		return nil, nil
	}

	actions, err := r.ruleActions(ctx, state)
	if err != nil {
		return nil, err
	}
	if len(actions) > 0 {
		r.log.Debugf("overriding state %s with %s", r.State, state)
	} else {
		r.log.Warnf("unable to override state %s", r.State)
	}
	return actions, nil
}
