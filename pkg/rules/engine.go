// Package rules reacts to system events by evaluating configured rules and
// dispatching their actions.
package rules

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/supplyflow/pkg/actions"
	"github.com/dukex/supplyflow/pkg/conditions"
	"github.com/dukex/supplyflow/pkg/eventbus"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/otelhelper"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxInFlight = 64

// Runner executes one action against an event.
type Runner interface {
	Run(ctx context.Context, action models.RuleAction, event events.SystemEvent) (models.ActionResult, error)
}

var _ Runner = (*actions.Dispatcher)(nil)

// Engine subscribes to every event on the bus and processes each one in its
// own goroutine. Rules of one event run one at a time in fetch order.
type Engine struct {
	bus      eventbus.Subscriber
	rules    Source
	runner   Runner
	logs     persistence.ExecutionLogRepository
	deduper  Deduper
	tracer   trace.Tracer
	inFlight *semaphore.Weighted
	logger   *slog.Logger
	now      func() time.Time

	mu             sync.Mutex
	subscriptionID string
	running        bool
	wg             sync.WaitGroup
}

type Option func(*Engine)

// WithDeduper makes the engine skip (event, rule) pairs already claimed,
// for events redelivered by a durable transport.
func WithDeduper(d Deduper) Option {
	return func(e *Engine) {
		e.deduper = d
	}
}

// WithMaxInFlight bounds how many events are processed concurrently.
func WithMaxInFlight(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.inFlight = semaphore.NewWeighted(n)
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func NewEngine(
	bus eventbus.Subscriber,
	rules Source,
	runner Runner,
	logs persistence.ExecutionLogRepository,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		bus:      bus,
		rules:    rules,
		runner:   runner,
		logs:     logs,
		tracer:   otelhelper.Tracer("supplyflow.rules"),
		inFlight: semaphore.NewWeighted(DefaultMaxInFlight),
		logger:   logger.With("module", "rule_engine"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start subscribes the engine to the bus. Calling it twice is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}

	e.subscriptionID = e.bus.Subscribe(events.Wildcard, e.handle)
	e.running = true

	e.logger.Info("rule engine started")
}

// Stop unsubscribes and waits for in-flight events to finish. Calling it
// twice, or before Start, is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()

	if !e.running {
		e.mu.Unlock()

		return
	}

	e.bus.Unsubscribe(e.subscriptionID)
	e.subscriptionID = ""
	e.running = false
	e.mu.Unlock()

	e.wg.Wait()

	e.logger.Info("rule engine stopped")
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// handle returns immediately; the publisher never waits for rule processing.
// Events delivered after Stop are dropped.
func (e *Engine) handle(ctx context.Context, event events.SystemEvent) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "engine stopped, dropping event", "event_id", event.ID)

		return nil
	}

	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		// Actions publish their own events; those are local to this instance
		// even when the triggering event was ingested.
		processCtx := eventbus.Local(context.WithoutCancel(ctx))

		err := e.inFlight.Acquire(processCtx, 1)
		if err != nil {
			e.logger.ErrorContext(processCtx, "failed to acquire processing slot", "event_id", event.ID, "error", err)

			return
		}
		defer e.inFlight.Release(1)

		e.Process(processCtx, event)
	}()

	return nil
}

// Process evaluates every applicable rule against event and returns the
// execution logs it produced, in evaluation order.
func (e *Engine) Process(ctx context.Context, event events.SystemEvent) []*models.ExecutionLog {
	logger := e.logger.With("event_id", event.ID, "event_type", event.Type)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "rules.process_event",
		attribute.String(otelhelper.EventIDKey, event.ID),
		attribute.String(otelhelper.EventTypeKey, string(event.Type)),
		attribute.String(otelhelper.EntityTypeKey, event.EntityType),
		attribute.String(otelhelper.EntityIDKey, event.EntityID),
	)
	defer span.End()

	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "failed to load active rules", "error", err)

		return nil
	}

	fields := event.Fields()

	var logs []*models.ExecutionLog

	for _, rule := range rules {
		if !rule.Matches(string(event.Type), event.EntityType) {
			continue
		}

		if e.deduper != nil && !e.claim(ctx, logger, event, rule) {
			// Already handled elsewhere; the condition still decides whether
			// later rules run.
			matched, _ := matchRule(rule, fields)
			if matched && rule.StopOnMatch {
				break
			}

			continue
		}

		execLog := e.processRule(ctx, logger, rule, event, fields)
		logs = append(logs, execLog)

		if execLog.Matched && rule.StopOnMatch {
			logger.DebugContext(ctx, "stop on match", "rule_id", rule.ID)

			break
		}
	}

	return logs
}

func (e *Engine) claim(ctx context.Context, logger *slog.Logger, event events.SystemEvent, rule *models.Rule) bool {
	claimed, err := e.deduper.Claim(ctx, event.ID, rule.ID)
	if err != nil {
		// Fail open: running a rule twice beats never running it.
		logger.WarnContext(ctx, "dedupe claim failed", "rule_id", rule.ID, "error", err)

		return true
	}

	if !claimed {
		logger.DebugContext(ctx, "skipping duplicate delivery", "rule_id", rule.ID)
	}

	return claimed
}

func (e *Engine) processRule(
	ctx context.Context,
	logger *slog.Logger,
	rule *models.Rule,
	event events.SystemEvent,
	fields map[string]any,
) *models.ExecutionLog {
	logger = logger.With("rule_id", rule.ID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "rules.process_rule",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
	)
	defer span.End()

	start := e.now()

	execLog := &models.ExecutionLog{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		EventID:    event.ID,
		EventType:  string(event.Type),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Event:      event,
		ActionsRun: []models.ActionResult{},
	}

	matched, err := matchRule(rule, fields)

	switch {
	case err != nil:
		execLog.Error = err.Error()

		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "rule evaluation failed", "error", err)
	case !matched:
		execLog.Success = true
	default:
		execLog.Matched = true
		execLog.Success = true

		var actionErrs []error

		for _, action := range rule.Actions {
			result, runErr := e.runner.Run(ctx, action, event)
			execLog.ActionsRun = append(execLog.ActionsRun, result)

			if runErr != nil {
				execLog.Success = false
				actionErrs = append(actionErrs, runErr)
			}
		}

		if joined := errors.Join(actionErrs...); joined != nil {
			execLog.Error = joined.Error()

			otelhelper.SetError(span, joined)
		}
	}

	span.SetAttributes(attribute.Bool("supplyflow.rule.matched", execLog.Matched))

	execLog.DurationMs = e.now().Sub(start).Milliseconds()
	e.record(ctx, logger, execLog)

	return execLog
}

func (e *Engine) record(ctx context.Context, logger *slog.Logger, execLog *models.ExecutionLog) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	execLog.ID = id.String()
	execLog.CreatedAt = e.now().UTC()

	err = e.logs.Record(ctx, execLog)
	if err != nil {
		logErr := &LoggingError{RuleID: execLog.RuleID, EventID: execLog.EventID, Err: err}
		logger.ErrorContext(ctx, "execution log write failed", "error", logErr)
	}
}

// matchRule treats a rule without a condition as always matching.
func matchRule(rule *models.Rule, fields map[string]any) (bool, error) {
	if rule.Condition == nil {
		return true, nil
	}

	return conditions.Match(*rule.Condition, fields)
}
