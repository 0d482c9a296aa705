package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-custody/adapters/gologger"
	sqlstore "github.com/goliatone/go-custody/store/sql"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDDispatchLogPrune = "custody.dispatch_log.prune"

	dedupDrop = "drop"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// Backoff doubles BaseDelay per attempt, capped by MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// Pruner is implemented by sqlstore.DispatchLogStore.
type Pruner interface {
	Prune(ctx context.Context, policy sqlstore.RetentionPolicy, now time.Time) (int, error)
}

// PruneMessage builds the execution message for one retention pass. Passes
// sharing idempotencyKey are collapsed by the queue.
func PruneMessage(policy sqlstore.RetentionPolicy, idempotencyKey string) *job.ExecutionMessage {
	params := map[string]any{}
	if policy.TTL > 0 {
		params["ttl"] = policy.TTL.String()
	}
	if policy.RowCap > 0 {
		params["row_cap"] = policy.RowCap
	}
	return &job.ExecutionMessage{
		JobID:          JobIDDispatchLogPrune,
		ScriptPath:     JobIDDispatchLogPrune,
		Parameters:     params,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(dedupDrop),
	}
}

func EnqueuePrune(ctx context.Context, enqueuer queue.Enqueuer, policy sqlstore.RetentionPolicy, idempotencyKey string) error {
	if enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if policy.TTL <= 0 && policy.RowCap <= 0 {
		return fmt.Errorf("gojob: retention policy needs a ttl or a row cap")
	}
	return enqueuer.Enqueue(ctx, PruneMessage(policy, idempotencyKey))
}

// ParseRetentionPolicy reads the parameters written by PruneMessage. Values
// that went through a JSON queue arrive as strings or float64.
func ParseRetentionPolicy(params map[string]any) (sqlstore.RetentionPolicy, error) {
	policy := sqlstore.RetentionPolicy{}
	if raw, ok := params["ttl"]; ok {
		ttl, err := time.ParseDuration(strings.TrimSpace(fmt.Sprint(raw)))
		if err != nil {
			return sqlstore.RetentionPolicy{}, fmt.Errorf("gojob: invalid ttl %v: %w", raw, err)
		}
		policy.TTL = ttl
	}
	if raw, ok := params["row_cap"]; ok {
		switch value := raw.(type) {
		case int:
			policy.RowCap = value
		case int64:
			policy.RowCap = int(value)
		case float64:
			policy.RowCap = int(value)
		default:
			parsed, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(raw)))
			if err != nil {
				return sqlstore.RetentionPolicy{}, fmt.Errorf("gojob: invalid row_cap %v: %w", raw, err)
			}
			policy.RowCap = parsed
		}
	}
	if policy.TTL <= 0 && policy.RowCap <= 0 {
		return sqlstore.RetentionPolicy{}, fmt.Errorf("gojob: retention policy needs a ttl or a row cap")
	}
	return policy, nil
}

type Handler func(ctx context.Context, msg *job.ExecutionMessage) error

// PruneHandler applies the retention policy carried by the message.
func PruneHandler(pruner Pruner, clock func() time.Time) Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx context.Context, msg *job.ExecutionMessage) error {
		if pruner == nil {
			return fmt.Errorf("gojob: pruner is not configured")
		}
		policy, err := ParseRetentionPolicy(msg.Parameters)
		if err != nil {
			return err
		}
		_, err = pruner.Prune(ctx, policy, clock().UTC())
		return err
	}
}

type WorkerOption func(*Worker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *Worker) {
		w.policy = policy
	}
}

func WithHook(hook worker.Hook) WorkerOption {
	return func(w *Worker) {
		if hook != nil {
			w.hooks = append(w.hooks, hook)
		}
	}
}

func WithClock(clock func() time.Time) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// Worker drains custody maintenance jobs from a go-job queue. It is driven by
// the caller through ProcessNext.
type Worker struct {
	dequeuer queue.Dequeuer
	handlers map[string]Handler
	policy   RetryPolicy
	hooks    []worker.Hook
	clock    func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

func NewWorker(dequeuer queue.Dequeuer, opts ...WorkerOption) *Worker {
	w := &Worker{
		dequeuer: dequeuer,
		handlers: map[string]Handler{},
		clock:    time.Now,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *Worker) Handle(jobID string, handler Handler) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("gojob: job id is required")
	}
	if handler == nil {
		return fmt.Errorf("gojob: handler for %q is nil", jobID)
	}
	if _, exists := w.handlers[jobID]; exists {
		return fmt.Errorf("gojob: handler for %q already registered", jobID)
	}
	w.handlers[jobID] = handler
	return nil
}

// ProcessNext handles one delivery. It reports false when the queue had
// nothing to hand out.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	if w == nil || w.dequeuer == nil {
		return false, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}
	msg := delivery.Message()
	if msg == nil {
		return true, delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: "empty message"})
	}

	key := attemptKey(msg)
	attempt := w.nextAttempt(key)
	event := worker.Event{
		Message:   msg,
		Delivery:  delivery,
		Attempt:   attempt,
		StartedAt: w.clock(),
	}
	w.emit(ctx, event, worker.Hook.OnStart)

	handler, ok := w.handlers[strings.TrimSpace(msg.JobID)]
	if !ok {
		event.Err = fmt.Errorf("gojob: no handler for job %q", msg.JobID)
		w.clearAttempts(key)
		w.emit(ctx, event, worker.Hook.OnFailure)
		return true, delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: event.Err.Error()})
	}

	runErr := handler(ctx, msg)
	event.Duration = w.clock().Sub(event.StartedAt)
	if runErr == nil {
		w.clearAttempts(key)
		w.emit(ctx, event, worker.Hook.OnSuccess)
		return true, delivery.Ack(ctx)
	}

	event.Err = runErr
	opts := w.policy.NormalizeAttempt(queue.NackOptions{
		Delay:   w.policy.Backoff(attempt),
		Requeue: true,
		Reason:  runErr.Error(),
	}, attempt)
	event.Delay = opts.Delay
	if opts.Requeue {
		w.emit(ctx, event, worker.Hook.OnRetry)
	} else {
		w.clearAttempts(key)
		w.emit(ctx, event, worker.Hook.OnFailure)
	}
	return true, delivery.Nack(ctx, opts)
}

func (w *Worker) emit(ctx context.Context, event worker.Event, call func(worker.Hook, context.Context, worker.Event)) {
	for _, hook := range w.hooks {
		call(hook, ctx, event)
	}
}

func (w *Worker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *Worker) clearAttempts(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

func attemptKey(msg *job.ExecutionMessage) string {
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	return strings.TrimSpace(msg.JobID)
}

// LoggingHook writes worker lifecycle events to a glog logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(provider glog.LoggerProvider, logger glog.Logger) *LoggingHook {
	_, resolved := gologger.Resolve("custody.jobs", provider, logger)
	return &LoggingHook{logger: glog.Ensure(resolved)}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.log(ctx, "debug", "job started", event)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log(ctx, "info", "job succeeded", event)
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, "error", "job failed", event)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, "warn", "job scheduled for retry", event)
}

func (h *LoggingHook) log(ctx context.Context, level string, message string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	args := []any{"attempt", event.Attempt}
	if event.Message != nil {
		args = append(args, "job_id", event.Message.JobID)
	}
	if event.Duration > 0 {
		args = append(args, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Delay > 0 {
		args = append(args, "retry_delay_ms", event.Delay.Milliseconds())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	logger := h.logger.WithContext(ctx)
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "debug":
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

var (
	_ worker.Hook = (*LoggingHook)(nil)
	_ Pruner      = (*sqlstore.DispatchLogStore)(nil)
)
