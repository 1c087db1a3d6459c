// Package scheduler drives the periodic refresh: aggregate every feed, swap
// the title cache, reconcile roles in every enabled guild, then sleep until
// the next period boundary.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"citizenship/internal/chat"
	"citizenship/internal/platform/metrics"
	"citizenship/internal/roles"
	"citizenship/internal/titles"
	dErrors "citizenship/pkg/domain-errors"
)

var tracer = otel.Tracer("citizenship/internal/scheduler")

// State is what the refresh loop is doing right now.
type State string

const (
	StateStopped             State = "stopped"
	StateCredentialCheck     State = "credential_check"
	StateAggregating         State = "aggregating"
	StateApplyingRoles       State = "applying_roles"
	StateSuspendedIndefinite State = "suspended_indefinite"
	StateSuspendedTimed      State = "suspended_timed"
)

var allStates = []string{
	string(StateStopped),
	string(StateCredentialCheck),
	string(StateAggregating),
	string(StateApplyingRoles),
	string(StateSuspendedIndefinite),
	string(StateSuspendedTimed),
}

const (
	defaultPeriod         = 12 * time.Hour
	defaultCycleTries     = 8
	defaultReconcileTries = 3
	defaultBaseDelay      = time.Second
	maxDelay              = 5 * time.Minute
)

var ErrAlreadyRunning = dErrors.New(dErrors.CodeAlreadyInitialized, "refresh task is already running")

// Aggregator builds a fresh title snapshot.
type Aggregator interface {
	Run(ctx context.Context, credential string) (*titles.Snapshot, error)
}

// Credentials yields the shared spreadsheet API key; "" means none.
type Credentials interface {
	Credential(ctx context.Context) (string, error)
}

// Reconciler applies the current cache to every enabled guild.
type Reconciler interface {
	All(ctx context.Context) (roles.Stats, error)
}

// Status is a snapshot of the scheduler for operators.
type Status struct {
	State      State
	Generation string
	WakeAt     time.Time
	LastCycle  time.Time
	LastError  string
	Nations    int
	Running    bool
}

// Scheduler owns the single refresh goroutine. Each Start mints a new
// generation; a loop whose generation is no longer current exits at its next
// checkpoint.
type Scheduler struct {
	aggregator  Aggregator
	credentials Credentials
	reconciler  Reconciler
	cache       *titles.Cache
	reporter    chat.OperatorReporter
	logger      *slog.Logger
	metrics     *metrics.Metrics

	period         time.Duration
	cycleTries     int
	reconcileTries int
	baseDelay      time.Duration
	now            func() time.Time

	mu         sync.Mutex
	state      State
	generation string
	timer      *Timer
	wakeAt     time.Time
	lastCycle  time.Time
	lastErr    string
	cancel     context.CancelFunc
	done       chan struct{}
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithReporter sends unhandled faults to the bot operators.
func WithReporter(r chat.OperatorReporter) Option {
	return func(s *Scheduler) { s.reporter = r }
}

func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithRetry bounds cycle-level retries. Feed-level retries are configured
// on the aggregator.
func WithRetry(maxTries int, baseDelay time.Duration) Option {
	return func(s *Scheduler) {
		if maxTries > 0 {
			s.cycleTries = maxTries
		}
		if baseDelay > 0 {
			s.baseDelay = baseDelay
		}
	}
}

func WithReconcileTries(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.reconcileTries = n
		}
	}
}

// WithClock overrides the wall clock used for period boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(aggregator Aggregator, credentials Credentials, reconciler Reconciler, cache *titles.Cache, opts ...Option) (*Scheduler, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credential source is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("role reconciler is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("title cache is required")
	}
	s := &Scheduler{
		aggregator:     aggregator,
		credentials:    credentials,
		reconciler:     reconciler,
		cache:          cache,
		logger:         slog.Default(),
		period:         defaultPeriod,
		cycleTries:     defaultCycleTries,
		reconcileTries: defaultReconcileTries,
		baseDelay:      defaultBaseDelay,
		now:            time.Now,
		state:          StateStopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the refresh loop. The loop outlives ctx's deadline but not
// its cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	gen := uuid.NewString()
	done := make(chan struct{})
	s.generation = gen
	s.cancel = cancel
	s.done = done
	go s.supervise(loopCtx, cancel, gen, done)
	s.logger.InfoContext(ctx, "refresh task started", "generation", gen)
	return nil
}

// Stop cancels the loop and waits for it to exit. Stopping an idle
// scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restart replaces the running loop with a new generation.
func (s *Scheduler) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(context.WithoutCancel(ctx))
}

// RunNow wakes a suspended loop so it starts the next cycle immediately.
// It reports false when the loop is not suspended.
func (s *Scheduler) RunNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return false
	}
	s.timer.Cancel()
	return true
}

// Status reports the loop's current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:      s.state,
		Generation: s.generation,
		WakeAt:     s.wakeAt,
		LastCycle:  s.lastCycle,
		LastError:  s.lastErr,
		Nations:    s.cache.Load().Len(),
		Running:    s.done != nil,
	}
}

// supervise runs the loop and reports anything other than cancellation.
// However the loop ends, its slot is released so Start can run again.
func (s *Scheduler) supervise(ctx context.Context, cancel context.CancelFunc, gen string, done chan struct{}) {
	defer close(done)
	defer s.release(done, cancel)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("refresh task panicked: %v", r)
			s.logger.ErrorContext(ctx, "refresh task crashed", "generation", gen, "error", err)
			s.report(ctx, "refresh task crashed", err, debug.Stack())
		}
	}()

	err := s.loop(ctx, gen)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		s.logger.InfoContext(ctx, "refresh task stopped", "generation", gen)
	default:
		s.logger.ErrorContext(ctx, "refresh task failed", "generation", gen, "error", err)
		s.report(ctx, "refresh task failed", err, nil)
	}
}

func (s *Scheduler) loop(ctx context.Context, gen string) error {
	for s.isCurrent(gen) {
		s.setState(StateCredentialCheck, time.Time{})
		credential, err := s.credentials.Credential(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err = fmt.Errorf("read credential: %w", err)
			s.finish("credential_failed", time.Now(), err)
			s.logger.ErrorContext(ctx, "refresh credential unavailable", "error", err)
			s.report(ctx, "could not read the spreadsheet credential", err, nil)
			if err := s.sleep(ctx, gen, NextWait(s.now(), s.period)); err != nil {
				return err
			}
			continue
		}
		if credential == "" {
			s.logger.WarnContext(ctx, "no spreadsheet credential configured; waiting for a manual run")
			if err := s.sleep(ctx, gen, 0); err != nil {
				return err
			}
			continue
		}

		s.cycle(ctx, gen, credential)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sleep(ctx, gen, NextWait(s.now(), s.period)); err != nil {
			return err
		}
	}
	return nil
}

// cycle runs one aggregate, swap, reconcile pass. Failures are recorded and
// reported; they never stop the loop.
func (s *Scheduler) cycle(ctx context.Context, gen, credential string) {
	ctx, span := tracer.Start(ctx, "scheduler.Cycle", trace.WithAttributes(attribute.String("generation", gen)))
	defer span.End()
	start := time.Now()

	s.setState(StateAggregating, time.Time{})
	var snap *titles.Snapshot
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		var err error
		snap, err = s.aggregator.Run(ctx, credential)
		return err
	}, s.policy(ctx, s.cycleTries), func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "refresh cycle attempt failed",
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		s.finish("failed", start, err)
		s.logger.ErrorContext(ctx, "refresh cycle failed", "attempts", attempt, "error", err)
		s.report(ctx, fmt.Sprintf("refresh cycle failed after %d attempts", attempt), err, nil)
		return
	}

	s.cache.Swap(snap)
	s.metrics.SetCachedNations(snap.Len())
	span.SetAttributes(attribute.Int("nations", snap.Len()))
	s.logger.InfoContext(ctx, "title cache refreshed", "nations", snap.Len())

	if !s.isCurrent(gen) {
		return
	}
	s.setState(StateApplyingRoles, time.Time{})
	var stats roles.Stats
	err = backoff.Retry(func() error {
		var err error
		stats, err = s.reconciler.All(ctx)
		return err
	}, s.policy(ctx, s.reconcileTries))
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		s.finish("reconcile_failed", start, err)
		s.logger.ErrorContext(ctx, "role reconciliation failed", "error", err)
		s.report(ctx, "role reconciliation failed", err, nil)
		return
	}
	s.finish("ok", start, nil)
	s.logger.InfoContext(ctx, "roles reconciled",
		"guilds", stats.Guilds,
		"members", stats.Members,
		"edited", stats.Edited,
		"forbidden", stats.Forbidden,
		"failed", stats.Failed,
		"duration", time.Since(start),
	)
}

func (s *Scheduler) policy(ctx context.Context, tries int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(tries-1)), ctx)
}

// sleep suspends the loop for d, or until RunNow when d is zero.
func (s *Scheduler) sleep(ctx context.Context, gen string, d time.Duration) error {
	t := StartTimer(d)
	state := StateSuspendedIndefinite
	deadline, timed := t.Deadline()
	if timed {
		state = StateSuspendedTimed
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	s.timer = t
	s.mu.Unlock()
	s.setState(state, deadline)
	defer func() {
		s.mu.Lock()
		if s.timer == t {
			s.timer = nil
		}
		s.mu.Unlock()
	}()

	wake, err := t.Wait(ctx)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "refresh task woke", "reason", wake.String())
	return nil
}

func (s *Scheduler) release(done chan struct{}, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	if s.done == done {
		s.done = nil
		s.cancel = nil
		s.generation = ""
	}
	s.timer = nil
	s.mu.Unlock()
	s.setState(StateStopped, time.Time{})
}

func (s *Scheduler) isCurrent(gen string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

func (s *Scheduler) setState(state State, wakeAt time.Time) {
	s.mu.Lock()
	s.state = state
	s.wakeAt = wakeAt
	s.mu.Unlock()
	s.metrics.SetSchedulerState(string(state), allStates)
}

func (s *Scheduler) finish(outcome string, start time.Time, err error) {
	s.metrics.IncCycle(outcome, time.Since(start))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycle = s.now()
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

func (s *Scheduler) report(ctx context.Context, summary string, err error, stack []byte) {
	if s.reporter == nil {
		return
	}
	s.reporter.ReportFault(context.WithoutCancel(ctx), summary, err, stack)
}
