package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"citizenship/internal/platform/metrics"
	"citizenship/internal/titles"
)

var tracer = otel.Tracer("citizenship/internal/feeds")

const (
	defaultMaxTries  = 8
	defaultBaseDelay = time.Second
	maxDelay         = 2 * time.Minute
)

// Runner executes one aggregation pass over a registry.
type Runner struct {
	registry  *Registry
	maxTries  int
	baseDelay time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type RunnerOption func(*Runner)

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRetry bounds the per-feed attempts and sets the first retry delay.
// Each later delay doubles.
func WithRetry(maxTries int, baseDelay time.Duration) RunnerOption {
	return func(r *Runner) {
		if maxTries > 0 {
			r.maxTries = maxTries
		}
		if baseDelay > 0 {
			r.baseDelay = baseDelay
		}
	}
}

func NewRunner(registry *Registry, opts ...RunnerOption) (*Runner, error) {
	if registry == nil {
		return nil, fmt.Errorf("feed registry is required")
	}
	r := &Runner{
		registry:  registry,
		maxTries:  defaultMaxTries,
		baseDelay: defaultBaseDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run aggregates every feed into a fresh scratch and freezes it. Any feed
// that still fails after its retries fails the whole pass; the partial
// scratch is discarded.
func (r *Runner) Run(ctx context.Context, credential string) (*titles.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "feeds.Run")
	defer span.End()

	scratch := titles.NewScratch()
	for _, stage := range []struct {
		name  string
		feeds []Feed
	}{
		{"primary", r.registry.Primary()},
		{"supplementary", r.registry.Supplementary()},
	} {
		if err := r.stage(ctx, stage.feeds, scratch, credential); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, stage.name+" feeds failed")
			return nil, fmt.Errorf("%s feeds: %w", stage.name, err)
		}
	}

	snap := scratch.Freeze()
	span.SetAttributes(attribute.Int("nations", snap.Len()))
	return snap, nil
}

// stage runs feeds concurrently. A failing feed does not cancel its
// siblings; all failures are joined.
func (r *Runner) stage(ctx context.Context, feeds []Feed, scratch *titles.Scratch, credential string) error {
	errs := make([]error, len(feeds))
	var g errgroup.Group
	for i, f := range feeds {
		i, f := i, f
		g.Go(func() error {
			errs[i] = r.runFeed(ctx, f, scratch, credential)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (r *Runner) runFeed(ctx context.Context, f Feed, scratch *titles.Scratch, credential string) error {
	ctx, span := tracer.Start(ctx, "feeds.Feed", trace.WithAttributes(attribute.String("feed", f.Name())))
	defer span.End()

	start := time.Now()
	attempt := 0
	op := func() error {
		attempt++
		err := classify(f.Name(), f.Contribute(ctx, scratch, credential))
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "feed attempt failed",
			"feed", f.Name(),
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(op, r.policy(ctx), notify)
	r.metrics.ObserveFeed(f.Name(), time.Since(start))
	if err != nil {
		r.metrics.IncFeedFailure(f.Name(), string(Category(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "feed failed")
		r.logger.ErrorContext(ctx, "feed failed",
			"feed", f.Name(),
			"attempts", attempt,
			"error", err,
		)
		return err
	}
	return nil
}

func (r *Runner) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.maxTries-1)), ctx)
}
