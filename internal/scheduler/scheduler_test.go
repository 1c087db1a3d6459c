package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"citizenship/internal/chat/memory"
	"citizenship/internal/nation"
	"citizenship/internal/roles"
	"citizenship/internal/titles"
	"citizenship/pkg/testutil"
)

type fakeAggregator struct {
	mu    sync.Mutex
	calls int
	run   func(call int) (*titles.Snapshot, error)
}

func (f *fakeAggregator) Run(context.Context, string) (*titles.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.run(call)
}

func (f *fakeAggregator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCredentials struct {
	mu       sync.Mutex
	key      string
	failures int
}

func (f *fakeCredentials) Credential(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return "", errors.New("settings store unreachable")
	}
	return f.key, nil
}

func (f *fakeCredentials) set(key string) {
	f.mu.Lock()
	f.key = key
	f.mu.Unlock()
}

type fakeReconciler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReconciler) All(context.Context) (roles.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return roles.Stats{Guilds: 1, Members: 3}, f.err
}

func (f *fakeReconciler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func snapshot(nations ...string) *titles.Snapshot {
	scratch := titles.NewScratch()
	scratch.Declare(titles.Residents)
	for _, n := range nations {
		scratch.Grant(nation.Key(n), titles.Residents)
	}
	return scratch.Freeze()
}

// =============================================================================
// Scheduler Test Suite
// =============================================================================
// Justification for unit tests: the refresh loop is a state machine driven
// by timers and goroutines. Tests drive it through each suspension point
// with fakes and check what operators can observe.

type SchedulerSuite struct {
	suite.Suite
	aggregator  *fakeAggregator
	credentials *fakeCredentials
	reconciler  *fakeReconciler
	cache       *titles.Cache
	platform    *memory.Platform
	scheduler   *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.aggregator = &fakeAggregator{run: func(int) (*titles.Snapshot, error) {
		return snapshot("testlandia", "otherland"), nil
	}}
	s.credentials = &fakeCredentials{key: "api-key"}
	s.reconciler = &fakeReconciler{}
	s.cache = titles.NewCache()
	s.platform = memory.NewPlatform()
	s.scheduler = s.build()
}

func (s *SchedulerSuite) build(opts ...Option) *Scheduler {
	opts = append([]Option{
		WithLogger(testutil.DiscardLogger()),
		WithReporter(s.platform),
		WithPeriod(time.Hour),
		WithRetry(3, time.Millisecond),
		WithReconcileTries(2),
	}, opts...)
	sched, err := New(s.aggregator, s.credentials, s.reconciler, s.cache, opts...)
	s.Require().NoError(err)
	return sched
}

func (s *SchedulerSuite) TearDownTest() {
	s.Require().NoError(s.scheduler.Stop(context.Background()))
}

func (s *SchedulerSuite) waitForState(want State) Status {
	var st Status
	s.Require().Eventually(func() bool {
		st = s.scheduler.Status()
		return st.State == want
	}, 2*time.Second, time.Millisecond, "state never became %s", want)
	return st
}

func (s *SchedulerSuite) TestNew() {
	cache := titles.NewCache()
	_, err := New(nil, s.credentials, s.reconciler, cache)
	s.Error(err)
	_, err = New(s.aggregator, nil, s.reconciler, cache)
	s.Error(err)
	_, err = New(s.aggregator, s.credentials, nil, cache)
	s.Error(err)
	_, err = New(s.aggregator, s.credentials, s.reconciler, nil)
	s.Error(err)
}

func (s *SchedulerSuite) TestCycleSwapsCacheThenSleepsToBoundary() {
	s.Require().NoError(s.scheduler.Start(context.Background()))

	st := s.waitForState(StateSuspendedTimed)
	s.Equal(2, s.cache.Load().Len())
	s.Equal(2, st.Nations)
	s.Equal(1, s.reconciler.Calls())
	s.True(st.Running)
	s.NotEmpty(st.Generation)
	s.False(st.LastCycle.IsZero())
	s.Empty(st.LastError)
	s.True(st.WakeAt.After(time.Now().Add(14*time.Minute)), "never wakes inside the last quarter period")
	s.Empty(s.platform.Faults())
}

func (s *SchedulerSuite) TestWithoutCredentialWaitsForRunNow() {
	s.credentials.set("")
	s.Require().NoError(s.scheduler.Start(context.Background()))

	st := s.waitForState(StateSuspendedIndefinite)
	s.True(st.WakeAt.IsZero())
	s.Zero(s.aggregator.Calls())

	s.credentials.set("api-key")
	s.True(s.scheduler.RunNow())
	s.waitForState(StateSuspendedTimed)
	s.Equal(1, s.aggregator.Calls())
}

func (s *SchedulerSuite) TestCredentialFailureIsReportedAndLoopContinues() {
	s.credentials.failures = 1
	s.Require().NoError(s.scheduler.Start(context.Background()))

	st := s.waitForState(StateSuspendedTimed)
	s.True(st.Running)
	s.Contains(st.LastError, "settings store unreachable")
	s.Zero(s.aggregator.Calls())
	faults := s.platform.Faults()
	s.Require().Len(faults, 1)
	s.Contains(faults[0].Summary, "credential")

	s.True(s.scheduler.RunNow())
	s.Require().Eventually(func() bool { return s.aggregator.Calls() == 1 }, 2*time.Second, time.Millisecond)
	st = s.waitForState(StateSuspendedTimed)
	s.Empty(st.LastError)
	s.Equal(1, s.reconciler.Calls())
}

func (s *SchedulerSuite) TestRunNowCutsTimedSleepShort() {
	s.Require().NoError(s.scheduler.Start(context.Background()))
	s.waitForState(StateSuspendedTimed)

	s.True(s.scheduler.RunNow())
	s.Require().Eventually(func() bool { return s.aggregator.Calls() == 2 }, 2*time.Second, time.Millisecond)
	s.waitForState(StateSuspendedTimed)
	s.Equal(2, s.reconciler.Calls())
}

func (s *SchedulerSuite) TestRunNowWhenNotSuspended() {
	s.False(s.scheduler.RunNow())
}

func (s *SchedulerSuite) TestCycleRetriesThenRecovers() {
	s.aggregator.run = func(call int) (*titles.Snapshot, error) {
		if call < 3 {
			return nil, errors.New("feed outage")
		}
		return snapshot("testlandia"), nil
	}
	s.Require().NoError(s.scheduler.Start(context.Background()))

	st := s.waitForState(StateSuspendedTimed)
	s.Equal(3, s.aggregator.Calls())
	s.Equal(1, s.cache.Load().Len())
	s.Empty(st.LastError)
	s.Empty(s.platform.Faults())
}

func (s *SchedulerSuite) TestExhaustedCycleIsReportedAndLoopContinues() {
	s.cache.Swap(snapshot("oldland"))
	s.aggregator.run = func(int) (*titles.Snapshot, error) {
		return nil, errors.New("feed outage")
	}
	s.Require().NoError(s.scheduler.Start(context.Background()))

	st := s.waitForState(StateSuspendedTimed)
	s.Equal(3, s.aggregator.Calls())
	s.Contains(st.LastError, "feed outage")
	_, kept := s.cache.Load().Titles("oldland")
	s.True(kept, "old cache stays live")
	s.Zero(s.reconciler.Calls())

	faults := s.platform.Faults()
	s.Require().Len(faults, 1)
	s.Contains(faults[0].Summary, "refresh cycle failed")
	s.True(st.Running)
}

func (s *SchedulerSuite) TestReconcileFailureIsReported() {
	s.reconciler.err = errors.New("gateway down")
	s.Require().NoError(s.scheduler.Start(context.Background()))

	st := s.waitForState(StateSuspendedTimed)
	s.Equal(2, s.reconciler.Calls())
	s.Equal(2, s.cache.Load().Len(), "cache is committed before roles are applied")
	s.Contains(st.LastError, "gateway down")
	s.Len(s.platform.Faults(), 1)
}

func (s *SchedulerSuite) TestPanicIsReportedWithStack() {
	s.aggregator.run = func(int) (*titles.Snapshot, error) {
		panic("boom")
	}
	s.Require().NoError(s.scheduler.Start(context.Background()))

	s.Require().Eventually(func() bool { return len(s.platform.Faults()) == 1 }, 2*time.Second, time.Millisecond)
	fault := s.platform.Faults()[0]
	s.Contains(fault.Err.Error(), "boom")
	s.NotEmpty(fault.Stack)

	st := s.waitForState(StateStopped)
	s.False(st.Running)

	s.aggregator.run = func(int) (*titles.Snapshot, error) { return snapshot(), nil }
	s.NoError(s.scheduler.Start(context.Background()), "a crashed task can be started again")
	s.waitForState(StateSuspendedTimed)
}

func (s *SchedulerSuite) TestStopIsSilent() {
	s.Require().NoError(s.scheduler.Start(context.Background()))
	s.waitForState(StateSuspendedTimed)

	s.Require().NoError(s.scheduler.Stop(context.Background()))
	st := s.scheduler.Status()
	s.Equal(StateStopped, st.State)
	s.False(st.Running)
	s.Empty(st.Generation)
	s.Empty(s.platform.Faults())

	s.NoError(s.scheduler.Stop(context.Background()), "stopping twice is a no-op")
}

func (s *SchedulerSuite) TestStartTwice() {
	s.Require().NoError(s.scheduler.Start(context.Background()))
	s.ErrorIs(s.scheduler.Start(context.Background()), ErrAlreadyRunning)
}

func (s *SchedulerSuite) TestRestartMintsNewGeneration() {
	s.Require().NoError(s.scheduler.Start(context.Background()))
	first := s.waitForState(StateSuspendedTimed).Generation

	s.Require().NoError(s.scheduler.Restart(context.Background()))
	s.Require().Eventually(func() bool { return s.aggregator.Calls() == 2 }, 2*time.Second, time.Millisecond)
	second := s.waitForState(StateSuspendedTimed).Generation

	s.NotEqual(first, second)
	s.Empty(s.platform.Faults())
}

func (s *SchedulerSuite) TestParentCancellationStopsLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	s.Require().NoError(s.scheduler.Start(ctx))
	s.waitForState(StateSuspendedTimed)

	cancel()
	st := s.waitForState(StateStopped)
	s.False(st.Running)
	s.Empty(s.platform.Faults())
}
