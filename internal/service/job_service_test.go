package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobService(backend *fakeBackend) *JobService {
	cfg := config.PollerConfig{
		Interval:              time.Millisecond,
		MaxAttempts:           10,
		QuickInterval:         time.Millisecond,
		QuickMaxAttempts:      10,
		TransportFailureLimit: 3,
	}
	return NewJobService(backend, isFakeTransport, cfg, testLogger())
}

func running() statusStep {
	return statusStep{job: &models.Job{Status: models.JobStatusRunning}}
}

func succeeded(result string) statusStep {
	return statusStep{job: &models.Job{Status: models.JobStatusSucceeded, Result: []byte(result)}}
}

func collect(updates <-chan JobUpdate) []JobUpdate {
	var out []JobUpdate
	for u := range updates {
		out = append(out, u)
	}
	return out
}

func TestSubmitReturnsJobID(t *testing.T) {
	backend := &fakeBackend{submitID: "job-42"}
	svc := newJobService(backend)

	jobID, err := svc.Submit(context.Background(), &dto.JobSpec{Kind: "full-analysis"})
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
}

func TestSubmitRejectionIsNotRetried(t *testing.T) {
	backend := &fakeBackend{submitErr: &models.SubmissionError{Reason: "bad spec"}}
	svc := newJobService(backend)

	_, err := svc.Submit(context.Background(), &dto.JobSpec{Kind: "full-analysis"})
	var subErr *models.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Len(t, backend.submits, 1)
}

func TestWatchDeliversExactlyOneTerminal(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		{job: &models.Job{Status: models.JobStatusPending}},
		running(),
		running(),
		succeeded(`[]`),
	}}
	svc := newJobService(backend)

	updates := collect(svc.Watch(context.Background(), "job-1", fastProfile(10)))

	var terminals int
	for _, u := range updates {
		if u.Job != nil && u.Job.Status.Terminal() {
			terminals++
		}
	}
	require.Equal(t, 1, terminals)

	last := updates[len(updates)-1]
	require.NotNil(t, last.Job)
	assert.Equal(t, models.JobStatusSucceeded, last.Job.Status)
	assert.NoError(t, last.Err)
}

func TestWatchEmitsTransitionsInLifecycleOrder(t *testing.T) {
	// A stale pending snapshot after running must not be emitted.
	backend := &fakeBackend{statusScript: []statusStep{
		running(),
		{job: &models.Job{Status: models.JobStatusPending}},
		succeeded(`[]`),
	}}
	svc := newJobService(backend)

	updates := collect(svc.Watch(context.Background(), "job-1", fastProfile(10)))

	require.Len(t, updates, 2)
	assert.Equal(t, models.JobStatusRunning, updates[0].Job.Status)
	assert.Equal(t, models.JobStatusSucceeded, updates[1].Job.Status)
}

func TestWatchJobFailure(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		running(),
		{job: &models.Job{Status: models.JobStatusFailed, StatusMessage: "analysis blew up"}},
	}}
	svc := newJobService(backend)

	terminal, ok := Await(svc.Watch(context.Background(), "job-1", fastProfile(10)))
	require.True(t, ok)

	var failed *models.JobFailedError
	require.ErrorAs(t, terminal.Err, &failed)
	assert.Equal(t, "analysis blew up", failed.Message)
}

func TestWatchTimesOutDistinctFromFailure(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{running()}}
	svc := newJobService(backend)

	terminal, ok := Await(svc.Watch(context.Background(), "job-1", fastProfile(3)))
	require.True(t, ok)

	var timedOut *models.TimedOutError
	require.ErrorAs(t, terminal.Err, &timedOut)
	assert.Equal(t, 3, timedOut.Attempts)

	var failed *models.JobFailedError
	assert.False(t, errors.As(terminal.Err, &failed))
}

func TestWatchResumableAfterTimeout(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{running()}}
	svc := newJobService(backend)

	terminal, ok := Await(svc.Watch(context.Background(), "job-1", fastProfile(2)))
	require.True(t, ok)
	var timedOut *models.TimedOutError
	require.ErrorAs(t, terminal.Err, &timedOut)

	// The job finishes server-side; a fresh watch on the same ID sees it.
	backend.mu.Lock()
	backend.statusScript = []statusStep{succeeded(`[]`)}
	backend.statusIdx = 0
	backend.mu.Unlock()

	terminal, ok = Await(svc.Watch(context.Background(), "job-1", fastProfile(2)))
	require.True(t, ok)
	require.NoError(t, terminal.Err)
	assert.Equal(t, models.JobStatusSucceeded, terminal.Job.Status)
}

func TestWatchSwallowsTransientTransportFailures(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		{err: errConnRefused},
		{err: errConnRefused},
		succeeded(`[]`),
	}}
	svc := newJobService(backend)

	terminal, ok := Await(svc.Watch(context.Background(), "job-1", fastProfile(10)))
	require.True(t, ok)
	require.NoError(t, terminal.Err)
	assert.Equal(t, models.JobStatusSucceeded, terminal.Job.Status)
}

func TestWatchEscalatesConsecutiveTransportFailures(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		{err: errConnRefused},
	}}
	svc := newJobService(backend)

	terminal, ok := Await(svc.Watch(context.Background(), "job-1", fastProfile(10)))
	require.True(t, ok)

	var transport *models.PollTransportError
	require.ErrorAs(t, terminal.Err, &transport)
	assert.Equal(t, 3, transport.Attempts)
	assert.Equal(t, 3, backend.statusCalls)
}

func TestWatchCancellationStopsWithoutTerminal(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{running()}}
	svc := newJobService(backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := svc.Watch(ctx, "job-1", fastProfile(1000))

	// Let a couple of ticks happen, then walk away.
	var received []JobUpdate
	for u := range updates {
		received = append(received, u)
		cancel()
	}

	_, gotTerminal := Await(makeClosed(received))
	assert.False(t, gotTerminal)
}

// makeClosed replays updates over a closed channel so Await can scan them.
func makeClosed(updates []JobUpdate) <-chan JobUpdate {
	ch := make(chan JobUpdate, len(updates))
	for _, u := range updates {
		ch <- u
	}
	close(ch)
	return ch
}

func TestProfilesAreIndependent(t *testing.T) {
	svc := newJobService(&fakeBackend{})
	coarse := svc.CoarseProfile()
	fine := svc.FineProfile()
	assert.Equal(t, 10, coarse.MaxAttempts)
	assert.Equal(t, 10, fine.MaxAttempts)

	// Two concurrent watches keep separate attempt counters.
	backend := &fakeBackend{statusScript: []statusStep{succeeded(`[]`)}}
	svc = newJobService(backend)
	a := svc.Watch(context.Background(), "job-a", fastProfile(5))
	b := svc.Watch(context.Background(), "job-b", fastProfile(5))

	ta, okA := Await(a)
	tb, okB := Await(b)
	require.True(t, okA)
	require.True(t, okB)
	assert.NoError(t, ta.Err)
	assert.NoError(t, tb.Err)
}
