package service

import (
	"context"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/pkg/config"

	"go.uber.org/zap"
)

// JobBackend is the slice of the backend client the poller needs.
type JobBackend interface {
	SubmitJob(ctx context.Context, spec *dto.JobSpec) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.Job, error)
}

// TransportErrorFunc classifies a status-poll error as a network-level
// failure (recoverable per tick) versus a backend response.
type TransportErrorFunc func(error) bool

// WatchProfile fixes the polling cadence for one watch. The coarse
// profile drives full analysis runs, the fine profile chat-style quick
// checks; both may run concurrently with independent state.
type WatchProfile struct {
	Interval    time.Duration
	MaxAttempts int
}

// JobUpdate is one element of a watch stream. Err is set only on the
// terminal element, and only when the terminal state is an error:
// JobFailedError, TimedOutError, or an escalated PollTransportError.
type JobUpdate struct {
	Job *models.Job
	Err error
}

// JobService submits analysis jobs and watches their lifecycle.
//
// Each watch runs one poll loop with its own timer and attempt counter.
// Within a watch, snapshots are delivered in non-decreasing lifecycle
// order and exactly one terminal update is delivered, unless the caller
// cancels first. Cancelling releases the timer and stops the stream; it
// does not touch the server-side job, so the same job ID can be watched
// again later.
type JobService struct {
	backend     JobBackend
	isTransport TransportErrorFunc
	cfg         config.PollerConfig
	logger      *zap.Logger
}

func NewJobService(backend JobBackend, isTransport TransportErrorFunc, cfg config.PollerConfig, logger *zap.Logger) *JobService {
	if isTransport == nil {
		isTransport = func(error) bool { return false }
	}
	return &JobService{
		backend:     backend,
		isTransport: isTransport,
		cfg:         cfg,
		logger:      logger,
	}
}

// CoarseProfile returns the full-analysis polling profile.
func (s *JobService) CoarseProfile() WatchProfile {
	return WatchProfile{Interval: s.cfg.Interval, MaxAttempts: s.cfg.MaxAttempts}
}

// FineProfile returns the quick-check polling profile.
func (s *JobService) FineProfile() WatchProfile {
	return WatchProfile{Interval: s.cfg.QuickInterval, MaxAttempts: s.cfg.QuickMaxAttempts}
}

// Submit starts a job on the backend. Submission is not retried; a
// rejection surfaces as SubmissionError to the caller.
func (s *JobService) Submit(ctx context.Context, spec *dto.JobSpec) (string, error) {
	jobID, err := s.backend.SubmitJob(ctx, spec)
	if err != nil {
		s.logger.Error("Job submission rejected", zap.String("kind", spec.Kind), zap.Error(err))
		return "", err
	}

	s.logger.Info("Job submitted",
		zap.String("job_id", jobID),
		zap.String("kind", spec.Kind),
	)
	return jobID, nil
}

// Watch polls the job until it reaches a terminal state, the attempt
// budget runs out, or ctx is cancelled. The returned channel is closed
// after the terminal update (or silently on cancellation).
func (s *JobService) Watch(ctx context.Context, jobID string, profile WatchProfile) <-chan JobUpdate {
	updates := make(chan JobUpdate)
	go s.watch(ctx, jobID, profile, updates)
	return updates
}

func (s *JobService) watch(ctx context.Context, jobID string, profile WatchProfile, updates chan<- JobUpdate) {
	defer close(updates)

	ticker := time.NewTicker(profile.Interval)
	defer ticker.Stop()

	var (
		lastEmitted         models.JobStatus
		consecutiveFailures int
	)

	for attempt := 1; attempt <= profile.MaxAttempts; attempt++ {
		job, err := s.backend.JobStatus(ctx, jobID)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil && s.isTransport(err):
			// Network hiccup: the tick is skipped, not terminal. Too many
			// in a row means nobody is answering; escalate instead of
			// spinning for the whole attempt budget.
			consecutiveFailures++
			s.logger.Warn("Poll transport failure, skipping tick",
				zap.String("job_id", jobID),
				zap.Int("consecutive", consecutiveFailures),
				zap.Error(err),
			)
			if s.cfg.TransportFailureLimit > 0 && consecutiveFailures >= s.cfg.TransportFailureLimit {
				s.emit(ctx, updates, JobUpdate{
					Job: &models.Job{ID: jobID, Status: models.JobStatusFailed},
					Err: &models.PollTransportError{JobID: jobID, Attempts: consecutiveFailures, Err: err},
				})
				return
			}
		case err != nil:
			consecutiveFailures++
			s.logger.Warn("Poll returned error, skipping tick",
				zap.String("job_id", jobID), zap.Error(err))
		default:
			consecutiveFailures = 0

			// Never let a snapshot move backwards within one watch.
			if lastEmitted == "" || job.Status.AtLeast(lastEmitted) {
				if job.Status.Terminal() {
					update := JobUpdate{Job: job}
					if job.Status == models.JobStatusFailed {
						update.Err = &models.JobFailedError{JobID: jobID, Message: job.StatusMessage}
					}
					s.emit(ctx, updates, update)
					return
				}
				if job.Status != lastEmitted {
					if !s.emit(ctx, updates, JobUpdate{Job: job}) {
						return
					}
					lastEmitted = job.Status
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	s.logger.Warn("Watch attempts exhausted",
		zap.String("job_id", jobID),
		zap.Int("attempts", profile.MaxAttempts),
	)
	s.emit(ctx, updates, JobUpdate{
		Err: &models.TimedOutError{JobID: jobID, Attempts: profile.MaxAttempts},
	})
}

func (s *JobService) emit(ctx context.Context, updates chan<- JobUpdate, u JobUpdate) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// Await drains a watch stream and returns its terminal update. Handy for
// callers that only care about the outcome.
func Await(updates <-chan JobUpdate) (JobUpdate, bool) {
	var terminal JobUpdate
	var ok bool
	for u := range updates {
		if u.Err != nil || (u.Job != nil && u.Job.Status.Terminal()) {
			terminal = u
			ok = true
		}
	}
	return terminal, ok
}
