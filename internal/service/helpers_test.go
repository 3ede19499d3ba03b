package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"

	"go.uber.org/zap"
)

var errConnRefused = errors.New("connection refused")

func isFakeTransport(err error) bool {
	return errors.Is(err, errConnRefused)
}

type statusStep struct {
	job *models.Job
	err error
}

// fakeBackend scripts the backend collaborators for service tests. The
// status script is consumed one step per poll; when it runs out the last
// step repeats.
type fakeBackend struct {
	mu sync.Mutex

	submitID  string
	submitErr error
	submits   []dto.JobSpec

	statusScript []statusStep
	statusIdx    int
	statusCalls  int

	fetchRecs  []*models.Recommendation
	fetchErr   error
	fetchCalls []string

	batches []*models.Batch
	listErr error

	persistErr      error
	persistedBatch  *models.Batch
	persistedRecs   []*models.Recommendation
	persistAttempts int

	recordErr    error
	recordResult *models.Recommendation
	priceErr     error
	posErr       error
	priceCalls   int
	posCalls     int
}

func (f *fakeBackend) SubmitJob(ctx context.Context, spec *dto.JobSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, *spec)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.submitID == "" {
		return "job-1", nil
	}
	return f.submitID, nil
}

func (f *fakeBackend) JobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statusScript) == 0 {
		return &models.Job{ID: jobID, Status: models.JobStatusRunning}, nil
	}
	step := f.statusScript[f.statusIdx]
	if f.statusIdx < len(f.statusScript)-1 {
		f.statusIdx++
	}
	if step.err != nil {
		return nil, step.err
	}
	job := *step.job
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

func (f *fakeBackend) PersistRecommendations(ctx context.Context, batch *models.Batch, recs []*models.Recommendation) ([]*models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistAttempts++
	if f.persistErr != nil {
		return nil, f.persistErr
	}
	f.persistedBatch = batch
	f.persistedRecs = recs
	return recs, nil
}

func (f *fakeBackend) FetchRecommendations(ctx context.Context, batchID string) ([]*models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls = append(f.fetchCalls, batchID)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]*models.Recommendation, len(f.fetchRecs))
	for i, rec := range f.fetchRecs {
		copied := *rec
		out[i] = &copied
	}
	return out, nil
}

func (f *fakeBackend) ListBatches(ctx context.Context) ([]*models.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.batches, nil
}

func (f *fakeBackend) RecordAction(ctx context.Context, recommendationID string, action models.UserAction, feedback string) (*models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	if f.recordResult != nil {
		copied := *f.recordResult
		copied.ApplyAction(action, feedback)
		return &copied, nil
	}
	rec := &models.Recommendation{}
	rec.ApplyAction(action, feedback)
	return rec, nil
}

func (f *fakeBackend) UpdatePrice(ctx context.Context, itemID string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	return f.priceErr
}

func (f *fakeBackend) PushPriceToPOS(ctx context.Context, itemID string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posCalls++
	return f.posErr
}

// memCache is an in-memory SnapshotCache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Put(ctx context.Context, key string, payload any, ttl time.Duration) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Get(ctx context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func fastProfile(maxAttempts int) WatchProfile {
	return WatchProfile{Interval: time.Millisecond, MaxAttempts: maxAttempts}
}
