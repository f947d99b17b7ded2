package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
)

// jsonCacheRepo stores encoded payloads the way the Redis repository does.
type jsonCacheRepo struct {
	mu     sync.Mutex
	items  map[string][]byte
	getErr error
	sets   int
}

func newJSONCacheRepo() *jsonCacheRepo {
	return &jsonCacheRepo{items: map[string][]byte{}}
}

func (r *jsonCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *jsonCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets++
	r.items[key] = raw
	return nil
}

func TestCacheServiceHitMissMetrics(t *testing.T) {
	repo := newJSONCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var dest models.LabSettings
	hit, err := svc.Get(context.Background(), "lab_settings:lab-1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "lab_settings:lab-1", &models.LabSettings{LabID: "lab-1", TaskDefaultDueDays: 3}, 0))
	hit, err = svc.Get(context.Background(), "lab_settings:lab-1", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, dest.TaskDefaultDueDays)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.001)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newJSONCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", &models.LabSettings{}, 0))
	hit, err := svc.Get(context.Background(), "k", &models.LabSettings{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.sets)
}

func TestReadThroughCollapsesConcurrentMisses(t *testing.T) {
	svc := NewCacheService(newJSONCacheRepo(), nil, 0, nil, true)
	var loads atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (*models.LabSettings, error) {
		loads.Add(1)
		<-release
		return &models.LabSettings{LabID: "lab-1", TaskDefaultDueDays: 4}, nil
	}

	var wg sync.WaitGroup
	results := make([]*models.LabSettings, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, _, err := ReadThrough(context.Background(), svc, "lab_settings:lab-1", 0, load)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 4, r.TaskDefaultDueDays)
	}

	value, hit, err := ReadThrough(context.Background(), svc, "lab_settings:lab-1", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "lab-1", value.LabID)
}

func TestReadThroughSharedLoadSurvivesCancelledCaller(t *testing.T) {
	svc := NewCacheService(newJSONCacheRepo(), nil, 0, nil, true)
	var loads atomic.Int32
	release := make(chan struct{})
	loadErr := make(chan error, 1)

	load := func(ctx context.Context) (*models.LabSettings, error) {
		loads.Add(1)
		<-release
		loadErr <- ctx.Err()
		return &models.LabSettings{LabID: "lab-1", TaskDefaultDueDays: 5}, nil
	}

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, _, err := ReadThrough(first, svc, "lab_settings:lab-1", 0, load)
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return loads.Load() == 1 }, time.Second, 5*time.Millisecond)

	secondDone := make(chan *models.LabSettings, 1)
	go func() {
		value, _, err := ReadThrough(context.Background(), svc, "lab_settings:lab-1", 0, load)
		assert.NoError(t, err)
		secondDone <- value
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	value := <-secondDone
	require.NotNil(t, value)
	assert.Equal(t, 5, value.TaskDefaultDueDays)
	assert.NoError(t, <-loadErr)
	assert.Equal(t, int32(1), loads.Load())
}

func TestReadThroughDegradesOnBackendError(t *testing.T) {
	repo := newJSONCacheRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, 0, nil, true)

	value, hit, err := ReadThrough(context.Background(), svc, "k", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, value)
}
