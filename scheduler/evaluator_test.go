package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"amazon-scraper/config"
	"amazon-scraper/models"
	"amazon-scraper/scheduler"
	"amazon-scraper/scheduler/mocks"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

func createSchedule(t *testing.T, store storage.ScheduleStore, s models.Schedule) *models.Schedule {
	t.Helper()
	created, err := store.Create(context.Background(), &s)
	require.NoError(t, err)
	return created
}

func getSchedule(t *testing.T, store storage.ScheduleStore, id string) *models.Schedule {
	t.Helper()
	s, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func newEvaluator(store storage.ScheduleStore, runner scheduler.Runner, maxRuns int) *scheduler.Evaluator {
	return scheduler.NewEvaluator(config.Scheduler{MaxConcurrentRuns: maxRuns, PollInterval: time.Hour},
		store, runner, utils.NopLogger(), scheduler.WithClock(utils.FixedClock{At: monday}))
}

func TestTickDispatchesOnlyDueSchedules(t *testing.T) {
	store := storage.NewMemoryStore()
	due := createSchedule(t, store, models.Schedule{ID: "due", Frequency: models.Daily, TimeOfDay: "09:00"})
	createSchedule(t, store, models.Schedule{ID: "later", Frequency: models.Daily, TimeOfDay: "18:30"})

	runner := mocks.NewRunner(t)
	runner.On("Run", mock.Anything, mock.MatchedBy(func(s *models.Schedule) bool {
		return s.ID == due.ID && s.IsRunning && s.Status == models.StatusActive
	})).Return(nil).Once()

	e := newEvaluator(store, runner, 2)
	assert.Equal(t, 1, e.Tick(context.Background()))
	e.Wait()

	got := getSchedule(t, store, due.ID)
	assert.True(t, got.IsRunning)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.False(t, getSchedule(t, store, "later").IsRunning)
}

func TestTickDoesNotDispatchRunningScheduleTwice(t *testing.T) {
	store := storage.NewMemoryStore()
	createSchedule(t, store, models.Schedule{ID: "h", Frequency: models.Hourly})

	runner := mocks.NewRunner(t)
	runner.On("Run", mock.Anything, mock.Anything).Return(nil).Once()

	e := newEvaluator(store, runner, 2)
	assert.Equal(t, 1, e.Tick(context.Background()))
	// the claim is still held, nothing completed it
	assert.Equal(t, 0, e.Tick(context.Background()))
	e.Wait()
}

// racingStore loses every claim, as if another evaluator got there first.
type racingStore struct {
	*storage.MemoryStore
}

func (racingStore) Claim(context.Context, string) (bool, error) { return false, nil }

func TestTickSkipsScheduleClaimedElsewhere(t *testing.T) {
	store := racingStore{MemoryStore: storage.NewMemoryStore()}
	createSchedule(t, store, models.Schedule{ID: "h", Frequency: models.Hourly})

	// no expectations, any Run call fails the test
	runner := mocks.NewRunner(t)

	e := newEvaluator(store, runner, 2)
	assert.Equal(t, 0, e.Tick(context.Background()))
	e.Wait()
}

func TestConcurrentTicksClaimOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	createSchedule(t, store, models.Schedule{ID: "h", Frequency: models.Hourly})

	runner := mocks.NewRunner(t)
	runner.On("Run", mock.Anything, mock.Anything).Return(nil).Once()

	e := newEvaluator(store, runner, 8)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := e.Tick(context.Background())
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	e.Wait()

	assert.Equal(t, 1, total)
}

func TestTickReleasesWhenSlotsAreBusy(t *testing.T) {
	store := storage.NewMemoryStore()
	createSchedule(t, store, models.Schedule{ID: "a", Frequency: models.Hourly})
	createSchedule(t, store, models.Schedule{ID: "b", Frequency: models.Hourly})

	release := make(chan struct{})
	runner := mocks.NewRunner(t)
	runner.On("Run", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil).Once()

	e := newEvaluator(store, runner, 1)
	assert.Equal(t, 1, e.Tick(context.Background()))

	a, b := getSchedule(t, store, "a"), getSchedule(t, store, "b")
	assert.True(t, a.IsRunning)
	assert.False(t, b.IsRunning)
	assert.Equal(t, models.StatusIdle, b.Status)

	close(release)
	e.Wait()
}

func TestRunStopsWithContext(t *testing.T) {
	store := storage.NewMemoryStore()
	runner := mocks.NewRunner(t)
	e := newEvaluator(store, runner, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator did not stop")
	}
}

func TestResetStaleMakesStrandedScheduleDueAgain(t *testing.T) {
	store := storage.NewMemoryStore()
	s := createSchedule(t, store, models.Schedule{ID: "h", Frequency: models.Hourly})
	_, err := store.Claim(context.Background(), s.ID)
	require.NoError(t, err)

	runner := mocks.NewRunner(t)
	runner.On("Run", mock.Anything, mock.Anything).Return(nil).Once()

	e := newEvaluator(store, runner, 1)
	assert.Equal(t, 0, e.Tick(context.Background()))

	n, err := e.ResetStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.StatusFailed, getSchedule(t, store, s.ID).Status)

	assert.Equal(t, 1, e.Tick(context.Background()))
	e.Wait()
}
