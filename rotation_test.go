package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActiveStore struct {
	active    []ActiveTask
	deleteErr error
	saveErr   error
	deletes   int
}

func (f *fakeActiveStore) FindAllActive() ([]ActiveTask, error) {
	out := make([]ActiveTask, len(f.active))
	copy(out, f.active)
	return out, nil
}

func (f *fakeActiveStore) DeleteAllActive() error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	f.active = nil
	return nil
}

func (f *fakeActiveStore) SaveActive(task ActiveTask) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.active = append(f.active, task)
	return nil
}

type fakeCatalog struct {
	tasks []Task
	err   error
}

func (f *fakeCatalog) FindAllTasks() ([]Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks, nil
}

var testCatalog = []Task{
	{Name: "run 2km", Reward: 10},
	{Name: "read 20 pages", Reward: 5},
	{Name: "sleep before midnight", Reward: 0},
	{Name: "attend lecture", Reward: 100},
	{Name: "cook a meal", Reward: 15},
}

func newTestRotationEngine(t *testing.T, active *fakeActiveStore, catalog *fakeCatalog, ledger *fakeLedger, now time.Time) *RotationEngine {
	t.Helper()
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	engine, err := NewRotationEngine(sessions, active, catalog, ledger)
	require.NoError(t, err)
	engine.now = func() time.Time { return now }
	engine.rng = rand.New(rand.NewSource(1))
	return engine
}

func TestNewRotationEngine_NilDeps(t *testing.T) {
	sessions := &fakeSessions{}
	active := &fakeActiveStore{}
	catalog := &fakeCatalog{}
	ledger := &fakeLedger{}

	_, err := NewRotationEngine(nil, active, catalog, ledger)
	assert.Error(t, err)
	_, err = NewRotationEngine(sessions, nil, catalog, ledger)
	assert.Error(t, err)
	_, err = NewRotationEngine(sessions, active, nil, ledger)
	assert.Error(t, err)
	_, err = NewRotationEngine(sessions, active, catalog, nil)
	assert.Error(t, err)
}

func TestGetActiveTasks_EmptySetRotates(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	active := &fakeActiveStore{}
	engine := newTestRotationEngine(t, active, &fakeCatalog{tasks: testCatalog}, &fakeLedger{}, now)

	tasks, err := engine.GetActiveTasks("tok")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	seen := map[string]bool{}
	for _, task := range tasks {
		assert.Equal(t, "2026-08-24", task.UpdatedOn)
		assert.False(t, seen[task.Name], "duplicate active task %q", task.Name)
		seen[task.Name] = true
	}
	// The fresh set is persisted, not just returned.
	assert.Len(t, active.active, 3)
}

func TestGetActiveTasks_StaleDayRotates(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	active := &fakeActiveStore{active: []ActiveTask{
		{Name: "run 2km", Reward: 10, UpdatedOn: "2026-08-23"},
		{Name: "read 20 pages", Reward: 5, UpdatedOn: "2026-08-23"},
		{Name: "cook a meal", Reward: 15, UpdatedOn: "2026-08-23"},
	}}
	engine := newTestRotationEngine(t, active, &fakeCatalog{tasks: testCatalog}, &fakeLedger{}, now)

	tasks, err := engine.GetActiveTasks("tok")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, 1, active.deletes, "stale set must be discarded wholesale")
	for _, task := range tasks {
		assert.Equal(t, "2026-08-24", task.UpdatedOn)
	}
}

func TestGetActiveTasks_RotationRewardsMatchCatalog(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	engine := newTestRotationEngine(t, &fakeActiveStore{}, &fakeCatalog{tasks: testCatalog}, &fakeLedger{}, now)

	tasks, err := engine.GetActiveTasks("tok")
	require.NoError(t, err)

	rewards := map[string]int64{}
	for _, task := range testCatalog {
		rewards[task.Name] = task.Reward
	}
	for _, task := range tasks {
		want, known := rewards[task.Name]
		require.True(t, known, "rotated task %q not in catalog", task.Name)
		assert.Equal(t, want, task.Reward)
	}
}

func TestGetActiveTasks_SameDayFiltersCompleted(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	active := &fakeActiveStore{active: []ActiveTask{
		{Name: "run 2km", Reward: 10, UpdatedOn: "2026-08-24"},
		{Name: "read 20 pages", Reward: 5, UpdatedOn: "2026-08-24"},
		{Name: "cook a meal", Reward: 15, UpdatedOn: "2026-08-24"},
	}}
	ledger := &fakeLedger{records: []CompletionRecord{
		{ID: "a", AccountID: "u1", TaskName: "run 2km", DayKey: "2026-08-24"},
		{ID: "b", AccountID: "u1", TaskName: "cook a meal", DayKey: "2026-08-23"},
		{ID: "c", AccountID: "u2", TaskName: "read 20 pages", DayKey: "2026-08-24"},
	}}
	engine := newTestRotationEngine(t, active, &fakeCatalog{tasks: testCatalog}, ledger, now)

	tasks, err := engine.GetActiveTasks("tok")
	require.NoError(t, err)

	// Only u1's completion from today is filtered; yesterday's and other
	// accounts' completions don't touch the view.
	require.Len(t, tasks, 2)
	assert.Equal(t, "read 20 pages", tasks[0].Name)
	assert.Equal(t, "cook a meal", tasks[1].Name)

	// The filter is a view only; the stored set is untouched.
	assert.Len(t, active.active, 3)
	assert.Zero(t, active.deletes)
}

func TestGetActiveTasks_FilterRemovesFirstMatchOnly(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	// Duplicate names can exist after racing rotations; one completion
	// removes one entry, not both.
	active := &fakeActiveStore{active: []ActiveTask{
		{Name: "run 2km", Reward: 10, UpdatedOn: "2026-08-24"},
		{Name: "run 2km", Reward: 10, UpdatedOn: "2026-08-24"},
		{Name: "cook a meal", Reward: 15, UpdatedOn: "2026-08-24"},
	}}
	ledger := &fakeLedger{records: []CompletionRecord{
		{ID: "a", AccountID: "u1", TaskName: "run 2km", DayKey: "2026-08-24"},
	}}
	engine := newTestRotationEngine(t, active, &fakeCatalog{tasks: testCatalog}, ledger, now)

	tasks, err := engine.GetActiveTasks("tok")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "run 2km", tasks[0].Name)
	assert.Equal(t, "cook a meal", tasks[1].Name)
}

func TestGetActiveTasks_AllCompletedYieldsEmptyView(t *testing.T) {
	now := time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC)
	active := &fakeActiveStore{active: []ActiveTask{
		{Name: "run 2km", Reward: 10, UpdatedOn: "2026-08-24"},
		{Name: "read 20 pages", Reward: 5, UpdatedOn: "2026-08-24"},
		{Name: "cook a meal", Reward: 15, UpdatedOn: "2026-08-24"},
	}}
	ledger := &fakeLedger{records: []CompletionRecord{
		{ID: "a", AccountID: "u1", TaskName: "run 2km", DayKey: "2026-08-24"},
		{ID: "b", AccountID: "u1", TaskName: "read 20 pages", DayKey: "2026-08-24"},
		{ID: "c", AccountID: "u1", TaskName: "cook a meal", DayKey: "2026-08-24"},
	}}
	engine := newTestRotationEngine(t, active, &fakeCatalog{tasks: testCatalog}, ledger, now)

	tasks, err := engine.GetActiveTasks("tok")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Len(t, active.active, 3)
}

func TestGetActiveTasks_InvalidSession(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	engine := newTestRotationEngine(t, &fakeActiveStore{}, &fakeCatalog{tasks: testCatalog}, &fakeLedger{}, now)

	_, err := engine.GetActiveTasks("bad-token")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestGetActiveTasks_CatalogTooSmall(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{tasks: []Task{{Name: "run 2km", Reward: 10}}}
	engine := newTestRotationEngine(t, &fakeActiveStore{}, catalog, &fakeLedger{}, now)

	_, err := engine.GetActiveTasks("tok")
	assert.Error(t, err)
}

func TestGetActiveTasks_RotationIsRandomButDistinct(t *testing.T) {
	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	for seed := int64(0); seed < 20; seed++ {
		active := &fakeActiveStore{}
		engine := newTestRotationEngine(t, active, &fakeCatalog{tasks: testCatalog}, &fakeLedger{}, now)
		engine.rng = rand.New(rand.NewSource(seed))

		tasks, err := engine.GetActiveTasks("tok")
		require.NoError(t, err)
		require.Len(t, tasks, 3)

		seen := map[string]bool{}
		for _, task := range tasks {
			assert.False(t, seen[task.Name], "seed %d produced duplicate %q", seed, task.Name)
			seen[task.Name] = true
		}
	}
}
