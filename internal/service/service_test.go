package service_test

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todolist/internal/remote"
	"todolist/internal/service"
	"todolist/internal/storage"
	"todolist/internal/testutil"
	"todolist/internal/todo"
)

var (
	base     = time.Date(2025, 5, 21, 9, 0, 0, 0, time.UTC)
	fixedNow = base.Add(24 * time.Hour)
	quiet    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func seedTasks() []todo.Task {
	return []todo.Task{
		{ID: 1, Title: "Test todo 1", Completed: false, CreatedAt: base},
		{ID: 2, Title: "Test todo 2", Completed: true, CreatedAt: base},
	}
}

func newService(store service.Store, source service.Source) *service.Service {
	return service.New(store, source, quiet, service.WithClock(func() time.Time { return fixedNow }))
}

func TestLoadInitialData_EmptyStoreImportsSeedOnce(t *testing.T) {
	store := testutil.NewFakeStore()
	source := &testutil.FakeSource{Seed: seedTasks()}
	svc := newService(store, source)

	tasks, err := svc.LoadInitialData(t.Context())

	require.NoError(t, err)
	assert.Equal(t, 1, source.Calls())
	assert.Equal(t, 1, store.ReplaceAllCalls)
	assert.Equal(t, 2, store.FetchAllCalls)

	want := seedTasks()
	todo.Sort(want)
	if diff := cmp.Diff(want, tasks); diff != "" {
		t.Errorf("loaded tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, store.Tasks()); diff != "" {
		t.Errorf("stored tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInitialData_NonEmptyStoreSkipsSource(t *testing.T) {
	existing := todo.Task{ID: 7, Title: "Local", CreatedAt: base}
	store := testutil.NewFakeStore(existing)
	source := &testutil.FakeSource{Seed: seedTasks()}
	svc := newService(store, source)

	tasks, err := svc.LoadInitialData(t.Context())

	require.NoError(t, err)
	assert.Zero(t, source.Calls())
	assert.Zero(t, store.ReplaceAllCalls)
	assert.Equal(t, []todo.Task{existing}, tasks)
}

func TestLoadInitialData_ReadFailureFallsBackToSeed(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FetchAllErr = storage.ErrStorage
	source := &testutil.FakeSource{Err: remote.ErrTransport}
	svc := newService(store, source)

	_, err := svc.LoadInitialData(t.Context())

	require.ErrorIs(t, err, remote.ErrTransport)
	assert.Equal(t, 1, source.Calls())
	assert.Zero(t, store.ReplaceAllCalls)
}

func TestLoadInitialData_EmptyResponseLeavesStoreEmpty(t *testing.T) {
	store := testutil.NewFakeStore()
	source := &testutil.FakeSource{Err: remote.ErrEmptyResponse}
	svc := newService(store, source)

	_, err := svc.LoadInitialData(t.Context())

	require.ErrorIs(t, err, remote.ErrEmptyResponse)
	assert.Zero(t, store.ReplaceAllCalls)
	assert.Empty(t, store.Tasks())
}

func TestLoadInitialData_ReplaceFailureSurfaces(t *testing.T) {
	store := testutil.NewFakeStore()
	store.ReplaceAllErr = storage.ErrStorage
	source := &testutil.FakeSource{Seed: seedTasks()}
	svc := newService(store, source)

	_, err := svc.LoadInitialData(t.Context())

	require.ErrorIs(t, err, storage.ErrStorage)
	assert.Equal(t, 1, store.FetchAllCalls, "no re-read after failed import")
}

func TestCreate_AssignsIDsAndDefaults(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newService(store, &testutil.FakeSource{})

	first, err := svc.Create(t.Context(), "Buy milk", "")
	require.NoError(t, err)
	second, err := svc.Create(t.Context(), "Buy bread", "wholegrain")
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.False(t, first.Completed)
	assert.False(t, first.Description.Valid)
	assert.Equal(t, fixedNow, first.CreatedAt)

	assert.Equal(t, 2, second.ID)
	assert.Equal(t, "wholegrain", second.Description.String)
}

func TestCreate_StoreFailurePropagates(t *testing.T) {
	store := testutil.NewFakeStore()
	store.CreateErr = storage.ErrStorage
	svc := newService(store, &testutil.FakeSource{})

	_, err := svc.Create(t.Context(), "Buy milk", "")

	require.ErrorIs(t, err, storage.ErrStorage)
}

func TestUpdate_PreservesCompletionAndCreatedAt(t *testing.T) {
	store := testutil.NewFakeStore(todo.Task{ID: 3, Title: "Old", Completed: true, CreatedAt: base})
	svc := newService(store, &testutil.FakeSource{})

	got, err := svc.Update(t.Context(), 3, "New", "details")

	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "details", got.Description.String)
	assert.True(t, got.Completed)
	assert.Equal(t, base, got.CreatedAt)
	assert.Equal(t, []todo.Task{got}, store.Tasks())
}

func TestToggleCompletion_FlipsAndPersists(t *testing.T) {
	store := testutil.NewFakeStore(todo.Task{ID: 2, Title: "Done already", Completed: true, CreatedAt: base})
	svc := newService(store, &testutil.FakeSource{})

	got, err := svc.ToggleCompletion(t.Context(), 2)

	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.False(t, store.Tasks()[0].Completed)
}

func TestMissingID_NotFoundAndUnchanged(t *testing.T) {
	existing := todo.Task{ID: 1, Title: "Only", CreatedAt: base}
	store := testutil.NewFakeStore(existing)
	svc := newService(store, &testutil.FakeSource{})
	ctx := t.Context()

	_, err := svc.Update(ctx, 42, "x", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.ToggleCompletion(ctx, 42)
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(ctx, 42)
	require.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, []todo.Task{existing}, store.Tasks())
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	store := testutil.NewFakeStore(
		todo.Task{ID: 1, Title: "a", CreatedAt: base},
		todo.Task{ID: 2, Title: "b", CreatedAt: base},
		todo.Task{ID: 3, Title: "c", CreatedAt: base},
	)
	svc := newService(store, &testutil.FakeSource{})

	require.NoError(t, svc.Delete(t.Context(), 2))

	tasks, err := svc.FetchAll(t.Context())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 3, tasks[0].ID)
	assert.Equal(t, 1, tasks[1].ID)
}

func TestFetchAll_PropagatesError(t *testing.T) {
	store := testutil.NewFakeStore()
	boom := errors.New("disk gone")
	store.FetchAllErr = boom
	svc := newService(store, &testutil.FakeSource{})

	_, err := svc.FetchAll(t.Context())

	require.ErrorIs(t, err, boom)
}

// The cases below run against a real SQLite store.

func openStore(t *testing.T) *storage.Store {
	t.Helper()

	s, err := storage.Open(filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_SeedImportThenLocalEdits(t *testing.T) {
	store := openStore(t)
	source := &testutil.FakeSource{Seed: seedTasks()}
	svc := newService(store, source)
	ctx := t.Context()

	tasks, err := svc.LoadInitialData(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Test todo 2", tasks[0].Title)
	assert.True(t, tasks[0].Completed)
	assert.False(t, tasks[0].Description.Valid)
	assert.Equal(t, "Test todo 1", tasks[1].Title)
	assert.False(t, tasks[1].Completed)
	assert.False(t, tasks[1].Description.Valid)

	created, err := svc.Create(ctx, "Buy milk", "")
	require.NoError(t, err)
	assert.Equal(t, 3, created.ID)

	next, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	_, err = svc.ToggleCompletion(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 1))

	tasks, err = svc.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 3, tasks[0].ID, "newest first")
	assert.Equal(t, 2, tasks[1].ID)
	assert.False(t, tasks[1].Completed)

	// A second launch finds data and never asks the source again.
	_, err = svc.LoadInitialData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.Calls())
}

func TestSQLite_CreateOnEmptyStoreStartsAtOne(t *testing.T) {
	svc := newService(openStore(t), &testutil.FakeSource{})
	ctx := t.Context()

	first, err := svc.Create(ctx, "Buy milk", "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "Buy eggs", "")
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.False(t, first.Completed)
	assert.Equal(t, 2, second.ID)
}
