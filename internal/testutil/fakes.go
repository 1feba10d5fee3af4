// Package testutil provides in-memory stand-ins for the store and seed source.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"todolist/internal/storage"
	"todolist/internal/todo"
)

// FakeStore is an in-memory implementation of service.Store. It reports the
// same error kinds as storage.Store.
type FakeStore struct {
	mu    sync.Mutex
	tasks []todo.Task

	// Error injection for testing
	FetchAllErr   error
	GetErr        error
	CreateErr     error
	UpdateErr     error
	DeleteErr     error
	ReplaceAllErr error

	FetchAllCalls   int
	ReplaceAllCalls int
}

func NewFakeStore(tasks ...todo.Task) *FakeStore {
	return &FakeStore{tasks: slices.Clone(tasks)}
}

// Tasks returns a sorted snapshot of the stored tasks.
func (f *FakeStore) Tasks() []todo.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.tasks)
	todo.Sort(out)
	return out
}

func (f *FakeStore) FetchAll(ctx context.Context) ([]todo.Task, error) {
	f.mu.Lock()
	f.FetchAllCalls++
	err := f.FetchAllErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Tasks(), nil
}

func (f *FakeStore) Get(ctx context.Context, id int) (todo.Task, error) {
	if f.GetErr != nil {
		return todo.Task{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := todo.Index(f.tasks, id)
	if i < 0 {
		return todo.Task{}, fmt.Errorf("%w: id %d", storage.ErrNotFound, id)
	}
	return f.tasks[i], nil
}

func (f *FakeStore) Create(ctx context.Context, t todo.Task) (todo.Task, error) {
	if f.CreateErr != nil {
		return todo.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = f.nextIDLocked()
	}
	if todo.Index(f.tasks, t.ID) >= 0 {
		return todo.Task{}, fmt.Errorf("%w: duplicate id %d", storage.ErrStorage, t.ID)
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *FakeStore) Update(ctx context.Context, t todo.Task) (todo.Task, error) {
	if f.UpdateErr != nil {
		return todo.Task{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := todo.Index(f.tasks, t.ID)
	if i < 0 {
		return todo.Task{}, fmt.Errorf("%w: id %d", storage.ErrNotFound, t.ID)
	}
	f.tasks[i] = t
	return t, nil
}

func (f *FakeStore) Delete(ctx context.Context, id int) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := todo.Index(f.tasks, id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", storage.ErrNotFound, id)
	}
	f.tasks = slices.Delete(f.tasks, i, i+1)
	return nil
}

func (f *FakeStore) ReplaceAll(ctx context.Context, tasks []todo.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReplaceAllCalls++
	if f.ReplaceAllErr != nil {
		return f.ReplaceAllErr
	}
	f.tasks = slices.Clone(tasks)
	return nil
}

func (f *FakeStore) NextID(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextIDLocked(), nil
}

func (f *FakeStore) nextIDLocked() int {
	highest := 0
	for _, t := range f.tasks {
		if t.ID > highest {
			highest = t.ID
		}
	}
	return highest + 1
}

// FakeSource is a seed source returning fixed tasks or an error.
type FakeSource struct {
	mu    sync.Mutex
	Seed  []todo.Task
	Err   error
	calls int
}

func (f *FakeSource) FetchSeedTasks(ctx context.Context) ([]todo.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return slices.Clone(f.Seed), nil
}

func (f *FakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
