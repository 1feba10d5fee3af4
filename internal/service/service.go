// Package service holds the task business rules between the UI and storage.
package service

import (
	"context"
	"log/slog"
	"time"

	"todolist/internal/todo"
)

// Store is the local, durable task store.
type Store interface {
	// FetchAll returns every task, newest first.
	FetchAll(ctx context.Context) ([]todo.Task, error)

	// Get returns the task with id, or storage.ErrNotFound.
	Get(ctx context.Context, id int) (todo.Task, error)

	// Create persists a new task. A zero ID is assigned by the store.
	Create(ctx context.Context, t todo.Task) (todo.Task, error)

	// Update overwrites the stored task with t.ID, or returns storage.ErrNotFound.
	Update(ctx context.Context, t todo.Task) (todo.Task, error)

	// Delete removes the task with id, or returns storage.ErrNotFound.
	Delete(ctx context.Context, id int) error

	// ReplaceAll drops every stored task and inserts tasks.
	ReplaceAll(ctx context.Context, tasks []todo.Task) error
}

// Source provides the sample tasks imported into an empty store.
type Source interface {
	FetchSeedTasks(ctx context.Context) ([]todo.Task, error)
}

type Service struct {
	store  Store
	source Source
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, source Source, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		store:  store,
		source: source,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadInitialData returns the stored tasks. When the store is empty or cannot
// be read, the seed tasks are imported first and the store is read again.
// Every stage finishes before the next starts; the first failure ends the load.
func (s *Service) LoadInitialData(ctx context.Context) ([]todo.Task, error) {
	tasks, err := s.store.FetchAll(ctx)
	switch {
	case err != nil:
		s.log.Warn("read local tasks failed, importing seed", "err", err)
	case len(tasks) == 0:
		s.log.Debug("local store empty, importing seed")
	default:
		s.log.Debug("loaded local tasks", "count", len(tasks))
		return tasks, nil
	}

	seed, err := s.source.FetchSeedTasks(ctx)
	if err != nil {
		s.log.Error("fetch seed tasks", "err", err)
		return nil, err
	}
	if err := s.store.ReplaceAll(ctx, seed); err != nil {
		s.log.Error("store seed tasks", "count", len(seed), "err", err)
		return nil, err
	}
	s.log.Info("imported seed tasks", "count", len(seed))

	tasks, err = s.store.FetchAll(ctx)
	if err != nil {
		s.log.Error("reload tasks after import", "err", err)
		return nil, err
	}
	return tasks, nil
}

func (s *Service) FetchAll(ctx context.Context) ([]todo.Task, error) {
	tasks, err := s.store.FetchAll(ctx)
	if err != nil {
		s.log.Error("fetch tasks", "err", err)
		return nil, err
	}
	return tasks, nil
}

// Create stores a new, incomplete task created now. The store assigns the id.
func (s *Service) Create(ctx context.Context, title, description string) (todo.Task, error) {
	t, err := s.store.Create(ctx, todo.New(title, description, s.now()))
	if err != nil {
		s.log.Error("create task", "err", err)
		return todo.Task{}, err
	}
	s.log.Debug("created task", "id", t.ID)
	return t, nil
}

// Update changes the title and description of task id, keeping its
// completion state and creation time.
func (s *Service) Update(ctx context.Context, id int, title, description string) (todo.Task, error) {
	return s.modify(ctx, "update task", id, func(t *todo.Task) {
		t.Title = title
		t.Description = todo.NullableText(description)
	})
}

func (s *Service) ToggleCompletion(ctx context.Context, id int) (todo.Task, error) {
	return s.modify(ctx, "toggle task", id, func(t *todo.Task) {
		t.Completed = !t.Completed
	})
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Error("delete task", "id", id, "err", err)
		return err
	}
	s.log.Debug("deleted task", "id", id)
	return nil
}

func (s *Service) modify(ctx context.Context, op string, id int, change func(*todo.Task)) (todo.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Error(op, "id", id, "err", err)
		return todo.Task{}, err
	}
	change(&t)
	t, err = s.store.Update(ctx, t)
	if err != nil {
		s.log.Error(op, "id", id, "err", err)
		return todo.Task{}, err
	}
	return t, nil
}
