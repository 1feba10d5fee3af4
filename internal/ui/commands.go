package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/todo"
)

// TaskService is what the list and detail screens call into.
type TaskService interface {
	LoadInitialData(ctx context.Context) ([]todo.Task, error)
	FetchAll(ctx context.Context) ([]todo.Task, error)
	Create(ctx context.Context, title, description string) (todo.Task, error)
	Update(ctx context.Context, id int, title, description string) (todo.Task, error)
	ToggleCompletion(ctx context.Context, id int) (todo.Task, error)
	Delete(ctx context.Context, id int) error
}

// Message types
type tasksLoadedMsg struct {
	tasks   []todo.Task
	focusID int
}

type taskSavedMsg struct {
	task    todo.Task
	created bool
}

type taskToggledMsg struct{ task todo.Task }

type taskDeletedMsg struct{ id int }

type taskSharedMsg struct{ id int }

type errMsg struct {
	op  string
	err error
}

func loadInitialData(ctx context.Context, svc TaskService) tea.Cmd {
	return func() tea.Msg {
		tasks, err := svc.LoadInitialData(ctx)
		if err != nil {
			return errMsg{op: "load", err: err}
		}
		return tasksLoadedMsg{tasks: tasks}
	}
}

// refetch re-reads the list after a mutation; focusID keeps the cursor on
// the task that changed.
func refetch(ctx context.Context, svc TaskService, focusID int) tea.Cmd {
	return func() tea.Msg {
		tasks, err := svc.FetchAll(ctx)
		if err != nil {
			return errMsg{op: "reload", err: err}
		}
		return tasksLoadedMsg{tasks: tasks, focusID: focusID}
	}
}

func createTask(ctx context.Context, svc TaskService, title, description string) tea.Cmd {
	return func() tea.Msg {
		t, err := svc.Create(ctx, title, description)
		if err != nil {
			return errMsg{op: "save", err: err}
		}
		return taskSavedMsg{task: t, created: true}
	}
}

func updateTask(ctx context.Context, svc TaskService, id int, title, description string) tea.Cmd {
	return func() tea.Msg {
		t, err := svc.Update(ctx, id, title, description)
		if err != nil {
			return errMsg{op: "save", err: err}
		}
		return taskSavedMsg{task: t}
	}
}

func toggleTask(ctx context.Context, svc TaskService, id int) tea.Cmd {
	return func() tea.Msg {
		t, err := svc.ToggleCompletion(ctx, id)
		if err != nil {
			return errMsg{op: "toggle", err: err}
		}
		return taskToggledMsg{task: t}
	}
}

func deleteTask(ctx context.Context, svc TaskService, id int) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Delete(ctx, id); err != nil {
			return errMsg{op: "delete", err: err}
		}
		return taskDeletedMsg{id: id}
	}
}

// shareTask puts the task's share text on the clipboard via copyText.
func shareTask(copyText func(string) error, t todo.Task) tea.Cmd {
	return func() tea.Msg {
		if err := copyText(todo.ShareText(t)); err != nil {
			return errMsg{op: "share", err: err}
		}
		return taskSharedMsg{id: t.ID}
	}
}
