package ui

import (
	"todolist/internal/todo"
)

// listState is the last fetched task list plus the display-only search
// filter and a cursor over the visible rows.
type listState struct {
	tasks  []todo.Task
	query  string
	cursor int
}

func (l listState) visible() []todo.Task {
	return todo.Filter(l.tasks, l.query)
}

func (l listState) selected() (todo.Task, bool) {
	rows := l.visible()
	if len(rows) == 0 {
		return todo.Task{}, false
	}
	return rows[clampCursor(l.cursor, len(rows))], true
}

// setTasks replaces the list. The cursor follows focusID when it is visible.
func (l *listState) setTasks(tasks []todo.Task, focusID int) {
	l.tasks = tasks
	rows := l.visible()
	if focusID != 0 {
		if i := todo.Index(rows, focusID); i >= 0 {
			l.cursor = i
			return
		}
	}
	l.cursor = clampCursor(l.cursor, len(rows))
}

// replace swaps in a changed task without a reload.
func (l *listState) replace(t todo.Task) {
	if i := todo.Index(l.tasks, t.ID); i >= 0 {
		l.tasks[i] = t
	}
}

func (l *listState) remove(id int) {
	if i := todo.Index(l.tasks, id); i >= 0 {
		l.tasks = append(l.tasks[:i:i], l.tasks[i+1:]...)
	}
	l.cursor = clampCursor(l.cursor, len(l.visible()))
}

func (l *listState) setQuery(q string) {
	if q == l.query {
		return
	}
	l.query = q
	l.cursor = 0
}

func (l *listState) move(delta int) {
	l.cursor = clampCursor(l.cursor+delta, len(l.visible()))
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
