package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/todo"
)

var errEmptyTitle = errors.New("title cannot be empty")

type field int

const (
	fieldTitle field = iota
	fieldDescription
)

// detailState edits one task, or a new one when task is nil.
type detailState struct {
	task        *todo.Task
	title       textinput.Model
	description textarea.Model
	focus       field
	// saving is set while a save is in flight; further save keys are ignored.
	saving bool
}

func newDetail(task *todo.Task, width int) *detailState {
	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.CharLimit = 256
	ti.Width = max(width-10, 20)

	ta := textarea.New()
	ta.Placeholder = "Description (optional)"
	ta.ShowLineNumbers = false
	ta.SetWidth(max(width-6, 24))
	ta.SetHeight(4)

	d := &detailState{task: task, title: ti, description: ta}
	if task != nil {
		d.title.SetValue(task.Title)
		if task.Description.Valid {
			d.description.SetValue(task.Description.String)
		}
	}
	return d
}

func (d *detailState) editing() bool {
	return d.task != nil
}

func (d *detailState) focusCmd() tea.Cmd {
	if d.focus == fieldTitle {
		d.description.Blur()
		return d.title.Focus()
	}
	d.title.Blur()
	return d.description.Focus()
}

func (d *detailState) nextField() tea.Cmd {
	if d.focus == fieldTitle {
		d.focus = fieldDescription
	} else {
		d.focus = fieldTitle
	}
	return d.focusCmd()
}

func (d *detailState) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if d.focus == fieldTitle {
		d.title, cmd = d.title.Update(msg)
	} else {
		d.description, cmd = d.description.Update(msg)
	}
	return cmd
}

// save forwards the form to the service. A blank title is refused before
// anything is sent, and nothing is sent while an earlier save is pending.
func (d *detailState) save(ctx context.Context, svc TaskService) (tea.Cmd, error) {
	if d.saving {
		return nil, nil
	}
	title := strings.TrimSpace(d.title.Value())
	if title == "" {
		return nil, errEmptyTitle
	}
	description := strings.TrimSpace(d.description.Value())
	d.saving = true
	if d.editing() {
		return updateTask(ctx, svc, d.task.ID, title, description), nil
	}
	return createTask(ctx, svc, title, description), nil
}
