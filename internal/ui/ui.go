package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/config"
	"todolist/internal/todo"
)

type mode int

const (
	modeLoading mode = iota
	modeList
	modeSearch
	modeDetail
	modeConfirmDelete
)

const dateLayout = "02/01/06 15:04"

type Model struct {
	ctx        context.Context
	svc        TaskService
	cfg        config.Config
	log        *slog.Logger
	list       listState
	mode       mode
	search     textinput.Model
	spinner    spinner.Model
	detail     *detailState
	pendingDel *todo.Task
	status     string
	isError    bool
	width      int
	copyText   func(string) error
}

func New(ctx context.Context, svc TaskService, cfg config.Config, log *slog.Logger) Model {
	if log == nil {
		log = slog.Default()
	}

	si := textinput.New()
	si.Placeholder = "Search"
	si.Prompt = "/ "
	si.CharLimit = 100
	si.Width = 40

	return Model{
		ctx:      ctx,
		svc:      svc,
		cfg:      cfg,
		log:      log,
		mode:     modeLoading,
		search:   si,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(cursorStyle)),
		status:   "Loading tasks...",
		width:    60,
		copyText: clipboard.WriteAll,
	}
}

func Run(ctx context.Context, svc TaskService, cfg config.Config, log *slog.Logger) error {
	program := tea.NewProgram(New(ctx, svc, cfg, log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadInitialData(m.ctx, m.svc))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.search.Width = max(msg.Width-10, 20)
		return m, nil
	case spinner.TickMsg:
		if m.mode != modeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tasksLoadedMsg:
		if m.mode == modeLoading {
			m.mode = modeList
			m.setStatus(fmt.Sprintf("Loaded %d tasks. Press '%s' to add.", len(msg.tasks), m.cfg.Keys.Add))
		}
		m.list.setTasks(msg.tasks, msg.focusID)
		return m, nil
	case taskSavedMsg:
		m.detail = nil
		m.mode = modeList
		if msg.created {
			m.setStatus("Added task")
		} else {
			m.list.replace(msg.task)
			m.setStatus("Saved task")
		}
		return m, refetch(m.ctx, m.svc, msg.task.ID)
	case taskToggledMsg:
		m.list.replace(msg.task)
		m.setStatus("Toggled task")
		return m, refetch(m.ctx, m.svc, msg.task.ID)
	case taskSharedMsg:
		m.setStatus(fmt.Sprintf("Copied task #%d to the clipboard", msg.id))
		return m, nil
	case taskDeletedMsg:
		m.list.remove(msg.id)
		m.setStatus("Deleted task")
		return m, refetch(m.ctx, m.svc, 0)
	case errMsg:
		m.log.Error(msg.op+" failed", "err", msg.err)
		if m.mode == modeLoading {
			m.mode = modeList
		}
		if m.detail != nil {
			m.detail.saving = false
		}
		m.setError(fmt.Sprintf("%s failed: %v", msg.op, msg.err))
		return m, nil
	}
	return m, nil
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.isError = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.isError = true
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case modeLoading:
		if key == m.cfg.Keys.Quit {
			return m, tea.Quit
		}
		return m, nil
	case modeSearch:
		return m.updateSearchMode(key, msg)
	case modeDetail:
		return m.updateDetailMode(key, msg)
	case modeConfirmDelete:
		return m.updateDeleteConfirm(key)
	}
	return m.updateListMode(key)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	keys := m.cfg.Keys
	switch key {
	case keys.Quit:
		return m, tea.Quit
	case keys.Down, "down":
		m.list.move(1)
	case keys.Up, "up":
		m.list.move(-1)
	case keys.Add:
		return m.openDetail(nil)
	case keys.Edit:
		t, ok := m.list.selected()
		if !ok {
			m.setStatus("No tasks to edit")
			return m, nil
		}
		return m.openDetail(&t)
	case keys.Toggle:
		t, ok := m.list.selected()
		if !ok {
			return m, nil
		}
		return m, toggleTask(m.ctx, m.svc, t.ID)
	case keys.Share:
		t, ok := m.list.selected()
		if !ok {
			return m, nil
		}
		return m, shareTask(m.copyText, t)
	case keys.Delete:
		t, ok := m.list.selected()
		if !ok {
			return m, nil
		}
		m.pendingDel = &t
		m.mode = modeConfirmDelete
		m.setStatus(fmt.Sprintf("Delete %q? y/n", t.Title))
	case keys.Search:
		m.mode = modeSearch
		m.search.SetValue(m.list.query)
		m.search.CursorEnd()
		m.setStatus("Search: type to filter, enter to keep, esc to clear")
		return m, m.search.Focus()
	case keys.Cancel:
		if m.list.query != "" {
			m.list.setQuery("")
			m.search.SetValue("")
			m.setStatus("Search cleared")
		}
	}
	return m, nil
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.search.SetValue("")
		m.search.Blur()
		m.list.setQuery("")
		m.mode = modeList
		m.setStatus("Search cleared")
		return m, nil
	case m.cfg.Keys.Confirm:
		m.search.Blur()
		m.mode = modeList
		m.setStatus(fmt.Sprintf("%d matching tasks", len(m.list.visible())))
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.list.setQuery(m.search.Value())
	return m, cmd
}

func (m Model) openDetail(t *todo.Task) (tea.Model, tea.Cmd) {
	m.detail = newDetail(t, m.width)
	m.mode = modeDetail
	if t == nil {
		m.setStatus("New task")
	} else {
		m.setStatus(fmt.Sprintf("Editing task #%d", t.ID))
	}
	return m, m.detail.focusCmd()
}

func (m Model) updateDetailMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.cfg.Keys
	switch {
	case key == keys.Cancel:
		m.detail = nil
		m.mode = modeList
		m.setStatus("Cancelled")
		return m, nil
	case key == keys.NextField:
		return m, m.detail.nextField()
	case key == keys.Save, key == keys.Confirm && m.detail.focus == fieldTitle:
		cmd, err := m.detail.save(m.ctx, m.svc)
		if errors.Is(err, errEmptyTitle) {
			m.setError("Title cannot be empty")
			return m, nil
		}
		if cmd == nil {
			return m, nil
		}
		m.setStatus("Saving...")
		return m, cmd
	}
	return m, m.detail.update(msg)
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		t := m.pendingDel
		m.pendingDel = nil
		m.mode = modeList
		if t == nil {
			m.setStatus("Nothing to delete")
			return m, nil
		}
		return m, deleteTask(m.ctx, m.svc, t.ID)
	case "n", "N", m.cfg.Keys.Cancel:
		m.pendingDel = nil
		m.mode = modeList
		m.setStatus("Delete cancelled")
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n\n")

	switch {
	case m.mode == modeLoading:
		b.WriteString(m.spinner.View() + " Loading tasks...")
	case m.mode == modeDetail && m.detail != nil:
		b.WriteString(m.renderDetail())
	default:
		if m.mode == modeSearch || m.list.query != "" {
			b.WriteString(m.search.View())
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderTaskList())
		b.WriteString("\n")
		b.WriteString(faintStyle.Render(m.renderCounter()))
	}

	b.WriteString("\n\n")
	if m.isError {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(faintStyle.Render(m.renderHelp()))
	return b.String()
}

func (m Model) renderTaskList() string {
	rows := m.list.visible()
	if len(rows) == 0 {
		if m.list.query != "" {
			return "No matching tasks."
		}
		return fmt.Sprintf("No tasks yet. Press '%s' to add one.\n", m.cfg.Keys.Add)
	}

	var b strings.Builder
	for i, t := range rows {
		cursor := " "
		if i == m.list.cursor {
			cursor = cursorStyle.Render(">")
		}
		checkbox := "[ ]"
		title := t.Title
		if t.Completed {
			checkbox = "[x]"
			title = doneStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s %s %s\n", cursor, checkbox, title)
		if t.Description.Valid {
			b.WriteString("      " + faintStyle.Render(firstLine(t.Description.String)) + "\n")
		}
		b.WriteString("      " + faintStyle.Render(t.CreatedAt.Local().Format(dateLayout)) + "\n")
	}
	return b.String()
}

func (m Model) renderCounter() string {
	total := len(m.list.tasks)
	if m.list.query != "" {
		return fmt.Sprintf("%d of %d tasks", len(m.list.visible()), total)
	}
	return fmt.Sprintf("%d tasks", total)
}

func (m Model) renderDetail() string {
	var b strings.Builder
	if m.detail.editing() {
		fmt.Fprintf(&b, "Edit task #%d\n\n", m.detail.task.ID)
	} else {
		b.WriteString("New task\n\n")
	}
	b.WriteString(m.detail.title.View())
	b.WriteString("\n\n")
	b.WriteString(m.detail.description.View())
	return formStyle.Render(b.String())
}

func (m Model) renderHelp() string {
	k := m.cfg.Keys
	switch m.mode {
	case modeDetail:
		return fmt.Sprintf("%s next field • %s save • %s cancel", k.NextField, k.Save, k.Cancel)
	case modeSearch:
		return fmt.Sprintf("%s keep filter • %s clear", k.Confirm, k.Cancel)
	case modeConfirmDelete:
		return "y delete • n cancel"
	}
	return fmt.Sprintf("%s/%s move • %s add • %s edit • %s toggle • %s delete • %s share • %s search • %s quit",
		k.Up, k.Down, k.Add, k.Edit, keyLabel(k.Toggle), k.Delete, k.Share, k.Search, k.Quit)
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
