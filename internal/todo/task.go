package todo

import (
	"database/sql"
	"slices"
	"strings"
	"time"
)

type Task struct {
	ID          int
	Title       string
	Description sql.NullString
	Completed   bool
	CreatedAt   time.Time
}

// New builds an incomplete task created at now. A blank description is stored as null.
func New(title, description string, now time.Time) Task {
	return Task{
		Title:       title,
		Description: NullableText(description),
		CreatedAt:   now,
	}
}

func NullableText(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// Matches reports whether query occurs in the title or description, ignoring
// case. The query is compared as typed, surrounding spaces included.
func (t Task) Matches(query string) bool {
	if query == "" {
		return true
	}
	haystack := t.Title
	if t.Description.Valid {
		haystack += t.Description.String
	}
	return strings.Contains(strings.ToUpper(haystack), strings.ToUpper(query))
}

func Filter(tasks []Task, query string) []Task {
	if query == "" {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Matches(query) {
			out = append(out, t)
		}
	}
	return out
}

// ShareText is the plain-text form of a task handed to other apps: the title,
// followed by the description on its own line when there is one.
func ShareText(t Task) string {
	if !t.Description.Valid {
		return t.Title
	}
	return t.Title + "\n" + t.Description.String
}

// Sort orders tasks newest first; equal timestamps fall back to the higher id.
func Sort(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID - a.ID
	})
}

func Index(tasks []Task, id int) int {
	return slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
}
